package yahoo

import (
	"encoding/json"
	"time"

	"github.com/gzimm88/StockLensesV2/pkg/formulas"
)

// RawValue is Yahoo's {raw, fmt} numeric wrapper. Some endpoints emit
// bare numbers or numeric strings instead, so unmarshalling accepts all
// three shapes.
type RawValue struct {
	raw *float64
}

// UnmarshalJSON accepts {"raw": n, "fmt": "..."}, a bare number, or a
// numeric string.
func (r *RawValue) UnmarshalJSON(data []byte) error {
	var wrapped struct {
		Raw any `json:"raw"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Raw != nil {
		r.raw = formulas.Coerce(wrapped.Raw)
		return nil
	}
	var bare any
	if err := json.Unmarshal(data, &bare); err != nil {
		return err
	}
	r.raw = formulas.Coerce(bare)
	return nil
}

// Value returns the finite numeric value, or nil.
func (r *RawValue) Value() *float64 {
	if r == nil {
		return nil
	}
	return r.raw
}

// ISODate interprets the value as a Unix timestamp and returns the
// YYYY-MM-DD string, or "" when unset.
func (r *RawValue) ISODate() string {
	v := r.Value()
	if v == nil {
		return ""
	}
	return time.Unix(int64(*v), 0).UTC().Format("2006-01-02")
}

// ChartResponse is the /v8/finance/chart envelope.
type ChartResponse struct {
	Chart struct {
		Result []ChartResult `json:"result"`
		Error  any           `json:"error"`
	} `json:"chart"`
}

// ChartResult is one symbol's price series from the chart API.
// Indicator arrays align index-for-index with Timestamp; individual
// entries may be null on holidays or partial sessions.
type ChartResult struct {
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote    []QuoteIndicators    `json:"quote"`
		AdjClose []AdjCloseIndicators `json:"adjclose"`
	} `json:"indicators"`
}

// QuoteIndicators holds split-adjusted OHLCV arrays.
type QuoteIndicators struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*float64 `json:"volume"`
}

// AdjCloseIndicators holds the dividend-and-split-adjusted close array.
type AdjCloseIndicators struct {
	AdjClose []*float64 `json:"adjclose"`
}

// IncomeStatement is one period from the income statement modules.
type IncomeStatement struct {
	EndDate                *RawValue `json:"endDate"`
	TotalRevenue           *RawValue `json:"totalRevenue"`
	NetIncome              *RawValue `json:"netIncome"`
	EBIT                   *RawValue `json:"ebit"`
	InterestExpense        *RawValue `json:"interestExpense"`
	StockBasedCompensation *RawValue `json:"stockBasedCompensation"`
	DilutedAverageShares   *RawValue `json:"dilutedAverageShares"`
	DilutedEPS             *RawValue `json:"dilutedEps"`
}

// CashflowStatement is one period from the cashflow statement modules.
type CashflowStatement struct {
	EndDate                            *RawValue `json:"endDate"`
	TotalCashFromOperatingActivities   *RawValue `json:"totalCashFromOperatingActivities"`
	CapitalExpenditures                *RawValue `json:"capitalExpenditures"`
	Depreciation                       *RawValue `json:"depreciation"`
	StockBasedCompensation             *RawValue `json:"stockBasedCompensation"`
	InterestPaid                       *RawValue `json:"interestPaid"`
}

// BalanceSheetStatement is one period from the balance sheet modules.
type BalanceSheetStatement struct {
	EndDate                *RawValue `json:"endDate"`
	Cash                   *RawValue `json:"cash"`
	ShortLongTermDebt      *RawValue `json:"shortLongTermDebt"`
	LongTermDebt           *RawValue `json:"longTermDebt"`
	TotalStockholderEquity *RawValue `json:"totalStockholderEquity"`
	TotalAssets            *RawValue `json:"totalAssets"`
}

// IncomeStatementHistory wraps the income statement module array.
type IncomeStatementHistory struct {
	IncomeStatementHistory []IncomeStatement `json:"incomeStatementHistory"`
}

// CashflowStatementHistory wraps the cashflow statement module array.
type CashflowStatementHistory struct {
	CashflowStatements []CashflowStatement `json:"cashflowStatements"`
}

// BalanceSheetHistory wraps the balance sheet module array.
type BalanceSheetHistory struct {
	BalanceSheetStatements []BalanceSheetStatement `json:"balanceSheetStatements"`
}

// PriceModule carries current quote and share statistics.
type PriceModule struct {
	RegularMarketPrice *RawValue `json:"regularMarketPrice"`
	MarketCap          *RawValue `json:"marketCap"`
}

// SummaryDetail carries valuation snapshot fields.
type SummaryDetail struct {
	TrailingPE *RawValue `json:"trailingPE"`
	ForwardPE  *RawValue `json:"forwardPE"`
}

// KeyStatistics carries defaultKeyStatistics fields used for metrics.
type KeyStatistics struct {
	SharesOutstanding   *RawValue `json:"sharesOutstanding"`
	ForwardEPS          *RawValue `json:"forwardEps"`
	TrailingEPS         *RawValue `json:"trailingEps"`
	EnterpriseValue     *RawValue `json:"enterpriseValue"`
	EnterpriseToEbitda  *RawValue `json:"enterpriseToEbitda"`
	HeldPercentInsiders *RawValue `json:"heldPercentInsiders"`
	Beta                *RawValue `json:"beta"`
	PegRatio            *RawValue `json:"pegRatio"`
}

// FinancialData carries aggregate fields used as fallbacks when the
// statement histories are too sparse to derive them.
type FinancialData struct {
	TotalRevenue *RawValue `json:"totalRevenue"`
	DebtToEquity *RawValue `json:"debtToEquity"`
}

// QuoteSummaryResult is one symbol's quoteSummary payload with the
// modules this service requests.
type QuoteSummaryResult struct {
	IncomeStatementHistory            *IncomeStatementHistory   `json:"incomeStatementHistory"`
	IncomeStatementHistoryQuarterly   *IncomeStatementHistory   `json:"incomeStatementHistoryQuarterly"`
	CashflowStatementHistory          *CashflowStatementHistory `json:"cashflowStatementHistory"`
	CashflowStatementHistoryQuarterly *CashflowStatementHistory `json:"cashflowStatementHistoryQuarterly"`
	BalanceSheetHistory               *BalanceSheetHistory      `json:"balanceSheetHistory"`
	BalanceSheetHistoryQuarterly      *BalanceSheetHistory      `json:"balanceSheetHistoryQuarterly"`
	Price                             *PriceModule              `json:"price"`
	SummaryDetail                     *SummaryDetail            `json:"summaryDetail"`
	DefaultKeyStatistics              *KeyStatistics            `json:"defaultKeyStatistics"`
	FinancialData                     *FinancialData            `json:"financialData"`
}

// QuoteSummaryResponse is the /v10/finance/quoteSummary envelope.
type QuoteSummaryResponse struct {
	QuoteSummary struct {
		Result []QuoteSummaryResult `json:"result"`
		Error  any                  `json:"error"`
	} `json:"quoteSummary"`
}
