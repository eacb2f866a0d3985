// Package metrics computes the deterministic per-ticker metrics record
// from normalized statements and prices. Every formula here is pure:
// same inputs, same outputs, no vendor-reported ratios.
package metrics

import (
	"github.com/gzimm88/StockLensesV2/internal/domain"
	"github.com/gzimm88/StockLensesV2/pkg/formulas"
)

// TTMAggregate holds trailing-twelve-month flow sums over the 4 most
// recent quarters. A sum is nil when any of the 4 quarters is missing
// that field; partial sums are never produced.
type TTMAggregate struct {
	Revenue          *float64
	NetIncome        *float64
	CFO              *float64
	Capex            *float64
	EBIT             *float64
	InterestExpense  *float64
	Depreciation     *float64
	SBC              *float64
	SharesDilutedAvg *float64
}

// BalanceSnapshot is the point-in-time balance sheet from the most
// recent quarter. Never summed across quarters.
type BalanceSnapshot struct {
	Cash              *float64
	TotalDebt         *float64
	StockholderEquity *float64
	TotalAssets       *float64
	SharesOutstanding *float64
}

func sum4(last4 []domain.StatementRecord, get func(domain.StatementRecord) *float64) *float64 {
	if len(last4) < 4 {
		return nil
	}
	total := 0.0
	for _, q := range last4 {
		v := get(q)
		if v == nil || !formulas.IsFinite(*v) {
			return nil
		}
		total += *v
	}
	return formulas.Ptr(total)
}

func avg4(last4 []domain.StatementRecord, get func(domain.StatementRecord) *float64) *float64 {
	s := sum4(last4, get)
	if s == nil {
		return nil
	}
	return formulas.Ptr(*s / 4)
}

// BuildTTM builds TTM flow sums and the point-in-time balance snapshot
// from quarterly records sorted newest-first.
func BuildTTM(quarterly []domain.StatementRecord) (TTMAggregate, BalanceSnapshot) {
	last4 := quarterly
	if len(last4) > 4 {
		last4 = last4[:4]
	}

	ttm := TTMAggregate{
		Revenue:          sum4(last4, func(q domain.StatementRecord) *float64 { return q.Revenue }),
		NetIncome:        sum4(last4, func(q domain.StatementRecord) *float64 { return q.NetIncome }),
		CFO:              sum4(last4, func(q domain.StatementRecord) *float64 { return q.CFO }),
		Capex:            sum4(last4, func(q domain.StatementRecord) *float64 { return q.Capex }),
		EBIT:             sum4(last4, func(q domain.StatementRecord) *float64 { return q.EBIT }),
		InterestExpense:  sum4(last4, func(q domain.StatementRecord) *float64 { return q.InterestExpense }),
		Depreciation:     sum4(last4, func(q domain.StatementRecord) *float64 { return q.Depreciation }),
		SBC:              sum4(last4, func(q domain.StatementRecord) *float64 { return q.StockBasedCompensation }),
		SharesDilutedAvg: avg4(last4, func(q domain.StatementRecord) *float64 { return q.SharesDiluted }),
	}

	var balance BalanceSnapshot
	if len(quarterly) > 0 {
		latest := quarterly[0]
		balance = BalanceSnapshot{
			Cash:              latest.Cash,
			TotalDebt:         latest.TotalDebt,
			StockholderEquity: latest.StockholderEquity,
			TotalAssets:       latest.TotalAssets,
			SharesOutstanding: latest.SharesDiluted,
		}
	}

	return ttm, balance
}

// FreeCashFlow derives FCF = CFO - |capex|. Capex signs vary by vendor,
// so the absolute value is always subtracted.
func FreeCashFlow(cfo, capex *float64) *float64 {
	if cfo == nil || capex == nil {
		return nil
	}
	c := *capex
	if c < 0 {
		c = -c
	}
	return formulas.Ptr(*cfo - c)
}

// EBITDA derives ebitda = ebit + depreciation, nil when either is
// missing.
func EBITDA(ebit, depreciation *float64) *float64 {
	if ebit == nil || depreciation == nil {
		return nil
	}
	return formulas.Ptr(*ebit + *depreciation)
}

// EPSTTM derives TTM EPS = TTM net income / average diluted shares.
func EPSTTM(netIncomeTTM, sharesAvg *float64) *float64 {
	if netIncomeTTM == nil || sharesAvg == nil || *sharesAvg <= 0 {
		return nil
	}
	return formulas.Ptr(*netIncomeTTM / *sharesAvg)
}
