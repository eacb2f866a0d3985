package metrics

import (
	"math"

	"github.com/gzimm88/StockLensesV2/internal/domain"
	"github.com/gzimm88/StockLensesV2/pkg/formulas"
)

// CapitalAllocationMetrics holds leverage and shareholder-return
// ratios.
type CapitalAllocationMetrics struct {
	ROICPct         *float64
	DebtToEquity    *float64
	NetDebtToEBITDA *float64
	InterestCovX    *float64
	SBCToSalesPct   *float64
	BuybackYieldPct *float64
}

// ComputeCapitalAllocationMetrics derives leverage and buyback ratios.
// annual must be sorted newest-first.
//
// ROIC uses the simplified invested-capital base (total debt + equity)
// and adds back interest expense to net income. Buyback yield compares
// the two most recent annual diluted share counts; positive means the
// share count shrank.
func ComputeCapitalAllocationMetrics(
	ttm TTMAggregate,
	balance BalanceSnapshot,
	annual []domain.StatementRecord,
) CapitalAllocationMetrics {
	out := CapitalAllocationMetrics{}

	ebitda := EBITDA(ttm.EBIT, ttm.Depreciation)

	if ttm.NetIncome != nil && ttm.InterestExpense != nil &&
		balance.TotalDebt != nil && balance.StockholderEquity != nil {
		invested := *balance.TotalDebt + *balance.StockholderEquity
		if invested != 0 {
			out.ROICPct = formulas.Ptr(100 * (*ttm.NetIncome + *ttm.InterestExpense) / invested)
		}
	}

	if balance.TotalDebt != nil && balance.StockholderEquity != nil && *balance.StockholderEquity != 0 {
		out.DebtToEquity = formulas.Ptr(*balance.TotalDebt / *balance.StockholderEquity)
	}

	if balance.TotalDebt != nil && balance.Cash != nil && ebitda != nil && *ebitda != 0 {
		out.NetDebtToEBITDA = formulas.Ptr((*balance.TotalDebt - *balance.Cash) / *ebitda)
	}

	if ttm.EBIT != nil && ttm.InterestExpense != nil && math.Abs(*ttm.InterestExpense) > 0 {
		out.InterestCovX = formulas.Ptr(*ttm.EBIT / math.Abs(*ttm.InterestExpense))
	}

	if ttm.SBC != nil && ttm.Revenue != nil && *ttm.Revenue != 0 {
		out.SBCToSalesPct = formulas.Ptr(100 * *ttm.SBC / *ttm.Revenue)
	}

	// Buyback yield from the 2 most recent annual share counts:
	// 100 * (prior - current) / prior.
	recent := annual
	if len(recent) > 2 {
		recent = recent[:2]
	}
	var shares []float64
	for _, a := range recent {
		if a.SharesDiluted != nil && formulas.IsFinite(*a.SharesDiluted) {
			shares = append(shares, *a.SharesDiluted)
		}
	}
	if len(shares) == 2 && shares[1] != 0 {
		out.BuybackYieldPct = formulas.Ptr(100 * (shares[1] - shares[0]) / shares[1])
	}

	return out
}
