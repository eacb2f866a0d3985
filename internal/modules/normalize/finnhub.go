package normalize

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gzimm88/StockLensesV2/internal/clients/finnhub"
	"github.com/gzimm88/StockLensesV2/internal/domain"
	"github.com/gzimm88/StockLensesV2/pkg/formulas"
)

var quarterLabelRe = regexp.MustCompile(`^Q?([1-4])$`)

// NormalizeShares converts a reported diluted share count to a raw
// count, auto-detecting "in millions" reporting:
//
//	v >= 1e8       -> already a full count
//	0 < v < 1e6    -> likely millions, multiply by 1e6
//	otherwise      -> as-is
func NormalizeShares(v any) *float64 {
	n := formulas.Coerce(v)
	if n == nil {
		return nil
	}
	if *n >= 1e8 {
		return n
	}
	if *n > 0 && *n < 1e6 {
		return formulas.Ptr(*n * 1e6)
	}
	return n
}

// NormalizeQuarterLabel normalizes a quarter label to "Q1".."Q4".
// Accepts "Q1", "1", 1, "QUARTER1" and similar variants. Unrecognized
// input falls back to "Q1"; callers log that case.
func NormalizeQuarterLabel(q any) (string, bool) {
	s := strings.TrimSpace(strings.ReplaceAll(strings.ToUpper(fmt.Sprint(q)), "QUARTER", ""))
	if m := quarterLabelRe.FindStringSubmatch(s); m != nil {
		return "Q" + m[1], true
	}
	return "Q1", false
}

func quarterNum(label string) int {
	switch label {
	case "Q1":
		return 1
	case "Q2":
		return 2
	case "Q3":
		return 3
	case "Q4":
		return 4
	}
	return 1
}

// Flow fields are YTD-cumulative in as-reported filings and must be
// differenced per quarter. Balance sheet fields are point-in-time.
var flowDefs = []struct {
	key     string
	field   string
	section string
}{
	{"cfo", fieldCFO, "cf"},
	{"capex", fieldCapEx, "cf"},
	{"sbc", fieldSBC, "cf"},
	{"depreciation", fieldDepreciation, "cf"},
	{"interest_exp", fieldInterestExp, "ic"},
	{"ebit", fieldEBIT, "ic"},
	{"net_income", fieldNetIncome, "ic"},
}

type rawReport struct {
	fiscalYear int
	quarter    string
	periodEnd  string
	ic, bs, cf []finnhub.LineItem
}

type quarterized struct {
	periodEnd  string
	fiscalYear int
	quarter    string

	flows         map[string]*float64
	dilutedEPS    *float64
	sharesDiluted *float64

	cash        *float64
	shortDebt   *float64
	longDebt    *float64
	totalDebt   *float64
	equity      *float64
	totalAssets *float64
}

// FinnhubNormalizer converts raw as-reported filings into canonical
// quarterly statement records.
type FinnhubNormalizer struct {
	log zerolog.Logger
}

// NewFinnhubNormalizer creates a Finnhub normalizer.
func NewFinnhubNormalizer(log zerolog.Logger) *FinnhubNormalizer {
	return &FinnhubNormalizer{
		log: log.With().Str("component", "finnhub_normalizer").Logger(),
	}
}

func fiscalYearOf(r finnhub.ReportedRecord) int {
	if r.Year != 0 {
		return r.Year
	}
	for _, d := range []string{r.EndDate, r.AcceptedDate} {
		if len(d) >= 10 {
			if t, err := time.Parse("2006-01-02", d[:10]); err == nil {
				return t.Year()
			}
		}
	}
	return 2000
}

func (n *FinnhubNormalizer) quarterLabelOf(r finnhub.ReportedRecord) string {
	candidates := []any{r.Quarter, r.FiscalQuarter}
	if r.Report != nil {
		candidates = append(candidates, r.Report.FP)
	}
	candidates = append(candidates, r.Period)
	for _, c := range candidates {
		if c == nil || c == "" {
			continue
		}
		label, ok := NormalizeQuarterLabel(c)
		if !ok {
			n.log.Warn().
				Interface("raw", c).
				Str("period_end", r.EndDate).
				Msg("Unrecognized quarter label, defaulting to Q1")
		}
		return label
	}
	return "Q1"
}

// Statements parses raw financials-reported responses and produces
// canonical quarterly records sorted newest-first.
//
// Flow fields are differenced per fiscal year (Q1 = YTD directly,
// subsequent quarters = YTD - previous YTD). When a fiscal year has
// exactly 3 quarters and annual data exists, the missing Q4 is
// synthesized as annual minus Q3 YTD per flow field.
func (n *FinnhubNormalizer) Statements(ticker string, quarterly, annual *finnhub.ReportedFinancials) []domain.StatementRecord {
	var reports []rawReport
	annualSections := map[int][]finnhub.LineItem{}

	if quarterly != nil {
		for _, r := range quarterly.Data {
			if r.Report == nil {
				continue
			}
			endDate := r.EndDate
			if endDate == "" {
				endDate = r.AcceptedDate
			}
			if endDate == "" {
				endDate = r.Period
			}
			if len(endDate) < 10 {
				continue
			}
			reports = append(reports, rawReport{
				fiscalYear: fiscalYearOf(r),
				quarter:    n.quarterLabelOf(r),
				periodEnd:  endDate[:10],
				ic:         r.Report.IC,
				bs:         r.Report.BS,
				cf:         r.Report.CF,
			})
		}
	}

	if annual != nil {
		for _, r := range annual.Data {
			if r.Report == nil {
				continue
			}
			sections := append([]finnhub.LineItem{}, r.Report.IC...)
			sections = append(sections, r.Report.CF...)
			annualSections[fiscalYearOf(r)] = sections
		}
	}

	yearSet := map[int]bool{}
	for _, r := range reports {
		yearSet[r.fiscalYear] = true
	}
	years := make([]int, 0, len(yearSet))
	for y := range yearSet {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))

	var out []quarterized

	for _, fy := range years {
		var yr []rawReport
		for _, r := range reports {
			if r.fiscalYear == fy {
				yr = append(yr, r)
			}
		}
		sort.Slice(yr, func(i, j int) bool {
			return quarterNum(yr[i].quarter) < quarterNum(yr[j].quarter)
		})

		n.log.Debug().Int("fiscal_year", fy).Int("quarters", len(yr)).Msg("Quarterizing fiscal year")

		ytdFlows := map[string]float64{}
		var yearOut []quarterized

		for _, r := range yr {
			shares := NormalizeShares(rawShareValue(r.ic))

			qd := quarterized{
				periodEnd:     r.periodEnd,
				fiscalYear:    fy,
				quarter:       r.quarter,
				flows:         map[string]*float64{},
				sharesDiluted: shares,
				cash:          matchLineItem(r.bs, fieldCash),
				shortDebt:     matchLineItem(r.bs, fieldShortDebt),
				longDebt:      matchLineItem(r.bs, fieldLongDebt),
				totalDebt:     matchLineItem(r.bs, fieldTotalDebt),
				equity:        matchLineItem(r.bs, fieldEquity),
				totalAssets:   matchLineItem(r.bs, fieldTotalAssets),
			}

			for _, fd := range flowDefs {
				src := r.cf
				if fd.section == "ic" {
					src = r.ic
				}
				ytd := matchLineItem(src, fd.field)
				if ytd == nil {
					continue
				}
				// A later quarter with no prior cumulative stays
				// null; the half-year figure is never passed off as
				// a single quarter.
				if quarterNum(r.quarter) == 1 {
					qd.flows[fd.key] = ytd
				} else if prev, ok := ytdFlows[fd.key]; ok {
					qd.flows[fd.key] = formulas.Ptr(*ytd - prev)
				}
				ytdFlows[fd.key] = *ytd
			}

			if ni := qd.flows["net_income"]; ni != nil && shares != nil && *shares > 0 {
				qd.dilutedEPS = formulas.Ptr(*ni / *shares)
			}

			yearOut = append(yearOut, qd)
		}

		// Q4 synthesis from annual totals when the year has only 3 quarters.
		if len(yearOut) == 3 && len(annualSections[fy]) > 0 {
			if q4 := n.synthesizeQ4(fy, yearOut, annualSections[fy], ytdFlows); q4 != nil {
				yearOut = append(yearOut, *q4)
				sort.Slice(yearOut, func(i, j int) bool {
					return quarterNum(yearOut[i].quarter) < quarterNum(yearOut[j].quarter)
				})
			}
		}

		out = append(out, yearOut...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].periodEnd > out[j].periodEnd
	})

	n.log.Info().Str("ticker", ticker).Int("count", len(out)).Msg("Quarterized reports")

	records := make([]domain.StatementRecord, 0, len(out))
	asOf := time.Now().UTC().Format("2006-01-02")
	for _, q := range out {
		records = append(records, q.toRecord(ticker, asOf))
	}
	return records
}

// synthesizeQ4 builds a Q4 record from the Q3 balance sheet and the
// annual-minus-YTD flow difference. Fields missing on either side stay
// null rather than inheriting Q3's flow values.
func (n *FinnhubNormalizer) synthesizeQ4(fy int, yearOut []quarterized, annualItems []finnhub.LineItem, ytdFlows map[string]float64) *quarterized {
	var q3 *quarterized
	for i := range yearOut {
		if yearOut[i].quarter == "Q3" {
			q3 = &yearOut[i]
			break
		}
	}
	if q3 == nil {
		return nil
	}

	q4 := *q3
	q4.quarter = "Q4"
	q4.flows = map[string]*float64{}

	for _, fd := range flowDefs {
		a := matchLineItem(annualItems, fd.field)
		y, hasYTD := ytdFlows[fd.key]
		if a != nil && hasYTD {
			q4.flows[fd.key] = formulas.Ptr(*a - y)
		}
		n.log.Debug().
			Int("fiscal_year", fy).
			Str("field", fd.key).
			Msg("Synthesized Q4 flow")
	}

	q4.dilutedEPS = nil
	if ni := q4.flows["net_income"]; ni != nil && q4.sharesDiluted != nil && *q4.sharesDiluted > 0 {
		q4.dilutedEPS = formulas.Ptr(*ni / *q4.sharesDiluted)
	}
	return &q4
}

// rawShareValue finds the reported diluted share count before scaling.
func rawShareValue(ic []finnhub.LineItem) any {
	if v := matchLineItem(ic, fieldSharesDiluted); v != nil {
		return *v
	}
	return nil
}

func (q quarterized) toRecord(ticker, asOf string) domain.StatementRecord {
	return domain.StatementRecord{
		Ticker:                 ticker,
		PeriodEnd:              q.periodEnd,
		Freq:                   domain.FreqQuarterly,
		Source:                 domain.SourceFinnhub,
		AsOfDate:               asOf,
		NetIncome:              q.flows["net_income"],
		EBIT:                   q.flows["ebit"],
		InterestExpense:        q.flows["interest_exp"],
		Depreciation:           q.flows["depreciation"],
		StockBasedCompensation: q.flows["sbc"],
		CFO:                    q.flows["cfo"],
		Capex:                  q.flows["capex"],
		SharesDiluted:          q.sharesDiluted,
		EPSDiluted:             q.dilutedEPS,
		Cash:                   q.cash,
		ShortDebt:              q.shortDebt,
		LongDebt:               q.longDebt,
		TotalDebt:              q.totalDebt,
		StockholderEquity:      q.equity,
		TotalAssets:            q.totalAssets,
	}
}
