package normalize

import (
	"regexp"

	"github.com/gzimm88/StockLensesV2/internal/clients/finnhub"
	"github.com/gzimm88/StockLensesV2/pkg/formulas"
)

// conceptPattern matches an XBRL concept or label. Go regexps have no
// lookaheads, so the negative conditions from the upstream ETL are
// expressed as a separate exclude expression: a candidate matching
// both match and exclude is skipped.
type conceptPattern struct {
	match   *regexp.Regexp
	exclude *regexp.Regexp
}

func pat(expr string) conceptPattern {
	return conceptPattern{match: regexp.MustCompile("(?i)" + expr)}
}

func patExcl(expr, excl string) conceptPattern {
	return conceptPattern{
		match:   regexp.MustCompile("(?i)" + expr),
		exclude: regexp.MustCompile("(?i)" + excl),
	}
}

// Field keys for the pattern table.
const (
	fieldCFO           = "CFO"
	fieldCapEx         = "CapEx"
	fieldSBC           = "SBC"
	fieldDepreciation  = "Depreciation"
	fieldInterestExp   = "InterestExp"
	fieldCash          = "Cash"
	fieldShortDebt     = "ShortDebt"
	fieldLongDebt      = "LongDebt"
	fieldTotalDebt     = "TotalDebt"
	fieldEquity        = "Equity"
	fieldTotalAssets   = "TotalAssets"
	fieldEBIT          = "EBIT"
	fieldNetIncome     = "NetIncome"
	fieldSharesDiluted = "SharesDiluted"
)

// patterns maps canonical fields to ordered regex candidates. Earlier
// patterns win; within a pattern, the first matching line item wins.
// US-GAAP tags lead so generic label matches only apply to filers that
// use custom concepts.
var patterns = map[string][]conceptPattern{
	fieldCFO: {
		pat(`us-gaap_netcashprovidedbyusedinoperatingactivities`),
		pat(`operating.*cash.*flow`),
		pat(`net.*cash.*provided.*operating`),
	},
	fieldCapEx: {
		pat(`paymentstoacquirepropertyplantandequipment`),
		pat(`paymentstoacquireproductiveassets`),
		pat(`acquisitionofpropertyplantandequipment`),
		pat(`(acquire|purchase).*property.*plant.*equipment`),
		pat(`productiveassets`),
		pat(`capital.*expend`),
	},
	fieldSBC: {
		pat(`us-gaap_sharebasedcompensation`),
		pat(`share.*based.*comp`),
		pat(`stock.*based.*comp`),
	},
	fieldDepreciation: {
		pat(`us-gaap_depreciationdepletionandamortization`),
		patExcl(`deprecia(tion)?`, `deprecia(tion)?.*tax`),
		pat(`deprecia.*amor[tz]`),
	},
	fieldInterestExp: {
		pat(`interest.*expense`),
		pat(`interest.*paid`),
	},
	fieldCash: {
		patExcl(`cash`, `cash.*flow`),
		pat(`cash.*equivalents`),
		pat(`cash.*short.*term.*invest`),
	},
	fieldShortDebt: {
		pat(`commercial.*paper`),
		pat(`short.*term.*debt`),
		pat(`current.*portion.*long.*term.*debt`),
	},
	fieldLongDebt: {
		pat(`longtermdebtnoncurrent`),
		patExcl(`long.*term.*debt`, `long.*term.*debt.*current`),
	},
	fieldTotalDebt: {
		pat(`total.*debt`),
		pat(`total.*interest.*bearing.*debt`),
	},
	fieldEquity: {
		pat(`total.*share.*holder.*equity`),
		pat(`totalstockholdersequity`),
	},
	fieldTotalAssets: {
		pat(`total.*assets`),
	},
	fieldEBIT: {
		pat(`us-gaap_earningsbeforeinterestandtaxes`),
		pat(`us-gaap_operatingincomeloss`),
		pat(`^ebit$`),
		pat(`earnings.*before.*interest.*tax`),
	},
	fieldNetIncome: {
		pat(`us-gaap_netincomeloss`),
		pat(`^net.*income`),
	},
	fieldSharesDiluted: {
		pat(`us-gaap_weightedaveragenumberofdilutedshare`),
		pat(`weighted.*average.*shares.*diluted`),
	},
}

func (p conceptPattern) matches(s string) bool {
	if !p.match.MatchString(s) {
		return false
	}
	if p.exclude != nil && p.exclude.MatchString(s) {
		return false
	}
	return true
}

// matchLineItem scans items for the first one whose concept or label
// matches a pattern for the field, in pattern order, and returns its
// numeric value.
func matchLineItem(items []finnhub.LineItem, field string) *float64 {
	for _, p := range patterns[field] {
		for _, item := range items {
			if p.matches(item.Concept) || p.matches(item.Label) {
				if v := formulas.Coerce(item.Value); v != nil {
					return v
				}
			}
		}
	}
	return nil
}
