package finnhub

import "math"

// LineItem is one XBRL line from a financials-reported statement
// section. Value may arrive as a number or a numeric string.
type LineItem struct {
	Concept string `json:"concept"`
	Label   string `json:"label"`
	Value   any    `json:"value"`
}

// ReportDetail holds the three statement sections of one filing.
type ReportDetail struct {
	IC []LineItem `json:"ic"`
	BS []LineItem `json:"bs"`
	CF []LineItem `json:"cf"`
	FP string     `json:"fp"`
}

// ReportedRecord is one filing from /stock/financials-reported.
// Quarter may arrive as "Q1", "1" or 1 depending on the filer.
type ReportedRecord struct {
	Symbol        string        `json:"symbol"`
	Year          int           `json:"year"`
	Quarter       any           `json:"quarter"`
	FiscalQuarter any           `json:"fiscalQuarter"`
	StartDate     string        `json:"startDate"`
	EndDate       string        `json:"endDate"`
	AcceptedDate  string        `json:"acceptedDate"`
	Period        string        `json:"period"`
	Report        *ReportDetail `json:"report"`
}

// ReportedFinancials is the /stock/financials-reported response body.
type ReportedFinancials struct {
	Symbol string           `json:"symbol"`
	CIK    string           `json:"cik"`
	Data   []ReportedRecord `json:"data"`
}

// BasicFinancials is the /stock/metric response body. Metric values
// arrive as numbers or strings depending on the field.
type BasicFinancials struct {
	Symbol     string         `json:"symbol"`
	MetricType string         `json:"metricType"`
	Metric     map[string]any `json:"metric"`
}

// MetricValue coerces a named metric to a finite float, or nil.
func (b *BasicFinancials) MetricValue(name string) *float64 {
	if b == nil || b.Metric == nil {
		return nil
	}
	switch v := b.Metric[name].(type) {
	case float64:
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			return &v
		}
	case int:
		f := float64(v)
		return &f
	}
	return nil
}
