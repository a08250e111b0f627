package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sodersten/tipsvalue/internal/pkg/models"
)

// Export represents the export format
type Export struct {
	Timestamp    string        `json:"timestamp"`
	CouponID     string        `json:"coupon_id"`
	Week         int           `json:"week"`
	Year         int           `json:"year"`
	Jackpot      string        `json:"jackpot"`
	TotalMatches int           `json:"total_matches"`
	Matches      []MatchExport `json:"matches"`
	Rows         []RowExport   `json:"rows"`
}

// MatchExport joins one coupon match with its analysis
type MatchExport struct {
	Slot          int                          `json:"slot"`
	HomeTeam      string                       `json:"home_team"`
	AwayTeam      string                       `json:"away_team"`
	Kickoff       time.Time                    `json:"kickoff"`
	HasOdds       bool                         `json:"has_odds"`
	QuoteCount    int                          `json:"quote_count"`
	Odds          [models.OutcomeCount]float64 `json:"odds"`
	Probabilities [models.OutcomeCount]float64 `json:"probabilities"`
	Percentages   [models.OutcomeCount]float64 `json:"percentages"`
	Values        [models.OutcomeCount]float64 `json:"values"`
	Recommended   string                       `json:"recommended,omitempty"`
	Result        string                       `json:"result,omitempty"`
}

// RowExport represents a suggested row in pools notation
type RowExport struct {
	Label         string         `json:"label"`
	Signs         map[int]string `json:"signs"` // slot -> "1", "1X", ...
	HalfCovers    int            `json:"half_covers"`
	CostFactor    int            `json:"cost_factor"`
	ExpectedValue float64        `json:"expected_value"`
	EVPerCost     float64        `json:"ev_per_cost"`
	Reasoning     string         `json:"reasoning,omitempty"`
}

// Exporter handles the export format
type Exporter struct{}

// NewExporter creates a new exporter
func NewExporter() *Exporter {
	return &Exporter{}
}

// BuildExport joins a coupon, its analysis, and its suggested rows into the
// export format. Analysis and rows may be nil; matches without an analysis
// entry are exported with coupon data only.
func (e *Exporter) BuildExport(coupon *models.Coupon, analysis *models.CouponAnalysis, rows []models.SuggestedRow) *Export {
	export := &Export{
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		CouponID:     coupon.ID,
		Week:         coupon.Week,
		Year:         coupon.Year,
		Jackpot:      coupon.Jackpot.String(),
		TotalMatches: len(coupon.Matches),
		Matches:      []MatchExport{},
		Rows:         []RowExport{},
	}

	bySlot := map[int]models.MatchAnalysis{}
	if analysis != nil {
		for _, ma := range analysis.Matches {
			bySlot[ma.Slot] = ma
		}
	}

	for _, m := range coupon.Matches {
		export.Matches = append(export.Matches, convertMatch(m, bySlot))
	}
	for _, row := range rows {
		export.Rows = append(export.Rows, convertRow(row))
	}

	return export
}

func convertMatch(m models.Match, analyses map[int]models.MatchAnalysis) MatchExport {
	me := MatchExport{
		Slot:        m.Slot,
		HomeTeam:    m.HomeTeam,
		AwayTeam:    m.AwayTeam,
		Kickoff:     m.Kickoff,
		Percentages: m.Percentages,
		Result:      m.Result,
	}
	if ma, ok := analyses[m.Slot]; ok {
		me.HasOdds = ma.HasOdds
		me.QuoteCount = ma.QuoteCount
		me.Odds = ma.Odds
		me.Probabilities = ma.Probabilities
		me.Values = ma.Values
		me.Recommended = ma.Recommended
	}
	return me
}

func convertRow(row models.SuggestedRow) RowExport {
	signs := make(map[int]string, len(row.Choices))
	for slot, choice := range row.Choices {
		signs[slot] = choice.Signs()
	}
	return RowExport{
		Label:         row.Label,
		Signs:         signs,
		HalfCovers:    row.HalfCovers,
		CostFactor:    row.CostFactor,
		ExpectedValue: row.ExpectedValue,
		EVPerCost:     row.EVPerCost,
		Reasoning:     row.Reasoning,
	}
}

// ExportToJSON renders the export as indented JSON
func (e *Exporter) ExportToJSON(export *Export) ([]byte, error) {
	return json.MarshalIndent(export, "", "  ")
}

// ExportToCSV renders the per-match table as CSV. Rows are not included;
// use the JSON export for the full picture.
func (e *Exporter) ExportToCSV(export *Export) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{
		"Slot", "Home Team", "Away Team", "Kickoff",
		"Has Odds", "Quote Count",
		"Odds 1", "Odds X", "Odds 2",
		"Prob 1", "Prob X", "Prob 2",
		"Streck 1", "Streck X", "Streck 2",
		"Value 1", "Value X", "Value 2",
		"Recommended", "Result",
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, m := range export.Matches {
		record := []string{
			fmt.Sprintf("%d", m.Slot),
			m.HomeTeam,
			m.AwayTeam,
			m.Kickoff.Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%t", m.HasOdds),
			fmt.Sprintf("%d", m.QuoteCount),
			fmt.Sprintf("%.2f", m.Odds[0]),
			fmt.Sprintf("%.2f", m.Odds[1]),
			fmt.Sprintf("%.2f", m.Odds[2]),
			fmt.Sprintf("%.4f", m.Probabilities[0]),
			fmt.Sprintf("%.4f", m.Probabilities[1]),
			fmt.Sprintf("%.4f", m.Probabilities[2]),
			fmt.Sprintf("%.1f", m.Percentages[0]),
			fmt.Sprintf("%.1f", m.Percentages[1]),
			fmt.Sprintf("%.1f", m.Percentages[2]),
			fmt.Sprintf("%.4f", m.Values[0]),
			fmt.Sprintf("%.4f", m.Values[1]),
			fmt.Sprintf("%.4f", m.Values[2]),
			m.Recommended,
			m.Result,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

// PrintSummary prints a summary of the export
func (e *Exporter) PrintSummary(export *Export) {
	fmt.Printf("=== Export Summary ===\n")
	fmt.Printf("Timestamp: %s\n", export.Timestamp)
	fmt.Printf("Coupon: %s (week %d/%d)\n", export.CouponID, export.Week, export.Year)
	fmt.Printf("Total Matches: %d\n", export.TotalMatches)

	withOdds := 0
	valuePicks := 0
	for _, m := range export.Matches {
		if m.HasOdds {
			withOdds++
		}
		if m.Recommended != "" {
			valuePicks++
		}
	}

	fmt.Printf("Matches with odds: %d\n", withOdds)
	fmt.Printf("Value picks: %d\n", valuePicks)
	fmt.Printf("Suggested rows: %d\n", len(export.Rows))

	for _, row := range export.Rows {
		fmt.Printf("  %s: cost factor %d, EV %.4f\n", row.Label, row.CostFactor, row.ExpectedValue)
	}
}
