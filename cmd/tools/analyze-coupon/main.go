package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/sodersten/tipsvalue/internal/analyzer"
	"github.com/sodersten/tipsvalue/internal/pkg/models"
)

// fixture is the input format: one coupon plus the bookmaker quotes to
// analyze it with. Produce one with cmd/tools/export or write it by hand.
type fixture struct {
	Coupon models.Coupon      `json:"coupon"`
	Quotes []models.OddsQuote `json:"quotes"`
}

type report struct {
	CouponID string                 `json:"coupon_id"`
	Week     int                    `json:"week"`
	Year     int                    `json:"year"`
	Matches  []models.MatchAnalysis `json:"matches"`
	Rows     []models.SuggestedRow  `json:"rows,omitempty"`
	RowsErr  string                 `json:"rows_error,omitempty"`
}

func main() {
	var (
		threshold    float64
		maxCovers    int
		allowPartial bool
		asJSON       bool
	)
	flag.Float64Var(&threshold, "threshold", 1.05, "Minimum value score for a recommendation")
	flag.IntVar(&maxCovers, "max-half-covers", 2, "Half-cover budget per generated row")
	flag.BoolVar(&allowPartial, "allow-partial", false, "Generate rows even when the coupon has fewer than 13 matches")
	flag.BoolVar(&asJSON, "json", false, "Print the full report as JSON instead of text")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Println("Usage: analyze-coupon [flags] <fixture.json>")
		fmt.Println("Or pipe a fixture: cat coupon.json | analyze-coupon [flags] -")
		flag.PrintDefaults()
		os.Exit(1)
	}

	fix, err := loadFixture(flag.Arg(0))
	if err != nil {
		log.Fatalf("Failed to load fixture: %v", err)
	}
	if len(fix.Coupon.Matches) == 0 {
		log.Fatalf("Fixture coupon %q has no matches", fix.Coupon.ID)
	}
	for i := range fix.Quotes {
		if fix.Quotes[i].CouponID == "" {
			fix.Quotes[i].CouponID = fix.Coupon.ID
		}
	}

	analyses := analyzer.AnalyzeCoupon(&fix.Coupon, fix.Quotes, threshold)
	rows, rowsErr := analyzer.GenerateRows(analyses, analyzer.RowParams{
		MaxHalfCovers:     maxCovers,
		MinValueThreshold: threshold,
		AllowPartial:      allowPartial,
	})

	rep := report{
		CouponID: fix.Coupon.ID,
		Week:     fix.Coupon.Week,
		Year:     fix.Coupon.Year,
		Matches:  analyses,
		Rows:     rows,
	}
	if rowsErr != nil {
		rep.RowsErr = rowsErr.Error()
	}

	if asJSON {
		data, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			log.Fatalf("Failed to marshal report: %v", err)
		}
		fmt.Println(string(data))
		return
	}

	printReport(&rep, threshold)
}

func loadFixture(path string) (*fixture, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	var fix fixture
	if err := json.Unmarshal(data, &fix); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	return &fix, nil
}

func printReport(rep *report, threshold float64) {
	fmt.Printf("=== Coupon %s | week %d/%d ===\n\n", rep.CouponID, rep.Week, rep.Year)

	valuePicks := 0
	for _, ma := range rep.Matches {
		marker := "  "
		if ma.Recommended != "" {
			marker = "🎯"
			valuePicks++
		}
		fmt.Printf("%s %2d. %s\n", marker, ma.Slot, ma.MatchName)
		if !ma.HasOdds {
			fmt.Printf("      no odds, percentage fallback | streck %.0f/%.0f/%.0f\n",
				ma.Percentages[0], ma.Percentages[1], ma.Percentages[2])
			continue
		}
		fmt.Printf("      odds %.2f/%.2f/%.2f | prob %.1f%%/%.1f%%/%.1f%% | streck %.0f/%.0f/%.0f\n",
			ma.Odds[0], ma.Odds[1], ma.Odds[2],
			ma.Probabilities[0]*100, ma.Probabilities[1]*100, ma.Probabilities[2]*100,
			ma.Percentages[0], ma.Percentages[1], ma.Percentages[2])
		fmt.Printf("      value %.2f/%.2f/%.2f", ma.Values[0], ma.Values[1], ma.Values[2])
		if ma.Recommended != "" {
			fmt.Printf(" -> %s", ma.Recommended)
		}
		fmt.Println()
	}

	fmt.Printf("\n📈 Value picks at threshold %.2f: %d of %d matches\n", threshold, valuePicks, len(rep.Matches))

	if rep.RowsErr != "" {
		fmt.Printf("⚠️  Row generation skipped: %s\n", rep.RowsErr)
		return
	}

	fmt.Printf("\n=== Suggested rows ===\n")
	for _, row := range rep.Rows {
		fmt.Printf("\n%s (cost factor %d, EV %.4f)\n", row.Label, row.CostFactor, row.ExpectedValue)
		for _, slot := range row.Slots() {
			fmt.Printf("  %2d: %s\n", slot, row.Choices[slot].Signs())
		}
		if row.Reasoning != "" {
			fmt.Printf("  %s\n", row.Reasoning)
		}
	}
}
