package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sodersten/tipsvalue/internal/analyzer"
	"github.com/sodersten/tipsvalue/internal/pkg/config"
	"github.com/sodersten/tipsvalue/internal/pkg/models"
	"github.com/sodersten/tipsvalue/internal/pkg/storage"
	"github.com/sodersten/tipsvalue/internal/providers"
	_ "github.com/sodersten/tipsvalue/internal/providers/all"
)

// fixtures is a realistic Saturday coupon: English league matches with a
// Swedish tail, public percentages summing to 100 per match.
var fixtures = []struct {
	home, away string
	pct        [models.OutcomeCount]float64
}{
	{"Arsenal", "Chelsea", [models.OutcomeCount]float64{45, 27, 28}},
	{"Aston Villa", "Everton", [models.OutcomeCount]float64{48, 27, 25}},
	{"Brentford", "Fulham", [models.OutcomeCount]float64{40, 30, 30}},
	{"Brighton", "Tottenham", [models.OutcomeCount]float64{38, 28, 34}},
	{"Burnley", "West Ham", [models.OutcomeCount]float64{33, 30, 37}},
	{"Crystal Palace", "Newcastle", [models.OutcomeCount]float64{35, 29, 36}},
	{"Leeds", "Liverpool", [models.OutcomeCount]float64{20, 24, 56}},
	{"Manchester City", "Bournemouth", [models.OutcomeCount]float64{78, 13, 9}},
	{"Nottingham Forest", "Wolverhampton", [models.OutcomeCount]float64{44, 30, 26}},
	{"Sunderland", "Manchester United", [models.OutcomeCount]float64{30, 28, 42}},
	{"Barnsley", "Stockport", [models.OutcomeCount]float64{42, 29, 29}},
	{"Wrexham", "Sheffield United", [models.OutcomeCount]float64{37, 31, 32}},
	{"Degerfors", "Hammarby", [models.OutcomeCount]float64{25, 28, 47}},
}

func main() {
	fmt.Println("🧪 Seeding demo coupon...")

	var configPath string
	var week, year int
	var refresh bool
	flag.StringVar(&configPath, "config", "configs/local.yaml", "Path to config file")
	flag.IntVar(&week, "week", 0, "Coupon week number (default: current ISO week)")
	flag.IntVar(&year, "year", 0, "Coupon year (default: current year)")
	flag.BoolVar(&refresh, "refresh", true, "Run one refresh after seeding")
	flag.Parse()

	if week == 0 || year == 0 {
		y, w := time.Now().ISOWeek()
		if week == 0 {
			week = w
		}
		if year == 0 {
			year = y
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer store.Close()

	coupon := buildCoupon(week, year)

	fmt.Printf("📝 Storing coupon %s: %d matches, jackpot %s SEK\n",
		coupon.ID, len(coupon.Matches), coupon.Jackpot.String())
	if err := store.SaveCoupon(ctx, coupon); err != nil {
		log.Fatalf("Failed to store coupon: %v", err)
	}

	fmt.Println("✅ Demo coupon seeded successfully!")

	if !refresh {
		fmt.Println("💡 Run the analyzer or POST /api/refresh to analyze it")
		return
	}

	odds, err := providers.BuildOdds(cfg.Providers.Odds)
	if err != nil {
		log.Fatalf("Failed to build odds providers: %v", err)
	}
	experts, err := providers.BuildExperts(cfg.Providers.Experts)
	if err != nil {
		log.Fatalf("Failed to build expert providers: %v", err)
	}

	fmt.Printf("🔄 Running one refresh with %d odds and %d expert providers...\n", len(odds), len(experts))

	svc := analyzer.New(cfg, store, nil, odds, experts)
	stats, err := svc.Refresh(ctx, coupon.ID)
	if err != nil {
		log.Fatalf("Refresh failed: %v", err)
	}

	fmt.Println("\n✅ Refresh completed!")
	fmt.Printf("📊 Quotes: %d | Picks: %d | Rows: %d | Top EV: %.4f\n",
		stats.Quotes, stats.Picks, stats.Rows, stats.TopRowEV)
	fmt.Printf("💡 Inspect it: GET /api/coupons/%s/analysis\n", coupon.ID)
}

func buildCoupon(week, year int) *models.Coupon {
	drawDate := nextSaturday(time.Now().UTC())
	coupon := &models.Coupon{
		ID:       fmt.Sprintf("v%d-%d", week, year),
		Week:     week,
		Year:     year,
		DrawDate: drawDate,
		Active:   true,
		Jackpot:  decimal.NewFromInt(10_000_000),
	}
	for i, f := range fixtures {
		coupon.Matches = append(coupon.Matches, models.Match{
			CouponID:    coupon.ID,
			Slot:        i + 1,
			HomeTeam:    f.home,
			AwayTeam:    f.away,
			Kickoff:     drawDate,
			Percentages: f.pct,
		})
	}
	return coupon
}

// nextSaturday returns the coming Saturday at 15:00 UTC, or the Saturday
// after when today already is one.
func nextSaturday(now time.Time) time.Time {
	days := (int(time.Saturday) - int(now.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	d := now.AddDate(0, 0, days)
	return time.Date(d.Year(), d.Month(), d.Day(), 15, 0, 0, 0, time.UTC)
}
