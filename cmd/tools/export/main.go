package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/sodersten/tipsvalue/internal/pkg/config"
	"github.com/sodersten/tipsvalue/internal/pkg/export"
	"github.com/sodersten/tipsvalue/internal/pkg/models"
	"github.com/sodersten/tipsvalue/internal/pkg/storage"
)

func main() {
	fmt.Println("📊 Starting coupon export...")

	var configPath string
	var couponID string
	flag.StringVar(&configPath, "config", "configs/local.yaml", "Path to config file")
	flag.StringVar(&couponID, "coupon", "", "Coupon ID to export (default: active coupon)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer store.Close()

	var coupon *models.Coupon
	if couponID == "" {
		fmt.Println("📥 Resolving active coupon...")
		coupon, err = store.ActiveCoupon(ctx)
	} else {
		fmt.Printf("📥 Fetching coupon %s...\n", couponID)
		coupon, err = store.CouponByID(ctx, couponID)
	}
	if err != nil {
		log.Fatalf("Failed to load coupon: %v", err)
	}

	fmt.Printf("📊 Coupon %s: week %d/%d, %d matches\n", coupon.ID, coupon.Week, coupon.Year, len(coupon.Matches))

	if err := os.MkdirAll("exports", 0o755); err != nil {
		log.Fatalf("Failed to create exports directory: %v", err)
	}

	analysis, err := store.AnalysisByCoupon(ctx, coupon.ID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		log.Fatalf("Failed to load analysis: %v", err)
	}
	rows, err := store.RowsByCoupon(ctx, coupon.ID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		log.Fatalf("Failed to load rows: %v", err)
	}

	if analysis == nil && len(rows) == 0 {
		fmt.Println("⚠️  No analysis found for this coupon")
		fmt.Println("💡 Run a refresh first to populate data")

		infoFile := "exports/no_data_info.txt"
		infoContent := fmt.Sprintf("No analysis found for coupon %s.\nRun a refresh first to populate data.", coupon.ID)
		if err := os.WriteFile(infoFile, []byte(infoContent), 0o644); err != nil {
			log.Printf("Warning: failed to create info file: %v", err)
		}

		fmt.Println("📁 Created exports directory with info file")
		return
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	jsonFile := fmt.Sprintf("exports/%s_%s.json", coupon.ID, timestamp)
	csvFile := fmt.Sprintf("exports/%s_%s.csv", coupon.ID, timestamp)

	exporter := export.NewExporter()
	bundle := exporter.BuildExport(coupon, analysis, rows)

	fmt.Printf("💾 Exporting to JSON: %s\n", jsonFile)
	jsonData, err := exporter.ExportToJSON(bundle)
	if err != nil {
		log.Fatalf("Failed to export JSON: %v", err)
	}
	if err := os.WriteFile(jsonFile, jsonData, 0o644); err != nil {
		log.Fatalf("Failed to write JSON file: %v", err)
	}

	fmt.Printf("💾 Exporting to CSV: %s\n", csvFile)
	csvData, err := exporter.ExportToCSV(bundle)
	if err != nil {
		log.Fatalf("Failed to export CSV: %v", err)
	}
	if err := os.WriteFile(csvFile, csvData, 0o644); err != nil {
		log.Fatalf("Failed to write CSV file: %v", err)
	}

	fmt.Println("\n✅ Export completed successfully!")
	exporter.PrintSummary(bundle)
}
