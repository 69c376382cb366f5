package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"tendermatch/internal"
	"tendermatch/internal/catalog"
	"tendermatch/internal/config"
	"tendermatch/internal/contract"
	"tendermatch/internal/llm"
	"tendermatch/internal/match"
	"tendermatch/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	cmd := os.Args[1]
	switch cmd {
	case "catalog:import":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		file := fs.String("file", "", "csv or spreadsheet path")
		vendor := fs.String("vendor", "", "vendor id")
		category := fs.String("category", "photocopier", "photocopier|telecoms|cctv|it")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*file) == "" || strings.TrimSpace(*vendor) == "" {
			must(fmt.Errorf("--file and --vendor are required"))
		}

		im := catalog.NewImporter(db, cfg.MaxUploadBytes, log)
		result, err := im.ImportFile(context.Background(), *file, *vendor, internal.ServiceCategory(*category))
		must(err)
		fmt.Printf("import done total=%d valid=%d invalid=%d saved=%d\n",
			result.Total, result.Valid, result.Invalid, result.Saved)
		for _, e := range result.Errors {
			fmt.Printf("  error: %s\n", e.Error())
		}
		for _, w := range result.Warnings {
			fmt.Printf("  warning: row %d %s: %s\n", w.Row, w.Field, w.Message)
		}
	case "catalog:delete":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.String("id", "", "product id")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*id) == "" {
			must(fmt.Errorf("--id is required"))
		}
		must(db.DeleteByID(context.Background(), *id))
		fmt.Printf("deleted %s\n", *id)
	case "catalog:count":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		vendor := fs.String("vendor", "", "vendor id")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*vendor) == "" {
			must(fmt.Errorf("--vendor is required"))
		}
		n, err := db.CountByVendor(context.Background(), *vendor)
		must(err)
		fmt.Printf("vendor=%s products=%d\n", *vendor, n)
	case "contract:extract":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		file := fs.String("file", "", "invoice path (pdf, csv, xlsx, html)")
		useLLM := fs.Bool("llm", false, "refine with the configured language model")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*file) == "" {
			must(fmt.Errorf("--file is required"))
		}

		var refiner contract.Refiner
		if *useLLM {
			refiner = llm.NewClient(llm.Config{
				BaseURL:     cfg.LLMBaseURL,
				APIKey:      cfg.LLMAPIKey,
				Model:       cfg.LLMModel,
				Timeout:     cfg.LLMTimeout,
				MaxInputLen: cfg.LLMMaxInputLen,
			}, log)
		}
		ex := contract.NewExtractor(cfg.MaxUploadBytes, refiner, log)
		extracted, notes, err := ex.Extract(context.Background(), *file)
		must(err)

		blob, _ := json.MarshalIndent(extracted, "", "  ")
		fmt.Println(string(blob))
		fmt.Printf("settlement: %s\n", contract.SettlementEstimate(extracted, time.Now()))
		for _, n := range notes {
			fmt.Printf("  note: %s\n", n)
		}
	case "quote:recommend":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		reqPath := fs.String("request", "", "quote request json path")
		invoice := fs.String("invoice", "", "optional invoice to extract the current contract from")
		out := fs.String("out", "", "optional xlsx output path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*reqPath) == "" {
			must(fmt.Errorf("--request is required"))
		}

		blob, err := os.ReadFile(*reqPath)
		must(err)
		var req internal.QuoteRequest
		must(json.Unmarshal(blob, &req))

		ctx := context.Background()
		if strings.TrimSpace(*invoice) != "" {
			ex := contract.NewExtractor(cfg.MaxUploadBytes, nil, log)
			extracted, _, err := ex.Extract(ctx, *invoice)
			must(err)
			if !extracted.IsEmpty() {
				req.CurrentContract = &extracted
			}
		}

		must(db.SaveRequest(ctx, &req))

		engine := match.NewEngine(db, match.Options{
			TopK:                   cfg.TopK,
			MaxCandidates:          cfg.MaxCandidates,
			SuitabilityThreshold:   cfg.SuitabilityThreshold,
			VolumeSubscoreFloor:    cfg.VolumeSubscoreFloor,
			WeightVolume:           cfg.WeightVolume,
			WeightSpeed:            cfg.WeightSpeed,
			WeightCost:             cfg.WeightCost,
			WeightFeatures:         cfg.WeightFeatures,
			WeightPaper:            cfg.WeightPaper,
			DefaultLeaseTermMonths: cfg.DefaultLeaseTermMonths,
		}, log)
		result, err := engine.Recommend(ctx, &req)
		if result != nil {
			_ = db.InsertRun(ctx, result.TraceID, req.ID, result.Stage, result.Recommendations)
		}
		must(err)

		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
		if strings.TrimSpace(*out) != "" {
			must(match.ExportRecommendationsToXLSX(result.Recommendations, *out))
			fmt.Printf("exported %d recommendations to %s\n", len(result.Recommendations), *out)
		}
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("usage: tendermatch <command>")
	fmt.Println("commands:")
	fmt.Println("  catalog:import --file=./catalog.csv --vendor=v1 [--category=photocopier]")
	fmt.Println("  catalog:delete --id=<product-id>")
	fmt.Println("  catalog:count --vendor=v1")
	fmt.Println("  contract:extract --file=./invoice.pdf [--llm]")
	fmt.Println("  quote:recommend --request=./request.json [--invoice=./invoice.pdf] [--out=./out/recs.xlsx]")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
