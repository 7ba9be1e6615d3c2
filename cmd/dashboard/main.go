// Command dashboard runs one load→filter→summarize pass and prints the
// Summary, either as a labeled text panel or as JSON for piping.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"salesdash/internal/config"
	"salesdash/internal/metrics"
	"salesdash/internal/metrics/datadog"
	"salesdash/internal/report"
	"salesdash/internal/source"
	"salesdash/internal/warehouse"

	// register all source backends with the factory.
	// config specifies which to use but we build in support for all of them.
	_ "salesdash/internal/source/all"
)

func main() {
	var (
		cfgPath        string
		state          string
		year           string
		format         string
		metricsBackend string
	)

	flag.StringVar(&cfgPath, "config", "configs/dashboard.json", "dashboard config JSON path")
	flag.StringVar(&state, "state", report.All, "state/province filter, or All")
	flag.StringVar(&year, "year", report.All, "calendar year filter, or All")
	flag.StringVar(&format, "format", "text", "output format: text or json")
	flag.StringVar(&metricsBackend, "metrics-backend", "none", "metrics backend to use (datadog, none)")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fatalf("%v", err)
	}

	switch metricsBackend {
	case "datadog":
		jobName := cfg.Job
		if jobName == "" {
			jobName = "salesdash"
		}
		b, err := datadog.NewBackend(context.Background(), datadog.Options{
			JobName: jobName,
			Tags:    datadog.ParseTagsCSV(os.Getenv("METRICS_TAGS")),
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
		} else {
			metrics.SetBackend(b)
			defer func() {
				if err := b.Close(); err != nil {
					log.Printf("metrics: datadog close/flush error: %v", err)
				}
			}()
		}
	case "", "none":
		// metrics disabled; nop backend remains
	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", metricsBackend)
	}

	ctx := context.Background()
	start := time.Now()

	src, err := source.New(ctx, cfg.Source)
	if err != nil {
		fatalf("source: %v", err)
	}
	defer src.Close()

	loader := warehouse.NewLoader(src)
	if *verbose {
		loader.Logger = log.Default()
	}

	view, err := loader.Load(ctx)
	if err != nil {
		var nf *source.DataNotFoundError
		if errors.As(err, &nf) {
			fatalf("error: one or more data files not found (table=%s path=%s)", nf.Table, nf.Path)
		}
		fatalf("load: %v", err)
	}

	filtered, err := report.Filter(view, state, year)
	if err != nil {
		fatalf("filter: %v", err)
	}
	summary := report.Summarize(filtered)

	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			fatalf("encode summary: %v", err)
		}
	case "text":
		printSummary(summary, state, year)
	default:
		fatalf("unknown format %q", format)
	}

	if *verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
}

// printSummary renders the labeled panel. Numbers go through the x/text
// printer so large revenue totals come out grouped ($1,234,567.89).
func printSummary(s report.Summary, state, year string) {
	p := message.NewPrinter(language.English)

	fmt.Printf("Panel Financiero (estado=%s, año=%s)\n\n", state, year)
	p.Printf("Colores Únicos:            %d\n", s.UniqueColors)
	if math.IsNaN(s.AvgUnitPrice) {
		fmt.Printf("Precio Unitario Promedio:  N/A\n")
	} else {
		p.Printf("Precio Unitario Promedio:  $%.2f\n", s.AvgUnitPrice)
	}
	p.Printf("Tallas Únicas:             %d\n", s.UniqueSizes)
	p.Printf("Ingresos Totales:          $%.2f\n", s.TotalRevenue)

	if len(s.RevenueByState) > 0 {
		fmt.Printf("\nIngresos por Estado:\n")
		for _, g := range s.RevenueByState {
			code := g.Code
			if code == "" {
				code = "--"
			}
			p.Printf("  %-20s %s  $%.2f\n", g.State, code, g.Value)
		}
	}
	if len(s.SalesBySize) > 0 {
		fmt.Printf("\nVentas por Talla:\n")
		for _, g := range s.SalesBySize {
			p.Printf("  %-20s $%.2f\n", g.Category, g.Revenue)
		}
	}
	if len(s.SalesByBrand) > 0 {
		fmt.Printf("\nVentas por Marca:\n")
		for _, g := range s.SalesByBrand {
			p.Printf("  %-20s $%.2f\n", g.Category, g.Revenue)
		}
	}
	if len(s.MedianTaxByState) > 0 {
		fmt.Printf("\nImpuesto Mediano por Estado:\n")
		for _, g := range s.MedianTaxByState {
			p.Printf("  %-20s $%.2f\n", g.State, g.Value)
		}
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
