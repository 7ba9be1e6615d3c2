// Command dashboardd serves Summary JSON over HTTP for the chart frontend.
// The Integrated View is loaded lazily on the first request and memoized for
// the process lifetime; every request is a fresh filter+summarize pass.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"

	"salesdash/internal/config"
	"salesdash/internal/metrics"
	"salesdash/internal/metrics/datadog"
	"salesdash/internal/report"
	"salesdash/internal/source"
	"salesdash/internal/warehouse"

	_ "salesdash/internal/source/all"
)

// serverConfig is read from the environment.
type serverConfig struct {
	Addr           string        `env:"DASHBOARD_ADDR" envDefault:":8080"`
	ConfigPath     string        `env:"DASHBOARD_CONFIG" envDefault:"configs/dashboard.json"`
	MetricsBackend string        `env:"METRICS_BACKEND" envDefault:"none"`
	ShutdownGrace  time.Duration `env:"DASHBOARD_SHUTDOWN_GRACE" envDefault:"5s"`
}

func main() {
	var sc serverConfig
	if err := env.Parse(&sc); err != nil {
		log.Fatalf("parse env: %v", err)
	}

	cfg, err := config.Load(sc.ConfigPath)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if sc.MetricsBackend == "datadog" {
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
	}

	ctx := context.Background()

	src, err := source.New(ctx, cfg.Source)
	if err != nil {
		log.Fatalf("source: %v", err)
	}
	defer src.Close()

	loader := warehouse.NewLoader(src)
	loader.Logger = log.Default()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/summary", summaryHandler(loader))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr:              sc.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening addr=%s source=%s", sc.Addr, cfg.Source.Kind)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	case sig := <-stop:
		log.Printf("shutdown signal=%s", sig)
		shutdownCtx, cancel := context.WithTimeout(ctx, sc.ShutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}
}

// summaryHandler runs load→filter→summarize per request. Missing query
// params mean the All sentinel.
func summaryHandler(loader *warehouse.Loader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := r.URL.Query().Get("state")
		if state == "" {
			state = report.All
		}
		year := r.URL.Query().Get("year")
		if year == "" {
			year = report.All
		}

		view, err := loader.Load(r.Context())
		if err != nil {
			var nf *source.DataNotFoundError
			if errors.As(err, &nf) {
				httpError(w, http.StatusServiceUnavailable, fmt.Sprintf("data not found: table=%s", nf.Table))
				return
			}
			httpError(w, http.StatusInternalServerError, "load failed")
			log.Printf("load: %v", err)
			return
		}

		filtered, err := report.Filter(view, state, year)
		if err != nil {
			var inv *report.InvalidFilterError
			if errors.As(err, &inv) {
				httpError(w, http.StatusBadRequest, inv.Error())
				return
			}
			httpError(w, http.StatusInternalServerError, "filter failed")
			log.Printf("filter: %v", err)
			return
		}

		summary := report.Summarize(filtered)
		metrics.IncCounter("dashboard_summary_requests_total", 1, metrics.Labels{"status": "ok"})

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(summary); err != nil {
			log.Printf("encode summary: %v", err)
		}
	}
}

func httpError(w http.ResponseWriter, code int, msg string) {
	metrics.IncCounter("dashboard_summary_requests_total", 1, metrics.Labels{"status": "error"})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
