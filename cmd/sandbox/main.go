package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"StoreClient/internal/sandbox"
	"StoreClient/pkg/kit"
)

func main() {
	_ = godotenv.Load()

	service := "sandbox"
	log := kit.NewLogger(service, os.Getenv("STORE_DEBUG") == "true")
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := getenv("SANDBOX_ADDR", ":8080")
	jwtSecret := getenv("JWT_SECRET", "dev-secret")

	s, err := sandbox.New(jwtSecret, log)
	if err != nil {
		log.Fatal("seed sandbox", zap.Error(err))
	}
	if os.Getenv("SANDBOX_BOM") == "true" {
		s.Faults.SetBOM(true)
	}
	if v := os.Getenv("SANDBOX_LATENCY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Fatal("bad SANDBOX_LATENCY", zap.Error(err))
		}
		s.Faults.SetLatency(d)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	h := sandbox.NewHandler(s, sandbox.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		MetricsEnabled: true,
		MetricsToken:   os.Getenv("METRICS_TOKEN"),
	})

	log.Info("demo customer", zap.String("email", sandbox.DemoEmail))
	if err := kit.RunHTTPServer(ctx, addr, h, log); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
