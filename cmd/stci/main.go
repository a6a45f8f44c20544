// Command stci runs the Standard Token Cost Index service: the read API
// (serve), the pricing collector (collect) and the index computation
// (index, backfill, verify).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/dig"

	"github.com/stci-io/stci/internal/collector"
	"github.com/stci-io/stci/internal/config"
	"github.com/stci-io/stci/internal/domain"
	"github.com/stci-io/stci/internal/http"
	"github.com/stci-io/stci/internal/http/middleware"
	"github.com/stci-io/stci/internal/indexer"
	"github.com/stci-io/stci/internal/observability"
	"github.com/stci-io/stci/internal/storage"
)

func main() {
	cmd := "serve"
	args := os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd = args[0]
		args = args[1:]
	}

	container := buildContainer()

	switch cmd {
	case "serve":
		runServe(container)
	case "collect":
		runCollect(container, args)
	case "index":
		runIndex(container, args)
	case "backfill":
		runBackfill(container, args)
	case "verify":
		runVerify(container, args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		fmt.Fprintln(os.Stderr, "usage: stci [serve|collect|index|backfill|verify] [flags]")
		os.Exit(2)
	}
}

func buildContainer() *dig.Container {
	container := dig.New()

	// Configuration
	if err := container.Provide(config.Load); err != nil {
		log.Fatalf("Failed to provide config: %v", err)
	}
	if err := container.Provide(config.ParseDependenciesConfig); err != nil {
		log.Fatalf("Failed to provide config dependencies: %v", err)
	}

	// Observability
	if err := container.Provide(observability.InitLogger); err != nil {
		log.Fatalf("Failed to provide logger: %v", err)
	}

	// Storage
	if err := container.Provide(func(cfg *config.StorageConfig) (storage.Backend, error) {
		switch cfg.Backend {
		case "s3":
			return storage.NewS3(context.Background(), storage.S3Options{
				Bucket:          cfg.S3Bucket,
				Region:          cfg.S3Region,
				Prefix:          cfg.S3Prefix,
				AccessKeyID:     cfg.AccessKeyID,
				SecretAccessKey: cfg.SecretAccessKey,
			})
		case "local":
			return storage.NewLocal(cfg.DataDir), nil
		default:
			return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
		}
	}); err != nil {
		log.Fatalf("Failed to provide storage backend: %v", err)
	}
	if err := container.Provide(storage.NewStore); err != nil {
		log.Fatalf("Failed to provide store: %v", err)
	}

	// Methodology
	if err := container.Provide(func(cfg *config.MethodologyConfig) (domain.Methodology, error) {
		return config.LoadMethodology(cfg.Path)
	}); err != nil {
		log.Fatalf("Failed to provide methodology: %v", err)
	}

	// Collector sources
	if err := container.Provide(func(cfg *config.CollectorConfig) []collector.Source {
		var verifier collector.ModelVerifier
		if cfg.OpenAIAPIKey != "" {
			verifier = collector.NewOpenAIModelVerifier(cfg.OpenAIAPIKey)
		}

		sources := []collector.Source{
			collector.NewDirectSource("openai", cfg.PricingDir+"/openai_pricing.yaml", verifier),
			collector.NewOpenRouterSource(cfg.OpenRouterURL, timeout(cfg.TimeoutSecs)),
		}
		if _, err := os.Stat(cfg.FixturePath); err == nil {
			sources = append(sources, collector.NewFixtureSource(cfg.FixturePath))
		}
		return sources
	}); err != nil {
		log.Fatalf("Failed to provide collector sources: %v", err)
	}
	if err := container.Provide(func(sources []collector.Source, store *storage.Store, cfg *config.CollectorConfig) *collector.Pipeline {
		return collector.NewPipeline(sources, store, cfg.DriftThreshold)
	}); err != nil {
		log.Fatalf("Failed to provide collector pipeline: %v", err)
	}

	// Indexer
	if err := container.Provide(indexer.NewPipeline); err != nil {
		log.Fatalf("Failed to provide indexer pipeline: %v", err)
	}

	// HTTP Layer
	if err := container.Provide(http.NewCache); err != nil {
		log.Fatalf("Failed to provide cache: %v", err)
	}
	if err := container.Provide(http.NewHandler); err != nil {
		log.Fatalf("Failed to provide HTTP handler: %v", err)
	}
	if err := container.Provide(func(corsCfg *config.CORSConfig) middleware.Middleware {
		return middleware.BuildMiddlewareChain(corsCfg)
	}); err != nil {
		log.Fatalf("Failed to provide middleware chain: %v", err)
	}
	if err := container.Provide(http.NewServer); err != nil {
		log.Fatalf("Failed to provide HTTP server: %v", err)
	}

	return container
}

func runServe(container *dig.Container) {
	err := container.Invoke(func(server *http.Server) {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-stop
			if err := server.Shutdown(context.Background()); err != nil {
				log.Printf("Shutdown failed: %v", err)
			}
		}()

		if err := server.Start(); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}
}

func runCollect(container *dig.Container, args []string) {
	flags := flag.NewFlagSet("collect", flag.ExitOnError)
	dateFlag := flags.String("date", domain.Today().String(), "target date (YYYY-MM-DD)")
	dryRun := flags.Bool("dry-run", false, "fetch and validate without storing")
	_ = flags.Parse(args)

	date := mustParseDate(*dateFlag)

	err := container.Invoke(func(pipeline *collector.Pipeline) error {
		stats, err := pipeline.Run(context.Background(), date, *dryRun)
		if err != nil {
			return err
		}
		fmt.Printf("Collected %s: %d fetched, %d stored, %d invalid, %d drift warning(s)\n",
			date, stats.Fetched, stats.Valid, stats.Invalid, len(stats.DriftWarnings))
		return nil
	})
	if err != nil {
		log.Fatalf("Collection failed: %v", err)
	}
}

func runIndex(container *dig.Container, args []string) {
	flags := flag.NewFlagSet("index", flag.ExitOnError)
	dateFlag := flags.String("date", domain.Today().String(), "target date (YYYY-MM-DD)")
	_ = flags.Parse(args)

	date := mustParseDate(*dateFlag)

	err := container.Invoke(func(pipeline *indexer.Pipeline) error {
		result, err := pipeline.Run(context.Background(), date)
		if err != nil {
			return err
		}
		fmt.Printf("Computed %s: %d indices over %d observations, hash %s\n",
			date, len(result.Indices), result.ObservationCount, result.VerificationHash)
		return nil
	})
	if err != nil {
		log.Fatalf("Index computation failed: %v", err)
	}
}

func runBackfill(container *dig.Container, args []string) {
	flags := flag.NewFlagSet("backfill", flag.ExitOnError)
	fromFlag := flags.String("from", "", "first date (YYYY-MM-DD)")
	toFlag := flags.String("to", domain.Today().String(), "last date (YYYY-MM-DD)")
	_ = flags.Parse(args)

	if *fromFlag == "" {
		log.Fatal("backfill requires -from")
	}
	from := mustParseDate(*fromFlag)
	to := mustParseDate(*toFlag)

	err := container.Invoke(func(pipeline *indexer.Pipeline) error {
		results, err := pipeline.Backfill(context.Background(), from, to)
		if err != nil {
			return err
		}
		fmt.Printf("Backfilled %d date(s) from %s to %s\n", len(results), from, to)
		return nil
	})
	if err != nil {
		log.Fatalf("Backfill failed: %v", err)
	}
}

func runVerify(container *dig.Container, args []string) {
	flags := flag.NewFlagSet("verify", flag.ExitOnError)
	dateFlag := flags.String("date", domain.Today().String(), "target date (YYYY-MM-DD)")
	_ = flags.Parse(args)

	date := mustParseDate(*dateFlag)

	err := container.Invoke(func(pipeline *indexer.Pipeline) error {
		ok, err := pipeline.Verify(context.Background(), date)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("verification hash mismatch for %s", date)
		}
		fmt.Printf("Verified %s: hash matches stored observations\n", date)
		return nil
	})
	if err != nil {
		log.Fatalf("Verification failed: %v", err)
	}
}

func timeout(secs int) time.Duration {
	return time.Duration(secs) * time.Second
}

func mustParseDate(s string) domain.Date {
	date, err := domain.ParseDate(s)
	if err != nil {
		log.Fatalf("Invalid date %q: use YYYY-MM-DD", s)
	}
	return date
}
