package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"miniledger/db"
	"miniledger/engine"
	"miniledger/ingest"
	"miniledger/ledger"
	"miniledger/report"
	"miniledger/warehouse"
)

func main() {
	var (
		flOutput      = flag.String("o", "", "write the report to this file instead of stdout")
		flDatabaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "publish the final snapshot to this PostgreSQL instance")
		flVerbose     = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: miniledger [flags] <transactions.csv>")
		os.Exit(2)
	}

	logger := newLogger(*flVerbose)
	defer logger.Sync()

	if err := run(context.Background(), flag.Arg(0), *flOutput, *flDatabaseURL, logger); err != nil {
		logger.Fatal("run failed", zap.Error(err))
	}
}

func newLogger(verbose bool) *zap.Logger {
	if verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			panic(err)
		}
		return logger
	}
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	return logger
}

// run streams the input through the processor, writes the report, and
// optionally publishes the final snapshot to the warehouse.
func run(ctx context.Context, inputPath, outputPath, databaseURL string, logger *zap.Logger) error {
	started := time.Now()

	in, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer in.Close()

	book := ledger.New()
	proc := engine.NewProcessor(book).WithLogger(logger)
	reader := ingest.NewReader(in)
	if err := proc.Consume(reader); err != nil {
		return fmt.Errorf("consume %s: %w", inputPath, err)
	}
	accounts := book.Snapshot()

	var out io.Writer = os.Stdout
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}
	if err := report.Write(out, accounts); err != nil {
		return err
	}

	logger.Info("run complete",
		zap.Int("accounts", len(accounts)),
		zap.Uint64("accepted", proc.Accepted()),
		zap.Uint64("dropped", proc.Dropped()),
		zap.Int("skipped_rows", reader.Skipped()),
	)

	if databaseURL == "" {
		return nil
	}

	pool, err := db.NewPool(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("bootstrap database pool: %w", err)
	}
	defer pool.Close()

	repo := warehouse.NewRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		return err
	}

	runID, err := warehouse.NewService(repo).
		Publish(ctx, filepath.Base(inputPath), proc.Accepted(), proc.Dropped(), started, accounts)
	if err != nil {
		return err
	}
	logger.Info("snapshot published", zap.String("run_id", runID))
	return nil
}
