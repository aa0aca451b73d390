package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/simuq/internal/jobclient"
	"github.com/okian/simuq/pkg/logger"
)

const defaultWorkers = 4

func main() {
	var (
		baseURL = flag.String("url", "http://localhost:9080", "Base URL of the service")
		workers = flag.Int("workers", defaultWorkers, "Number of concurrent submissions")
		timeout = flag.Duration("timeout", jobclient.DefaultTimeout, "HTTP request timeout")
		poll    = flag.Duration("poll", jobclient.DefaultPollInterval, "Delay between lookups of one job")
		wait    = flag.Duration("wait", jobclient.DefaultWait, "How long to wait for each job's record")
		outDir  = flag.String("out", "", "Directory to save fetched records")
		verbose = flag.Bool("verbose", false, "Log every finished job")
		help    = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help || flag.NArg() == 0 {
		jobclient.ShowHelp()
		return
	}

	if err := logger.Init(logger.WithFormat(logger.FormatText)); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := &jobclient.Config{
		BaseURL:      *baseURL,
		Workers:      *workers,
		Timeout:      *timeout,
		PollInterval: *poll,
		Wait:         *wait,
		OutputDir:    *outDir,
		Verbose:      *verbose,
	}

	stats, _, err := jobclient.Run(ctx, cfg, flag.Args())
	if err != nil {
		os.Stderr.WriteString("Run failed: " + err.Error() + "\n")
		os.Exit(1)
	}
	if stats.Failed > 0 {
		os.Exit(2)
	}
}
