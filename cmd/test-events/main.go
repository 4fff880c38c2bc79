package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/betpool/internal/testevents"
	"github.com/okian/betpool/pkg/logger"
)

// Default configuration constants.
const (
	defaultNumUsers    = 50
	defaultNumBets     = 1000
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultMinBet      = "5.00"
	defaultMaxBet      = "100.00"
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numUsers   = flag.Int("users", defaultNumUsers, "Number of bettors to register")
		numBets    = flag.Int("bets", defaultNumBets, "Number of bets to place")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		minBet     = flag.String("min", defaultMinBet, "Minimum stake in dollars")
		maxBet     = flag.String("max", defaultMaxBet, "Maximum stake in dollars")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Write the generated bets to this JSON file")
		logFile    = flag.String("log", "", "Log file for run output (default: loadrun_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Log every rejected or failed request")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		testevents.ShowHelp()
		return
	}

	minCents, err := testevents.ParseStake(*minBet)
	if err != nil {
		os.Stderr.WriteString("Invalid -min: " + err.Error() + "\n")
		os.Exit(1)
	}
	maxCents, err := testevents.ParseStake(*maxBet)
	if err != nil {
		os.Stderr.WriteString("Invalid -max: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, closeLog, err := testevents.SetupLogging(*logFile, logger.FormatText)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer closeLog()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	config := &testevents.Config{
		BaseURL:     *baseURL,
		NumUsers:    *numUsers,
		NumBets:     *numBets,
		Workers:     *workers,
		Timeout:     *timeout,
		MinBetCents: minCents,
		MaxBetCents: maxCents,
		OutputFile:  *outputFile,
		Verbose:     *verbose,
		Logger:      log,
	}

	if _, err := testevents.Run(ctx, config); err != nil {
		log.Error(ctx, "load run failed", logger.Error(err))
		closeLog()
		os.Exit(1)
	}
}
