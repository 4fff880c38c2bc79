package testevents

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/betpool/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging returns a logger writing to stdout and to logFile. If logFile
// is empty, a timestamped filename is generated. The returned func closes
// the file.
func SetupLogging(logFile, format string) (logger.Logger, func(), error) {
	if logFile == "" {
		logFile = "loadrun_" + time.Now().Format("20060102_150405") + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create log file: %w", err)
	}

	log, err := logger.New(io.MultiWriter(os.Stdout, file), format)
	if err != nil {
		_ = file.Close()
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return log, func() { _ = file.Close() }, nil
}

// ShowHelp prints usage information for the load tool.
func ShowHelp() {
	os.Stdout.WriteString(`Betpool Load Tool
=================

Creates a pool, places concurrent bets against it, resolves it and checks
that the settlement conserves the pool.

Usage:
  go run ./cmd/test-events [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -users int
        Number of bettors to register (default 50)
  -bets int
        Number of bets to place (default 1000)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -min string
        Minimum stake in dollars (default "5.00")
  -max string
        Maximum stake in dollars (default "100.00")
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Write the generated bets to this JSON file
  -log string
        Log file for run output (default: loadrun_TIMESTAMP.log)
  -verbose
        Log every rejected or failed request
  -help
        Show this help message

Examples:
  go run ./cmd/test-events -bets 20000 -workers 16 -url http://localhost:8080
`)
}
