package testevents

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/betpool/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	outputPermission    = 0600
)

// Run drives one pool from creation to settlement and verifies the result.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	if config.Logger == nil {
		config.Logger = logger.Nop()
	}
	if err := validate(config); err != nil {
		return nil, err
	}

	stats := &Stats{StartTime: time.Now()}
	config.Logger.Info(ctx, "starting betpool load run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("users", config.NumUsers),
		logger.Int("bets", config.NumBets),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout))

	client := newHTTPClient(config.Timeout)

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config, client); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Create the pool
	pool, err := setupPool(ctx, config, client)
	if err != nil {
		return stats, fmt.Errorf("pool setup failed: %w", err)
	}

	// Step 3: Generate and submit bets
	bets, err := generateBets(ctx, config, pool, stats)
	if err != nil {
		return stats, fmt.Errorf("bet generation failed: %w", err)
	}
	accepted := submitBets(ctx, config, client, bets, stats)
	replayBets(ctx, config, client, accepted, stats)

	// Step 4: Resolve and verify
	report, err := resolvePool(ctx, config, client, pool)
	if err != nil {
		return stats, err
	}
	if err := verifySettlement(ctx, config, bets, accepted, report, stats); err != nil {
		return stats, fmt.Errorf("settlement verification failed: %w", err)
	}
	if err := verifyUserBets(ctx, config, client, pool, accepted, stats); err != nil {
		return stats, fmt.Errorf("user bet verification failed: %w", err)
	}

	// Step 5: Save bets to file
	if config.OutputFile != "" {
		if err := saveBetsToFile(ctx, config, bets); err != nil {
			config.Logger.Warn(ctx, "failed to save bets to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, config, stats)

	config.Logger.Info(ctx, "load run completed successfully")
	return stats, nil
}

func validate(config *Config) error {
	switch {
	case config.BaseURL == "":
		return fmt.Errorf("base URL is required")
	case config.NumUsers <= 0 || config.NumBets <= 0 || config.Workers <= 0:
		return fmt.Errorf("users, bets and workers must be positive")
	case config.MinBetCents < minStake.Cents():
		return fmt.Errorf("minimum bet must be at least %s", minStake)
	case config.MaxBetCents/100 < (config.MinBetCents+99)/100:
		return fmt.Errorf("bet bounds must span at least one whole dollar")
	}
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config, client *HTTPClient) error {
	status, _, err := client.Get(ctx, config.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	// The service answers with Prometheus metrics.
	if status != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", status)
	}
	config.Logger.Info(ctx, "service is healthy")
	return nil
}

// saveBetsToFile writes the generated bets as a JSON array.
func saveBetsToFile(ctx context.Context, config *Config, bets []Bet) error {
	if len(bets) == 0 {
		return fmt.Errorf("no bets to save")
	}

	filename := config.OutputFile
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(bets, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal bets: %w", err)
	}
	if err := os.WriteFile(filename, append(data, '\n'), outputPermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	config.Logger.Info(ctx, "bets saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, config *Config, stats *Stats) {
	var acceptRate, betsPerSecond float64

	if stats.BetsSubmitted > 0 {
		acceptRate = float64(stats.BetsAccepted) / float64(stats.BetsSubmitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		betsPerSecond = float64(stats.BetsSubmitted) / stats.Duration.Seconds()
	}

	config.Logger.Info(ctx, "final statistics",
		logger.Int("betsGenerated", stats.BetsGenerated),
		logger.Int("betsSubmitted", stats.BetsSubmitted),
		logger.Int("betsAccepted", stats.BetsAccepted),
		logger.Int("betsRejected", stats.BetsRejected),
		logger.Int("betsFailed", stats.BetsFailed),
		logger.Int("replays", stats.Replays),
		logger.Int64("acceptedCents", stats.AcceptedCents),
		logger.Int("usersChecked", stats.UsersChecked),
		logger.Duration("duration", stats.Duration),
		logger.Float64("acceptRate", acceptRate),
		logger.Float64("betsPerSecond", betsPerSecond))
}
