package testevents

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"github.com/okian/betpool/pkg/logger"
)

// randomInt returns a uniform int in [0, n) using crypto/rand.
func randomInt(n int64) int64 {
	if n <= 1 {
		return 0
	}
	v, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		return 0
	}
	return v.Int64()
}

// generateBets creates config.NumBets placements spread over the pool's
// users and options. Every InvalidEvery-th bet is below the minimum.
func generateBets(ctx context.Context, config *Config, pool *Pool, stats *Stats) ([]Bet, error) {
	config.Logger.Info(ctx, "generating bets", logger.Int("bets", config.NumBets), logger.Int("users", len(pool.UserIDs)))

	if len(pool.UserIDs) == 0 || len(pool.Options) == 0 {
		return nil, fmt.Errorf("pool has no users or options")
	}

	bets := make([]Bet, config.NumBets)
	for i := range bets {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during bet generation: %w", err)
		}
		bets[i] = generateSingleBet(i, config, pool)
	}

	stats.BetsGenerated = len(bets)
	return bets, nil
}

func generateSingleBet(index int, config *Config, pool *Pool) Bet {
	b := Bet{
		Key:        uuid.NewString(),
		EventID:    pool.EventID,
		QuestionID: pool.QuestionID,
		UserID:     pool.UserIDs[randomInt(int64(len(pool.UserIDs)))],
		Answer:     pool.Options[randomInt(int64(len(pool.Options)))],
	}
	if (index+1)%InvalidEvery == 0 {
		b.AmountCents = config.MinBetCents - 1
		b.Invalid = true
		return b
	}
	// Whole dollars keep the generated pool readable.
	minDollars := (config.MinBetCents + 99) / 100
	maxDollars := config.MaxBetCents / 100
	b.AmountCents = (minDollars + randomInt(maxDollars-minDollars+1)) * 100
	return b
}

// expectedRejections counts the bets generated to be rejected.
func expectedRejections(bets []Bet) int {
	n := 0
	for _, b := range bets {
		if b.Invalid {
			n++
		}
	}
	return n
}
