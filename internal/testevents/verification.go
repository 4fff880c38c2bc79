package testevents

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/okian/betpool/pkg/logger"
)

// verifySettlement checks the resolve report against what was accepted.
func verifySettlement(ctx context.Context, config *Config, bets []Bet, accepted []Bet, report *Report, stats *Stats) error {
	config.Logger.Info(ctx, "verifying settlement")

	if want := expectedRejections(bets); stats.BetsRejected != want {
		return fmt.Errorf("expected %d rejected bets, got %d", want, stats.BetsRejected)
	}
	if stats.ReplaysRejected != stats.Replays {
		return fmt.Errorf("%d of %d idempotent replays were accepted", stats.Replays-stats.ReplaysRejected, stats.Replays)
	}
	if report.TotalPool != stats.AcceptedCents {
		return fmt.Errorf("report pool %d does not match accepted stakes %d", report.TotalPool, stats.AcceptedCents)
	}
	if len(report.Entries) != len(accepted) {
		return fmt.Errorf("report has %d entries for %d accepted bets", len(report.Entries), len(accepted))
	}
	if report.WinningPool+report.LosingPool != report.TotalPool {
		return fmt.Errorf("winning %d + losing %d != pool %d", report.WinningPool, report.LosingPool, report.TotalPool)
	}

	var paid int64
	for _, e := range report.Entries {
		switch e.Status {
		case "won":
			if e.Payout < e.Amount {
				return fmt.Errorf("winning bet %s paid %d on a stake of %d", e.BetID, e.Payout, e.Amount)
			}
		case "lost":
			if e.Payout != 0 {
				return fmt.Errorf("losing bet %s paid %d", e.BetID, e.Payout)
			}
		default:
			return fmt.Errorf("bet %s settled as %q", e.BetID, e.Status)
		}
		paid += e.Payout
	}

	if report.WinningPool == 0 {
		if paid != 0 || report.Unclaimed != report.TotalPool {
			return fmt.Errorf("no winners but paid %d and left %d unclaimed of %d", paid, report.Unclaimed, report.TotalPool)
		}
	} else if paid+report.Residue != report.TotalPool {
		return fmt.Errorf("paid %d + residue %d != pool %d", paid, report.Residue, report.TotalPool)
	}

	config.Logger.Info(ctx, "settlement verified", logger.Int64("paid_cents", paid))
	return nil
}

// verifyUserBets fetches every bettor's bets concurrently and checks that
// each accepted bet shows up settled.
func verifyUserBets(ctx context.Context, config *Config, client *HTTPClient, pool *Pool, accepted []Bet, stats *Stats) error {
	want := make(map[string]int, len(pool.UserIDs))
	for _, b := range accepted {
		want[b.UserID]++
	}

	var (
		checked atomic.Int64
		mu      sync.Mutex
		errs    []error
	)
	userChan := make(chan string, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for userID := range userChan {
				if err := verifySingleUser(ctx, config, client, userID, want[userID]); err != nil {
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
					continue
				}
				checked.Add(1)
			}
		}()
	}

	for _, id := range pool.UserIDs {
		userChan <- id
	}
	close(userChan)
	wg.Wait()

	stats.UsersChecked = int(checked.Load())
	if len(errs) > 0 {
		return fmt.Errorf("%d users failed verification, first: %w", len(errs), errs[0])
	}
	return nil
}

func verifySingleUser(ctx context.Context, config *Config, client *HTTPClient, userID string, want int) error {
	status, body, err := client.Get(ctx, config.BaseURL+"/users/"+userID+"/bets")
	if err != nil {
		return fmt.Errorf("user %s: %w", userID, err)
	}
	if status != StatusOK {
		return fmt.Errorf("user %s: status %d", userID, status)
	}

	var resp struct {
		Bets []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"bets"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("user %s: %w", userID, err)
	}
	if len(resp.Bets) != want {
		return fmt.Errorf("user %s: expected %d bets, got %d", userID, want, len(resp.Bets))
	}
	for _, b := range resp.Bets {
		if b.Status != "won" && b.Status != "lost" {
			return fmt.Errorf("user %s: bet %s is %s after resolution", userID, b.ID, b.Status)
		}
	}
	return nil
}
