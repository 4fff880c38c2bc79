package testevents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/betpool/pkg/logger"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client *http.Client
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request and returns the status and body.
func (c *HTTPClient) Get(ctx context.Context, url string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req)
}

// Post performs a POST request with a JSON body. Extra headers are set as
// given.
func (c *HTTPClient) Post(ctx context.Context, url string, body any, headers map[string]string) (int, []byte, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.do(req)
}

func (c *HTTPClient) do(req *http.Request) (int, []byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

// postExpect posts body and decodes the response into out when the status
// is want.
func (c *HTTPClient) postExpect(ctx context.Context, url string, body any, want int, out any) error {
	status, data, err := c.Post(ctx, url, body, nil)
	if err != nil {
		return err
	}
	if status != want {
		return fmt.Errorf("POST %s: status %d: %s", url, status, bytes.TrimSpace(data))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

// setupPool registers the host and bettors, creates a one-question event
// and joins every bettor to it.
func setupPool(ctx context.Context, config *Config, client *HTTPClient) (*Pool, error) {
	type user struct {
		ID string `json:"id"`
	}
	register := func(i int) (string, error) {
		var u user
		req := map[string]string{
			"name":  fmt.Sprintf("Bettor %d", i),
			"email": fmt.Sprintf("bettor%d@example.com", i),
		}
		if err := client.postExpect(ctx, config.BaseURL+"/users", req, StatusCreated, &u); err != nil {
			return "", fmt.Errorf("register user %d: %w", i, err)
		}
		return u.ID, nil
	}

	host, err := register(0)
	if err != nil {
		return nil, err
	}

	date := time.Now().UTC().Add(eventLeadTime)
	var ev struct {
		ID          string   `json:"id"`
		Code        string   `json:"event_code"`
		QuestionIDs []string `json:"question_ids"`
	}
	create := map[string]any{
		"host_id":       host,
		"title":         "Load run pool",
		"description":   "Generated event for settlement verification",
		"date":          date,
		"min_bet_cents": config.MinBetCents,
		"max_bet_cents": config.MaxBetCents,
		"questions": []map[string]any{{
			"text":        "Which color wins?",
			"type":        "multiple_choice",
			"options":     poolOptions,
			"cutoff_time": date.Add(-cutoffLeadTime),
		}},
	}
	if err := client.postExpect(ctx, config.BaseURL+"/events", create, StatusCreated, &ev); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	if len(ev.QuestionIDs) != 1 {
		return nil, fmt.Errorf("create event: expected one question, got %d", len(ev.QuestionIDs))
	}

	pool := &Pool{EventID: ev.ID, Code: ev.Code, QuestionID: ev.QuestionIDs[0], Options: poolOptions}
	for i := 1; i <= config.NumUsers; i++ {
		id, err := register(i)
		if err != nil {
			return nil, err
		}
		join := map[string]string{"event_code": ev.Code, "user_id": id}
		if err := client.postExpect(ctx, config.BaseURL+"/events/join", join, StatusOK, nil); err != nil {
			return nil, fmt.Errorf("join user %d: %w", i, err)
		}
		pool.UserIDs = append(pool.UserIDs, id)
	}

	config.Logger.Info(ctx, "pool ready",
		logger.String("event_id", pool.EventID),
		logger.String("code", pool.Code),
		logger.Int("users", len(pool.UserIDs)))
	return pool, nil
}

// submitBets submits bets concurrently using a worker pool. It returns the
// bets the service accepted.
func submitBets(ctx context.Context, config *Config, client *HTTPClient, bets []Bet, stats *Stats) []Bet {
	config.Logger.Info(ctx, "submitting bets", logger.Int("bets", len(bets)), logger.Int("workers", config.Workers))

	url := config.BaseURL + "/bets"
	var (
		submitted, accepted, rejected, failed atomic.Int64
		acceptedCents                         atomic.Int64
		mu                                    sync.Mutex
		ok                                    []Bet
	)

	betChan := make(chan Bet, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for bet := range betChan {
				if ctx.Err() != nil {
					return
				}
				submitted.Add(1)
				switch submitSingleBet(ctx, config, client, url, bet) {
				case outcomeAccepted:
					accepted.Add(1)
					acceptedCents.Add(bet.AmountCents)
					mu.Lock()
					ok = append(ok, bet)
					mu.Unlock()
				case outcomeRejected:
					rejected.Add(1)
				default:
					failed.Add(1)
				}
			}
		}()
	}

	go func() {
		defer close(betChan)
		for _, bet := range bets {
			select {
			case <-ctx.Done():
				return
			case betChan <- bet:
			}
		}
	}()

	wg.Wait()

	stats.BetsSubmitted = int(submitted.Load())
	stats.BetsAccepted = int(accepted.Load())
	stats.BetsRejected = int(rejected.Load())
	stats.BetsFailed = int(failed.Load())
	stats.AcceptedCents = acceptedCents.Load()

	config.Logger.Info(ctx, "bet submission completed",
		logger.Int("accepted", stats.BetsAccepted),
		logger.Int("rejected", stats.BetsRejected),
		logger.Int("failed", stats.BetsFailed))
	return ok
}

// submitSingleBet submits a single bet and returns its outcome.
func submitSingleBet(ctx context.Context, config *Config, client *HTTPClient, url string, bet Bet) string {
	status, body, err := client.Post(ctx, url, bet, map[string]string{"Idempotency-Key": bet.Key})
	if err != nil {
		if config.Verbose {
			config.Logger.Warn(ctx, "bet request failed", logger.Error(err))
		}
		return outcomeFailed
	}

	switch status {
	case StatusCreated:
		return outcomeAccepted
	case StatusRejected, StatusConflict:
		if config.Verbose {
			config.Logger.Debug(ctx, "bet rejected", logger.Int("status", status), logger.String("body", string(body)))
		}
		return outcomeRejected
	default:
		if config.Verbose {
			config.Logger.Warn(ctx, "unexpected bet status", logger.Int("status", status), logger.String("body", string(body)))
		}
		return outcomeFailed
	}
}

// replayBets resends up to MaxReplays accepted bets with their original
// keys. Each must be refused as a duplicate.
func replayBets(ctx context.Context, config *Config, client *HTTPClient, accepted []Bet, stats *Stats) {
	url := config.BaseURL + "/bets"
	for i := 0; i < len(accepted) && i < MaxReplays; i++ {
		stats.Replays++
		status, _, err := client.Post(ctx, url, accepted[i], map[string]string{"Idempotency-Key": accepted[i].Key})
		if err == nil && status == StatusConflict {
			stats.ReplaysRejected++
		}
	}
}

// resolvePool declares a random option correct and returns the settlement.
func resolvePool(ctx context.Context, config *Config, client *HTTPClient, pool *Pool) (*Report, error) {
	answer := pool.Options[randomInt(int64(len(pool.Options)))]
	var report Report
	url := config.BaseURL + "/questions/" + pool.QuestionID + "/resolve"
	if err := client.postExpect(ctx, url, map[string]string{"answer": answer}, StatusOK, &report); err != nil {
		return nil, fmt.Errorf("resolve question: %w", err)
	}
	config.Logger.Info(ctx, "pool resolved",
		logger.String("answer", report.CorrectAnswer),
		logger.Int64("pool_cents", report.TotalPool),
		logger.Int64("residue_cents", report.Residue),
		logger.Int64("unclaimed_cents", report.Unclaimed))
	return &report, nil
}
