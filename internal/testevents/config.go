package testevents

import (
	"fmt"
	"time"

	"github.com/okian/betpool/internal/domain/money"
	"github.com/okian/betpool/pkg/logger"
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL     string        // Base URL of the service
	NumUsers    int           // Number of bettors to register
	NumBets     int           // Number of bets to generate
	Workers     int           // Number of concurrent workers
	Timeout     time.Duration // HTTP request timeout
	MinBetCents int64         // Event minimum stake
	MaxBetCents int64         // Event maximum stake
	OutputFile  string        // Output file for generated bets
	Verbose     bool          // Enable per-request logging
	Logger      logger.Logger // Defaults to a no-op logger
}

// Bet is one generated placement.
type Bet struct {
	Key         string `json:"-"`
	EventID     string `json:"event_id"`
	QuestionID  string `json:"question_id"`
	UserID      string `json:"user_id"`
	Answer      string `json:"answer"`
	AmountCents int64  `json:"amount_cents"`
	// Invalid bets are sent below the event minimum and must be rejected.
	Invalid bool `json:"-"`
}

// Pool is the event the run bets on.
type Pool struct {
	EventID    string
	Code       string
	QuestionID string
	Options    []string
	UserIDs    []string
}

// Report is the settlement returned by the resolve endpoint.
type Report struct {
	QuestionID    string `json:"question_id"`
	CorrectAnswer string `json:"correct_answer"`
	TotalPool     int64  `json:"total_pool_cents"`
	WinningPool   int64  `json:"winning_pool_cents"`
	LosingPool    int64  `json:"losing_pool_cents"`
	Residue       int64  `json:"rounding_residue_cents"`
	Unclaimed     int64  `json:"unclaimed_cents"`
	Entries       []struct {
		BetID  string `json:"bet_id"`
		UserID string `json:"user_id"`
		Answer string `json:"answer"`
		Amount int64  `json:"amount_cents"`
		Status string `json:"status"`
		Payout int64  `json:"payout_cents"`
	} `json:"entries"`
}

// Stats holds run statistics.
type Stats struct {
	BetsGenerated   int
	BetsSubmitted   int
	BetsAccepted    int
	BetsRejected    int
	BetsFailed      int
	Replays         int
	ReplaysRejected int
	AcceptedCents   int64
	UsersChecked    int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}

// ParseStake reads a dollar amount such as "5", "5.50" or "$5.50" into cents.
func ParseStake(s string) (int64, error) {
	m, err := money.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("stake: %w", err)
	}
	if m <= 0 {
		return 0, fmt.Errorf("stake %s must be positive", m)
	}
	return m.Cents(), nil
}
