package testevents

import (
	"time"

	"github.com/okian/betpool/internal/domain/money"
)

// HTTP status code constants.
const (
	StatusOK       = 200
	StatusCreated  = 201
	StatusConflict = 409
	StatusRejected = 422
)

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	// Every InvalidEvery-th bet is generated below the minimum stake.
	InvalidEvery = 10
	// MaxReplays bounds how many accepted keys are replayed.
	MaxReplays           = 5
	PercentageMultiplier = 100

	eventLeadTime  = 48 * time.Hour
	cutoffLeadTime = 24 * time.Hour
)

// Outcome of a single submission.
const (
	outcomeAccepted = "accepted"
	outcomeRejected = "rejected"
	outcomeFailed   = "failed"
)

// minStake is the smallest event minimum a run may configure.
var minStake = money.MustParse("$1.00")

var poolOptions = []string{"Red", "Blue", "Green", "Yellow"}
