// Package sqlite provides a SQLite-backed implementation of repository.Store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/okian/betpool/internal/adapters/repository"
	"github.com/okian/betpool/internal/domain/model"
	"github.com/okian/betpool/internal/domain/money"
	"github.com/okian/betpool/pkg/logger"
)

// Ensure SQLiteStore implements repository.Store
var _ repository.Store = (*SQLiteStore)(nil)

// SQLiteStore implements repository.Store using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	log logger.Logger
}

// Option applies a configuration option to the SQLiteStore.
type Option func(*SQLiteStore)

// WithLogger sets the store's logger.
func WithLogger(l logger.Logger) Option {
	return func(s *SQLiteStore) {
		if l != nil {
			s.log = l
		}
	}
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string, opts ...Option) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time; settlement transactions must not interleave.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	s := &SQLiteStore{db: db, log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	s.log.Info(context.Background(), "sqlite store ready", logger.String("path", dbPath))
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load reads the full state in insertion order.
func (s *SQLiteStore) Load(ctx context.Context) (repository.Snapshot, error) {
	var snap repository.Snapshot
	var err error

	if snap.Users, err = s.loadUsers(ctx); err != nil {
		return snap, err
	}
	if snap.Events, err = s.loadEvents(ctx); err != nil {
		return snap, err
	}
	if snap.Questions, err = s.loadQuestions(ctx); err != nil {
		return snap, err
	}
	if snap.Bets, err = s.loadBets(ctx); err != nil {
		return snap, err
	}

	s.log.Debug(ctx, "state loaded",
		logger.Int("users", len(snap.Users)),
		logger.Int("events", len(snap.Events)),
		logger.Int("questions", len(snap.Questions)),
		logger.Int("bets", len(snap.Bets)))
	return snap, nil
}

// SaveUser persists a new user.
func (s *SQLiteStore) SaveUser(ctx context.Context, u model.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, venmo_handle, paypal_email, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, nullString(u.VenmoHandle), nullString(u.PaypalEmail), toNanos(u.CreatedAt),
	)
	if err != nil {
		return classify(fmt.Errorf("failed to insert user: %w", err))
	}
	return nil
}

// SaveEvent persists an event and its questions in one transaction.
func (s *SQLiteStore) SaveEvent(ctx context.Context, e model.Event, questions []model.Question) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO events (id, host_id, title, description, date, code, min_bet_cents, max_bet_cents, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.HostID, e.Title, e.Description, toNanos(e.Date), e.Code,
		e.MinBet.Cents(), e.MaxBet.Cents(), toNanos(e.CreatedAt),
	)
	if err != nil {
		return classify(fmt.Errorf("failed to insert event: %w", err))
	}

	for i, q := range questions {
		opts, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("failed to encode options: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO questions (id, event_id, position, text, type, options, cutoff, status, correct_answer, resolved_at, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			q.ID, e.ID, i, q.Text, string(q.Type), string(opts), toNanos(q.Cutoff), string(q.Status),
			nullString(q.CorrectAnswer), nullNanos(q.ResolvedAt), toNanos(q.CreatedAt),
		)
		if err != nil {
			return classify(fmt.Errorf("failed to insert question: %w", err))
		}
	}

	for _, p := range e.Participants {
		if err := insertParticipant(ctx, tx, e.ID, p); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// AddParticipant records a participant; repeats are ignored.
func (s *SQLiteStore) AddParticipant(ctx context.Context, eventID, userID string) error {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM events WHERE id = ?", eventID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: event %s", repository.ErrNotFound, eventID)
	}
	if err != nil {
		return fmt.Errorf("failed to check event existence: %w", err)
	}
	return insertParticipant(ctx, s.db, eventID, userID)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertParticipant(ctx context.Context, db execer, eventID, userID string) error {
	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO participants (event_id, user_id) VALUES (?, ?)`,
		eventID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert participant: %w", err)
	}
	return nil
}

// AppendBet persists an accepted bet at the end of its question's ledger.
func (s *SQLiteStore) AppendBet(ctx context.Context, b model.Bet) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bets (id, event_id, question_id, user_id, answer, amount_cents, status, payout_cents, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.EventID, b.QuestionID, b.UserID, b.Answer, b.Amount.Cents(), string(b.Status),
		b.Payout.Cents(), toNanos(b.CreatedAt),
	)
	if err != nil {
		return classify(fmt.Errorf("failed to insert bet: %w", err))
	}
	return nil
}

// SaveQuestionStatus updates a question's status.
func (s *SQLiteStore) SaveQuestionStatus(ctx context.Context, q model.Question) error {
	return updateQuestion(ctx, s.db, q)
}

// SaveSettlement writes the terminal question and every bet in one transaction.
func (s *SQLiteStore) SaveSettlement(ctx context.Context, q model.Question, bets []model.Bet) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := updateQuestion(ctx, tx, q); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`UPDATE bets SET status = ?, payout_cents = ? WHERE id = ? AND question_id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare bet update: %w", err)
	}
	defer stmt.Close()

	for _, b := range bets {
		res, err := stmt.ExecContext(ctx, string(b.Status), b.Payout.Cents(), b.ID, q.ID)
		if err != nil {
			return fmt.Errorf("failed to update bet: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: bet %s", repository.ErrNotFound, b.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.log.Debug(ctx, "settlement stored",
		logger.String("question_id", q.ID),
		logger.String("status", string(q.Status)),
		logger.Int("bets", len(bets)))
	return nil
}

func updateQuestion(ctx context.Context, db execer, q model.Question) error {
	res, err := db.ExecContext(ctx,
		`UPDATE questions SET status = ?, correct_answer = ?, resolved_at = ? WHERE id = ?`,
		string(q.Status), nullString(q.CorrectAnswer), nullNanos(q.ResolvedAt), q.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update question: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: question %s", repository.ErrNotFound, q.ID)
	}
	return nil
}

func (s *SQLiteStore) loadUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, venmo_handle, paypal_email, created_at FROM users ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		var venmo, paypal sql.NullString
		var created int64
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &venmo, &paypal, &created); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		u.VenmoHandle, u.PaypalEmail = venmo.String, paypal.String
		u.CreatedAt = fromNanos(created)
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

func (s *SQLiteStore) loadEvents(ctx context.Context) ([]model.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, host_id, title, description, date, code, min_bet_cents, max_bet_cents, created_at
		 FROM events ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	index := make(map[string]int)
	for rows.Next() {
		var e model.Event
		var date, created, minBet, maxBet int64
		if err := rows.Scan(&e.ID, &e.HostID, &e.Title, &e.Description, &date, &e.Code, &minBet, &maxBet, &created); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Date, e.CreatedAt = fromNanos(date), fromNanos(created)
		e.MinBet, e.MaxBet = money.FromCents(minBet), money.FromCents(maxBet)
		index[e.ID] = len(events)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	rows.Close()

	qrows, err := s.db.QueryContext(ctx, `SELECT event_id, id FROM questions ORDER BY event_id, position`)
	if err != nil {
		return nil, fmt.Errorf("failed to list question ids: %w", err)
	}
	defer qrows.Close()
	for qrows.Next() {
		var eventID, id string
		if err := qrows.Scan(&eventID, &id); err != nil {
			return nil, fmt.Errorf("failed to scan question id: %w", err)
		}
		if i, ok := index[eventID]; ok {
			events[i].QuestionIDs = append(events[i].QuestionIDs, id)
		}
	}
	if err := qrows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate question ids: %w", err)
	}
	qrows.Close()

	prows, err := s.db.QueryContext(ctx, `SELECT event_id, user_id FROM participants ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer prows.Close()
	for prows.Next() {
		var eventID, userID string
		if err := prows.Scan(&eventID, &userID); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		if i, ok := index[eventID]; ok {
			events[i].Participants = append(events[i].Participants, userID)
		}
	}
	if err := prows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}
	return events, nil
}

func (s *SQLiteStore) loadQuestions(ctx context.Context) ([]model.Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT q.id, q.event_id, q.text, q.type, q.options, q.cutoff, q.status, q.correct_answer, q.resolved_at, q.created_at
		 FROM questions q JOIN events e ON e.id = q.event_id
		 ORDER BY e.seq, q.position`)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		var qtype, status, opts string
		var answer sql.NullString
		var resolved sql.NullInt64
		var cutoff, created int64
		if err := rows.Scan(&q.ID, &q.EventID, &q.Text, &qtype, &opts, &cutoff, &status, &answer, &resolved, &created); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		if err := json.Unmarshal([]byte(opts), &q.Options); err != nil {
			return nil, fmt.Errorf("failed to decode options for question %s: %w", q.ID, err)
		}
		q.Type, q.Status = model.QuestionType(qtype), model.QuestionStatus(status)
		q.CorrectAnswer = answer.String
		if resolved.Valid {
			q.ResolvedAt = fromNanos(resolved.Int64)
		}
		q.Cutoff, q.CreatedAt = fromNanos(cutoff), fromNanos(created)
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate questions: %w", err)
	}
	return questions, nil
}

func (s *SQLiteStore) loadBets(ctx context.Context) ([]model.Bet, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, event_id, question_id, user_id, answer, amount_cents, status, payout_cents, created_at
		 FROM bets ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to list bets: %w", err)
	}
	defer rows.Close()

	var bets []model.Bet
	for rows.Next() {
		var b model.Bet
		var status string
		var amount, payout, created int64
		if err := rows.Scan(&b.ID, &b.EventID, &b.QuestionID, &b.UserID, &b.Answer, &amount, &status, &payout, &created); err != nil {
			return nil, fmt.Errorf("failed to scan bet: %w", err)
		}
		b.Amount, b.Payout = money.FromCents(amount), money.FromCents(payout)
		b.Status = model.BetStatus(status)
		b.CreatedAt = fromNanos(created)
		bets = append(bets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bets: %w", err)
	}
	return bets, nil
}

// classify maps constraint violations onto repository sentinels.
func classify(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"), strings.Contains(msg, "PRIMARY KEY"):
		return fmt.Errorf("%w: %v", repository.ErrConflict, err)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%w: %v", repository.ErrNotFound, err)
	}
	return err
}

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

func nullNanos(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UnixNano()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
