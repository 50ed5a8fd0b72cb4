package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// DefaultPageSize is used by Recipients when the caller passes a non-positive size.
const DefaultPageSize = 200

// Store defines the recipient persistence operations.
// Every method accepts a context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// CountRecipients returns the number of stored recipients.
	CountRecipients(ctx context.Context) (int, error)

	// SnapshotRecipients returns the recipient count and highest row id in
	// one read.
	SnapshotRecipients(ctx context.Context) (RecipientSnapshot, error)

	// HasRecipient reports whether userID is stored.
	HasRecipient(ctx context.Context, userID int64) (bool, error)

	// AddRecipient stores userID if absent. added is false when it already existed.
	AddRecipient(ctx context.Context, userID int64, source string) (added bool, err error)

	// DeleteRecipient removes userID. Removing an absent user is not an error.
	DeleteRecipient(ctx context.Context, userID int64) error

	// Recipients lazily yields every recipient present when iteration starts,
	// in insertion order, fetching pageSize rows at a time.
	Recipients(ctx context.Context, pageSize int) iter.Seq2[Recipient, error]

	// RecipientsUpTo is Recipients bounded by a row id taken from a
	// RecipientSnapshot. Rows added after the snapshot are not visited.
	RecipientsUpTo(ctx context.Context, maxID int64, pageSize int) iter.Seq2[Recipient, error]

	// RunSQLMaintenance performs database maintenance (VACUUM).
	RunSQLMaintenance(ctx context.Context) error
}

type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a Store backed by sqlx.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) CountRecipients(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM recipients`); err != nil {
		s.logger.ErrorContext(ctx, "Error counting recipients", "error", err)
		return 0, fmt.Errorf("failed to count recipients: %w", err)
	}
	return n, nil
}

func (s *sqlxStore) SnapshotRecipients(ctx context.Context) (RecipientSnapshot, error) {
	var snap RecipientSnapshot
	err := s.db.GetContext(ctx, &snap,
		`SELECT COUNT(*) AS count, COALESCE(MAX(id), 0) AS max_id FROM recipients`)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error reading recipient snapshot", "error", err)
		return RecipientSnapshot{}, fmt.Errorf("failed to read recipient snapshot: %w", err)
	}
	return snap, nil
}

func (s *sqlxStore) HasRecipient(ctx context.Context, userID int64) (bool, error) {
	if userID == 0 {
		return false, fmt.Errorf("user_id cannot be zero")
	}

	var one int
	err := s.db.GetContext(ctx, &one, `SELECT 1 FROM recipients WHERE user_id = ? LIMIT 1`, userID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error looking up recipient", "user_id", userID, "error", err)
		return false, fmt.Errorf("failed to look up recipient %d: %w", userID, err)
	}
	return true, nil
}

func (s *sqlxStore) AddRecipient(ctx context.Context, userID int64, source string) (bool, error) {
	if userID == 0 {
		return false, fmt.Errorf("user_id cannot be zero")
	}
	if source == "" {
		source = SourceStart
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO recipients (user_id, source, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO NOTHING`,
		userID, source, time.Now().UTC())
	if err != nil {
		s.logger.ErrorContext(ctx, "Error adding recipient", "user_id", userID, "error", err)
		return false, fmt.Errorf("failed to add recipient %d: %w", userID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		s.logger.WarnContext(ctx, "Could not read rows affected after adding recipient", "user_id", userID, "error", err)
		return false, nil
	}
	if affected > 0 {
		s.logger.DebugContext(ctx, "Recipient added", "user_id", userID, "source", source)
	}
	return affected > 0, nil
}

func (s *sqlxStore) DeleteRecipient(ctx context.Context, userID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM recipients WHERE user_id = ?`, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deleting recipient", "user_id", userID, "error", err)
		return fmt.Errorf("failed to delete recipient %d: %w", userID, err)
	}
	if n, err := res.RowsAffected(); err == nil {
		s.logger.DebugContext(ctx, "Recipient deleted", "user_id", userID, "affected", n)
	}
	return nil
}

// Recipients pages through the table with a keyset cursor bounded by the
// highest id seen at the first pull.
func (s *sqlxStore) Recipients(ctx context.Context, pageSize int) iter.Seq2[Recipient, error] {
	return func(yield func(Recipient, error) bool) {
		var upper sql.NullInt64
		if err := s.db.GetContext(ctx, &upper, `SELECT MAX(id) FROM recipients`); err != nil {
			yield(Recipient{}, fmt.Errorf("failed to read recipient cursor bound: %w", err))
			return
		}
		if !upper.Valid {
			return
		}
		for r, err := range s.RecipientsUpTo(ctx, upper.Int64, pageSize) {
			if !yield(r, err) {
				return
			}
		}
	}
}

// RecipientsUpTo pages through rows with id <= maxID. No rows handle is held
// between pages, so the single connection stays free for deletes while the
// caller works.
func (s *sqlxStore) RecipientsUpTo(ctx context.Context, maxID int64, pageSize int) iter.Seq2[Recipient, error] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	return func(yield func(Recipient, error) bool) {
		var after int64
		for after < maxID {
			if err := ctx.Err(); err != nil {
				yield(Recipient{}, err)
				return
			}

			var page []Recipient
			err := s.db.SelectContext(ctx, &page,
				`SELECT id, user_id, source, created_at FROM recipients
				 WHERE id > ? AND id <= ?
				 ORDER BY id
				 LIMIT ?`,
				after, maxID, pageSize)
			if err != nil {
				s.logger.ErrorContext(ctx, "Error fetching recipient page", "after", after, "error", err)
				yield(Recipient{}, fmt.Errorf("failed to fetch recipients after id %d: %w", after, err))
				return
			}

			for _, r := range page {
				if !yield(r, nil) {
					return
				}
			}

			if len(page) < pageSize {
				return
			}
			after = page[len(page)-1].ID
		}
	}
}

// RunSQLMaintenance executes VACUUM on the database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	_, err := s.db.ExecContext(ctx, "VACUUM;")
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)
	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed")
	return nil
}
