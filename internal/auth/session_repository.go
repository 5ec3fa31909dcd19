package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/go-auth-starter/internal/database"
)

// SessionRepository handles session persistence in Postgres.
// Selected with SESSION_STORE=postgres when Redis should not hold sessions.
type SessionRepository struct {
	db  *bun.DB
	now func() time.Time
}

func NewSessionRepository(db *bun.DB) *SessionRepository {
	return &SessionRepository{db: db, now: time.Now}
}

// Create stores a session in the database
func (r *SessionRepository) Create(ctx context.Context, session *Session) error {
	dbSession := &database.Session{
		IDHash:    hashToken(session.ID),
		AccountID: session.AccountID,
		CreatedAt: session.CreatedAt.UTC(),
		ExpiresAt: session.ExpiresAt.UTC(),
	}

	if _, err := r.db.NewInsert().Model(dbSession).Exec(ctx); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	return nil
}

// Get retrieves a live session by its id
func (r *SessionRepository) Get(ctx context.Context, sessionID string) (*Session, error) {
	dbSession := new(database.Session)
	err := r.db.NewSelect().
		Model(dbSession).
		Where("id_hash = ?", hashToken(sessionID)).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	session := &Session{
		ID:        sessionID,
		AccountID: dbSession.AccountID,
		CreatedAt: dbSession.CreatedAt,
		ExpiresAt: dbSession.ExpiresAt,
	}
	if session.IsExpired(r.now()) {
		return nil, ErrSessionNotFound
	}

	return session, nil
}

// Delete removes a session. Deleting an unknown session is not an error.
func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	_, err := r.db.NewDelete().
		Model((*database.Session)(nil)).
		Where("id_hash = ?", hashToken(sessionID)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

// DeleteAllForAccount removes every session belonging to the account
func (r *SessionRepository) DeleteAllForAccount(ctx context.Context, accountID uuid.UUID) error {
	_, err := r.db.NewDelete().
		Model((*database.Session)(nil)).
		Where("account_id = ?", accountID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete account sessions: %w", err)
	}

	return nil
}

// CleanupExpired removes expired sessions from the database
// Should be run periodically (e.g., via cron job)
func (r *SessionRepository) CleanupExpired(ctx context.Context) (int64, error) {
	result, err := r.db.NewDelete().
		Model((*database.Session)(nil)).
		Where("expires_at < ?", r.now().UTC()).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired sessions: %w", err)
	}

	return result.RowsAffected()
}
