package account

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

var (
	ErrNotFound       = errors.New("account not found")
	ErrDuplicateEmail = errors.New("email already exists")
	ErrIdentityLinked = errors.New("identity already linked to an account")
)

// Repository handles account persistence
type Repository struct {
	db  *bun.DB
	now func() time.Time
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// Create inserts a new account. The email must already be normalized.
func (r *Repository) Create(ctx context.Context, email, name, passwordHash string) (*Account, error) {
	dbAccount := r.newDBAccount(email, name, passwordHash, false)

	if _, err := r.db.NewInsert().Model(dbAccount).Exec(ctx); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return mapDBAccountToModel(dbAccount), nil
}

// CreateWithIdentity inserts an account and its provider link in one transaction
func (r *Repository) CreateWithIdentity(ctx context.Context, acc *Account, provider, subject string) (*Account, error) {
	dbAccount := r.newDBAccount(acc.Email, acc.Name, "", acc.EmailVerified)
	dbAccount.AvatarURL = acc.AvatarURL

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(dbAccount).Exec(ctx); err != nil {
			if database.IsUniqueViolation(err) {
				return ErrDuplicateEmail
			}
			return fmt.Errorf("failed to create account: %w", err)
		}

		if err := insertIdentityLink(ctx, tx, dbAccount.ID, provider, subject, dbAccount.CreatedAt); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return mapDBAccountToModel(dbAccount), nil
}

// LinkIdentity attaches a provider subject to an existing account
func (r *Repository) LinkIdentity(ctx context.Context, accountID uuid.UUID, provider, subject string) error {
	return insertIdentityLink(ctx, r.db, accountID, provider, subject, r.now().UTC())
}

func insertIdentityLink(ctx context.Context, db bun.IDB, accountID uuid.UUID, provider, subject string, at time.Time) error {
	link := &database.IdentityLink{
		ID:        uuid.New(),
		AccountID: accountID,
		Provider:  provider,
		Subject:   subject,
		CreatedAt: at,
	}

	if _, err := db.NewInsert().Model(link).Exec(ctx); err != nil {
		if database.IsUniqueViolation(err) {
			return ErrIdentityLinked
		}
		return fmt.Errorf("failed to link identity: %w", err)
	}

	return nil
}

// GetByEmail retrieves an account by normalized email
func (r *Repository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	dbAccount := new(database.Account)
	err := r.db.NewSelect().
		Model(dbAccount).
		Where("email = ?", email).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account by email: %w", err)
	}

	return mapDBAccountToModel(dbAccount), nil
}

// GetByID retrieves an account by ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	dbAccount := new(database.Account)
	err := r.db.NewSelect().
		Model(dbAccount).
		Where("id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account by id: %w", err)
	}

	return mapDBAccountToModel(dbAccount), nil
}

// GetByIdentity retrieves the account linked to a provider subject
func (r *Repository) GetByIdentity(ctx context.Context, provider, subject string) (*Account, error) {
	linked := r.db.NewSelect().
		Model((*database.IdentityLink)(nil)).
		Column("account_id").
		Where("provider = ?", provider).
		Where("subject = ?", subject)

	dbAccount := new(database.Account)
	err := r.db.NewSelect().
		Model(dbAccount).
		Where("id IN (?)", linked).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account by identity: %w", err)
	}

	return mapDBAccountToModel(dbAccount), nil
}

// UpdatePassword replaces an account's password hash
func (r *Repository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	result, err := r.db.NewUpdate().
		Model((*database.Account)(nil)).
		Set("password_hash = ?", passwordHash).
		Set("updated_at = ?", r.now().UTC()).
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return requireRowsAffected(result)
}

// UpdateProfile sets the display name and avatar reference
func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, name string, avatarURL *string) (*Account, error) {
	result, err := r.db.NewUpdate().
		Model((*database.Account)(nil)).
		Set("name = ?", name).
		Set("avatar_url = ?", avatarURL).
		Set("updated_at = ?", r.now().UTC()).
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	if err := requireRowsAffected(result); err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id)
}

// MarkEmailVerified flips the verified flag. Calling it on a verified account is a no-op.
func (r *Repository) MarkEmailVerified(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.NewUpdate().
		Model((*database.Account)(nil)).
		Set("email_verified = ?", true).
		Set("updated_at = ?", r.now().UTC()).
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to mark email as verified: %w", err)
	}

	return requireRowsAffected(result)
}

func (r *Repository) newDBAccount(email, name, passwordHash string, verified bool) *database.Account {
	now := r.now().UTC()
	return &database.Account{
		ID:            uuid.New(),
		Email:         email,
		Name:          name,
		PasswordHash:  passwordHash,
		EmailVerified: verified,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func requireRowsAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// mapDBAccountToModel converts database model to domain model
func mapDBAccountToModel(dba *database.Account) *Account {
	return &Account{
		ID:            dba.ID,
		Email:         dba.Email,
		Name:          dba.Name,
		AvatarURL:     dba.AvatarURL,
		PasswordHash:  dba.PasswordHash,
		EmailVerified: dba.EmailVerified,
		CreatedAt:     dba.CreatedAt,
		UpdatedAt:     dba.UpdatedAt,
	}
}
