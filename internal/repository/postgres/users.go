package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Kevin-Shelton/cx-portal-auth/internal/core/domain"
	"github.com/Kevin-Shelton/cx-portal-auth/internal/core/port"
	"github.com/Kevin-Shelton/cx-portal-auth/internal/repository"
)

var userColumns = []string{
	"id",
	"email",
	"name",
	"role",
	"password_hash",
	"password_algo",
	"credential_status",
	"status",
	"created_by",
	"created_at",
	"activated_at",
	"last_login",
}

// UserRepository implements port.UserRepository using PostgreSQL.
type UserRepository struct {
	exec    pgPool
	builder squirrel.StatementBuilderType
}

// NewUserRepository wires a PostgreSQL-backed user repository.
func NewUserRepository(exec pgPool) *UserRepository {
	return &UserRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new user row.
func (r *UserRepository) Create(ctx context.Context, user domain.User) error {
	stmt, args, err := r.builder.Insert("portal.users").
		Columns(userColumns...).
		Values(
			user.ID,
			user.Email,
			user.Name,
			user.Role,
			user.PasswordHash,
			user.PasswordAlgo,
			user.CredentialStatus,
			user.Status,
			user.CreatedBy,
			user.CreatedAt,
			user.ActivatedAt,
			user.LastLogin,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert user sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by identifier.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getBy(ctx, squirrel.Eq{"id": id})
}

// GetByEmail retrieves a user by email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getBy(ctx, squirrel.Eq{"email": email})
}

func (r *UserRepository) getBy(ctx context.Context, pred squirrel.Eq) (*domain.User, error) {
	stmt, args, err := r.builder.Select(userColumns...).
		From("portal.users").
		Where(pred).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	var (
		user         domain.User
		passwordHash sql.NullString
		activatedAt  sql.NullTime
		lastLogin    sql.NullTime
	)

	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Role,
		&passwordHash,
		&user.PasswordAlgo,
		&user.CredentialStatus,
		&user.Status,
		&user.CreatedBy,
		&user.CreatedAt,
		&activatedAt,
		&lastLogin,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	user.PasswordHash = nullableStringPtr(passwordHash)
	user.ActivatedAt = nullableTimePtr(activatedAt)
	user.LastLogin = nullableTimePtr(lastLogin)

	return &user, nil
}

// Activate stores the credential and flips the account to active.
// The update is gated on the pending status so concurrent completions
// cannot overwrite a credential that just won the race; activated_at
// is only written on the first transition so a repeated call cannot
// move the timestamp. Zero rows means the user is gone or already
// active, reported as ErrNotFound either way.
func (r *UserRepository) Activate(ctx context.Context, id string, passwordHash string, passwordAlgo string, activatedAt time.Time) error {
	stmt, args, err := r.builder.Update("portal.users").
		Set("password_hash", passwordHash).
		Set("password_algo", passwordAlgo).
		Set("credential_status", domain.CredentialStatusActive).
		Set("status", domain.AccountStatusActive).
		Set("activated_at", squirrel.Expr("COALESCE(activated_at, ?)", activatedAt.UTC())).
		Where(squirrel.Eq{"id": id, "status": domain.AccountStatusPendingActivation}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build activate user sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("activate user: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// MarkCredentialTemporary clears the stored credential ahead of an
// admin-initiated reset. The account drops out of active in the same
// update: a user without a credential cannot log in, and an active row
// with no hash would break the status/credential pairing the rest of
// the service relies on.
func (r *UserRepository) MarkCredentialTemporary(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Update("portal.users").
		Set("password_hash", nil).
		Set("credential_status", domain.CredentialStatusTemporary).
		Set("status", domain.AccountStatusPendingActivation).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark credential temporary sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("mark credential temporary: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// RecordLogin stamps the user's last successful login.
func (r *UserRepository) RecordLogin(ctx context.Context, id string, at time.Time) error {
	stmt, args, err := r.builder.Update("portal.users").
		Set("last_login", at.UTC()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build record login sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("record login: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes a user row.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Delete("portal.users").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete user sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

var _ port.UserRepository = (*UserRepository)(nil)
