package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
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

// createPendingRetries bounds how often CreatePending re-runs its
// transaction after losing a race on the partial unique index.
const createPendingRetries = 3

var tokenColumns = []string{
	"id",
	"user_id",
	"token_hash",
	"token_type",
	"status",
	"created_by",
	"ip",
	"user_agent",
	"created_at",
	"expires_at",
	"used_at",
	"revoked_at",
	"metadata",
}

// TokenRepository implements port.TokenRepository using PostgreSQL.
// The activation_tokens table carries a partial unique index on
// (user_id) WHERE status = 'pending'; CreatePending leans on it to
// keep at most one pending token per user under concurrent issuance.
type TokenRepository struct {
	exec    pgPool
	builder squirrel.StatementBuilderType
}

// NewTokenRepository constructs a new token repository.
func NewTokenRepository(exec pgPool) *TokenRepository {
	return &TokenRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// CreatePending revokes every pending token for the owner and inserts
// the new one in a single transaction. A concurrent issuer that
// sneaks an insert between the revoke and ours trips the partial
// unique index; the transaction retries from the top so the later
// writer wins and the earlier token ends up revoked.
func (r *TokenRepository) CreatePending(ctx context.Context, token domain.ActivationToken) (int, error) {
	var lastErr error
	for attempt := 0; attempt < createPendingRetries; attempt++ {
		revoked, err := r.createPendingOnce(ctx, token)
		if err == nil {
			return revoked, nil
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			lastErr = err
			continue
		}
		return 0, err
	}

	return 0, fmt.Errorf("create pending token: retries exhausted: %w", lastErr)
}

func (r *TokenRepository) createPendingOnce(ctx context.Context, token domain.ActivationToken) (int, error) {
	metadata, err := marshalMetadata(token.Metadata)
	if err != nil {
		return 0, fmt.Errorf("prepare token metadata: %w", err)
	}

	tx, err := r.exec.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin create pending token: %w", err)
	}
	defer tx.Rollback(ctx)

	revokeStmt, revokeArgs, err := r.builder.Update("portal.activation_tokens").
		Set("status", domain.TokenStatusRevoked).
		Set("revoked_at", token.CreatedAt.UTC()).
		Where(squirrel.Eq{
			"user_id": token.UserID,
			"status":  domain.TokenStatusPending,
		}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build revoke prior tokens sql: %w", err)
	}

	ct, err := tx.Exec(ctx, revokeStmt, revokeArgs...)
	if err != nil {
		return 0, fmt.Errorf("revoke prior tokens: %w", err)
	}
	revoked := int(ct.RowsAffected())

	insertStmt, insertArgs, err := r.builder.Insert("portal.activation_tokens").
		Columns(tokenColumns...).
		Values(
			token.ID,
			token.UserID,
			token.TokenHash,
			token.Type,
			token.Status,
			token.CreatedBy,
			token.IP,
			token.UserAgent,
			token.CreatedAt,
			token.ExpiresAt,
			token.UsedAt,
			token.RevokedAt,
			metadata,
		).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert token sql: %w", err)
	}

	if _, err := tx.Exec(ctx, insertStmt, insertArgs...); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	return revoked, nil
}

// GetByHash retrieves a token record by its hashed value.
func (r *TokenRepository) GetByHash(ctx context.Context, hash string) (*domain.ActivationToken, error) {
	stmt, args, err := r.builder.Select(tokenColumns...).
		From("portal.activation_tokens").
		Where(squirrel.Eq{"token_hash": hash}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select token sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	var (
		token     domain.ActivationToken
		ip        sql.NullString
		userAgent sql.NullString
		usedAt    sql.NullTime
		revokedAt sql.NullTime
		metadata  []byte
	)

	if err := row.Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&token.Type,
		&token.Status,
		&token.CreatedBy,
		&ip,
		&userAgent,
		&token.CreatedAt,
		&token.ExpiresAt,
		&usedAt,
		&revokedAt,
		&metadata,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan token: %w", err)
	}

	token.IP = nullableStringPtr(ip)
	token.UserAgent = nullableStringPtr(userAgent)
	token.UsedAt = nullableTimePtr(usedAt)
	token.RevokedAt = nullableTimePtr(revokedAt)
	if len(metadata) > 0 {
		meta, err := unmarshalMetadata(metadata)
		if err != nil {
			return nil, fmt.Errorf("unmarshal token metadata: %w", err)
		}
		token.Metadata = meta
	}

	return &token, nil
}

// MarkUsed consumes a pending token. Tokens already terminal are left
// untouched and no error is returned.
func (r *TokenRepository) MarkUsed(ctx context.Context, id string, at time.Time) error {
	return r.transition(ctx, id, domain.TokenStatusUsed, map[string]any{
		"used_at": at.UTC(),
	}, "mark token used")
}

// MarkExpired transitions a pending token whose deadline has passed.
func (r *TokenRepository) MarkExpired(ctx context.Context, id string) error {
	return r.transition(ctx, id, domain.TokenStatusExpired, nil, "mark token expired")
}

// MarkRevoked retires a pending token superseded by a newer one.
func (r *TokenRepository) MarkRevoked(ctx context.Context, id string, at time.Time) error {
	return r.transition(ctx, id, domain.TokenStatusRevoked, map[string]any{
		"revoked_at": at.UTC(),
	}, "mark token revoked")
}

func (r *TokenRepository) transition(ctx context.Context, id string, to domain.TokenStatus, extra map[string]any, op string) error {
	query := r.builder.Update("portal.activation_tokens").
		Set("status", to).
		Where(squirrel.Eq{
			"id":     id,
			"status": domain.TokenStatusPending,
		})
	for column, value := range extra {
		query = query.Set(column, value)
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build %s sql: %w", op, err)
	}

	// Zero rows means the token was absent or already terminal;
	// both are fine for an idempotent transition.
	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// RevokeAllForUser retires every pending token the user owns.
func (r *TokenRepository) RevokeAllForUser(ctx context.Context, userID string, at time.Time) (int, error) {
	stmt, args, err := r.builder.Update("portal.activation_tokens").
		Set("status", domain.TokenStatusRevoked).
		Set("revoked_at", at.UTC()).
		Where(squirrel.Eq{
			"user_id": userID,
			"status":  domain.TokenStatusPending,
		}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build revoke user tokens sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("revoke user tokens: %w", err)
	}

	return int(ct.RowsAffected()), nil
}

func marshalMetadata(meta map[string]any) ([]byte, error) {
	if meta == nil {
		return nil, nil
	}

	payload, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return payload, nil
}

func unmarshalMetadata(payload []byte) (map[string]any, error) {
	if len(payload) == 0 {
		return nil, nil
	}

	var meta map[string]any
	if err := json.Unmarshal(payload, &meta); err != nil {
		return nil, err
	}
	return meta, nil
}

var _ port.TokenRepository = (*TokenRepository)(nil)
