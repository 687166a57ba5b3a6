package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const accountColumns = `id, handle, display_name, badges, is_public, show_activity, discord_id, created_at`

func scanAccount(row pgx.Row) (*Account, error) {
	var (
		a         Account
		discordID pgtype.Text
	)
	if err := row.Scan(&a.ID, &a.Handle, &a.DisplayName, &a.Badges, &a.IsPublic, &a.ShowActivity, &discordID, &a.CreatedAt); err != nil {
		return nil, mapNotFound(err)
	}
	a.DiscordID = textVal(discordID)
	if a.Badges == nil {
		a.Badges = []string{}
	}
	return &a, nil
}

func (s *Store) GetAccountByHandle(ctx context.Context, handle string) (*Account, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE handle = $1`, handle)
	return scanAccount(row)
}

func (s *Store) GetAccountByDiscordID(ctx context.Context, discordID string) (*Account, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE discord_id = $1`, discordID)
	return scanAccount(row)
}

// UpdateAccountBadges overwrites the badge set. Callers own set semantics.
func (s *Store) UpdateAccountBadges(ctx context.Context, accountID string, badges []string) error {
	if badges == nil {
		badges = []string{}
	}
	tag, err := s.Pool.Exec(ctx, `UPDATE accounts SET badges = $1, updated_at = now() WHERE id = $2`, badges, accountID)
	if err != nil {
		return mapSchemaError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateAccount is used by seeding and tests; the product surface creates
// accounts through the web app.
func (s *Store) CreateAccount(ctx context.Context, a Account) (string, error) {
	id := a.ID
	if id == "" {
		id = NewID()
	}
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	badges := a.Badges
	if badges == nil {
		badges = []string{}
	}
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO accounts (id, handle, display_name, badges, is_public, show_activity, discord_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, id, a.Handle, a.DisplayName, badges, a.IsPublic, a.ShowActivity, textParam(a.DiscordID), timestamptzParam(createdAt))
	if err != nil {
		return "", mapSchemaError(err)
	}
	return id, nil
}

// MaxAccountCreatedAt returns the newest creation time, or nil on an empty table.
func (s *Store) MaxAccountCreatedAt(ctx context.Context) (*time.Time, error) {
	var v pgtype.Timestamptz
	if err := s.Pool.QueryRow(ctx, `SELECT MAX(created_at) FROM accounts`).Scan(&v); err != nil {
		return nil, mapSchemaError(err)
	}
	return timePtrVal(v), nil
}

// ListAccountsCreatedAfter returns rows strictly newer than after, oldest first.
func (s *Store) ListAccountsCreatedAfter(ctx context.Context, after time.Time, limit int) ([]AccountCreated, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT id, handle, display_name, created_at
		FROM accounts
		WHERE created_at > $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2
	`, timestamptzParam(after), limit)
	if err != nil {
		return nil, mapSchemaError(err)
	}
	defer rows.Close()
	out := make([]AccountCreated, 0, limit)
	for rows.Next() {
		var a AccountCreated
		if err := rows.Scan(&a.ID, &a.Handle, &a.DisplayName, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, mapSchemaError(err)
	}
	return out, nil
}

func (s *Store) CountLinks(ctx context.Context, accountID string) (int64, error) {
	return s.count(ctx, `SELECT COUNT(1) FROM links WHERE account_id = $1`, accountID)
}

func (s *Store) CountProfileViews(ctx context.Context, accountID string) (int64, error) {
	return s.count(ctx, `SELECT COUNT(1) FROM profile_views WHERE account_id = $1`, accountID)
}

func (s *Store) count(ctx context.Context, q string, args ...any) (int64, error) {
	var c int64
	if err := s.Pool.QueryRow(ctx, q, args...).Scan(&c); err != nil {
		return 0, mapSchemaError(err)
	}
	return c, nil
}
