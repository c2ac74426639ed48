// Package entitlement reads subscription state from the main application
// database: the user's tier and active flag plus the explicitly enabled
// walker-agent rows. The resolver is fail-closed: a missing user or a lookup
// failure resolves to an inactive entitlement, never an error.
package entitlement

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/engarde-media/templatesync/policy"
)

// UserRecord is the raw subscription row for a user.
type UserRecord struct {
	ID       uuid.UUID
	Email    string
	Tier     string
	Active   bool
	TenantID string
}

// Store provides subscription lookups against the entitlement database.
type Store struct {
	pg *pgxpool.Pool
}

func NewStore(pg *pgxpool.Pool) *Store {
	return &Store{pg: pg}
}

// GetUser returns the user's subscription row, or (nil, nil) when absent.
// Absence is a valid business state, not an error.
func (s *Store) GetUser(ctx context.Context, userID uuid.UUID) (*UserRecord, error) {
	if s.pg == nil || userID == uuid.Nil {
		return nil, nil
	}
	var (
		rec    UserRecord
		tier   *string
		tenant *string
		active *bool
	)
	err := s.pg.QueryRow(ctx, `
		SELECT id, email, subscription_tier, is_active, tenant_id
		FROM users
		WHERE id = $1`,
		userID,
	).Scan(&rec.ID, &rec.Email, &tier, &active, &tenant)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if tier != nil {
		rec.Tier = *tier
	}
	if active != nil {
		rec.Active = *active
	} else {
		rec.Active = true
	}
	if tenant != nil {
		rec.TenantID = *tenant
	}
	return &rec, nil
}

// ListEnabledCapabilities returns the walker agents explicitly enabled for the
// user. Only rows with enabled = true count; disabled rows are as good as absent.
func (s *Store) ListEnabledCapabilities(ctx context.Context, userID uuid.UUID) ([]policy.Capability, error) {
	if s.pg == nil || userID == uuid.Nil {
		return nil, nil
	}
	rows, err := s.pg.Query(ctx, `
		SELECT walker_agent_type
		FROM user_walker_agents
		WHERE user_id = $1 AND enabled = true`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []policy.Capability
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, policy.Capability(c))
	}
	return out, rows.Err()
}
