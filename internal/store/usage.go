// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"postready/internal/models"
)

// UsageStore handles per-account tool usage counters.
type UsageStore struct {
	db *sql.DB
}

// NewUsageStore creates a new UsageStore with the given database connection.
func NewUsageStore(db *sql.DB) *UsageStore {
	return &UsageStore{db: db}
}

// Count returns how many successful generations the account has used for
// the tool. A missing row counts as zero.
func (s *UsageStore) Count(ctx context.Context, userID uuid.UUID, tool string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count FROM tool_usage WHERE user_id = $1 AND tool = $2`, userID, tool,
	).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("count tool usage: %w", err)
	}
	return n, nil
}

// Increment adds one to the account's counter for the tool and returns the
// new value. The profile row is created if it does not exist yet so the
// foreign key holds for accounts that never hit /api/me.
func (s *UsageStore) Increment(ctx context.Context, userID uuid.UUID, tool string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("increment usage begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO profiles (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, userID,
	); err != nil {
		return 0, fmt.Errorf("increment usage ensure profile: %w", err)
	}

	var n int
	err = tx.QueryRowContext(ctx, `
		INSERT INTO tool_usage (user_id, tool, count)
		VALUES ($1, $2, 1)
		ON CONFLICT (user_id, tool) DO UPDATE
		SET count = tool_usage.count + 1, updated_at = NOW()
		RETURNING count
	`, userID, tool).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("increment usage: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("increment usage commit: %w", err)
	}
	return n, nil
}

// ListByUser returns every counter the account has, ordered by tool name.
func (s *UsageStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.ToolUsage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, tool, count, updated_at
		FROM tool_usage WHERE user_id = $1
		ORDER BY tool ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list tool usage: %w", err)
	}
	defer rows.Close()

	var out []models.ToolUsage
	for rows.Next() {
		var u models.ToolUsage
		if err := rows.Scan(&u.UserID, &u.Tool, &u.Count, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan tool usage: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
