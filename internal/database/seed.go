// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Fixed development accounts. `postready token` can mint a Supabase-style
// JWT for either id so the gated endpoints can be exercised locally.
var (
	DevFreeAccountID = uuid.MustParse("00000000-0000-4000-8000-000000000001")
	DevProAccountID  = uuid.MustParse("00000000-0000-4000-8000-000000000002")
)

// Seed populates the database with development profiles: one free account
// and one subscribed account. Existing rows are left untouched.
func Seed(db *sql.DB) error {
	profiles := []struct {
		id    uuid.UUID
		email string
		isPro bool
	}{
		{DevFreeAccountID, "free@postready.local", false},
		{DevProAccountID, "pro@postready.local", true},
	}

	var inserted int64
	for _, p := range profiles {
		res, err := db.Exec(`
			INSERT INTO profiles (id, email, is_pro)
			VALUES ($1, $2, $3)
			ON CONFLICT (id) DO NOTHING
		`, p.id, p.email, p.isPro)
		if err != nil {
			return fmt.Errorf("seed insert profile %s: %w", p.email, err)
		}
		n, _ := res.RowsAffected()
		inserted += n
	}

	if inserted == 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	slog.Info("database seeded with development profiles",
		"free_account", DevFreeAccountID,
		"pro_account", DevProAccountID,
	)
	return nil
}
