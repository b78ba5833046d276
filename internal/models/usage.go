// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// ToolUsage is the per-account, per-tool count of successful generations.
// Rows are created on first use and only ever incremented.
type ToolUsage struct {
	UserID    uuid.UUID `json:"user_id"`
	Tool      string    `json:"tool"`
	Count     int       `json:"count"`
	UpdatedAt time.Time `json:"updated_at"`
}
