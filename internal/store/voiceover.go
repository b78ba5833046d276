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

// VoiceoverStore handles archived voiceover metadata.
type VoiceoverStore struct {
	db *sql.DB
}

// NewVoiceoverStore creates a new VoiceoverStore with the given database connection.
func NewVoiceoverStore(db *sql.DB) *VoiceoverStore {
	return &VoiceoverStore{db: db}
}

// Create inserts a voiceover record and returns it with generated fields set.
func (s *VoiceoverStore) Create(ctx context.Context, v *models.Voiceover) (*models.Voiceover, error) {
	out := &models.Voiceover{}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO voiceovers (user_id, voice_id, s3_key, content_type, size_bytes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, user_id, voice_id, s3_key, content_type, size_bytes, created_at
	`, v.UserID, v.VoiceID, v.S3Key, v.ContentType, v.SizeBytes).Scan(
		&out.ID, &out.UserID, &out.VoiceID, &out.S3Key, &out.ContentType, &out.SizeBytes, &out.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create voiceover: %w", err)
	}
	return out, nil
}

// ListByUser returns the account's most recent voiceovers, newest first.
func (s *VoiceoverStore) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Voiceover, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, voice_id, s3_key, content_type, size_bytes, created_at
		FROM voiceovers WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list voiceovers: %w", err)
	}
	defer rows.Close()

	var out []models.Voiceover
	for rows.Next() {
		var v models.Voiceover
		if err := rows.Scan(&v.ID, &v.UserID, &v.VoiceID, &v.S3Key, &v.ContentType, &v.SizeBytes, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan voiceover: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
