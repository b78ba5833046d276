// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"postready/internal/auth"
	"postready/internal/middleware"
	"postready/internal/models"
	"postready/internal/slug"
	"postready/internal/storage"
	"postready/internal/tools"
)

// voiceoverTool is the catalog entry that gates speech synthesis.
const voiceoverTool = "voiceover"

// voiceoverURLHeader carries the archive link of a freshly made voiceover.
const voiceoverURLHeader = "X-Voiceover-URL"

// maxFilenameLen caps the slug part of the download name.
const maxFilenameLen = 48

// Voiceover synthesizes speech and returns the audio bytes.
func (a *API) Voiceover(w http.ResponseWriter, r *http.Request) {
	tool, ok := a.Catalog.Lookup(voiceoverTool)
	if !ok || tool.Kind != tools.KindSpeech {
		writeError(w, http.StatusNotFound, "unknown tool")
		return
	}
	if a.Speech == nil {
		writeError(w, http.StatusServiceUnavailable, "voiceover is not available")
		return
	}

	in, ok := a.decodeInput(w, r, tool)
	if !ok {
		return
	}
	if !a.screen(w, r, tool, in) {
		return
	}
	ticket := a.admit(w, r, tool)
	if ticket == nil {
		return
	}

	audio, err := a.Speech.Synthesize(r.Context(), in["text"], in["voice_id"])
	if err != nil {
		slog.Error("speech synthesis failed", "provider", a.Speech.Name(), "error", err)
		writeError(w, http.StatusInternalServerError, msgGenerateFailed)
		return
	}

	commit(r, tool.Name, ticket)

	id := middleware.IdentityFromCtx(r.Context())
	if url := a.archive(r.Context(), id, in["voice_id"], audio.Data, audio.ContentType); url != "" {
		w.Header().Set(voiceoverURLHeader, url)
	}

	usage := usageAfter(ticket.Decision)
	w.Header().Set("Content-Type", audio.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(audio.Data)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{
		"filename": slug.Filename(in["text"], voiceoverTool, models.AudioExtension(audio.ContentType), maxFilenameLen),
	}))
	w.Header().Set("X-Usage-Remaining", strconv.Itoa(usage.Remaining))
	w.WriteHeader(http.StatusOK)
	w.Write(audio.Data)
}

// archive stores an account's voiceover and returns a presigned link. Any
// failure is logged and yields ""; the caller still gets the audio.
func (a *API) archive(ctx context.Context, id auth.Identity, voiceID string, data []byte, contentType string) string {
	if id.Anonymous() || a.Archive == nil || a.Voiceovers == nil {
		return ""
	}

	// The voiceover row references the profile.
	if _, err := a.Profiles.Ensure(ctx, id.AccountID, id.Email); err != nil {
		slog.Warn("voiceover archive skipped", "error", err)
		return ""
	}

	key := storage.VoiceoverKey(id.AccountID, models.AudioExtension(contentType))
	if err := a.Archive.Upload(ctx, key, contentType, data); err != nil {
		slog.Warn("voiceover upload failed", "key", key, "error", err)
		return ""
	}

	_, err := a.Voiceovers.Create(ctx, &models.Voiceover{
		UserID:      id.AccountID,
		VoiceID:     voiceID,
		S3Key:       key,
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
	})
	if err != nil {
		slog.Warn("voiceover record failed", "key", key, "error", err)
		if err := a.Archive.Delete(ctx, key); err != nil {
			slog.Warn("orphaned voiceover object", "key", key, "error", err)
		}
		return ""
	}

	url, err := a.Archive.PresignedURL(ctx, key, storage.DefaultURLExpiry)
	if err != nil {
		slog.Warn("voiceover presign failed", "key", key, "error", err)
		return ""
	}
	return url
}

// voiceoverItem is one archived voiceover with a fresh download link.
type voiceoverItem struct {
	models.Voiceover
	URL       string     `json:"url,omitempty"`
	ExpiresAt *time.Time `json:"url_expires_at,omitempty"`
}

// ListVoiceovers returns the caller's archived voiceovers, newest first.
// Accepts ?limit=1..100 (default 20).
func (a *API) ListVoiceovers(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromCtx(r.Context())

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	items := []voiceoverItem{}
	if a.Voiceovers == nil {
		writeJSON(w, http.StatusOK, map[string]any{"voiceovers": items})
		return
	}

	list, err := a.Voiceovers.ListByUser(r.Context(), id.AccountID, limit)
	if err != nil {
		slog.Error("list voiceovers failed", "error", err)
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	expires := time.Now().Add(storage.DefaultURLExpiry).UTC()
	for _, v := range list {
		item := voiceoverItem{Voiceover: v}
		if a.Archive != nil {
			url, err := a.Archive.PresignedURL(r.Context(), v.S3Key, storage.DefaultURLExpiry)
			if err != nil {
				slog.Warn("voiceover presign failed", "key", v.S3Key, "error", err)
			} else {
				item.URL = url
				item.ExpiresAt = &expires
			}
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, map[string]any{"voiceovers": items})
}
