// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"

	"postready/internal/post"
)

// starterRequest is the body of POST /api/post/starter.
type starterRequest struct {
	Topic    string `json:"topic"`
	Platform string `json:"platform"`
}

// starterResponse is a starter plus the assembled post text.
type starterResponse struct {
	post.Starter
	Text string `json:"text"`
}

// PostStarter builds a post skeleton from fixed templates. It is not gated
// and makes no upstream call.
func (a *API) PostStarter(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req starterRequest
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "request body must be a JSON object with topic and platform")
		return
	}
	if req.Platform == "" {
		req.Platform = "instagram"
	}
	if len([]rune(req.Topic)) > 200 {
		writeError(w, http.StatusBadRequest, "topic is too long (max 200 characters)")
		return
	}

	var (
		s   post.Starter
		err error
	)
	a.withRand(func(rng *rand.Rand) {
		s, err = post.NewStarter(req.Topic, req.Platform, rng)
	})
	if err != nil {
		var unknown *post.UnknownPlatformError
		if errors.As(err, &unknown) {
			writeError(w, http.StatusBadRequest, unknown.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, starterResponse{Starter: s, Text: s.Text()})
}
