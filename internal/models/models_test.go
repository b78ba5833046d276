// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestProfile_HasBillingAccount(t *testing.T) {
	empty := ""
	cus := "cus_123"
	tests := []struct {
		name string
		id   *string
		want bool
	}{
		{"nil customer", nil, false},
		{"empty customer", &empty, false},
		{"linked customer", &cus, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Profile{StripeCustomerID: tt.id}
			if got := p.HasBillingAccount(); got != tt.want {
				t.Errorf("HasBillingAccount() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestProfile_JSONHidesBillingIDs ensures Stripe identifiers never leak
// through the profile endpoint.
func TestProfile_JSONHidesBillingIDs(t *testing.T) {
	cus := "cus_secret"
	sub := "sub_secret"
	p := Profile{ID: uuid.New(), Email: "a@b.c", StripeCustomerID: &cus, StripeSubscriptionID: &sub}

	b, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(b), "secret") {
		t.Errorf("profile JSON leaks billing ids: %s", b)
	}
}

func TestAudioExtension(t *testing.T) {
	tests := map[string]string{
		"audio/mpeg": ".mp3",
		"audio/wav":  ".wav",
		"audio/ogg":  ".ogg",
		"audio/aac":  ".aac",
		"audio/flac": ".flac",
		"":           ".mp3",
	}
	for ct, want := range tests {
		if got := AudioExtension(ct); got != want {
			t.Errorf("AudioExtension(%q) = %q, want %q", ct, got, want)
		}
	}
	v := &Voiceover{ContentType: "audio/wav"}
	if v.Extension() != ".wav" {
		t.Errorf("Extension() = %q", v.Extension())
	}
}
