// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package entitlement decides whether a caller may run a gated tool. Every
// tool goes through the same Gate: the caller's identity class picks the
// counter (account row or anonymous cookie), a subscribed account skips the
// limit, and usage is recorded only after the gated work succeeds.
package entitlement

import "errors"

// ErrQuotaExceeded is returned by Gate.Admit when the free limit is used up.
var ErrQuotaExceeded = errors.New("free limit reached")

// ReasonQuotaExceeded is the deny reason reported to clients.
const ReasonQuotaExceeded = "quota_exceeded"

// Decision is the outcome of an entitlement check.
type Decision struct {
	Allowed   bool
	Reason    string // set when denied
	Used      int
	Limit     int
	Unlimited bool // subscribed account
}

// Remaining returns how many free uses are left; -1 when unlimited.
func (d Decision) Remaining() int {
	if d.Unlimited {
		return -1
	}
	if d.Used >= d.Limit {
		return 0
	}
	return d.Limit - d.Used
}

// Decide allows a subscribed caller unconditionally and anyone else while
// used < limit. A negative limit is treated as zero.
func Decide(isPro bool, used, limit int) Decision {
	if limit < 0 {
		limit = 0
	}
	if used < 0 {
		used = 0
	}
	d := Decision{Used: used, Limit: limit, Unlimited: isPro}
	switch {
	case isPro:
		d.Allowed = true
	case used < limit:
		d.Allowed = true
	default:
		d.Reason = ReasonQuotaExceeded
	}
	return d
}
