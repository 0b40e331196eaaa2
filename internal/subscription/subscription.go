// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package subscription tracks visitors' subscription state and redirects
// subscribed visitors from post previews to the full article.
package subscription

import (
	"errors"
	"fmt"
	"strings"
)

// Status is a billing provider subscription status.
type Status string

// Subscription statuses as reported by the billing provider.
const (
	StatusActive            Status = "active"
	StatusTrialing          Status = "trialing"
	StatusPastDue           Status = "past_due"
	StatusIncomplete        Status = "incomplete"
	StatusIncompleteExpired Status = "incomplete_expired"
	StatusUnpaid            Status = "unpaid"
	StatusCanceled          Status = "canceled"
	StatusPaused            Status = "paused"
)

// ErrUnknownStatus is returned by ParseStatus for unrecognized values.
var ErrUnknownStatus = errors.New("unknown subscription status")

var knownStatuses = map[Status]struct{}{
	StatusActive:            {},
	StatusTrialing:          {},
	StatusPastDue:           {},
	StatusIncomplete:        {},
	StatusIncompleteExpired: {},
	StatusUnpaid:            {},
	StatusCanceled:          {},
	StatusPaused:            {},
}

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := knownStatuses[st]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return st, nil
}

// Active reports whether the status grants access to full articles.
func (s Status) Active() bool {
	return s == StatusActive
}

// Session is the visitor state exposed by the session provider.
type Session struct {
	UserID             string `json:"user_id,omitempty"`
	ActiveSubscription bool   `json:"activeSubscription"`
}

// HasActiveSubscription reports whether s holds an active subscription.
// A nil session is an unresolved one and never has an active subscription.
func HasActiveSubscription(s *Session) bool {
	return s != nil && s.ActiveSubscription
}
