// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package subscription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/ignews-go/internal/metrics"
	"github.com/olegiv/ignews-go/internal/session"
	"github.com/olegiv/ignews-go/internal/store"
)

// Update is a status change reported by the billing provider.
type Update struct {
	UserID     string
	ExternalID string
	Status     Status
	// At is when the change happened upstream. Older updates than the stored
	// one are ignored. Zero means now.
	At time.Time
}

// Service reads and writes subscription state and publishes changes.
type Service struct {
	queries *store.Queries
	broker  *Broker
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a service over db. broker may be nil.
func NewService(db store.DBTX, broker *Broker, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		queries: store.New(db),
		broker:  broker,
		logger:  logger,
		now:     time.Now,
	}
}

// Status returns the stored status of userID, or "" when none is known.
func (s *Service) Status(ctx context.Context, userID string) (Status, error) {
	sub, err := s.queries.GetSubscription(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("getting subscription of %s: %w", userID, err)
	}
	return Status(sub.Status), nil
}

// IsActive reports whether userID holds an active subscription.
func (s *Service) IsActive(ctx context.Context, userID string) (bool, error) {
	st, err := s.Status(ctx, userID)
	if err != nil {
		return false, err
	}
	return st.Active(), nil
}

// Apply stores u and notifies the user's listeners. It reports false when u
// is older than the stored state and was ignored.
func (s *Service) Apply(ctx context.Context, u Update) (bool, error) {
	if u.UserID == "" {
		return false, errors.New("update without user id")
	}
	if _, err := ParseStatus(string(u.Status)); err != nil {
		return false, err
	}
	if u.At.IsZero() {
		u.At = s.now()
	}
	u.At = u.At.UTC()

	_, err := s.queries.UpsertSubscription(ctx, store.UpsertSubscriptionParams{
		UserID:     u.UserID,
		ExternalID: u.ExternalID,
		Status:     string(u.Status),
		UpdatedAt:  u.At,
	})
	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.Info("ignoring out-of-order subscription update",
			"user_id", u.UserID, "status", u.Status, "updated_at", u.At)
		return false, nil
	case err != nil:
		return false, fmt.Errorf("saving subscription of %s: %w", u.UserID, err)
	}

	metrics.SubscriptionUpdates.WithLabelValues(string(u.Status)).Inc()
	s.logger.Info("subscription updated", "user_id", u.UserID, "status", u.Status)

	if s.broker != nil {
		s.broker.Publish(u.UserID, Session{UserID: u.UserID, ActiveSubscription: u.Status.Active()})
	}
	return true, nil
}

// CountActive returns the number of users with an active subscription.
func (s *Service) CountActive(ctx context.Context) (int64, error) {
	return s.queries.CountSubscriptionsByStatus(ctx, string(StatusActive))
}

// SessionProvider resolves the visitor's Session from the shared session
// store and the subscription table.
type SessionProvider struct {
	sessions *scs.SessionManager
	service  *Service
}

// NewSessionProvider creates a provider.
func NewSessionProvider(sessions *scs.SessionManager, service *Service) *SessionProvider {
	return &SessionProvider{sessions: sessions, service: service}
}

// Session returns the visitor's session. Anonymous visitors get a resolved
// session without a subscription.
func (p *SessionProvider) Session(r *http.Request) (*Session, error) {
	userID := session.UserID(p.sessions, r)
	if userID == "" {
		return &Session{}, nil
	}

	active, err := p.service.IsActive(r.Context(), userID)
	if err != nil {
		return nil, err
	}
	return &Session{UserID: userID, ActiveSubscription: active}, nil
}

// Watch subscribes to the session changes of the visitor of r. Anonymous
// visitors get nil: their session can only change by signing in, which
// starts a new page.
func (p *SessionProvider) Watch(r *http.Request) *Listener {
	userID := session.UserID(p.sessions, r)
	if userID == "" || p.service.broker == nil {
		return nil
	}
	return p.service.broker.Subscribe(userID)
}
