// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package subscription

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ignews-go/internal/session"
	"github.com/olegiv/ignews-go/internal/testutil"
)

func TestService_ApplyAndStatus(t *testing.T) {
	broker := NewBroker()
	defer broker.Close()
	svc := NewService(testutil.TestDB(t), broker, nil)
	ctx := context.Background()

	st, err := svc.Status(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, Status(""), st)

	l := broker.Subscribe("alice")
	applied, err := svc.Apply(ctx, Update{UserID: "alice", ExternalID: "sub_1", Status: StatusActive})
	require.NoError(t, err)
	assert.True(t, applied)

	active, err := svc.IsActive(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, active)

	select {
	case s := <-l.C:
		assert.Equal(t, Session{UserID: "alice", ActiveSubscription: true}, s)
	default:
		t.Fatal("listener not notified")
	}

	n, err := svc.CountActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestService_ApplyIgnoresOutOfOrderUpdates(t *testing.T) {
	svc := NewService(testutil.TestDB(t), nil, nil)
	ctx := context.Background()
	t0 := time.Date(2021, 3, 2, 12, 0, 0, 0, time.UTC)

	applied, err := svc.Apply(ctx, Update{UserID: "alice", Status: StatusCanceled, At: t0})
	require.NoError(t, err)
	require.True(t, applied)

	applied, err = svc.Apply(ctx, Update{UserID: "alice", Status: StatusActive, At: t0.Add(-time.Minute)})
	require.NoError(t, err)
	assert.False(t, applied)

	st, err := svc.Status(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, st)

	applied, err = svc.Apply(ctx, Update{UserID: "alice", Status: StatusActive, At: t0.Add(time.Minute)})
	require.NoError(t, err)
	assert.True(t, applied)
}

func TestService_ApplyConcurrentUpdatesKeepNewest(t *testing.T) {
	db := testutil.TestDB(t)
	// Pragmas such as busy_timeout are set on a single connection.
	db.SetMaxOpenConns(1)
	svc := NewService(db, nil, nil)
	ctx := context.Background()
	t0 := time.Date(2021, 3, 2, 12, 0, 0, 0, time.UTC)

	updates := []Update{
		{UserID: "alice", Status: StatusActive, At: t0},
		{UserID: "alice", Status: StatusCanceled, At: t0.Add(time.Second)},
		{UserID: "alice", Status: StatusPastDue, At: t0.Add(500 * time.Millisecond)},
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		for _, u := range updates {
			wg.Add(1)
			go func(u Update) {
				defer wg.Done()
				_, err := svc.Apply(ctx, u)
				assert.NoError(t, err)
			}(u)
		}
	}
	wg.Wait()

	st, err := svc.Status(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, st)
}

func TestService_ApplyValidation(t *testing.T) {
	svc := NewService(testutil.TestDB(t), nil, nil)
	ctx := context.Background()

	_, err := svc.Apply(ctx, Update{Status: StatusActive})
	assert.Error(t, err)

	_, err = svc.Apply(ctx, Update{UserID: "alice", Status: "bogus"})
	assert.ErrorIs(t, err, ErrUnknownStatus)
}

func TestSessionProvider(t *testing.T) {
	svc := NewService(testutil.TestDB(t), NewBroker(), nil)
	_, err := svc.Apply(context.Background(), Update{UserID: "alice", Status: StatusActive})
	require.NoError(t, err)

	sm := scs.New()
	provider := NewSessionProvider(sm, svc)

	var (
		got      *Session
		listener *Listener
	)
	h := sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" {
			sm.Put(r.Context(), session.KeyUserID, "alice")
			return
		}
		got, err = provider.Session(r)
		listener = provider.Watch(r)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, &Session{}, got, "anonymous visitor")
	assert.Nil(t, listener)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.NoError(t, err)
	assert.Equal(t, &Session{UserID: "alice", ActiveSubscription: true}, got)
	require.NotNil(t, listener)
	assert.Equal(t, "alice", listener.UserID)
	listener.Close()
}
