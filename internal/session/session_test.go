// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/olegiv/ignews-go/internal/testutil"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db := testutil.TestMemoryDB(t)

	// Create sessions table required by sqlite3store
	_, err := db.Exec(`
		CREATE TABLE sessions (
			token TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			expiry REAL NOT NULL
		);
		CREATE INDEX sessions_expiry_idx ON sessions(expiry);
	`)
	if err != nil {
		t.Fatalf("failed to create sessions table: %v", err)
	}
	return db
}

func TestNew_Cookie(t *testing.T) {
	tests := []struct {
		name       string
		isDev      bool
		wantSecure bool
		wantName   string
	}{
		{"development", true, false, "session"},
		{"production", false, true, "__Host-session"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := New(setupTestDB(t), tt.isDev)

			if sm.Store == nil {
				t.Fatal("expected Store to be initialized")
			}
			if sm.Cookie.Secure != tt.wantSecure {
				t.Errorf("Cookie.Secure = %v, want %v", sm.Cookie.Secure, tt.wantSecure)
			}
			if sm.Cookie.Name != tt.wantName {
				t.Errorf("Cookie.Name = %q, want %q", sm.Cookie.Name, tt.wantName)
			}
			if sm.Cookie.Path != "/" || !sm.Cookie.HttpOnly || sm.Cookie.SameSite != http.SameSiteLaxMode {
				t.Errorf("cookie = %+v, want HttpOnly, SameSite=Lax, Path=/", sm.Cookie)
			}
			if sm.Lifetime != 24*time.Hour {
				t.Errorf("Lifetime = %v, want 24h", sm.Lifetime)
			}
		})
	}
}

func TestUserID(t *testing.T) {
	db := setupTestDB(t)
	sm := New(db, true)

	var got string
	h := sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" {
			sm.Put(r.Context(), KeyUserID, "user-42")
			return
		}
		got = UserID(sm, r)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected session cookie")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got != "user-42" {
		t.Errorf("UserID() = %q, want %q", got, "user-42")
	}
}

func TestUserID_NilManager(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := UserID(nil, req); got != "" {
		t.Errorf("UserID(nil) = %q, want empty", got)
	}
}
