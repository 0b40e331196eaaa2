// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Queries wraps the SQL statements used by the service.
type Queries struct {
	db DBTX
}

// New creates a Queries instance over a database or transaction.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries instance bound to the given transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Subscription is a row of the subscriptions table.
type Subscription struct {
	UserID     string
	ExternalID string
	Status     string
	UpdatedAt  time.Time
}

const getSubscription = `SELECT user_id, external_id, status, updated_at
FROM subscriptions
WHERE user_id = ?`

// GetSubscription returns the subscription of a user or sql.ErrNoRows.
func (q *Queries) GetSubscription(ctx context.Context, userID string) (Subscription, error) {
	row := q.db.QueryRowContext(ctx, getSubscription, userID)
	var s Subscription
	err := row.Scan(&s.UserID, &s.ExternalID, &s.Status, &s.UpdatedAt)
	return s, err
}

const upsertSubscription = `INSERT INTO subscriptions (user_id, external_id, status, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
    external_id = excluded.external_id,
    status = excluded.status,
    updated_at = excluded.updated_at
WHERE excluded.updated_at >= subscriptions.updated_at
RETURNING user_id, external_id, status, updated_at`

// timeLayout is fixed-width so stored timestamps compare correctly as text.
const timeLayout = "2006-01-02 15:04:05.000000000-07:00"

// UpsertSubscriptionParams holds the values written by UpsertSubscription.
type UpsertSubscriptionParams struct {
	UserID     string
	ExternalID string
	Status     string
	UpdatedAt  time.Time
}

// UpsertSubscription creates or replaces the subscription of a user in one
// statement. It returns sql.ErrNoRows and writes nothing when the stored row
// is newer than arg.UpdatedAt.
func (q *Queries) UpsertSubscription(ctx context.Context, arg UpsertSubscriptionParams) (Subscription, error) {
	row := q.db.QueryRowContext(ctx, upsertSubscription, arg.UserID, arg.ExternalID, arg.Status, arg.UpdatedAt.UTC().Format(timeLayout))
	var s Subscription
	err := row.Scan(&s.UserID, &s.ExternalID, &s.Status, &s.UpdatedAt)
	return s, err
}

const countSubscriptionsByStatus = `SELECT COUNT(*) FROM subscriptions WHERE status = ?`

// CountSubscriptionsByStatus returns how many users have the given status.
func (q *Queries) CountSubscriptionsByStatus(ctx context.Context, status string) (int64, error) {
	row := q.db.QueryRowContext(ctx, countSubscriptionsByStatus, status)
	var count int64
	err := row.Scan(&count)
	return count, err
}
