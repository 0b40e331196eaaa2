// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package subscription

import (
	"sync"

	"github.com/google/uuid"
)

// Listener receives session changes of one user. Only the latest change is
// buffered: a slow reader sees the current state, not every intermediate one.
type Listener struct {
	ID     uuid.UUID
	UserID string
	C      <-chan Session

	ch     chan Session
	broker *Broker
}

// Close unsubscribes the listener. It is safe to call more than once.
func (l *Listener) Close() {
	l.broker.unsubscribe(l)
}

// Broker fans out session changes to the listeners of each user.
type Broker struct {
	mu        sync.Mutex
	listeners map[string]map[uuid.UUID]*Listener
	closed    bool
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{listeners: make(map[string]map[uuid.UUID]*Listener)}
}

// Subscribe registers a listener for userID. On a closed broker the
// listener's channel is already closed.
func (b *Broker) Subscribe(userID string) *Listener {
	ch := make(chan Session, 1)
	l := &Listener{ID: uuid.New(), UserID: userID, C: ch, ch: ch, broker: b}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return l
	}
	if b.listeners[userID] == nil {
		b.listeners[userID] = make(map[uuid.UUID]*Listener)
	}
	b.listeners[userID][l.ID] = l
	return l
}

// Publish delivers s to every listener of userID without blocking. A pending
// undelivered change is replaced by s: active followed by canceled before the
// reader wakes up arrives as canceled alone.
func (b *Broker) Publish(userID string, s Session) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, l := range b.listeners[userID] {
		select {
		case l.ch <- s:
			continue
		default:
		}
		select {
		case <-l.ch:
		default:
		}
		select {
		case l.ch <- s:
		default:
		}
	}
}

// Count returns the number of listeners of userID.
func (b *Broker) Count(userID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners[userID])
}

// Close closes every listener channel. Later subscriptions get closed channels.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for userID, ls := range b.listeners {
		for _, l := range ls {
			close(l.ch)
		}
		delete(b.listeners, userID)
	}
}

func (b *Broker) unsubscribe(l *Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ls, ok := b.listeners[l.UserID]
	if !ok {
		return
	}
	if _, ok := ls[l.ID]; !ok {
		return
	}
	delete(ls, l.ID)
	close(l.ch)
	if len(ls) == 0 {
		delete(b.listeners, l.UserID)
	}
}
