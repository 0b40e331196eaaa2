// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package subscription

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroker_PublishToUser(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	a1 := b.Subscribe("alice")
	a2 := b.Subscribe("alice")
	bob := b.Subscribe("bob")
	assert.NotEqual(t, a1.ID, a2.ID)
	assert.Equal(t, 2, b.Count("alice"))

	b.Publish("alice", Session{UserID: "alice", ActiveSubscription: true})

	for _, l := range []*Listener{a1, a2} {
		select {
		case s := <-l.C:
			assert.True(t, s.ActiveSubscription)
		default:
			t.Fatalf("listener %s got nothing", l.ID)
		}
	}
	select {
	case s := <-bob.C:
		t.Fatalf("bob received %+v", s)
	default:
	}
}

func TestBroker_KeepsLatestState(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	l := b.Subscribe("alice")

	b.Publish("alice", Session{UserID: "alice", ActiveSubscription: true})
	b.Publish("alice", Session{UserID: "alice", ActiveSubscription: false})
	b.Publish("alice", Session{UserID: "alice", ActiveSubscription: true})

	s := <-l.C
	assert.True(t, s.ActiveSubscription)
	select {
	case extra := <-l.C:
		t.Fatalf("unexpected buffered state %+v", extra)
	default:
	}
}

func TestBroker_CoalescedTransitionIsNotObserved(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	l := b.Subscribe("alice")

	var navigated []string
	g := NewGate("how-to-code", func(path string) { navigated = append(navigated, path) })
	g.Observe(&Session{UserID: "alice"})

	b.Publish("alice", Session{UserID: "alice", ActiveSubscription: true})
	b.Publish("alice", Session{UserID: "alice", ActiveSubscription: false})

	s := <-l.C
	assert.False(t, s.ActiveSubscription)
	assert.False(t, g.Observe(&s))
	assert.Empty(t, navigated)
}

func TestBroker_ListenerClose(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	l := b.Subscribe("alice")

	l.Close()
	l.Close()

	_, ok := <-l.C
	assert.False(t, ok, "channel closed after Close")
	assert.Equal(t, 0, b.Count("alice"))

	b.Publish("alice", Session{UserID: "alice"})
}

func TestBroker_Close(t *testing.T) {
	b := NewBroker()
	l := b.Subscribe("alice")

	b.Close()
	_, ok := <-l.C
	assert.False(t, ok)
	l.Close()

	late := b.Subscribe("alice")
	_, ok = <-late.C
	require.False(t, ok, "subscriptions after Close get closed channels")
	b.Close()
}
