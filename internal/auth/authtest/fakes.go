// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package authtest

import (
	"context"
	"sync"
	"time"

	"github.com/wardenauth/warden/internal/auth"
)

// Clock is a manually advanced auth.Clock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a Clock reading now.
func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Delivery is one code handed to a Dispatcher.
type Delivery struct {
	Username string
	Code     string
}

// Dispatcher records dispatched codes instead of delivering them.
type Dispatcher struct {
	mu         sync.Mutex
	deliveries []Delivery
}

// Dispatch records the code.
func (d *Dispatcher) Dispatch(_ context.Context, username, code string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deliveries = append(d.deliveries, Delivery{Username: username, Code: code})
}

// Deliveries returns every recorded delivery in dispatch order.
func (d *Dispatcher) Deliveries() []Delivery {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Delivery, len(d.deliveries))
	copy(out, d.deliveries)
	return out
}

// LastCode returns the most recent code dispatched for username.
func (d *Dispatcher) LastCode(username string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := len(d.deliveries) - 1; i >= 0; i-- {
		if d.deliveries[i].Username == username {
			return d.deliveries[i].Code, true
		}
	}
	return "", false
}

var (
	_ auth.Clock          = (*Clock)(nil)
	_ auth.CodeDispatcher = (*Dispatcher)(nil)
)
