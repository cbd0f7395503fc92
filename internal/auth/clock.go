// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package auth

import "time"

// Clock supplies the current time. Tests substitute a controllable clock.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

func clockOrSystem(c Clock) Clock {
	if c == nil {
		return SystemClock{}
	}
	return c
}
