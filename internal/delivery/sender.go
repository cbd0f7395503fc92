// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package delivery

import (
	"context"
	"log/slog"
)

// Sender delivers one reset code to a recipient address.
type Sender interface {
	SendCode(ctx context.Context, to, code string) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, to, code string) error

// SendCode calls f.
func (f SenderFunc) SendCode(ctx context.Context, to, code string) error {
	return f(ctx, to, code)
}

// LogSender writes codes to the log instead of sending them.
// Only suitable for local development.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender. A nil logger uses slog.Default().
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

// SendCode logs the code at WARN so it stands out in development output.
func (s *LogSender) SendCode(ctx context.Context, to, code string) error {
	s.logger.WarnContext(ctx, "reset code not sent, log delivery is configured",
		"to", to,
		"code", code)
	return nil
}
