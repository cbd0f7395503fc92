// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

// Package delivery sends password reset codes out of band.
//
// A Dispatcher accepts codes from the auth service without blocking and
// hands them to a Sender on background workers. Senders exist for SMTP,
// for publishing to an AMQP queue, and for logging during development. A
// Relay consumes the AMQP queue and forwards each message to another Sender,
// so the process that mails codes can run apart from the API.
package delivery
