// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wardenauth/warden/pkg/errutil"
)

// DefaultStoreTimeout bounds every store call made by Service.
const DefaultStoreTimeout = 5 * time.Second

// Operation names used for tracing and metrics.
const (
	OpLogin        = "login"
	OpRegister     = "register"
	OpRequestReset = "request_reset"
	OpConfirmReset = "confirm_reset"
	OpBootstrap    = "bootstrap"
	OpAuthenticate = "authenticate"
)

// OutcomeSuccess is the metrics outcome for an operation that returned no error.
// Failed operations report their ErrorKind.
const OutcomeSuccess = "success"

var tracer = otel.Tracer("github.com/wardenauth/warden/internal/auth")

// CodeDispatcher hands a reset code to an out-of-band delivery channel.
// Dispatch must not block on delivery and reports no delivery outcome.
type CodeDispatcher interface {
	Dispatch(ctx context.Context, username, code string)
}

// MetricsRecorder counts operation outcomes.
type MetricsRecorder interface {
	RecordAuthOperation(operation, outcome string)
}

// Service implements login, registration and the password reset flow.
type Service struct {
	users        UserRepository
	codes        *ResetCodeManager
	hasher       PasswordHasher
	tokens       *TokenIssuer
	dispatcher   CodeDispatcher
	logger       *slog.Logger
	metrics      MetricsRecorder
	clock        Clock
	storeTimeout time.Duration
	tokenTTL     time.Duration
	dummyHash    string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the recorder for operation outcomes.
func WithMetrics(m MetricsRecorder) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithStoreTimeout bounds each store call. Non-positive values keep the default.
func WithStoreTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.storeTimeout = d
		}
	}
}

// WithClock sets the clock used for user timestamps.
func WithClock(c Clock) ServiceOption {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithTokenTTL sets the lifetime of tokens issued by Login. Zero uses the
// issuer's default.
func WithTokenTTL(d time.Duration) ServiceOption {
	return func(s *Service) {
		s.tokenTTL = d
	}
}

// NewService creates a Service. All dependencies are required.
func NewService(
	users UserRepository,
	codes *ResetCodeManager,
	hasher PasswordHasher,
	tokens *TokenIssuer,
	dispatcher CodeDispatcher,
	opts ...ServiceOption,
) (*Service, error) {
	if users == nil {
		return nil, oops.Errorf("user repository is required")
	}
	if codes == nil {
		return nil, oops.Errorf("reset code manager is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Errorf("token issuer is required")
	}
	if dispatcher == nil {
		return nil, oops.Errorf("code dispatcher is required")
	}

	s := &Service{
		users:        users,
		codes:        codes,
		hasher:       hasher,
		tokens:       tokens,
		dispatcher:   dispatcher,
		logger:       slog.Default(),
		clock:        SystemClock{},
		storeTimeout: DefaultStoreTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Unknown usernames are verified against this hash so a missing user costs
	// the same as a wrong password.
	dummy, err := hasher.Hash("warden-timing-equaliser")
	if err != nil {
		return nil, oops.With("operation", "prepare dummy hash").Wrap(err)
	}
	s.dummyHash = dummy

	return s, nil
}

// Login checks the credentials and issues a token for the user. An unknown
// username and a wrong password produce the same ErrUnauthorized error.
func (s *Service) Login(ctx context.Context, username, password string) (_ Token, err error) {
	ctx, done := s.begin(ctx, OpLogin)
	defer func() { done(err) }()

	user, err := withStore(ctx, s, func(ctx context.Context) (*User, error) {
		return s.users.GetByUsername(ctx, username)
	})
	target := s.dummyHash
	switch {
	case err == nil:
		target = user.PasswordHash
	case errors.Is(err, ErrNotFound):
		user = nil
	default:
		return Token{}, storeFailure("get user by username", err)
	}

	if valid := s.hasher.Verify(password, target); !valid || user == nil {
		return Token{}, oops.Code("AUTH_INVALID_CREDENTIALS").
			With("username", username).
			Wrapf(ErrUnauthorized, "incorrect username or password")
	}

	s.upgradeHash(ctx, user, password)

	token, err := s.tokens.Issue(user.Username, s.tokenTTL)
	if err != nil {
		return Token{}, internalError("AUTH_LOGIN_FAILED", "issue token", err)
	}
	return token, nil
}

// Register creates a user. Returns an error wrapping ErrConflict if the
// username is taken; the existing user is left unchanged.
func (s *Service) Register(ctx context.Context, username, password string) (_ *User, err error) {
	ctx, done := s.begin(ctx, OpRegister)
	defer func() { done(err) }()

	return s.register(ctx, username, password)
}

func (s *Service) register(ctx context.Context, username, password string) (*User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, internalError("AUTH_REGISTER_FAILED", "hash password", err)
	}

	user, err := NewUser(username, hash, s.clock.Now())
	if err != nil {
		return nil, err
	}

	if _, err := withStore(ctx, s, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.users.Create(ctx, user)
	}); err != nil {
		if isDomainError(err) {
			return nil, oops.With("operation", "create user").Wrap(err)
		}
		return nil, storeFailure("create user", err)
	}

	return user, nil
}

// RequestReset stores a fresh reset code for username and dispatches it for
// delivery. Delivery runs in the background; its failures are never returned.
// Returns an error wrapping ErrNotFound if the user does not exist.
func (s *Service) RequestReset(ctx context.Context, username string) (err error) {
	ctx, done := s.begin(ctx, OpRequestReset)
	defer func() { done(err) }()

	code, err := withStore(ctx, s, func(ctx context.Context) (string, error) {
		return s.codes.GenerateAndStore(ctx, username)
	})
	if err != nil {
		if isDomainError(err) {
			return err
		}
		return storeFailure("generate reset code", err)
	}

	s.dispatcher.Dispatch(ctx, username, code)
	return nil
}

// ConfirmReset verifies code for username and, only if it is valid, replaces
// the user's password. The code is consumed afterwards.
func (s *Service) ConfirmReset(ctx context.Context, username, code, newPassword string) (err error) {
	ctx, done := s.begin(ctx, OpConfirmReset)
	defer func() { done(err) }()

	if _, err := withStore(ctx, s, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.codes.Verify(ctx, username, code)
	}); err != nil {
		if isDomainError(err) {
			return err
		}
		return storeFailure("verify reset code", err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		if isDomainError(err) {
			return err
		}
		return internalError("RESET_CONFIRM_FAILED", "hash password", err)
	}

	if _, err := withStore(ctx, s, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.users.UpdatePassword(ctx, username, hash, s.clock.Now())
	}); err != nil {
		if isDomainError(err) {
			return oops.With("operation", "update password").Wrap(err)
		}
		return storeFailure("update password", err)
	}

	if _, err := withStore(ctx, s, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.codes.Consume(ctx, username)
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to consume reset code (best-effort)",
			"operation", "consume_reset_code",
			"username", username,
			"error", err)
	}

	return nil
}

// Bootstrap registers username if it does not exist yet. An existing user is
// not an error and is left unchanged.
func (s *Service) Bootstrap(ctx context.Context, username, password string) (err error) {
	ctx, done := s.begin(ctx, OpBootstrap)
	defer func() { done(err) }()

	_, err = s.register(ctx, username, password)
	if errors.Is(err, ErrConflict) {
		s.logger.DebugContext(ctx, "bootstrap user already exists", "username", username)
		return nil
	}
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "bootstrap user created", "username", username)
	return nil
}

// Authenticate verifies a bearer token and returns the user it names. A valid
// token whose subject no longer exists is rejected like a forged one.
func (s *Service) Authenticate(ctx context.Context, token string) (_ *User, err error) {
	ctx, done := s.begin(ctx, OpAuthenticate)
	defer func() { done(err) }()

	subject, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	user, err := withStore(ctx, s, func(ctx context.Context) (*User, error) {
		return s.users.GetByUsername(ctx, subject)
	})
	if errors.Is(err, ErrNotFound) {
		return nil, oops.Code("TOKEN_SUBJECT_UNKNOWN").
			With("subject", subject).
			Wrapf(ErrUnauthorized, "could not validate credentials")
	}
	if err != nil {
		return nil, storeFailure("get user by username", err)
	}
	return user, nil
}

// PurgeExpiredCodes removes expired reset codes.
func (s *Service) PurgeExpiredCodes(ctx context.Context) (int64, error) {
	n, err := withStore(ctx, s, s.codes.PurgeExpired)
	if err != nil {
		return 0, storeFailure("purge expired reset codes", err)
	}
	return n, nil
}

// upgradeHash rehashes the password when the stored hash uses an outdated
// scheme or cost. Failures only log; the login still succeeds.
func (s *Service) upgradeHash(ctx context.Context, user *User, password string) {
	if !s.hasher.NeedsUpgrade(user.PasswordHash) {
		return
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to rehash password (best-effort)",
			"operation", "rehash_password", "username", user.Username, "error", err)
		return
	}

	if _, err := withStore(ctx, s, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.users.UpdatePassword(ctx, user.Username, hash, s.clock.Now())
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to store upgraded password hash (best-effort)",
			"operation", "rehash_password", "username", user.Username, "error", err)
		return
	}
	user.PasswordHash = hash
}

// begin starts a span for op and returns a function that ends it and records
// the outcome.
func (s *Service) begin(ctx context.Context, op string) (context.Context, func(error)) {
	ctx, span := tracer.Start(ctx, "auth."+op)
	span.SetAttributes(attribute.String("auth.operation", op))

	return ctx, func(err error) {
		outcome := OutcomeSuccess
		if err != nil {
			kind := KindOf(err)
			outcome = string(kind)
			span.RecordError(err)
			if kind == KindInternal {
				span.SetStatus(codes.Error, "internal error")
				errutil.LogErrorContext(ctx, s.logger, "auth operation failed", err)
			}
		}
		span.SetAttributes(attribute.String("auth.outcome", outcome))
		span.End()

		if s.metrics != nil {
			s.metrics.RecordAuthOperation(op, outcome)
		}
	}
}

// withStore runs fn under the store timeout.
func withStore[T any](ctx context.Context, s *Service, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	return fn(ctx)
}

func storeFailure(operation string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return internalError("AUTH_STORE_TIMEOUT", operation, err)
	}
	return internalError("AUTH_STORE_FAILED", operation, err)
}
