// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"
)

// Token defaults.
const (
	DefaultTokenAlgorithm = "HS256"
	DefaultTokenTTL       = 30 * time.Minute
)

// TokenConfig configures a TokenIssuer. It is read once at construction.
type TokenConfig struct {
	Secret    []byte
	Algorithm string        // HS256, HS384 or HS512; empty means HS256
	TTL       time.Duration // default lifetime; zero means DefaultTokenTTL
	Issuer    string        // optional iss claim
	Clock     Clock
}

// Token is a signed bearer token.
type Token struct {
	Value     string
	Subject   string
	ExpiresAt time.Time
}

// TokenIssuer mints and verifies HMAC-signed JWTs.
type TokenIssuer struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
	issuer string
	clock  Clock
}

// NewTokenIssuer creates a TokenIssuer.
func NewTokenIssuer(cfg TokenConfig) (*TokenIssuer, error) {
	if len(cfg.Secret) == 0 {
		return nil, oops.Code("TOKEN_CONFIG_INVALID").Errorf("token secret is required")
	}
	alg := cfg.Algorithm
	if alg == "" {
		alg = DefaultTokenAlgorithm
	}
	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, oops.Code("TOKEN_CONFIG_INVALID").
			With("algorithm", alg).
			Errorf("unsupported token algorithm %q: must be HS256, HS384 or HS512", alg)
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)

	return &TokenIssuer{
		secret: secret,
		method: method,
		ttl:    ttl,
		issuer: cfg.Issuer,
		clock:  clockOrSystem(cfg.Clock),
	}, nil
}

// TTL returns the default token lifetime.
func (i *TokenIssuer) TTL() time.Duration {
	return i.ttl
}

// Issue signs a token for subject that expires after ttl, or after the
// default lifetime when ttl is not positive.
func (i *TokenIssuer) Issue(subject string, ttl time.Duration) (Token, error) {
	if ttl <= 0 {
		ttl = i.ttl
	}
	now := i.clock.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    i.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	value, err := jwt.NewWithClaims(i.method, claims).SignedString(i.secret)
	if err != nil {
		return Token{}, oops.Code("TOKEN_SIGN_FAILED").With("subject", subject).Wrap(err)
	}

	return Token{
		Value:     value,
		Subject:   subject,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Verify checks the signature and expiry of value and returns its subject.
// Every failure wraps ErrUnauthorized with the same code; the cause is kept
// for logging only.
func (i *TokenIssuer) Verify(value string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{i.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.clock.Now),
	}
	if i.issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.issuer))
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(value, &claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	}, opts...)
	if err != nil {
		return "", invalidToken(err.Error())
	}
	if claims.Subject == "" {
		return "", invalidToken("missing subject")
	}

	return claims.Subject, nil
}

func invalidToken(reason string) error {
	return oops.Code("TOKEN_INVALID").
		With("reason", reason).
		Wrapf(ErrUnauthorized, "could not validate credentials")
}
