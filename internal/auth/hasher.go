// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Wrapf(ErrInvalidInput, "password cannot be empty")

// PasswordHasher hashes secrets into self-describing encoded strings and
// verifies candidates against them.
type PasswordHasher interface {
	// Hash produces a salted hash of the password.
	Hash(password string) (string, error)

	// Verify reports whether password matches encoded. A malformed or
	// unrecognised encoding never matches.
	Verify(password, encoded string) bool

	// NeedsUpgrade returns true if encoded was produced by another scheme or
	// with parameters other than the hasher's current ones.
	NeedsUpgrade(encoded string) bool
}

const argon2idPrefix = "$argon2id$"

// Argon2idParams tunes the cost of argon2id hashing.
type Argon2idParams struct {
	Time    uint32 // iterations
	Memory  uint32 // KiB
	Threads uint8
	SaltLen uint32
	KeyLen  uint32
}

// DefaultArgon2idParams returns the OWASP-recommended argon2id parameters.
func DefaultArgon2idParams() Argon2idParams {
	return Argon2idParams{
		Time:    1,
		Memory:  64 * 1024,
		Threads: 4,
		SaltLen: 16,
		KeyLen:  32,
	}
}

// Argon2idHasher implements PasswordHasher using argon2id in PHC string format.
type Argon2idHasher struct {
	params Argon2idParams
}

// NewArgon2idHasher creates an Argon2idHasher with the default parameters.
func NewArgon2idHasher() *Argon2idHasher {
	return &Argon2idHasher{params: DefaultArgon2idParams()}
}

// NewArgon2idHasherWithParams creates an Argon2idHasher with custom parameters.
// Zero fields fall back to the defaults.
func NewArgon2idHasherWithParams(p Argon2idParams) *Argon2idHasher {
	d := DefaultArgon2idParams()
	if p.Time == 0 {
		p.Time = d.Time
	}
	if p.Memory == 0 {
		p.Memory = d.Memory
	}
	if p.Threads == 0 {
		p.Threads = d.Threads
	}
	if p.SaltLen == 0 {
		p.SaltLen = d.SaltLen
	}
	if p.KeyLen == 0 {
		p.KeyLen = d.KeyLen
	}
	return &Argon2idHasher{params: p}
}

// Hash produces an argon2id hash of the password.
func (h *Argon2idHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}

	key := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLen)

	// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<key>
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory,
		h.params.Time,
		h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify checks if the password matches the encoded hash.
func (h *Argon2idHasher) Verify(password, encoded string) bool {
	decoded, err := decodeArgon2id(encoded)
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(password), decoded.salt,
		decoded.params.Time, decoded.params.Memory, decoded.params.Threads, decoded.params.KeyLen)

	return subtle.ConstantTimeCompare(computed, decoded.key) == 1
}

// NeedsUpgrade returns true if encoded is not argon2id or uses other parameters.
func (h *Argon2idHasher) NeedsUpgrade(encoded string) bool {
	decoded, err := decodeArgon2id(encoded)
	if err != nil {
		return true
	}
	p := decoded.params
	return p.Time != h.params.Time ||
		p.Memory != h.params.Memory ||
		p.Threads != h.params.Threads ||
		p.KeyLen != h.params.KeyLen
}

type argon2idHash struct {
	params Argon2idParams
	salt   []byte
	key    []byte
}

func decodeArgon2id(encoded string) (*argon2idHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("invalid hash format")
	}

	if parts[1] != "argon2id" {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("unsupported hash algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	if version != argon2.Version {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("unsupported argon2 version: %d", version)
	}

	var memory, iterations, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}

	// Threads must fit in uint8 to prevent silent truncation.
	if threads == 0 || threads > 255 {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("invalid threads value: %d", threads)
	}
	if iterations == 0 || memory == 0 {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("invalid cost parameters")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}

	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}

	keyLen := len(key)
	if keyLen == 0 || keyLen > 1<<10 {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("invalid hash key length: %d", keyLen)
	}

	return &argon2idHash{
		params: Argon2idParams{
			Time:    iterations,
			Memory:  memory,
			Threads: uint8(threads),
			SaltLen: uint32(len(salt)),
			KeyLen:  uint32(keyLen),
		},
		salt: salt,
		key:  key,
	}, nil
}

// HasherChain hashes with a primary hasher and verifies against the primary
// and any legacy hashers. Every supported encoding is self-describing, so the
// primary scheme can change without invalidating stored hashes.
type HasherChain struct {
	primary PasswordHasher
	legacy  []PasswordHasher
}

// NewHasherChain creates a HasherChain.
func NewHasherChain(primary PasswordHasher, legacy ...PasswordHasher) *HasherChain {
	return &HasherChain{primary: primary, legacy: legacy}
}

// Hash hashes with the primary hasher.
func (c *HasherChain) Hash(password string) (string, error) {
	//nolint:wrapcheck // primary hasher errors are already coded
	return c.primary.Hash(password)
}

// Verify checks the primary hasher first, then each legacy hasher.
func (c *HasherChain) Verify(password, encoded string) bool {
	if c.primary.Verify(password, encoded) {
		return true
	}
	for _, h := range c.legacy {
		if h.Verify(password, encoded) {
			return true
		}
	}
	return false
}

// NeedsUpgrade delegates to the primary hasher.
func (c *HasherChain) NeedsUpgrade(encoded string) bool {
	return c.primary.NeedsUpgrade(encoded)
}
