// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package token issues and resolves the single-use verification tokens that
// grant unauthenticated access to one contact's verification flow.
package token

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"codeberg.org/oliverandrich/verify-portal/internal/models"
	"codeberg.org/oliverandrich/verify-portal/internal/repository"
)

const (
	// Length is the number of random bytes in a token.
	Length = 32
	// Validity is how long an issued token can be resolved.
	Validity = 72 * time.Hour
)

// ErrNotFound means no contact carries the given token.
var ErrNotFound = errors.New("token not found")

// ErrExpired means the token matched a contact but its validity window has
// passed. Public handlers must collapse this with ErrNotFound so callers
// cannot probe which tokens once existed.
var ErrExpired = errors.New("token expired")

// Issuer mints and resolves verification tokens. Only the SHA256 hash of a
// token is stored; the plaintext exists solely in the verification link.
type Issuer struct {
	repo *repository.Repository
}

// NewIssuer creates a new Issuer backed by the given repository.
func NewIssuer(repo *repository.Repository) *Issuer {
	return &Issuer{repo: repo}
}

// Issue generates a fresh token for the contact, stores its hash and expiry
// and returns the plaintext. Any previously issued token is superseded, so a
// contact has at most one resolvable token at any time.
func (i *Issuer) Issue(ctx context.Context, contactID int64) (string, time.Time, error) {
	bytes := make([]byte, Length)
	if _, err := rand.Read(bytes); err != nil {
		return "", time.Time{}, fmt.Errorf("generating random bytes: %w", err)
	}

	plaintext := hex.EncodeToString(bytes)
	expiry := time.Now().Add(Validity)

	if err := i.repo.SetContactToken(ctx, contactID, Hash(plaintext), expiry); err != nil {
		return "", time.Time{}, fmt.Errorf("storing token: %w", err)
	}

	return plaintext, expiry, nil
}

// Resolve looks up the contact carrying the token. Expiry is checked lazily
// at resolve time; expired tokens are not swept proactively.
func (i *Issuer) Resolve(ctx context.Context, plaintext string) (*models.Contact, error) {
	contact, err := i.repo.GetContactByTokenHash(ctx, Hash(plaintext))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if !contact.TokenExpiry.Valid || time.Now().After(contact.TokenExpiry.Time) {
		return nil, ErrExpired
	}

	return contact, nil
}

// Hash computes the SHA256 hash of a token for storage and lookup.
func Hash(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}
