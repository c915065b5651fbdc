// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives: password hashing, random
// tokens, role ordering and signed OAuth state values.
//
// # Architecture
//
// This package isolates security-sensitive code from the domain logic. Domain
// packages only see plain functions and small value types.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidState is returned when an OAuth state value fails verification.
var ErrInvalidState = errors.New("sec: invalid oauth state")

// stateClaims is the payload of a signed OAuth state value.
type stateClaims struct {
	jwt.RegisteredClaims

	Nonce string `json:"nce"`
}

// StateSigner issues and verifies the short-lived HS256 tokens used as the
// OAuth2 `state` parameter during federated login.
type StateSigner struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewStateSigner creates a new StateSigner keyed with secret.
func NewStateSigner(secret, issuer string) *StateSigner {
	return &StateSigner{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// Issue signs a state value that binds nonce and expires after timeToLive.
func (signer *StateSigner) Issue(nonce string, timeToLive time.Duration) (string, error) {
	currentTime := signer.now()
	claims := stateClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    signer.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(timeToLive)),
		},
		Nonce: nonce,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(signer.secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign state: %w", err)
	}

	return signed, nil
}

// Verify checks the signature, issuer and expiry of a state value and
// returns the nonce it carries.
func (signer *StateSigner) Verify(state string) (string, error) {
	token, err := jwt.ParseWithClaims(state, &stateClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return signer.secret, nil
	}, jwt.WithIssuer(signer.issuer), jwt.WithTimeFunc(signer.now))

	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	claims, ok := token.Claims.(*stateClaims)
	if !ok || !token.Valid || claims.Nonce == "" {
		return "", ErrInvalidState
	}

	return claims.Nonce, nil
}
