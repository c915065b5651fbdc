// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the fixed bcrypt work factor for every stored hash.
const PasswordCost = bcrypt.DefaultCost

// HashPassword hashes a plain-text password using the bcrypt algorithm.
func HashPassword(plainTextPassword string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(plainTextPassword), PasswordCost)
	if err != nil {
		return "", fmt.Errorf("sec: failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// equaliserHash stands in for a missing hash so that path still costs one comparison.
var equaliserHash = sync.OnceValue(func() []byte {
	hash, _ := bcrypt.GenerateFromPassword([]byte("alphasource-timing-equaliser"), PasswordCost)
	return hash
})

// CheckPasswordHash compares a plain-text password with its hashed version.
//
// An empty or malformed hash never matches. An empty hash (unknown account,
// federated-only account) is still compared against a throwaway hash, so
// "no such hash" and "wrong password" cost and look the same.
func CheckPasswordHash(plainTextPassword, existingHash string) bool {
	if existingHash == "" {
		_ = bcrypt.CompareHashAndPassword(equaliserHash(), []byte(plainTextPassword))
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(existingHash), []byte(plainTextPassword))
	return err == nil
}
