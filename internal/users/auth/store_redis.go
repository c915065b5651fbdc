// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/alphasource/internal/platform/apperr"
	"github.com/taibuivan/alphasource/internal/platform/constants"
)

// RedisChallengeRepository implements ChallengeRepository using Redis.
//
// Records expire through the key TTL. The stored ExpiresAt is still checked
// by the service so a clock-skewed Redis cannot extend a challenge.
type RedisChallengeRepository struct {
	client *redis.Client
}

// NewChallengeRepository creates a new Redis-backed ChallengeRepository.
func NewChallengeRepository(client *redis.Client) *RedisChallengeRepository {
	return &RedisChallengeRepository{client: client}
}

func challengeKey(tokenHash string) string {
	return constants.RedisPrefixLoginChallenge + tokenHash
}

/*
Create stores a login challenge under its token digest.

Parameters:
  - context: context.Context
  - challenge: *LoginChallenge
  - ttl: time.Duration

Returns:
  - error: Storage failures
*/
func (repository *RedisChallengeRepository) Create(context context.Context, challenge *LoginChallenge, ttl time.Duration) error {
	payload, err := json.Marshal(challenge)
	if err != nil {
		return fmt.Errorf("redis_challenge_encode_failed: %w", err)
	}

	if err := repository.client.Set(context, challengeKey(challenge.TokenHash), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis_challenge_set_failed: %w", err)
	}

	return nil
}

/*
Find retrieves a challenge by digest.

Description: Returns apperr.NotFound if the challenge is absent or its key expired.

Parameters:
  - context: context.Context
  - tokenHash: string

Returns:
  - *LoginChallenge: Decoded record
  - error: apperr.NotFound or connectivity errors
*/
func (repository *RedisChallengeRepository) Find(context context.Context, tokenHash string) (*LoginChallenge, error) {
	payload, err := repository.client.Get(context, challengeKey(tokenHash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperr.NotFound("Login challenge")
		}
		return nil, fmt.Errorf("redis_challenge_get_failed: %w", err)
	}

	challenge := &LoginChallenge{}
	if err := json.Unmarshal(payload, challenge); err != nil {
		return nil, fmt.Errorf("redis_challenge_decode_failed: %w", err)
	}
	challenge.TokenHash = tokenHash

	return challenge, nil
}

// Delete removes the challenge and reports whether the key existed.
// Deleting a missing key is not an error.
func (repository *RedisChallengeRepository) Delete(context context.Context, tokenHash string) (bool, error) {
	removed, err := repository.client.Del(context, challengeKey(tokenHash)).Result()
	if err != nil {
		return false, fmt.Errorf("redis_challenge_delete_failed: %w", err)
	}
	return removed == 1, nil
}
