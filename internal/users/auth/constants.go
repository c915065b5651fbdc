// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import "time"

// # Authentication Constraints

const (
	// VerificationTokenTTL is the duration an email verification token remains valid.
	// Long-lived (24 hours) as users might not check email immediately.
	VerificationTokenTTL = 24 * time.Hour

	// VerificationTokenLength is the byte length of the random verification token.
	VerificationTokenLength = 32

	// DefaultLoginChallengeTTL is the 2FA login window when none is configured.
	DefaultLoginChallengeTTL = 5 * time.Minute

	// LoginChallengeLength is the byte length of the random challenge token.
	LoginChallengeLength = 32

	// OAuthStateTTL bounds the time between the provider redirect and the callback.
	OAuthStateTTL = 10 * time.Minute

	// OAuthExchangeTimeout bounds the code exchange and userinfo round trips.
	OAuthExchangeTimeout = 10 * time.Second

	// PasswordMinLength is the shortest accepted password.
	PasswordMinLength = 8

	// NameMaxLength caps first and last names.
	NameMaxLength = 100
)
