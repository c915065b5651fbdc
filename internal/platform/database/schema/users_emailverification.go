// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// UserEmailVerificationTable represents the 'users.emailverification' table
type UserEmailVerificationTable struct {
	Table     string
	TokenHash string
	UserID    string
	Type      string
	ExpiresAt string
	CreatedAt string
}

// UserEmailVerification is the schema definition for users.emailverification
var UserEmailVerification = UserEmailVerificationTable{
	Table:     "users.emailverification",
	TokenHash: "tokenhash",
	UserID:    "userid",
	Type:      "type",
	ExpiresAt: "expiresat",
	CreatedAt: "createdat",
}
