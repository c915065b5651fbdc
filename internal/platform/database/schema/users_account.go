// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package schema names the tables and columns used by the Postgres repositories.
package schema

// UserAccountTable represents the 'users.account' table
type UserAccountTable struct {
	Table                string
	ID                   string
	Email                string
	Password             string
	FirstName            string
	LastName             string
	ProfileImageURL      string
	Role                 string
	IsAdmin              string
	IsBanned             string
	BannedReason         string
	EmailVerifiedAt      string
	TwoFactorEnabled     string
	TwoFactorSecret      string
	TwoFactorBackupCodes string
	ExternalID           string
	LastLoginAt          string
	CreatedAt            string
	UpdatedAt            string

	// SingleOwnerIndex is the partial unique index allowing one owner row.
	SingleOwnerIndex string
	// EmailIndex is the unique index on the normalised email.
	EmailIndex string
	// ExternalIDIndex is the unique index on the federated subject.
	ExternalIDIndex string
}

// UserAccount is the schema definition for users.account
var UserAccount = UserAccountTable{
	Table:                "users.account",
	ID:                   "id",
	Email:                "email",
	Password:             "passwordhash",
	FirstName:            "firstname",
	LastName:             "lastname",
	ProfileImageURL:      "profileimageurl",
	Role:                 "role",
	IsAdmin:              "isadmin",
	IsBanned:             "isbanned",
	BannedReason:         "bannedreason",
	EmailVerifiedAt:      "emailverifiedat",
	TwoFactorEnabled:     "twofactorenabled",
	TwoFactorSecret:      "twofactorsecret",
	TwoFactorBackupCodes: "twofactorbackupcodes",
	ExternalID:           "externalid",
	LastLoginAt:          "lastloginat",
	CreatedAt:            "createdat",
	UpdatedAt:            "updatedat",

	SingleOwnerIndex: "account_single_owner_idx",
	EmailIndex:       "account_email_key",
	ExternalIDIndex:  "account_externalid_key",
}
