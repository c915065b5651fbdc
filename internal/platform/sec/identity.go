// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import "time"

// # Request Identity

// Identity is the only value bound to a session handle. It is constructed
// once by whichever login path succeeded and carries nothing else, so role
// and ban state always come from a fresh [Principal].
type Identity struct {
	UserID string
}

// Principal is the live view of the account behind an [Identity], reloaded
// from the credential store on every gated request.
type Principal struct {
	UserID          string
	Email           string
	Role            UserRole
	IsAdmin         bool
	IsBanned        bool
	BannedReason    string
	EmailVerifiedAt *time.Time
}

// EmailVerified reports whether the account has confirmed its email address.
func (p *Principal) EmailVerified() bool {
	return p.EmailVerifiedAt != nil
}

// StaffOrOwner reports whether the account holds moderation rights. The
// legacy is_admin flag counts as staff for older deployments.
func (p *Principal) StaffOrOwner() bool {
	return p.IsAdmin || p.Role.AtLeast(RoleStaff)
}
