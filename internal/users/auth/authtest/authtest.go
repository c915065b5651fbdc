// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package authtest provides in-memory stores and recorders for tests of the
// users packages. They follow the same error contract as the Postgres and
// Redis implementations.
package authtest

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/taibuivan/alphasource/internal/platform/apperr"
	"github.com/taibuivan/alphasource/internal/platform/audit"
	"github.com/taibuivan/alphasource/internal/platform/sec"
	"github.com/taibuivan/alphasource/internal/users/auth"
	"github.com/taibuivan/alphasource/pkg/uuid"
)

// # Users

// Users is an in-memory auth.UserRepository that also implements the
// twofactor store contract.
type Users struct {
	mu    sync.Mutex
	users map[string]*auth.User
	now   func() time.Time
}

// NewUsers returns an empty store.
func NewUsers() *Users {
	return &Users{users: map[string]*auth.User{}, now: time.Now}
}

func clone(user *auth.User) *auth.User {
	copied := *user
	copied.TwoFactorBackupCodes = slices.Clone(user.TwoFactorBackupCodes)
	return &copied
}

// Put stores user as-is, assigning an ID when missing. Test setup helper.
func (store *Users) Put(user *auth.User) *auth.User {
	store.mu.Lock()
	defer store.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.New()
	}
	if user.Role == "" {
		user.Role = sec.RoleUser
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = store.now().UTC()
		user.UpdatedAt = user.CreatedAt
	}
	user.Email = auth.NormalizeEmail(user.Email)
	store.users[user.ID] = clone(user)
	return clone(user)
}

// Get returns a copy of the stored user or nil.
func (store *Users) Get(id string) *auth.User {
	store.mu.Lock()
	defer store.mu.Unlock()

	if user, ok := store.users[id]; ok {
		return clone(user)
	}
	return nil
}

func (store *Users) FindByID(_ context.Context, id string) (*auth.User, error) {
	if user := store.Get(id); user != nil {
		return user, nil
	}
	return nil, apperr.NotFound("User")
}

func (store *Users) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	normalized := auth.NormalizeEmail(email)
	for _, user := range store.users {
		if user.Email != "" && user.Email == normalized {
			return clone(user), nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (store *Users) CreateWithPassword(ctx context.Context, input auth.NewPasswordUser) (*auth.User, error) {
	if _, err := store.FindByEmail(ctx, input.Email); err == nil {
		return nil, apperr.Conflict("Email is already registered")
	}

	hash, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	return store.Put(&auth.User{
		Email:        input.Email,
		PasswordHash: hash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Role:         sec.RoleUser,
	}), nil
}

func (store *Users) VerifyPassword(ctx context.Context, email, password string) (*auth.User, error) {
	user, err := store.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil
	}
	if !sec.CheckPasswordHash(password, user.PasswordHash) {
		return nil, nil
	}
	return user, nil
}

func (store *Users) Update(_ context.Context, id string, patch auth.UserPatch) (*auth.User, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	user, ok := store.users[id]
	if !ok {
		return nil, apperr.NotFound("User")
	}

	if patch.FirstName != nil {
		user.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		user.LastName = *patch.LastName
	}
	if patch.ProfileImageURL != nil {
		user.ProfileImageURL = *patch.ProfileImageURL
	}
	if patch.EmailVerifiedAt != nil {
		verifiedAt := *patch.EmailVerifiedAt
		user.EmailVerifiedAt = &verifiedAt
	}
	if patch.LastLoginAt != nil {
		lastLogin := *patch.LastLoginAt
		user.LastLoginAt = &lastLogin
	}
	if patch.Ban != nil {
		user.IsBanned = patch.Ban.Banned
		user.BannedReason = ""
		if patch.Ban.Banned {
			user.BannedReason = patch.Ban.Reason
		}
	}
	user.UpdatedAt = store.now().UTC()

	return clone(user), nil
}

func (store *Users) UpdateRole(_ context.Context, id string, role sec.UserRole) (*auth.User, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	user, ok := store.users[id]
	if !ok {
		return nil, apperr.NotFound("User")
	}

	if role == sec.RoleOwner {
		for otherID, other := range store.users {
			if otherID != id && other.Role == sec.RoleOwner {
				return nil, apperr.Forbidden("An owner already exists")
			}
		}
	}

	user.Role = role
	user.UpdatedAt = store.now().UTC()
	return clone(user), nil
}

func (store *Users) HasOwner(context.Context) (bool, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, user := range store.users {
		if user.Role == sec.RoleOwner {
			return true, nil
		}
	}
	return false, nil
}

func (store *Users) ListStaff(context.Context) ([]*auth.User, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	var staff []*auth.User
	for _, user := range store.users {
		if user.Role.AtLeast(sec.RoleStaff) {
			staff = append(staff, clone(user))
		}
	}
	sort.Slice(staff, func(i, j int) bool {
		if staff[i].Role != staff[j].Role {
			return staff[i].Role == sec.RoleOwner
		}
		return staff[i].CreatedAt.Before(staff[j].CreatedAt)
	})
	return staff, nil
}

func (store *Users) List(_ context.Context, filter auth.ListFilter) ([]*auth.User, int, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	var matched []*auth.User
	for _, user := range store.users {
		if len(filter.Roles) == 0 || slices.Contains(filter.Roles, user.Role) {
			matched = append(matched, clone(user))
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	start := min(filter.Offset, total)
	end := total
	if filter.Limit > 0 {
		end = min(start+filter.Limit, total)
	}
	return matched[start:end], total, nil
}

func (store *Users) Upsert(_ context.Context, identity auth.FederatedIdentity) (*auth.User, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	email := auth.NormalizeEmail(identity.Email)
	var existing *auth.User
	for _, user := range store.users {
		if user.ExternalID == identity.Subject {
			existing = user
		}
	}
	for _, user := range store.users {
		if email != "" && user.Email == email && user != existing {
			return nil, apperr.Conflict("Email is already registered to another account")
		}
	}

	now := store.now().UTC()
	if existing == nil {
		existing = &auth.User{ID: uuid.New(), ExternalID: identity.Subject, Role: sec.RoleUser, CreatedAt: now}
		store.users[existing.ID] = existing
	}
	if email != "" {
		existing.Email = email
	}
	if identity.FirstName != "" {
		existing.FirstName = identity.FirstName
	}
	if identity.LastName != "" {
		existing.LastName = identity.LastName
	}
	if identity.ProfileImageURL != "" {
		existing.ProfileImageURL = identity.ProfileImageURL
	}
	if identity.EmailVerified && email != "" && existing.EmailVerifiedAt == nil {
		existing.EmailVerifiedAt = &now
	}
	existing.UpdatedAt = now

	return clone(existing), nil
}

// # Two-factor columns

func (store *Users) BeginSetup(_ context.Context, userID, secret string, backupHashes []string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	user, ok := store.users[userID]
	if !ok {
		return apperr.NotFound("User")
	}
	if user.TwoFactorEnabled {
		return apperr.Conflict("Two-factor authentication is already enabled")
	}
	user.TwoFactorSecret = secret
	user.TwoFactorBackupCodes = slices.Clone(backupHashes)
	return nil
}

func (store *Users) Enable(_ context.Context, userID, secret string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	user, ok := store.users[userID]
	if !ok || user.TwoFactorEnabled || user.TwoFactorSecret != secret {
		return apperr.Conflict("Two-factor setup changed, start again")
	}
	user.TwoFactorEnabled = true
	return nil
}

func (store *Users) Disable(_ context.Context, userID string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	user, ok := store.users[userID]
	if !ok {
		return apperr.NotFound("User")
	}
	user.TwoFactorEnabled = false
	user.TwoFactorSecret = ""
	user.TwoFactorBackupCodes = nil
	return nil
}

func (store *Users) ReplaceBackupCodes(_ context.Context, userID string, expected, remaining []string) (bool, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	user, ok := store.users[userID]
	if !ok {
		return false, apperr.NotFound("User")
	}
	if !slices.Equal(user.TwoFactorBackupCodes, expected) {
		return false, nil
	}
	user.TwoFactorBackupCodes = slices.Clone(remaining)
	return true, nil
}

// # Verification tokens

// Verifications is an in-memory auth.VerificationTokenRepository.
type Verifications struct {
	mu     sync.Mutex
	tokens map[string]*auth.VerificationToken
}

// NewVerifications returns an empty store.
func NewVerifications() *Verifications {
	return &Verifications{tokens: map[string]*auth.VerificationToken{}}
}

func (store *Verifications) Create(_ context.Context, token *auth.VerificationToken) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	copied := *token
	store.tokens[token.TokenHash] = &copied
	return nil
}

func (store *Verifications) FindByHash(_ context.Context, tokenHash string) (*auth.VerificationToken, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	token, ok := store.tokens[tokenHash]
	if !ok {
		return nil, apperr.NotFound("Verification token")
	}
	copied := *token
	return &copied, nil
}

func (store *Verifications) Delete(_ context.Context, tokenHash string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	delete(store.tokens, tokenHash)
	return nil
}

func (store *Verifications) DeleteForUser(_ context.Context, userID string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	for hash, token := range store.tokens {
		if token.UserID == userID {
			delete(store.tokens, hash)
		}
	}
	return nil
}

func (store *Verifications) PurgeExpired(_ context.Context, before time.Time) (int64, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	var purged int64
	for hash, token := range store.tokens {
		if token.ExpiresAt.Before(before) {
			delete(store.tokens, hash)
			purged++
		}
	}
	return purged, nil
}

// Count returns how many tokens are stored.
func (store *Verifications) Count() int {
	store.mu.Lock()
	defer store.mu.Unlock()
	return len(store.tokens)
}

// # Login challenges

// Challenges is an in-memory auth.ChallengeRepository. It ignores the TTL;
// expiry is exercised through the stored deadline.
type Challenges struct {
	mu         sync.Mutex
	challenges map[string]*auth.LoginChallenge
}

// NewChallenges returns an empty store.
func NewChallenges() *Challenges {
	return &Challenges{challenges: map[string]*auth.LoginChallenge{}}
}

func (store *Challenges) Create(_ context.Context, challenge *auth.LoginChallenge, _ time.Duration) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	copied := *challenge
	store.challenges[challenge.TokenHash] = &copied
	return nil
}

func (store *Challenges) Find(_ context.Context, tokenHash string) (*auth.LoginChallenge, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	challenge, ok := store.challenges[tokenHash]
	if !ok {
		return nil, apperr.NotFound("Login challenge")
	}
	copied := *challenge
	return &copied, nil
}

func (store *Challenges) Delete(_ context.Context, tokenHash string) (bool, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	_, ok := store.challenges[tokenHash]
	delete(store.challenges, tokenHash)
	return ok, nil
}

// Has reports whether a challenge for the raw token is still stored.
func (store *Challenges) Has(token string) bool {
	store.mu.Lock()
	defer store.mu.Unlock()

	_, ok := store.challenges[sec.HashToken(token)]
	return ok
}

// # Notifier

// Sent is one captured email.
type Sent struct {
	Kind      string
	To        string
	FirstName string
	Token     string
}

// Notifier records emails instead of sending them. Fail makes every send error.
type Notifier struct {
	mu   sync.Mutex
	sent []Sent
	Fail error
}

func (notifier *Notifier) SendVerificationEmail(_ context.Context, to, firstName, token string) error {
	notifier.mu.Lock()
	defer notifier.mu.Unlock()

	if notifier.Fail != nil {
		return notifier.Fail
	}
	notifier.sent = append(notifier.sent, Sent{Kind: "verify", To: to, FirstName: firstName, Token: token})
	return nil
}

func (notifier *Notifier) SendTwoFactorEnabledEmail(_ context.Context, to, firstName string) error {
	notifier.mu.Lock()
	defer notifier.mu.Unlock()

	if notifier.Fail != nil {
		return notifier.Fail
	}
	notifier.sent = append(notifier.sent, Sent{Kind: "2fa_enabled", To: to, FirstName: firstName})
	return nil
}

// Sent returns the captured emails in order.
func (notifier *Notifier) Sent() []Sent {
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	return slices.Clone(notifier.sent)
}

// LastToken returns the token of the most recent verification email.
func (notifier *Notifier) LastToken() string {
	notifier.mu.Lock()
	defer notifier.mu.Unlock()

	for i := len(notifier.sent) - 1; i >= 0; i-- {
		if notifier.sent[i].Kind == "verify" {
			return notifier.sent[i].Token
		}
	}
	return ""
}

// # Audit

// AuditStore is an in-memory audit.Store.
type AuditStore struct {
	mu      sync.Mutex
	entries []*audit.Entry
}

func (store *AuditStore) Append(_ context.Context, entry *audit.Entry) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	copied := *entry
	store.entries = append(store.entries, &copied)
	return nil
}

func (store *AuditStore) List(_ context.Context, limit, offset int) ([]*audit.Entry, int, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	newestFirst := slices.Clone(store.entries)
	slices.Reverse(newestFirst)

	total := len(newestFirst)
	start := min(offset, total)
	end := min(start+limit, total)
	return newestFirst[start:end], total, nil
}

// Entries returns every entry in insertion order.
func (store *AuditStore) Entries() []*audit.Entry {
	store.mu.Lock()
	defer store.mu.Unlock()
	return slices.Clone(store.entries)
}

// # Clock

// Clock is a manually advanced time source.
type Clock struct {
	mu      sync.Mutex
	current time.Time
}

// NewClock starts a clock at start.
func NewClock(start time.Time) *Clock {
	return &Clock{current: start}
}

// Now returns the current instant.
func (clock *Clock) Now() time.Time {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	return clock.current
}

// Advance moves the clock forward.
func (clock *Clock) Advance(step time.Duration) {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	clock.current = clock.current.Add(step)
}
