// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package twofactor implements TOTP-based two-factor authentication.

It covers enrollment (secret, otpauth URI, QR image and backup codes),
confirmation, disabling and the code check of the second login step.

# Storage

The secret and the SHA-256 digests of the unused backup codes live on the
user row. Enrollment is only written while 2FA is off, and backup codes are
consumed with a compare-and-set on the stored array.
*/
package twofactor

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"image/png"
	"strings"
	"time"
	"unicode"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/taibuivan/alphasource/internal/platform/sec"
)

const (
	// BackupCodeCount is the number of backup codes issued per enrollment.
	BackupCodeCount = 10

	// Period is the TOTP time step.
	Period = 30 * time.Second

	// Skew is the number of steps accepted on either side of the current one.
	Skew = 1

	// QRCodeSize is the edge length in pixels of the provisioning QR image.
	QRCodeSize = 200
)

// Enrollment is the result of a setup. BackupCodes are shown once; only
// BackupHashes are stored.
type Enrollment struct {
	Secret          string
	ProvisioningURI string
	QRCodeURL       string
	BackupCodes     []string
	BackupHashes    []string
}

// Engine generates and verifies TOTP material.
type Engine struct {
	issuer string
}

// NewEngine constructs an [Engine] that labels secrets with issuer.
func NewEngine(issuer string) *Engine {
	return &Engine{issuer: issuer}
}

func validateOptions() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    uint(Period / time.Second),
		Skew:      Skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

/*
Setup generates a fresh secret, its otpauth URI rendered as a PNG data URL,
and a batch of backup codes.

Parameters:
  - accountName: string (label shown in the authenticator app, the email)

Returns:
  - *Enrollment: Material to persist and to show the user
  - error: Entropy or encoding failures
*/
func (engine *Engine) Setup(accountName string) (*Enrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      engine.issuer,
		AccountName: accountName,
		Period:      uint(Period / time.Second),
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("twofactor_generate_failed: %w", err)
	}

	image, err := key.Image(QRCodeSize, QRCodeSize)
	if err != nil {
		return nil, fmt.Errorf("twofactor_qr_failed: %w", err)
	}

	var buffer bytes.Buffer
	if err := png.Encode(&buffer, image); err != nil {
		return nil, fmt.Errorf("twofactor_qr_encode_failed: %w", err)
	}

	codes, err := GenerateBackupCodes(BackupCodeCount)
	if err != nil {
		return nil, err
	}

	hashes := make([]string, len(codes))
	for i, code := range codes {
		hashes[i] = HashBackupCode(code)
	}

	return &Enrollment{
		Secret:          key.Secret(),
		ProvisioningURI: key.URL(),
		QRCodeURL:       "data:image/png;base64," + base64.StdEncoding.EncodeToString(buffer.Bytes()),
		BackupCodes:     codes,
		BackupHashes:    hashes,
	}, nil
}

// VerifyCode reports whether code is the TOTP of secret at t, within one step
// either side. It has no side effects.
func VerifyCode(secret, code string, t time.Time) bool {
	if secret == "" {
		return false
	}
	valid, err := totp.ValidateCustom(strings.TrimSpace(code), secret, t.UTC(), validateOptions())
	return err == nil && valid
}

// GenerateCode returns the TOTP of secret at t.
func GenerateCode(secret string, t time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, t.UTC(), validateOptions())
}

// # Backup Codes

// GenerateBackupCodes returns count codes formatted XXXX-XXXX from 4 random bytes each.
func GenerateBackupCodes(count int) ([]string, error) {
	codes := make([]string, count)
	raw := make([]byte, 4)
	for i := range codes {
		if _, err := rand.Read(raw); err != nil {
			return nil, fmt.Errorf("twofactor_backup_code_failed: %w", err)
		}
		digits := strings.ToUpper(hex.EncodeToString(raw))
		codes[i] = digits[:4] + "-" + digits[4:]
	}
	return codes, nil
}

// NormalizeBackupCode upper-cases code and strips whitespace and hyphens.
func NormalizeBackupCode(code string) string {
	return strings.Map(func(r rune) rune {
		if r == '-' || unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, code)
}

// HashBackupCode returns the stored digest of a backup code.
func HashBackupCode(code string) string {
	return sec.HashToken(NormalizeBackupCode(code))
}

// ConsumeBackupCode looks input up in stored. On a match it returns true and
// the digests without the matched entry; stored itself is not modified.
func ConsumeBackupCode(stored []string, input string) (bool, []string) {
	normalized := NormalizeBackupCode(input)
	if normalized == "" {
		return false, stored
	}

	digest := sec.HashToken(normalized)
	for i, candidate := range stored {
		if candidate == digest {
			remaining := make([]string, 0, len(stored)-1)
			remaining = append(remaining, stored[:i]...)
			remaining = append(remaining, stored[i+1:]...)
			return true, remaining
		}
	}
	return false, stored
}
