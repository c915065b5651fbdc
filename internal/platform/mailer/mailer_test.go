// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mailer_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/quotedprintable"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/taibuivan/alphasource/internal/platform/mailer"
)

type captureSender struct {
	messages []*gomail.Message
	err      error
}

func (sender *captureSender) DialAndSend(messages ...*gomail.Message) error {
	if sender.err != nil {
		return sender.err
	}
	sender.messages = append(sender.messages, messages...)
	return nil
}

// renderedBody returns the decoded quoted-printable body of a message.
func renderedBody(t *testing.T, message *gomail.Message) string {
	var buffer bytes.Buffer
	_, err := message.WriteTo(&buffer)
	require.NoError(t, err)

	_, body, found := strings.Cut(buffer.String(), "\r\n\r\n")
	require.True(t, found)

	decoded, err := io.ReadAll(quotedprintable.NewReader(strings.NewReader(body)))
	require.NoError(t, err)
	return string(decoded)
}

/*
TestSendVerificationEmail checks subject, recipient and the verification link.
*/
func TestSendVerificationEmail(t *testing.T) {
	sender := &captureSender{}
	m := mailer.New(sender, "noreply@alphasource.app", "https://alphasource.app/")

	err := m.SendVerificationEmail(context.Background(), "jane@x.com", "Jane", "tok_123")
	require.NoError(t, err)
	require.Len(t, sender.messages, 1)

	message := sender.messages[0]
	assert.Equal(t, []string{mailer.SubjectVerifyEmail}, message.GetHeader("Subject"))
	assert.Equal(t, []string{"jane@x.com"}, message.GetHeader("To"))

	body := renderedBody(t, message)
	assert.Contains(t, body, "https://alphasource.app/verify-email?token=tok_123")
	assert.Contains(t, body, "24 hours")
}

/*
TestSendTwoFactorEnabledEmail checks the notification subject.
*/
func TestSendTwoFactorEnabledEmail(t *testing.T) {
	sender := &captureSender{}
	m := mailer.New(sender, "noreply@alphasource.app", "https://alphasource.app")

	require.NoError(t, m.SendTwoFactorEnabledEmail(context.Background(), "jane@x.com", ""))
	require.Len(t, sender.messages, 1)
	assert.Equal(t, []string{mailer.SubjectTwoFactorEnabled}, sender.messages[0].GetHeader("Subject"))
}

/*
TestSend_DeliveryFailure verifies that transport errors are returned to the caller.
*/
func TestSend_DeliveryFailure(t *testing.T) {
	m := mailer.New(&captureSender{err: errors.New("connection refused")}, "noreply@alphasource.app", "https://alphasource.app")

	err := m.SendTwoFactorEnabledEmail(context.Background(), "jane@x.com", "Jane")
	assert.ErrorContains(t, err, "connection refused")
}
