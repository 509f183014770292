package sender

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmeyer/bridgemail/internal/testutil"
)

func TestSendDeliversMessage(t *testing.T) {
	server := testutil.NewTestSMTPServer(t)
	defer server.Close()

	s := New(server.Address, "user", "pass", "me@example.com")

	err := s.Send("you@example.com", "Hello", "Just checking in.\nSee you soon.", "")
	require.NoError(t, err)

	messages := server.GetMessages()
	require.Len(t, messages, 1)

	msg := messages[0]
	require.Equal(t, "me@example.com", msg.From)
	require.Equal(t, []string{"you@example.com"}, msg.To)

	data := string(msg.Data)
	require.Contains(t, data, "From: me@example.com")
	require.Contains(t, data, "To: you@example.com")
	require.Contains(t, data, "Subject: Hello")
	require.Contains(t, data, "Just checking in.")
	require.Contains(t, data, "Message-ID: <")
}

func TestSendMultipleRecipients(t *testing.T) {
	server := testutil.NewTestSMTPServer(t)
	defer server.Close()

	s := New(server.Address, "user", "pass", "me@example.com")

	err := s.Send("a@example.com, b@example.com", "Team update", "Body", "")
	require.NoError(t, err)

	messages := server.GetMessages()
	require.Len(t, messages, 1)
	require.Equal(t, []string{"a@example.com", "b@example.com"}, messages[0].To)
}

func TestSendRequiresRecipient(t *testing.T) {
	s := New("127.0.0.1:0", "user", "pass", "me@example.com")
	err := s.Send("  ", "Subject", "Body", "")
	require.Error(t, err)
}

func TestBuildMessage(t *testing.T) {
	s := New("addr", "user", "pass", "me@example.com")
	s.now = func() time.Time { return time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC) }

	t.Run("reply headers added when replying", func(t *testing.T) {
		msg := s.buildMessage([]string{"you@example.com"}, "Re: Hello", "body", "abc@example.com")
		require.Contains(t, msg, "In-Reply-To: <abc@example.com>")
		require.Contains(t, msg, "References: <abc@example.com>")
	})

	t.Run("no reply headers without reply target", func(t *testing.T) {
		msg := s.buildMessage([]string{"you@example.com"}, "Hello", "body", "")
		require.NotContains(t, msg, "In-Reply-To")
	})

	t.Run("subject header injection is neutralized", func(t *testing.T) {
		msg := s.buildMessage([]string{"you@example.com"}, "Hi\r\nBcc: evil@example.com", "body", "")
		require.NotContains(t, msg, "\r\nBcc: evil@example.com")
		require.Contains(t, msg, "Subject: Hi  Bcc: evil@example.com")
	})

	t.Run("bare newlines become CRLF", func(t *testing.T) {
		msg := s.buildMessage([]string{"you@example.com"}, "Hello", "line one\nline two", "")
		require.True(t, strings.Contains(msg, "line one\r\nline two"))
	})
}
