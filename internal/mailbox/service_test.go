package mailbox

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmeyer/bridgemail/internal/batch"
	"github.com/dmeyer/bridgemail/internal/imap"
	"github.com/dmeyer/bridgemail/internal/junk"
	"github.com/dmeyer/bridgemail/internal/rules"
	"github.com/dmeyer/bridgemail/internal/testutil"
	"github.com/dmeyer/bridgemail/internal/unsub"
)

func newTestService(t *testing.T) (*Service, *testutil.TestIMAPServer) {
	t.Helper()

	server := testutil.NewTestIMAPServer(t)
	t.Cleanup(server.Close)

	repo, err := rules.NewSQLiteRepository(filepath.Join(t.TempDir(), "rules.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	sessions := imap.NewManager(server.Address, false, server.Username(), server.Password())
	executor := batch.NewExecutor(50, 0, "Trash")

	svc := NewService(
		sessions,
		executor,
		junk.NewClassifier(),
		unsub.NewResolver(nil),
		rules.NewEngine(repo),
		nil,
		"Spam",
	)
	t.Cleanup(svc.Close)

	return svc, server
}

func TestSearchEmails(t *testing.T) {
	svc, server := newTestService(t)

	server.AddMessage(t, "INBOX", "<inv-1@example.com>", "Invoice March", "billing@shop.example.com", "me@example.com", "Amount due: 42", time.Now())
	server.AddMessage(t, "INBOX", "<note-1@example.com>", "Lunch tomorrow", "friend@example.com", "me@example.com", "Noon?", time.Now())

	t.Run("finds by subject token", func(t *testing.T) {
		emails, err := svc.SearchEmails("", "subject:Invoice", 10)
		require.NoError(t, err)
		require.Len(t, emails, 1)
		require.Equal(t, "Invoice March", emails[0].Subject)
		require.Equal(t, "billing@shop.example.com", emails[0].BareFromAddress())
	})

	t.Run("finds by sender token", func(t *testing.T) {
		emails, err := svc.SearchEmails("", "from:friend@example.com", 10)
		require.NoError(t, err)
		require.Len(t, emails, 1)
		require.Equal(t, "Lunch tomorrow", emails[0].Subject)
	})

	t.Run("unknown mailbox surfaces as such", func(t *testing.T) {
		_, err := svc.SearchEmails("NoSuchBox", "", 10)
		require.ErrorIs(t, err, imap.ErrMailboxNotFound)
	})
}

func TestGetEmailContent(t *testing.T) {
	svc, server := newTestService(t)

	uid := server.AddMessage(t, "INBOX", "<body-1@example.com>", "With body", "a@example.com", "me@example.com", "The full body text.", time.Now())

	email, err := svc.GetEmailContent("", uid)
	require.NoError(t, err)
	require.Contains(t, email.BodyText, "The full body text.")
	require.Equal(t, "With body", email.Subject)

	_, err = svc.GetEmailContent("", 99999)
	require.Error(t, err)
}

func TestBulkMarkRead(t *testing.T) {
	svc, server := newTestService(t)

	uid := server.AddRawMessage(t, "INBOX", "<unread-1@example.com>", strings.Join([]string{
		"Message-ID: <unread-1@example.com>",
		"From: a@example.com",
		"To: me@example.com",
		"Subject: Unread one",
		"",
		"Body.",
		"",
	}, "\r\n"), nil)

	result, err := svc.BulkMarkRead("", []uint32{uid}, true)
	require.NoError(t, err)
	require.Equal(t, []uint32{uid}, result.Succeeded)
	require.False(t, result.Partial())

	email, err := svc.GetEmailContent("", uid)
	require.NoError(t, err)
	require.True(t, email.IsRead)
}

func TestBulkDeletePermanent(t *testing.T) {
	svc, server := newTestService(t)

	uid := server.AddMessage(t, "INBOX", "<gone-1@example.com>", "Doomed", "a@example.com", "me@example.com", "bye", time.Now())

	result, err := svc.BulkDelete("", []uint32{uid}, true)
	require.NoError(t, err)
	require.Equal(t, []uint32{uid}, result.Succeeded)

	emails, err := svc.SearchEmails("", "subject:Doomed", 10)
	require.NoError(t, err)
	require.Empty(t, emails)
}

func TestMoveEmail(t *testing.T) {
	svc, server := newTestService(t)

	require.NoError(t, svc.CreateFolder("Archive"))
	uid := server.AddMessage(t, "INBOX", "<mv-1@example.com>", "Keep this", "a@example.com", "me@example.com", "archive me", time.Now())

	result, err := svc.MoveEmail("", uid, "Archive")
	require.NoError(t, err)
	require.Len(t, result.Succeeded, 1)

	inInbox, err := svc.SearchEmails("", "subject:Keep", 10)
	require.NoError(t, err)
	require.Empty(t, inInbox)

	inArchive, err := svc.SearchEmails("Archive", "subject:Keep", 10)
	require.NoError(t, err)
	require.Len(t, inArchive, 1)
}

func TestGetMailboxes(t *testing.T) {
	svc, _ := newTestService(t)

	require.NoError(t, svc.CreateFolder("Projects"))

	folders, err := svc.GetMailboxes()
	require.NoError(t, err)
	require.Contains(t, folders, "INBOX")
	require.Contains(t, folders, "Projects")

	require.NoError(t, svc.DeleteFolder("Projects"))
	folders, err = svc.GetMailboxes()
	require.NoError(t, err)
	require.NotContains(t, folders, "Projects")
}

func TestFilterJunk(t *testing.T) {
	svc, server := newTestService(t)

	server.AddMessage(t, "INBOX", "<spam-1@example.com>", "Urgent action required now", "admin@offers.ml", "me@example.com", "verify account immediately", time.Now())
	server.AddMessage(t, "INBOX", "<ham-1@example.com>", "Team standup notes", "colleague@example.com", "me@example.com", "Here are the notes.", time.Now())

	t.Run("analyze reports flagged without moving", func(t *testing.T) {
		result, err := svc.FilterJunk("", 20, "analyze")
		require.NoError(t, err)
		require.Len(t, result.Flagged, 1)
		require.True(t, result.Flagged[0].Score >= 2)
		require.Nil(t, result.Moved)
	})

	t.Run("move_to_spam moves flagged in one batch", func(t *testing.T) {
		require.NoError(t, svc.CreateFolder("Spam"))

		result, err := svc.FilterJunk("", 20, "move_to_spam")
		require.NoError(t, err)
		require.NotNil(t, result.Moved)
		require.Len(t, result.Moved.Succeeded, 1)
		require.Equal(t, "Spam", result.ToFolder)

		remaining, err := svc.SearchEmails("", "subject:Urgent", 10)
		require.NoError(t, err)
		require.Empty(t, remaining)
	})

	t.Run("rejects unknown action", func(t *testing.T) {
		_, err := svc.FilterJunk("", 20, "explode")
		require.Error(t, err)
	})
}

func TestSearchFiltered(t *testing.T) {
	svc, server := newTestService(t)

	server.AddMessage(t, "INBOX", "<spam-2@example.com>", "Free money limited time offer", "admin@win.ga", "me@example.com", "click here now to claim", time.Now())
	server.AddMessage(t, "INBOX", "<ham-2@example.com>", "Quarterly planning", "boss@example.com", "me@example.com", "Agenda attached.", time.Now())

	emails, err := svc.SearchFiltered("", "", 10, true)
	require.NoError(t, err)
	for _, email := range emails {
		require.NotContains(t, email.Subject, "Free money")
	}
}

func TestMailingListSenders(t *testing.T) {
	svc, server := newTestService(t)

	for i, id := range []string{"<nl-1@x>", "<nl-2@x>", "<nl-3@x>"} {
		server.AddMessage(t, "INBOX", id, "Digest edition", "newsletter@lists.example.com", "me@example.com", "issue", time.Now().Add(time.Duration(i)*time.Minute))
	}
	server.AddMessage(t, "INBOX", "<once-1@x>", "One-off hello", "stranger@example.com", "me@example.com", "hi", time.Now())

	senders, err := svc.MailingListSenders("", 30, 3, 0)
	require.NoError(t, err)

	var found *MailingListSender
	for i := range senders {
		if senders[i].Address == "newsletter@lists.example.com" {
			found = &senders[i]
		}
		require.NotEqual(t, "stranger@example.com", senders[i].Address)
	}
	require.NotNil(t, found, "expected newsletter sender to qualify")
	require.Equal(t, 3, found.EmailCount)
	require.True(t, found.LooksAutomated)
}

func TestUnsubscribeDiscoveryAndDryRun(t *testing.T) {
	svc, server := newTestService(t)

	uid := server.AddRawMessage(t, "INBOX", "<list-1@example.com>", strings.Join([]string{
		"Message-ID: <list-1@example.com>",
		"From: news@lists.example.com",
		"To: me@example.com",
		"Subject: Weekly roundup",
		"List-Unsubscribe: <mailto:leave@lists.example.com>, <https://lists.example.com/u?id=9>",
		"List-Unsubscribe-Post: List-Unsubscribe=One-Click",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"This week's links.",
		"",
	}, "\r\n"), nil)

	discovery, err := svc.FindUnsubscribeLinks("", uid)
	require.NoError(t, err)
	require.Len(t, discovery.Methods, 2)
	require.True(t, discovery.HasOneClick)

	result, err := svc.Unsubscribe(context.Background(), "", uid, false)
	require.NoError(t, err)
	require.NotNil(t, result.Attempt)
	require.Equal(t, unsub.StatusSkipped, result.Attempt.Status)
	require.Equal(t, unsub.MethodHTTPOneClick, result.Attempt.Method.Type)
}

func TestApplyFilterRules(t *testing.T) {
	svc, server := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.CreateFolder("Finance"))

	rule, err := svc.Rules().Create(ctx, "file invoices",
		[]rules.Condition{{Field: rules.FieldSubjectContains, Value: "invoice"}},
		[]rules.Action{{Type: rules.ActionMoveToFolder, Target: "Finance"}},
		true)
	require.NoError(t, err)

	for _, id := range []string{"<i1@x>", "<i2@x>", "<i3@x>"} {
		server.AddMessage(t, "INBOX", id, "Invoice "+id, "billing@example.com", "me@example.com", "pay up", time.Now())
	}
	server.AddMessage(t, "INBOX", "<n1@x>", "Picnic", "friend@example.com", "me@example.com", "sunday?", time.Now())
	server.AddMessage(t, "INBOX", "<n2@x>", "Standup", "boss@example.com", "me@example.com", "9am", time.Now())

	result, err := svc.ApplyFilterRules(ctx, "")
	require.NoError(t, err)

	require.Equal(t, 3, result.Matched)
	require.Len(t, result.Moved, 1)
	require.Len(t, result.Moved["Finance"].Succeeded, 3)

	filed, err := svc.SearchEmails("Finance", "", 10)
	require.NoError(t, err)
	require.Len(t, filed, 3)

	// Statistics recorded: three matches bump the counter by three.
	updated, err := svc.Rules().Get(ctx, rule.ID)
	require.NoError(t, err)
	require.Equal(t, 3, updated.TimesApplied)
	require.NotNil(t, updated.LastApplied)

	nonMatching, err := svc.SearchEmails("", "subject:Picnic", 10)
	require.NoError(t, err)
	require.Len(t, nonMatching, 1)
}

func TestApplyFilterRulesNoRules(t *testing.T) {
	svc, _ := newTestService(t)

	result, err := svc.ApplyFilterRules(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, 0, result.Matched)
	require.Equal(t, 0, result.Evaluated)
}
