// Package mailbox is the orchestration layer: it composes the session
// manager, batch executor, junk classifier, unsubscribe resolver, and rule
// engine into the operations exposed to callers.
package mailbox

import (
	"fmt"
	"sort"
	"time"

	"github.com/dmeyer/bridgemail/internal/batch"
	"github.com/dmeyer/bridgemail/internal/imap"
	"github.com/dmeyer/bridgemail/internal/junk"
	"github.com/dmeyer/bridgemail/internal/models"
	"github.com/dmeyer/bridgemail/internal/rules"
	"github.com/dmeyer/bridgemail/internal/unsub"
)

const (
	defaultMailbox     = "INBOX"
	defaultSearchLimit = 10
)

// MailSender submits outbound mail. Satisfied by sender.Sender.
type MailSender interface {
	Send(to, subject, body, inReplyTo string) error
}

// Service composes the protocol components into caller-facing operations.
// All mail-session operations are serialized through the session manager.
type Service struct {
	sessions   *imap.Manager
	executor   *batch.Executor
	classifier *junk.Classifier
	resolver   *unsub.Resolver
	engine     *rules.Engine
	sender     MailSender

	spamFolder string
	now        func() time.Time
}

// NewService wires a service from its components. engine and sender may be
// nil when the corresponding operations are not exposed.
func NewService(sessions *imap.Manager, executor *batch.Executor, classifier *junk.Classifier, resolver *unsub.Resolver, engine *rules.Engine, sender MailSender, spamFolder string) *Service {
	if spamFolder == "" {
		spamFolder = "Spam"
	}
	return &Service{
		sessions:   sessions,
		executor:   executor,
		classifier: classifier,
		resolver:   resolver,
		engine:     engine,
		sender:     sender,
		spamFolder: spamFolder,
		now:        time.Now,
	}
}

// Rules exposes the rule engine for rule CRUD operations.
func (s *Service) Rules() *rules.Engine {
	return s.engine
}

// Close releases the mail session.
func (s *Service) Close() {
	s.sessions.Close()
}

// SearchEmails searches a mailbox and returns up to limit message summaries,
// newest first. Queries support from:/to:/subject: tokens, "unread", and
// free text; empty or "ALL" matches everything.
func (s *Service) SearchEmails(mailbox, query string, limit int) ([]*models.Email, error) {
	return s.search(mailbox, query, time.Time{}, limit, false)
}

// GetRecentEmails returns messages received in the last `days` days.
func (s *Service) GetRecentEmails(mailbox string, days, limit int) ([]*models.Email, error) {
	if days <= 0 {
		days = 7
	}
	since := s.now().AddDate(0, 0, -days)
	return s.search(mailbox, "", since, limit, false)
}

// GetEmailContent fetches one message with its full parsed body and
// attachment metadata. Single-message reads skip the chunked fetch path.
func (s *Service) GetEmailContent(mailbox string, uid uint32) (*models.Email, error) {
	mailbox = s.resolveMailbox(mailbox)

	var email *models.Email
	err := s.sessions.With(mailbox, func(c imap.Client) error {
		messages, fetchErr := imap.FetchMessages(c, []uint32{uid}, true)
		if fetchErr != nil {
			return fetchErr
		}
		if len(messages) == 0 {
			return fmt.Errorf("message %d not found in %s", uid, mailbox)
		}
		var parseErr error
		email, parseErr = imap.ParseMessage(messages[0], mailbox)
		return parseErr
	})
	if err != nil {
		return nil, err
	}
	return email, nil
}

// SendEmail submits a message. replyTo, when set, is the Message-ID header
// of the message being replied to.
func (s *Service) SendEmail(to, subject, body, replyTo string) error {
	if s.sender == nil {
		return fmt.Errorf("outbound mail is not configured")
	}
	return s.sender.Send(to, subject, body, replyTo)
}

// MoveEmail moves one message to the given folder.
func (s *Service) MoveEmail(mailbox string, uid uint32, folder string) (batch.Result, error) {
	return s.runBatch(mailbox, batch.Move(folder), []uint32{uid})
}

// GetMailboxes lists all folders.
func (s *Service) GetMailboxes() ([]string, error) {
	var folders []string
	err := s.sessions.WithClient(func(c imap.Client) error {
		var listErr error
		folders, listErr = imap.ListFolders(c)
		return listErr
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(folders)
	return folders, nil
}

// CreateFolder creates a folder.
func (s *Service) CreateFolder(name string) error {
	return s.sessions.WithClient(func(c imap.Client) error {
		return imap.CreateFolder(c, name)
	})
}

// DeleteFolder deletes a folder.
func (s *Service) DeleteFolder(name string) error {
	return s.sessions.WithClient(func(c imap.Client) error {
		return imap.DeleteFolder(c, name)
	})
}

// search runs a query against a mailbox and returns parsed messages,
// newest first.
func (s *Service) search(mailbox, query string, since time.Time, limit int, withBody bool) ([]*models.Email, error) {
	mailbox = s.resolveMailbox(mailbox)
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	uids, err := s.searchUIDs(mailbox, query, since, limit)
	if err != nil {
		return nil, err
	}
	return s.fetch(mailbox, uids, withBody)
}

func (s *Service) searchUIDs(mailbox, query string, since time.Time, limit int) ([]uint32, error) {
	criteria := imap.BuildSearchCriteria(query, since)

	var uids []uint32
	err := s.sessions.With(mailbox, func(c imap.Client) error {
		var searchErr error
		uids, searchErr = imap.SearchUIDs(c, criteria, limit)
		return searchErr
	})
	if err != nil {
		return nil, err
	}
	return uids, nil
}

// fetch retrieves and parses the given UIDs via the executor's chunked
// fetch path. Result order follows server delivery order within chunks.
func (s *Service) fetch(mailbox string, uids []uint32, withBody bool) ([]*models.Email, error) {
	mailbox = s.resolveMailbox(mailbox)
	if len(uids) == 0 {
		return []*models.Email{}, nil
	}

	var emails []*models.Email
	err := s.sessions.With(mailbox, func(c imap.Client) error {
		messages, fetchErr := s.executor.Fetch(c, uids, withBody)
		if fetchErr != nil {
			return fetchErr
		}
		for _, msg := range messages {
			email, parseErr := imap.ParseMessage(msg, mailbox)
			if parseErr != nil {
				continue
			}
			emails = append(emails, email)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return emails, nil
}

// runBatch applies one bulk operation against a mailbox through the
// executor, holding the session for the whole run. A connection-class
// failure propagates to the session manager, which invalidates the dead
// session and retries the run once on a fresh connection.
func (s *Service) runBatch(mailbox string, op batch.Operation, uids []uint32) (batch.Result, error) {
	mailbox = s.resolveMailbox(mailbox)

	var result batch.Result
	err := s.sessions.With(mailbox, func(c imap.Client) error {
		var runErr error
		result, runErr = s.executor.Run(c, op, uids)
		return runErr
	})
	if err != nil {
		return batch.Result{}, err
	}
	return result, nil
}

func (s *Service) resolveMailbox(mailbox string) string {
	if mailbox == "" {
		return defaultMailbox
	}
	return mailbox
}
