// Package sender submits outbound mail through the bridge's SMTP endpoint.
package sender

import (
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

// Sender submits RFC 5322 messages over SMTP with SASL PLAIN auth.
type Sender struct {
	address  string
	username string
	password string
	from     string

	// submit is swappable for tests.
	submit func(addr string, auth sasl.Client, from string, to []string, r *strings.Reader) error
	now    func() time.Time
}

// New creates a sender for the given SMTP endpoint and account.
func New(address, username, password, from string) *Sender {
	return &Sender{
		address:  address,
		username: username,
		password: password,
		from:     from,
		submit: func(addr string, auth sasl.Client, from string, to []string, r *strings.Reader) error {
			return smtp.SendMail(addr, auth, from, to, r)
		},
		now: time.Now,
	}
}

// Send builds a plain-text message and submits it. inReplyTo, when set, is
// the Message-ID header of the message being replied to.
func (s *Sender) Send(to, subject, body, inReplyTo string) error {
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("recipient is required")
	}

	recipients := splitRecipients(to)
	msg := s.buildMessage(recipients, subject, body, inReplyTo)

	auth := sasl.NewPlainClient("", s.username, s.password)
	if err := s.submit(s.address, auth, s.from, recipients, strings.NewReader(msg)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

// buildMessage assembles an RFC 5322 plain-text message.
func (s *Sender) buildMessage(to []string, subject, body, inReplyTo string) string {
	headers := []string{
		fmt.Sprintf("From: %s", s.from),
		fmt.Sprintf("To: %s", strings.Join(to, ", ")),
		fmt.Sprintf("Subject: %s", sanitizeHeader(subject)),
		fmt.Sprintf("Date: %s", s.now().Format(time.RFC1123Z)),
		fmt.Sprintf("Message-ID: <%d.bridgemail@%s>", s.now().UnixNano(), hostPart(s.from)),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
	}

	if inReplyTo = normalizeMessageID(inReplyTo); inReplyTo != "" {
		headers = append(headers,
			fmt.Sprintf("In-Reply-To: %s", inReplyTo),
			fmt.Sprintf("References: %s", inReplyTo),
		)
	}

	return strings.Join(headers, "\r\n") + "\r\n\r\n" + normalizeBody(body) + "\r\n"
}

func splitRecipients(to string) []string {
	parts := strings.Split(to, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// sanitizeHeader strips CR/LF so user input cannot inject extra headers.
func sanitizeHeader(value string) string {
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.ReplaceAll(value, "\n", " ")
	return strings.TrimSpace(value)
}

func normalizeBody(body string) string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	return strings.ReplaceAll(body, "\n", "\r\n")
}

func normalizeMessageID(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if !strings.HasPrefix(value, "<") {
		value = "<" + value
	}
	if !strings.HasSuffix(value, ">") {
		value += ">"
	}
	return value
}

func hostPart(address string) string {
	if i := strings.LastIndexByte(address, '@'); i >= 0 {
		return address[i+1:]
	}
	return "localhost"
}
