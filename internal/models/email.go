package models

import (
	"strings"
	"time"
)

// Email is a single message as seen through the bridge. UIDs are scoped to the
// mailbox the message was fetched from and must not be reused after the
// selected mailbox changes.
type Email struct {
	UID                 uint32       `json:"id"`
	Mailbox             string       `json:"mailbox"`
	MessageIDHeader     string       `json:"message_id_header,omitempty"`
	Subject             string       `json:"subject"`
	FromAddress         string       `json:"from"`
	ToAddresses         []string     `json:"to,omitempty"`
	SentAt              *time.Time   `json:"date,omitempty"`
	IsRead              bool         `json:"is_read"`
	IsImportant         bool         `json:"is_important"`
	BodyText            string       `json:"body_text,omitempty"`
	UnsafeBodyHTML      string       `json:"body_html,omitempty"`
	Preview             string       `json:"preview,omitempty"`
	ListUnsubscribe     string       `json:"list_unsubscribe,omitempty"`
	ListUnsubscribePost string       `json:"list_unsubscribe_post,omitempty"`
	Attachments         []Attachment `json:"attachments,omitempty"`
}

type Attachment struct {
	Filename  string `json:"filename"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
	IsInline  bool   `json:"is_inline"`
	ContentID string `json:"content_id,omitempty"`
}

// BareFromAddress returns the sender address without a display name,
// e.g. "user@host" for `Jane Doe <user@host>`.
func (e *Email) BareFromAddress() string {
	addr := e.FromAddress
	if i := strings.LastIndexByte(addr, '<'); i >= 0 {
		addr = addr[i+1:]
		if j := strings.IndexByte(addr, '>'); j >= 0 {
			addr = addr[:j]
		}
	}
	return strings.TrimSpace(addr)
}

// SenderDomain returns the domain portion of the sender address, lowercased,
// or "" when the address has no host part.
func (e *Email) SenderDomain() string {
	addr := e.BareFromAddress()
	if i := strings.LastIndexByte(addr, '@'); i >= 0 {
		return strings.ToLower(addr[i+1:])
	}
	return ""
}
