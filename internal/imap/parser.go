package imap

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/emersion/go-imap"
	"github.com/jhillyerd/enmime"

	"github.com/dmeyer/bridgemail/internal/models"
)

const previewLength = 500

// ParseMessage converts an IMAP message to our Email model. The body is
// parsed only when the fetch included it.
func ParseMessage(imapMsg *imap.Message, mailbox string) (*models.Email, error) {
	if imapMsg == nil {
		return nil, fmt.Errorf("imap message is nil")
	}

	isRead := false
	isImportant := false
	for _, flag := range imapMsg.Flags {
		if flag == imap.SeenFlag {
			isRead = true
		}
		if flag == imap.FlaggedFlag {
			isImportant = true
		}
	}

	email := &models.Email{
		UID:         imapMsg.Uid,
		Mailbox:     mailbox,
		IsRead:      isRead,
		IsImportant: isImportant,
	}

	if imapMsg.Envelope != nil {
		if len(imapMsg.Envelope.From) > 0 {
			email.FromAddress = formatAddress(imapMsg.Envelope.From[0])
		}
		email.ToAddresses = formatAddressList(imapMsg.Envelope.To)
		email.Subject = imapMsg.Envelope.Subject
		if !imapMsg.Envelope.Date.IsZero() {
			date := imapMsg.Envelope.Date
			email.SentAt = &date
		}
		if len(imapMsg.Envelope.MessageId) > 0 {
			email.MessageIDHeader = imapMsg.Envelope.MessageId
		}
	}

	section := &imap.BodySectionName{}
	if bodyReader := imapMsg.GetBody(section); bodyReader != nil {
		if err := parseBody(bodyReader, email); err != nil {
			// Keep the headers even when the body fails to parse.
			_ = err
		}
	}

	email.Preview = makePreview(email.BodyText)

	return email, nil
}

// parseBody parses the email body using enmime.
func parseBody(bodyReader io.Reader, email *models.Email) error {
	envelope, err := enmime.ReadEnvelope(bodyReader)
	if err != nil {
		return fmt.Errorf("failed to parse email body: %w", err)
	}

	email.BodyText = envelope.Text
	email.UnsafeBodyHTML = envelope.HTML
	email.ListUnsubscribe = envelope.GetHeader("List-Unsubscribe")
	email.ListUnsubscribePost = envelope.GetHeader("List-Unsubscribe-Post")

	for _, part := range envelope.Attachments {
		attachment := models.Attachment{
			Filename:  part.FileName,
			MimeType:  part.ContentType,
			SizeBytes: int64(len(part.Content)),
			IsInline:  false,
		}

		if part.ContentID != "" {
			attachment.ContentID = part.ContentID
			attachment.IsInline = true
		}

		email.Attachments = append(email.Attachments, attachment)
	}

	return nil
}

// makePreview truncates body text for list views. The cut backs up to a
// rune boundary so the preview stays valid UTF-8.
func makePreview(text string) string {
	text = strings.TrimSpace(text)
	if len(text) <= previewLength {
		return text
	}
	cut := previewLength
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}

// formatAddress formats an IMAP address to a string.
func formatAddress(address *imap.Address) string {
	if address == nil {
		return ""
	}

	if address.MailboxName == "" && address.HostName == "" {
		return ""
	}

	if address.PersonalName != "" {
		return fmt.Sprintf("%s <%s@%s>", address.PersonalName, address.MailboxName, address.HostName)
	}

	return fmt.Sprintf("%s@%s", address.MailboxName, address.HostName)
}

// formatAddressList formats a list of IMAP addresses.
func formatAddressList(addresses []*imap.Address) []string {
	result := make([]string, 0, len(addresses))
	for _, address := range addresses {
		formatted := formatAddress(address)
		if formatted != "" {
			result = append(result, formatted)
		}
	}
	return result
}
