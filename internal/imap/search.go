package imap

import (
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-imap"
)

// BuildSearchCriteria translates a user query into IMAP search criteria.
//
// Supported tokens: `from:<addr>`, `to:<addr>`, `subject:<text>`,
// `unread`, and free text (matched against the whole message). "ALL" or an
// empty query matches everything. A non-zero since restricts to messages
// received on or after that date.
func BuildSearchCriteria(query string, since time.Time) *imap.SearchCriteria {
	criteria := imap.NewSearchCriteria()

	if !since.IsZero() {
		criteria.Since = since
	}

	query = strings.TrimSpace(query)
	if query == "" || strings.EqualFold(query, "ALL") {
		return criteria
	}

	var freeText []string
	for _, token := range strings.Fields(query) {
		lower := strings.ToLower(token)
		switch {
		case strings.HasPrefix(lower, "from:"):
			criteria.Header.Add("From", token[len("from:"):])
		case strings.HasPrefix(lower, "to:"):
			criteria.Header.Add("To", token[len("to:"):])
		case strings.HasPrefix(lower, "subject:"):
			criteria.Header.Add("Subject", token[len("subject:"):])
		case lower == "unread":
			criteria.WithoutFlags = append(criteria.WithoutFlags, imap.SeenFlag)
		default:
			freeText = append(freeText, token)
		}
	}
	if len(freeText) > 0 {
		criteria.Text = []string{strings.Join(freeText, " ")}
	}

	return criteria
}

// SearchUIDs runs a UID search and returns the most recent `limit` UIDs,
// newest first. A limit of 0 returns everything.
func SearchUIDs(c Client, criteria *imap.SearchCriteria, limit int) ([]uint32, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}

	uids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	// Servers return UIDs in mailbox order; take the tail and reverse it so
	// the newest message comes first.
	if limit > 0 && len(uids) > limit {
		uids = uids[len(uids)-limit:]
	}
	reversed := make([]uint32, 0, len(uids))
	for i := len(uids) - 1; i >= 0; i-- {
		reversed = append(reversed, uids[i])
	}

	return reversed, nil
}
