package imap

import (
	"fmt"

	"github.com/emersion/go-imap"
)

// FetchMessages fetches the given UIDs in one round-trip. When withBody is
// true the full RFC 822 body is included so callers can parse MIME parts.
func FetchMessages(c Client, uids []uint32, withBody bool) ([]*imap.Message, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}

	if len(uids) == 0 {
		return []*imap.Message{}, nil
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	items := []imap.FetchItem{
		imap.FetchEnvelope,
		imap.FetchFlags,
		imap.FetchUid,
	}
	if withBody {
		section := &imap.BodySectionName{Peek: true}
		items = append(items, section.FetchItem())
	}

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)

	go func() {
		done <- c.UidFetch(seqSet, items, messages)
	}()

	var result []*imap.Message
	for msg := range messages {
		result = append(result, msg)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	return result, nil
}
