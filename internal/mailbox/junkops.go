package mailbox

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dmeyer/bridgemail/internal/batch"
	"github.com/dmeyer/bridgemail/internal/junk"
	"github.com/dmeyer/bridgemail/internal/models"
)

// JunkFilterResult is the outcome of a junk-filter pass over a mailbox.
type JunkFilterResult struct {
	Scanned  int             `json:"scanned"`
	Flagged  []junk.Analysis `json:"flagged,omitempty"`
	Action   string          `json:"action"`
	Moved    *batch.Result   `json:"moved,omitempty"`
	ToFolder string          `json:"to_folder,omitempty"`
}

// FilterJunk scores up to limit recent messages. With action "analyze" it
// only reports the flagged ones; with "move_to_spam" every flagged message
// is moved to the spam folder in a single batch operation.
func (s *Service) FilterJunk(mailbox string, limit int, action string) (*JunkFilterResult, error) {
	switch action {
	case "", "analyze":
		action = "analyze"
	case "move_to_spam":
	default:
		return nil, fmt.Errorf("unknown junk filter action %q (want analyze or move_to_spam)", action)
	}

	emails, err := s.search(mailbox, "", time.Time{}, limit, true)
	if err != nil {
		return nil, err
	}

	result := &JunkFilterResult{Scanned: len(emails), Action: action}
	var flaggedUIDs []uint32
	for _, email := range emails {
		analysis := s.classifier.Score(email)
		if analysis.LikelyJunk {
			result.Flagged = append(result.Flagged, analysis)
			flaggedUIDs = append(flaggedUIDs, email.UID)
		}
	}

	if action == "move_to_spam" && len(flaggedUIDs) > 0 {
		moved, err := s.runBatch(mailbox, batch.Move(s.spamFolder), flaggedUIDs)
		if err != nil {
			return nil, err
		}
		result.Moved = &moved
		result.ToFolder = s.spamFolder
	}

	return result, nil
}

// AnalyzeEmail scores a single message.
func (s *Service) AnalyzeEmail(mailbox string, uid uint32) (junk.Analysis, error) {
	email, err := s.GetEmailContent(mailbox, uid)
	if err != nil {
		return junk.Analysis{}, err
	}
	return s.classifier.Score(email), nil
}

// SearchFiltered searches like SearchEmails but, with excludeJunk set,
// drops likely-junk results. It over-fetches twice the limit so the
// post-filter result can still fill the requested page.
func (s *Service) SearchFiltered(mailbox, query string, limit int, excludeJunk bool) ([]*models.Email, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if !excludeJunk {
		return s.search(mailbox, query, time.Time{}, limit, false)
	}

	emails, err := s.search(mailbox, query, time.Time{}, limit*2, true)
	if err != nil {
		return nil, err
	}

	filtered := make([]*models.Email, 0, limit)
	for _, email := range emails {
		if s.classifier.Score(email).LikelyJunk {
			continue
		}
		filtered = append(filtered, email)
		if len(filtered) == limit {
			break
		}
	}
	return filtered, nil
}

// MailingListSender aggregates the messages one address sent over a window.
type MailingListSender struct {
	Address        string `json:"address"`
	EmailCount     int    `json:"email_count"`
	LatestSubject  string `json:"latest_subject"`
	LooksAutomated bool   `json:"looks_automated"`
}

// automatedAddressHints mark addresses that are almost certainly list or
// campaign senders regardless of volume.
var automatedAddressHints = []string{"newsletter", "noreply", "no-reply", "marketing", "updates", "notifications"}

// MailingListSenders aggregates recent messages by sender address and
// returns the senders whose volume meets minEmails, or whose address looks
// automated, sorted by volume descending.
func (s *Service) MailingListSenders(mailbox string, days, minEmails, limit int) ([]MailingListSender, error) {
	if minEmails <= 0 {
		minEmails = 3
	}
	if limit <= 0 {
		limit = 200
	}

	emails, err := s.GetRecentEmails(mailbox, days, limit)
	if err != nil {
		return nil, err
	}

	byAddress := make(map[string]*MailingListSender)
	for _, email := range emails {
		address := strings.ToLower(email.BareFromAddress())
		if address == "" {
			continue
		}
		entry, ok := byAddress[address]
		if !ok {
			entry = &MailingListSender{
				Address:        address,
				LooksAutomated: looksAutomated(address),
			}
			byAddress[address] = entry
		}
		entry.EmailCount++
		// Results arrive newest first, so keep the first subject seen.
		if entry.LatestSubject == "" {
			entry.LatestSubject = email.Subject
		}
	}

	var senders []MailingListSender
	for _, entry := range byAddress {
		if entry.EmailCount >= minEmails || entry.LooksAutomated {
			senders = append(senders, *entry)
		}
	}
	sort.Slice(senders, func(i, j int) bool {
		if senders[i].EmailCount != senders[j].EmailCount {
			return senders[i].EmailCount > senders[j].EmailCount
		}
		return senders[i].Address < senders[j].Address
	})

	return senders, nil
}

func looksAutomated(address string) bool {
	local := address
	if i := strings.IndexByte(address, '@'); i >= 0 {
		local = address[:i]
	}
	for _, hint := range automatedAddressHints {
		if strings.Contains(local, hint) {
			return true
		}
	}
	return false
}
