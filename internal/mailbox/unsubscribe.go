package mailbox

import (
	"context"
	"log"

	"github.com/dmeyer/bridgemail/internal/unsub"
)

// FindUnsubscribeLinks discovers every unsubscribe method a message
// advertises, deduplicated by target.
func (s *Service) FindUnsubscribeLinks(mailbox string, uid uint32) (unsub.Discovery, error) {
	email, err := s.GetEmailContent(mailbox, uid)
	if err != nil {
		return unsub.Discovery{}, err
	}
	return unsub.FindMethods(email), nil
}

// UnsubscribeResult reports one unsubscribe attempt against a message.
type UnsubscribeResult struct {
	EmailUID uint32                 `json:"email_id"`
	From     string                 `json:"from"`
	Subject  string                 `json:"subject"`
	Attempt  *unsub.ExecutionResult `json:"attempt,omitempty"`
	Detail   string                 `json:"detail,omitempty"`
}

// Unsubscribe executes the best unsubscribe method a message advertises:
// one-click POST when available, then plain HTTP, then mailto. Without
// confirm it runs as a dry run: the method is validated but no request or
// message is sent.
func (s *Service) Unsubscribe(ctx context.Context, mailbox string, uid uint32, confirm bool) (UnsubscribeResult, error) {
	discovery, err := s.FindUnsubscribeLinks(mailbox, uid)
	if err != nil {
		return UnsubscribeResult{}, err
	}

	result := UnsubscribeResult{
		EmailUID: discovery.EmailUID,
		From:     discovery.From,
		Subject:  discovery.Subject,
	}

	method, ok := pickMethod(discovery.Methods)
	if !ok {
		result.Detail = "no unsubscribe method found"
		return result, nil
	}

	attempt := s.resolver.Execute(ctx, method, !confirm)
	result.Attempt = &attempt
	if !confirm {
		result.Detail = "dry run: pass confirm=true to execute"
	}
	return result, nil
}

// pickMethod prefers the RFC 8058 one-click POST, then a plain HTTP GET,
// then mailto.
func pickMethod(methods []unsub.Method) (unsub.Method, bool) {
	for _, wanted := range []unsub.MethodType{unsub.MethodHTTPOneClick, unsub.MethodHTTPGet, unsub.MethodMailto} {
		for _, m := range methods {
			if m.Type == wanted {
				return m, true
			}
		}
	}
	return unsub.Method{}, false
}

// BulkFindUnsubscribe scans recent messages and reports every one that
// advertises at least one unsubscribe method. Discovery only: nothing is
// executed.
func (s *Service) BulkFindUnsubscribe(mailbox string, days, limit int) ([]unsub.Discovery, error) {
	if days <= 0 {
		days = 30
	}
	if limit <= 0 {
		limit = 50
	}
	since := s.now().AddDate(0, 0, -days)
	emails, err := s.search(mailbox, "", since, limit, true)
	if err != nil {
		return nil, err
	}

	var discoveries []unsub.Discovery
	for _, email := range emails {
		discovery := unsub.FindMethods(email)
		if len(discovery.Methods) == 0 {
			continue
		}
		discoveries = append(discoveries, discovery)
	}
	log.Printf("Unsubscribe: scanned %d messages, %d advertise unsubscribe methods", len(emails), len(discoveries))
	return discoveries, nil
}
