package unsub

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Status is the outcome of one unsubscribe attempt.
type Status string

const (
	// StatusConfirmed means the request succeeded and the response body
	// contained confirmation language.
	StatusConfirmed Status = "confirmed"
	// StatusSent means the request succeeded but no confirmation language
	// was recognized.
	StatusSent Status = "sent"
	// StatusFailed means the request timed out, errored, or returned a
	// non-success status.
	StatusFailed Status = "failed"
	// StatusSkipped means a dry run validated the method without issuing
	// any network request.
	StatusSkipped Status = "skipped"
)

// ExecutionResult reports one unsubscribe attempt. Failures are reported,
// never raised: a failed attempt must not abort a bulk scan.
type ExecutionResult struct {
	Method     Method `json:"method"`
	Status     Status `json:"status"`
	Detail     string `json:"detail,omitempty"`
	HTTPStatus int    `json:"http_status,omitempty"`
}

// MailSender submits a plain message; used for mailto unsubscribe targets.
type MailSender interface {
	Send(to, subject, body, inReplyTo string) error
}

// confirmationPhrases are scanned in response bodies to distinguish a
// confirmed unsubscribe from a bare accepted request.
var confirmationPhrases = []string{
	"unsubscribed",
	"removed",
	"opted out",
	"no longer receive",
	"successfully unsubscribed",
	"email address has been removed",
}

// browser-like headers; some unsubscribe endpoints reject obvious bots.
var requestHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.5",
}

const (
	defaultTimeout  = 10 * time.Second
	maxResponseScan = 64 * 1024
)

// Resolver executes unsubscribe methods. HTTP calls are bounded by Timeout;
// Delay spaces consecutive executions so bulk runs do not hammer targets.
type Resolver struct {
	Client  *http.Client
	Sender  MailSender
	Timeout time.Duration
	Delay   time.Duration
}

// NewResolver creates a resolver with the default timeout. sender may be nil,
// in which case mailto methods fail with an explanatory detail.
func NewResolver(sender MailSender) *Resolver {
	return &Resolver{
		Client:  &http.Client{Timeout: defaultTimeout},
		Sender:  sender,
		Timeout: defaultTimeout,
		Delay:   time.Second,
	}
}

// Execute performs one unsubscribe attempt. With dryRun set it validates the
// target and returns StatusSkipped without any network traffic.
func (r *Resolver) Execute(ctx context.Context, method Method, dryRun bool) ExecutionResult {
	result := ExecutionResult{Method: method}

	switch method.Type {
	case MethodMailto:
		return r.executeMailto(method, dryRun)
	case MethodHTTPGet, MethodHTTPOneClick:
		if _, err := url.ParseRequestURI(method.Target); err != nil {
			result.Status = StatusFailed
			result.Detail = fmt.Sprintf("malformed unsubscribe URL: %v", err)
			return result
		}
		if dryRun {
			result.Status = StatusSkipped
			result.Detail = "dry run: request not sent"
			return result
		}
		return r.executeHTTP(ctx, method)
	default:
		result.Status = StatusFailed
		result.Detail = fmt.Sprintf("unsupported unsubscribe method type %q", method.Type)
		return result
	}
}

func (r *Resolver) executeMailto(method Method, dryRun bool) ExecutionResult {
	result := ExecutionResult{Method: method}

	address := method.Target
	subject := "unsubscribe"
	// mailto targets may carry an explicit subject, e.g. ?subject=unsubscribe.
	if i := strings.IndexByte(address, '?'); i >= 0 {
		if params, err := url.ParseQuery(address[i+1:]); err == nil {
			if s := params.Get("subject"); s != "" {
				subject = s
			}
		}
		address = address[:i]
	}
	if address == "" || !strings.Contains(address, "@") {
		result.Status = StatusFailed
		result.Detail = fmt.Sprintf("malformed mailto address %q", method.Target)
		return result
	}

	if dryRun {
		result.Status = StatusSkipped
		result.Detail = "dry run: unsubscribe email not sent"
		return result
	}

	if r.Sender == nil {
		result.Status = StatusFailed
		result.Detail = "mailto unsubscribe requires an outbound mail sender"
		return result
	}

	if err := r.Sender.Send(address, subject, "Please unsubscribe me from this mailing list.", ""); err != nil {
		result.Status = StatusFailed
		result.Detail = fmt.Sprintf("failed to send unsubscribe email: %v", err)
		return result
	}

	result.Status = StatusSent
	result.Detail = fmt.Sprintf("unsubscribe email sent to %s", address)
	return result
}

func (r *Resolver) executeHTTP(ctx context.Context, method Method) ExecutionResult {
	result := ExecutionResult{Method: method}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var req *http.Request
	var err error
	if method.OneClick() {
		// RFC 8058: POST with the fixed header and form body token.
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, method.Target, strings.NewReader(oneClickToken))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			req.Header.Set("List-Unsubscribe", "One-Click")
		}
	} else {
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, method.Target, nil)
	}
	if err != nil {
		result.Status = StatusFailed
		result.Detail = fmt.Sprintf("failed to build request: %v", err)
		return result
	}
	for k, v := range requestHeaders {
		req.Header.Set(k, v)
	}

	client := r.Client
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	resp, err := client.Do(req)
	if err != nil {
		result.Status = StatusFailed
		result.Detail = fmt.Sprintf("request failed: %v", err)
		return result
	}
	defer func() { _ = resp.Body.Close() }()

	result.HTTPStatus = resp.StatusCode
	if !isSuccessStatus(resp.StatusCode) {
		result.Status = StatusFailed
		result.Detail = fmt.Sprintf("unsubscribe request failed with HTTP %d", resp.StatusCode)
		return result
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseScan))
	if containsConfirmation(string(body)) {
		result.Status = StatusConfirmed
		result.Detail = fmt.Sprintf("unsubscribe confirmed (HTTP %d)", resp.StatusCode)
		return result
	}

	result.Status = StatusSent
	result.Detail = fmt.Sprintf("unsubscribe request accepted (HTTP %d)", resp.StatusCode)
	return result
}

func isSuccessStatus(code int) bool {
	switch code {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted, http.StatusNoContent:
		return true
	}
	return false
}

func containsConfirmation(body string) bool {
	lower := strings.ToLower(body)
	for _, phrase := range confirmationPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// Pause sleeps the configured inter-request delay. Bulk callers invoke it
// between executions.
func (r *Resolver) Pause() {
	if r.Delay > 0 {
		time.Sleep(r.Delay)
	}
}
