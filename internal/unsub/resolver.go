// Package unsub extracts unsubscribe methods from a message's headers and
// body and executes the chosen method over HTTP (or SMTP for mailto).
package unsub

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/dmeyer/bridgemail/internal/models"
)

// MethodType tags the transport of an unsubscribe method.
type MethodType string

const (
	MethodMailto       MethodType = "mailto"
	MethodHTTPGet      MethodType = "http-get"
	MethodHTTPOneClick MethodType = "http-post-one-click"
)

// oneClickToken is the exact List-Unsubscribe-Post value required by RFC 8058.
const oneClickToken = "List-Unsubscribe=One-Click"

// Method is one way to unsubscribe from the sender of a message.
type Method struct {
	Type   MethodType `json:"type"`
	Target string     `json:"target"`
	Source string     `json:"source"`
}

// OneClick reports whether the method uses the RFC 8058 one-click POST.
func (m Method) OneClick() bool { return m.Type == MethodHTTPOneClick }

// Discovery is the full set of methods found in one message.
type Discovery struct {
	EmailUID    uint32   `json:"email_id"`
	Subject     string   `json:"subject"`
	From        string   `json:"from"`
	Methods     []Method `json:"unsubscribe_methods"`
	HasOneClick bool     `json:"has_one_click"`
}

var (
	headerEntryRe = regexp.MustCompile(`<([^>]+)>`)
	htmlAnchorRe  = regexp.MustCompile(`(?is)<a[^>]*href=["']([^"']+)["'][^>]*>(.*?)</a>`)
	textURLRe     = regexp.MustCompile(`https?://[^\s<>"\]]+`)
)

var unsubscribeKeywords = []string{"unsubscribe", "opt-out", "optout", "opt out", "remove"}

// FindMethods extracts every unsubscribe method advertised by a message:
// the List-Unsubscribe header (RFC 2369), one-click eligibility
// (List-Unsubscribe-Post, RFC 8058), HTML anchors whose text or href
// mentions unsubscribing, and plain-text URLs near an unsubscribe keyword.
// Methods are deduplicated by normalized target.
func FindMethods(email *models.Email) Discovery {
	discovery := Discovery{
		EmailUID: email.UID,
		Subject:  email.Subject,
		From:     email.FromAddress,
	}

	oneClick := strings.TrimSpace(email.ListUnsubscribePost) == oneClickToken

	var methods []Method
	methods = append(methods, headerMethods(email.ListUnsubscribe, oneClick)...)
	methods = append(methods, htmlBodyMethods(email.UnsafeBodyHTML)...)
	methods = append(methods, textBodyMethods(email.BodyText)...)

	discovery.Methods = dedupeMethods(methods)
	for _, m := range discovery.Methods {
		if m.OneClick() {
			discovery.HasOneClick = true
		}
	}

	return discovery
}

// headerMethods parses the comma-separated angle-bracketed URIs of a
// List-Unsubscribe header. Only mailto: and http(s): schemes are accepted.
func headerMethods(header string, oneClick bool) []Method {
	var methods []Method
	for _, match := range headerEntryRe.FindAllStringSubmatch(header, -1) {
		target := strings.TrimSpace(match[1])
		switch {
		case strings.HasPrefix(strings.ToLower(target), "mailto:"):
			methods = append(methods, Method{
				Type:   MethodMailto,
				Target: target[len("mailto:"):],
				Source: "list-unsubscribe-header",
			})
		case strings.HasPrefix(strings.ToLower(target), "http://"),
			strings.HasPrefix(strings.ToLower(target), "https://"):
			methodType := MethodHTTPGet
			if oneClick {
				methodType = MethodHTTPOneClick
			}
			methods = append(methods, Method{
				Type:   methodType,
				Target: target,
				Source: "list-unsubscribe-header",
			})
		}
	}
	return methods
}

// htmlBodyMethods scans HTML anchors whose href or link text contains an
// unsubscribe keyword.
func htmlBodyMethods(html string) []Method {
	var methods []Method
	for _, match := range htmlAnchorRe.FindAllStringSubmatch(html, -1) {
		href, text := match[1], match[2]
		if !containsKeyword(href) && !containsKeyword(text) {
			continue
		}
		if !strings.HasPrefix(strings.ToLower(href), "http") {
			continue
		}
		methods = append(methods, Method{
			Type:   MethodHTTPGet,
			Target: href,
			Source: "html-body",
		})
	}
	return methods
}

// textBodyMethods scans plain text for URLs on or near a line mentioning an
// unsubscribe keyword.
func textBodyMethods(text string) []Method {
	var methods []Method
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		urls := textURLRe.FindAllString(line, -1)
		for _, u := range urls {
			near := containsKeyword(line)
			if !near && i > 0 {
				near = containsKeyword(lines[i-1])
			}
			if !near && i+1 < len(lines) {
				near = containsKeyword(lines[i+1])
			}
			if !near && !containsKeyword(u) {
				continue
			}
			methods = append(methods, Method{
				Type:   MethodHTTPGet,
				Target: strings.TrimRight(u, ".,)"),
				Source: "text-body",
			})
		}
	}
	return methods
}

func containsKeyword(s string) bool {
	lower := strings.ToLower(s)
	for _, kw := range unsubscribeKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// dedupeMethods removes duplicate targets, keeping the first occurrence.
// Header-derived methods come first, so they win over body-derived ones.
func dedupeMethods(methods []Method) []Method {
	seen := make(map[string]struct{}, len(methods))
	out := make([]Method, 0, len(methods))
	for _, m := range methods {
		// One-click and plain GET on the same URL are the same target.
		key := "http|" + normalizeTarget(m)
		if m.Type == MethodMailto {
			key = "mailto|" + normalizeTarget(m)
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, m)
	}
	return out
}

// normalizeTarget reduces a target to scheme+host+path plus sorted query
// keys so the same endpoint with reordered parameters deduplicates.
func normalizeTarget(m Method) string {
	if m.Type == MethodMailto {
		return strings.ToLower(m.Target)
	}

	u, err := url.Parse(m.Target)
	if err != nil {
		return m.Target
	}

	query := u.Query()
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(strings.ToLower(u.Scheme))
	b.WriteString("://")
	b.WriteString(strings.ToLower(u.Host))
	b.WriteString(u.Path)
	for _, k := range keys {
		b.WriteString("&")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(strings.Join(query[k], ","))
	}
	return b.String()
}
