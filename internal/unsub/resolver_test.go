package unsub

import (
	"testing"

	"github.com/dmeyer/bridgemail/internal/models"
)

func TestFindMethodsHeader(t *testing.T) {
	t.Run("mailto and http entries give two deduplicated methods", func(t *testing.T) {
		email := &models.Email{
			UID:             1,
			Subject:         "Weekly digest",
			FromAddress:     "news@example.com",
			ListUnsubscribe: "<mailto:x@y.com>, <https://y.com/u?id=1>",
		}

		discovery := FindMethods(email)

		if len(discovery.Methods) != 2 {
			t.Fatalf("expected 2 methods, got %d: %v", len(discovery.Methods), discovery.Methods)
		}
		if discovery.Methods[0].Type != MethodMailto || discovery.Methods[0].Target != "x@y.com" {
			t.Errorf("unexpected mailto method: %+v", discovery.Methods[0])
		}
		if discovery.Methods[1].Type != MethodHTTPGet || discovery.Methods[1].Target != "https://y.com/u?id=1" {
			t.Errorf("unexpected http method: %+v", discovery.Methods[1])
		}
		if discovery.HasOneClick {
			t.Error("no one-click expected without List-Unsubscribe-Post")
		}
	})

	t.Run("one-click upgrade requires the exact token", func(t *testing.T) {
		email := &models.Email{
			ListUnsubscribe:     "<https://y.com/u>",
			ListUnsubscribePost: "List-Unsubscribe=One-Click",
		}
		discovery := FindMethods(email)
		if len(discovery.Methods) != 1 || discovery.Methods[0].Type != MethodHTTPOneClick {
			t.Errorf("expected one-click method, got %v", discovery.Methods)
		}
		if !discovery.HasOneClick {
			t.Error("expected HasOneClick")
		}

		email.ListUnsubscribePost = "something-else"
		discovery = FindMethods(email)
		if discovery.Methods[0].Type != MethodHTTPGet {
			t.Errorf("expected plain http method for wrong token, got %v", discovery.Methods[0].Type)
		}
	})

	t.Run("ignores unsupported schemes", func(t *testing.T) {
		email := &models.Email{ListUnsubscribe: "<ftp://y.com/u>, <tel:+15551234>"}
		discovery := FindMethods(email)
		if len(discovery.Methods) != 0 {
			t.Errorf("expected no methods, got %v", discovery.Methods)
		}
	})
}

func TestFindMethodsBody(t *testing.T) {
	t.Run("html anchor with unsubscribe text", func(t *testing.T) {
		email := &models.Email{
			UnsafeBodyHTML: `<p>Tired of these?</p><a href="https://news.example.com/leave?u=42">Unsubscribe here</a>`,
		}
		discovery := FindMethods(email)
		if len(discovery.Methods) != 1 {
			t.Fatalf("expected 1 method, got %v", discovery.Methods)
		}
		if discovery.Methods[0].Source != "html-body" {
			t.Errorf("expected html-body source, got %s", discovery.Methods[0].Source)
		}
	})

	t.Run("plain text url near keyword line", func(t *testing.T) {
		email := &models.Email{
			BodyText: "To opt out of future mailings visit:\nhttps://news.example.com/optout?u=42\nThanks",
		}
		discovery := FindMethods(email)
		if len(discovery.Methods) != 1 {
			t.Fatalf("expected 1 method, got %v", discovery.Methods)
		}
		if discovery.Methods[0].Source != "text-body" {
			t.Errorf("expected text-body source, got %s", discovery.Methods[0].Source)
		}
	})

	t.Run("unrelated urls are ignored", func(t *testing.T) {
		email := &models.Email{
			BodyText: "Read the announcement:\nhttps://news.example.com/blog/post-1\nCheers",
		}
		discovery := FindMethods(email)
		if len(discovery.Methods) != 0 {
			t.Errorf("expected no methods, got %v", discovery.Methods)
		}
	})
}

func TestFindMethodsDedupe(t *testing.T) {
	t.Run("header wins over body duplicate", func(t *testing.T) {
		email := &models.Email{
			ListUnsubscribe: "<https://y.com/u?a=1&b=2>",
			UnsafeBodyHTML:  `<a href="https://y.com/u?b=2&a=1">unsubscribe</a>`,
		}
		discovery := FindMethods(email)
		if len(discovery.Methods) != 1 {
			t.Fatalf("expected reordered query params to deduplicate, got %v", discovery.Methods)
		}
		if discovery.Methods[0].Source != "list-unsubscribe-header" {
			t.Errorf("expected header source to win, got %s", discovery.Methods[0].Source)
		}
	})

	t.Run("different paths stay distinct", func(t *testing.T) {
		email := &models.Email{
			ListUnsubscribe: "<https://y.com/u1>, <https://y.com/u2>",
		}
		discovery := FindMethods(email)
		if len(discovery.Methods) != 2 {
			t.Errorf("expected 2 methods, got %v", discovery.Methods)
		}
	})
}
