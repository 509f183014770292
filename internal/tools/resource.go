package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dmeyer/bridgemail/internal/mailbox"
)

const inboxSummaryURI = "inbox://summary"

// inboxSummary is the payload of the inbox://summary resource.
type inboxSummary struct {
	Mailbox     string         `json:"mailbox"`
	RecentCount int            `json:"recent_count"`
	UnreadCount int            `json:"unread_count"`
	Recent      []summaryEntry `json:"recent"`
}

type summaryEntry struct {
	ID      uint32 `json:"id"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	IsRead  bool   `json:"is_read"`
}

// registerInboxResource exposes a lightweight inbox overview as an MCP
// resource: the last week's messages with read state, no bodies.
func registerInboxResource(s *server.MCPServer, svc *mailbox.Service) {
	resource := mcp.NewResource(inboxSummaryURI, "Inbox Summary",
		mcp.WithResourceDescription("Recent inbox messages with read state"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(resource, func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		emails, err := svc.GetRecentEmails("", 7, 20)
		if err != nil {
			return nil, fmt.Errorf("failed to read inbox: %w", err)
		}

		summary := inboxSummary{Mailbox: "INBOX", RecentCount: len(emails)}
		for _, email := range emails {
			if !email.IsRead {
				summary.UnreadCount++
			}
			summary.Recent = append(summary.Recent, summaryEntry{
				ID:      email.UID,
				From:    email.FromAddress,
				Subject: email.Subject,
				IsRead:  email.IsRead,
			})
		}

		data, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode summary: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      inboxSummaryURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}
