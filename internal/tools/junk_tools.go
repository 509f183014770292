package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dmeyer/bridgemail/internal/mailbox"
)

func registerJunkTools(s *server.MCPServer, svc *mailbox.Service) {
	s.AddTool(mcp.NewTool("filter_junk_emails",
		mcp.WithDescription("Score recent emails for junk. action=analyze reports flagged messages; action=move_to_spam also moves them to the spam folder in one batch."),
		mcp.WithNumber("limit", mcp.Description("Messages to scan (default 20)")),
		mcp.WithString("action", mcp.Description("analyze or move_to_spam (default analyze)")),
		mcp.WithString("mailbox", mcp.Description("Mailbox to scan (default INBOX)")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := svc.FilterJunk(req.GetString("mailbox", ""), req.GetInt("limit", 20), req.GetString("action", "analyze"))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("junk filter failed: %v", err)), nil
		}
		return jsonResult(result)
	})

	s.AddTool(mcp.NewTool("analyze_email_for_junk",
		mcp.WithDescription("Score one email for junk and report the matched indicators."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Message id")),
		mcp.WithString("mailbox", mcp.Description("Mailbox holding the message (default INBOX)")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := requireID(req)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		analysis, err := svc.AnalyzeEmail(req.GetString("mailbox", ""), id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", err)), nil
		}
		return jsonResult(analysis)
	})

	s.AddTool(mcp.NewTool("search_emails_filtered",
		mcp.WithDescription("Search emails with optional junk filtering. With exclude_junk, likely-junk results are dropped from the page."),
		mcp.WithString("query", mcp.Description("Search query")),
		mcp.WithNumber("limit", mcp.Description("Maximum results (default 10)")),
		mcp.WithBoolean("exclude_junk", mcp.Description("Drop likely-junk results (default true)")),
		mcp.WithString("mailbox", mcp.Description("Mailbox to search (default INBOX)")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		emails, err := svc.SearchFiltered(req.GetString("mailbox", ""), req.GetString("query", ""), req.GetInt("limit", 10), req.GetBool("exclude_junk", true))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}
		return jsonResult(emails)
	})

	s.AddTool(mcp.NewTool("get_mailing_list_senders",
		mcp.WithDescription("Aggregate recent mail by sender and report mailing-list senders: high-volume addresses and automated-looking ones."),
		mcp.WithNumber("days", mcp.Description("Window in days (default 30)")),
		mcp.WithNumber("min_emails", mcp.Description("Volume threshold (default 3)")),
		mcp.WithString("mailbox", mcp.Description("Mailbox to scan (default INBOX)")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		senders, err := svc.MailingListSenders(req.GetString("mailbox", ""), req.GetInt("days", 30), req.GetInt("min_emails", 3), 0)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("aggregation failed: %v", err)), nil
		}
		return jsonResult(senders)
	})
}
