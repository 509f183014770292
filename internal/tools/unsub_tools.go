package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dmeyer/bridgemail/internal/mailbox"
)

func registerUnsubscribeTools(s *server.MCPServer, svc *mailbox.Service) {
	s.AddTool(mcp.NewTool("find_unsubscribe_links",
		mcp.WithDescription("Discover every unsubscribe method an email advertises: List-Unsubscribe header entries, one-click eligibility, and body links."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Message id")),
		mcp.WithString("mailbox", mcp.Description("Mailbox holding the message (default INBOX)")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := requireID(req)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		discovery, err := svc.FindUnsubscribeLinks(req.GetString("mailbox", ""), id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("discovery failed: %v", err)), nil
		}
		return jsonResult(discovery)
	})

	s.AddTool(mcp.NewTool("unsubscribe_from_email",
		mcp.WithDescription("Execute the best unsubscribe method an email advertises. Without confirm=true this is a dry run: the method is validated but nothing is sent."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Message id")),
		mcp.WithBoolean("confirm", mcp.Description("Actually execute the unsubscribe (default false)")),
		mcp.WithString("mailbox", mcp.Description("Mailbox holding the message (default INBOX)")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := requireID(req)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		result, err := svc.Unsubscribe(ctx, req.GetString("mailbox", ""), id, req.GetBool("confirm", false))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("unsubscribe failed: %v", err)), nil
		}
		return jsonResult(result)
	})

	s.AddTool(mcp.NewTool("bulk_find_unsubscribe_opportunities",
		mcp.WithDescription("Scan recent emails and report every one that advertises an unsubscribe method. Discovery only; nothing is executed."),
		mcp.WithNumber("days", mcp.Description("Window in days (default 30)")),
		mcp.WithNumber("limit", mcp.Description("Messages to scan (default 50)")),
		mcp.WithString("mailbox", mcp.Description("Mailbox to scan (default INBOX)")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		discoveries, err := svc.BulkFindUnsubscribe(req.GetString("mailbox", ""), req.GetInt("days", 30), req.GetInt("limit", 50))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("scan failed: %v", err)), nil
		}
		return jsonResult(discoveries)
	})
}
