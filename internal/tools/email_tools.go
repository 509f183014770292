package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dmeyer/bridgemail/internal/mailbox"
)

func registerEmailTools(s *server.MCPServer, svc *mailbox.Service) {
	s.AddTool(mcp.NewTool("search_emails",
		mcp.WithDescription("Search emails in a mailbox. Queries support from:, to:, subject: tokens, the word 'unread', and free text. Empty query or ALL matches everything."),
		mcp.WithString("query", mcp.Description("Search query")),
		mcp.WithNumber("limit", mcp.Description("Maximum results (default 10)")),
		mcp.WithString("mailbox", mcp.Description("Mailbox to search (default INBOX)")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		emails, err := svc.SearchEmails(req.GetString("mailbox", ""), req.GetString("query", ""), req.GetInt("limit", 10))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}
		return jsonResult(emails)
	})

	s.AddTool(mcp.NewTool("get_email_content",
		mcp.WithDescription("Fetch the full content of one email: body text, HTML, and attachment metadata."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Message id")),
		mcp.WithString("mailbox", mcp.Description("Mailbox holding the message (default INBOX)")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ids, err := requireID(req)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		email, err := svc.GetEmailContent(req.GetString("mailbox", ""), ids)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("fetch failed: %v", err)), nil
		}
		return jsonResult(email)
	})

	s.AddTool(mcp.NewTool("send_email",
		mcp.WithDescription("Send an email through the bridge's SMTP endpoint."),
		mcp.WithString("to", mcp.Required(), mcp.Description("Recipient address(es), comma-separated")),
		mcp.WithString("subject", mcp.Required(), mcp.Description("Subject line")),
		mcp.WithString("body", mcp.Required(), mcp.Description("Plain-text body")),
		mcp.WithString("reply_to", mcp.Description("Message-ID being replied to")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		to, err := req.RequireString("to")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		subject, err := req.RequireString("subject")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		body, err := req.RequireString("body")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := svc.SendEmail(to, subject, body, req.GetString("reply_to", "")); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("send failed: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Email sent to %s", to)), nil
	})

	s.AddTool(mcp.NewTool("get_recent_emails",
		mcp.WithDescription("List emails received in the last N days, newest first."),
		mcp.WithNumber("days", mcp.Description("Window in days (default 7)")),
		mcp.WithNumber("limit", mcp.Description("Maximum results (default 10)")),
		mcp.WithString("mailbox", mcp.Description("Mailbox to search (default INBOX)")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		emails, err := svc.GetRecentEmails(req.GetString("mailbox", ""), req.GetInt("days", 7), req.GetInt("limit", 10))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}
		return jsonResult(emails)
	})

	s.AddTool(mcp.NewTool("move_email_to_folder",
		mcp.WithDescription("Move one email to another folder."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Message id")),
		mcp.WithString("folder", mcp.Required(), mcp.Description("Destination folder")),
		mcp.WithString("mailbox", mcp.Description("Source mailbox (default INBOX)")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := requireID(req)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		folder, err := req.RequireString("folder")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		result, err := svc.MoveEmail(req.GetString("mailbox", ""), id, folder)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("move failed: %v", err)), nil
		}
		return jsonResult(result)
	})

	s.AddTool(mcp.NewTool("get_mailboxes",
		mcp.WithDescription("List all folders in the account."),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		folders, err := svc.GetMailboxes()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
		}
		return jsonResult(folders)
	})

	s.AddTool(mcp.NewTool("create_folder",
		mcp.WithDescription("Create a folder."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Folder name")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := svc.CreateFolder(name); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("create failed: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Folder %q created", name)), nil
	})

	s.AddTool(mcp.NewTool("delete_folder",
		mcp.WithDescription("Delete a folder."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Folder name")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := svc.DeleteFolder(name); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("delete failed: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Folder %q deleted", name)), nil
	})

	registerBulkTools(s, svc)
}

func registerBulkTools(s *server.MCPServer, svc *mailbox.Service) {
	s.AddTool(mcp.NewTool("bulk_move_emails",
		mcp.WithDescription("Move many emails at once. Partial failure is reported per id, not raised."),
		mcp.WithString("ids", mcp.Required(), mcp.Description("Comma-separated message ids")),
		mcp.WithString("target", mcp.Required(), mcp.Description("Destination folder")),
		mcp.WithString("source", mcp.Description("Source mailbox (default INBOX)")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		idsCSV, err := req.RequireString("ids")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		target, err := req.RequireString("target")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		ids, err := parseIDs(idsCSV)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		result, err := svc.BulkMove(req.GetString("source", ""), ids, target)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("bulk move failed: %v", err)), nil
		}
		return jsonResult(result)
	})

	s.AddTool(mcp.NewTool("bulk_mark_emails_as_read",
		mcp.WithDescription("Mark many emails read (or unread)."),
		mcp.WithString("ids", mcp.Required(), mcp.Description("Comma-separated message ids")),
		mcp.WithString("source", mcp.Description("Source mailbox (default INBOX)")),
		mcp.WithBoolean("read", mcp.Description("true marks read, false marks unread (default true)")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		idsCSV, err := req.RequireString("ids")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		ids, err := parseIDs(idsCSV)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		result, err := svc.BulkMarkRead(req.GetString("source", ""), ids, req.GetBool("read", true))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("bulk mark failed: %v", err)), nil
		}
		return jsonResult(result)
	})

	s.AddTool(mcp.NewTool("bulk_mark_emails_as_important",
		mcp.WithDescription("Flag many emails as important."),
		mcp.WithString("ids", mcp.Required(), mcp.Description("Comma-separated message ids")),
		mcp.WithString("source", mcp.Description("Source mailbox (default INBOX)")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		idsCSV, err := req.RequireString("ids")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		ids, err := parseIDs(idsCSV)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		result, err := svc.BulkMarkImportant(req.GetString("source", ""), ids)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("bulk mark failed: %v", err)), nil
		}
		return jsonResult(result)
	})

	s.AddTool(mcp.NewTool("bulk_delete_emails",
		mcp.WithDescription("Delete many emails. By default they move to Trash; permanent=true expunges them."),
		mcp.WithString("ids", mcp.Required(), mcp.Description("Comma-separated message ids")),
		mcp.WithString("source", mcp.Description("Source mailbox (default INBOX)")),
		mcp.WithBoolean("permanent", mcp.Description("Permanently delete instead of moving to Trash")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		idsCSV, err := req.RequireString("ids")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		ids, err := parseIDs(idsCSV)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		result, err := svc.BulkDelete(req.GetString("source", ""), ids, req.GetBool("permanent", false))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("bulk delete failed: %v", err)), nil
		}
		return jsonResult(result)
	})
}

// requireID parses the required "id" string parameter as a message id.
func requireID(req mcp.CallToolRequest) (uint32, error) {
	raw, err := req.RequireString("id")
	if err != nil {
		return 0, err
	}
	ids, err := parseIDs(raw)
	if err != nil {
		return 0, err
	}
	if len(ids) != 1 {
		return 0, fmt.Errorf("expected exactly one message id, got %d", len(ids))
	}
	return ids[0], nil
}
