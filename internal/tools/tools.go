// Package tools registers the caller-facing MCP tools. Handlers are thin
// glue: parameter parsing and JSON rendering around the mailbox service.
package tools

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dmeyer/bridgemail/internal/mailbox"
)

// Register adds every tool and resource to the MCP server.
func Register(s *server.MCPServer, svc *mailbox.Service) {
	registerEmailTools(s, svc)
	registerJunkTools(s, svc)
	registerUnsubscribeTools(s, svc)
	registerRuleTools(s, svc)
	registerInboxResource(s, svc)
}

// jsonResult renders a handler result as pretty-printed JSON text.
func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// parseIDs parses a comma-separated list of message ids.
func parseIDs(csv string) ([]uint32, error) {
	var ids []uint32
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid message id %q", part)
		}
		ids = append(ids, uint32(id))
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no message ids given")
	}
	return ids, nil
}
