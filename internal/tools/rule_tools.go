package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dmeyer/bridgemail/internal/mailbox"
	"github.com/dmeyer/bridgemail/internal/rules"
)

func registerRuleTools(s *server.MCPServer, svc *mailbox.Service) {
	s.AddTool(mcp.NewTool("create_filter_rule",
		mcp.WithDescription(`Create a filter rule. Conditions and actions are JSON arrays, e.g. conditions=[{"field":"subject_contains","value":"invoice"}] actions=[{"type":"move_to_folder","target":"Finance"}].`),
		mcp.WithString("name", mcp.Required(), mcp.Description("Unique rule name")),
		mcp.WithString("conditions", mcp.Required(), mcp.Description("JSON array of condition clauses (AND semantics)")),
		mcp.WithString("actions", mcp.Required(), mcp.Description("JSON array of actions")),
		mcp.WithBoolean("enabled", mcp.Description("Whether the rule is active (default true)")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		conditions, err := parseConditions(req.GetString("conditions", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		actions, err := parseActions(req.GetString("actions", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		rule, err := svc.Rules().Create(ctx, name, conditions, actions, req.GetBool("enabled", true))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("create failed: %v", err)), nil
		}
		return jsonResult(rule)
	})

	s.AddTool(mcp.NewTool("list_filter_rules",
		mcp.WithDescription("List all filter rules in evaluation order, with usage statistics."),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ruleSet, err := svc.Rules().List(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
		}
		return jsonResult(ruleSet)
	})

	s.AddTool(mcp.NewTool("update_filter_rule",
		mcp.WithDescription("Update a filter rule. Omitted fields keep their current value; the rule id is immutable."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Rule id")),
		mcp.WithString("name", mcp.Description("New unique name")),
		mcp.WithBoolean("enabled", mcp.Description("Enable or disable the rule")),
		mcp.WithString("conditions", mcp.Description("Replacement JSON array of condition clauses")),
		mcp.WithString("actions", mcp.Description("Replacement JSON array of actions")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var update rules.Update
		if name := req.GetString("name", ""); name != "" {
			update.Name = &name
		}
		if raw := req.GetString("conditions", ""); raw != "" {
			conditions, err := parseConditions(raw)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			update.Conditions = &conditions
		}
		if raw := req.GetString("actions", ""); raw != "" {
			actions, err := parseActions(raw)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			update.Actions = &actions
		}
		if hasArgument(req, "enabled") {
			enabled := req.GetBool("enabled", true)
			update.Enabled = &enabled
		}

		rule, err := svc.Rules().Update(ctx, id, update)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("update failed: %v", err)), nil
		}
		return jsonResult(rule)
	})

	s.AddTool(mcp.NewTool("delete_filter_rule",
		mcp.WithDescription("Delete a filter rule."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Rule id")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := svc.Rules().Delete(ctx, id); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("delete failed: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Rule %s deleted", id)), nil
	})

	s.AddTool(mcp.NewTool("apply_filter_rules",
		mcp.WithDescription("Evaluate all enabled filter rules against a mailbox and execute matched actions in batches."),
		mcp.WithString("mailbox", mcp.Description("Mailbox to process (default INBOX)")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := svc.ApplyFilterRules(ctx, req.GetString("mailbox", ""))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("rule run failed: %v", err)), nil
		}
		return jsonResult(result)
	})

	s.AddTool(mcp.NewTool("apply_filter_rules_optimized",
		mcp.WithDescription("Evaluate filter rules with explicit limits: messages to examine and batch chunk size."),
		mcp.WithString("mailbox", mcp.Description("Mailbox to process (default INBOX)")),
		mcp.WithNumber("limit", mcp.Description("Maximum messages to examine (default 100)")),
		mcp.WithNumber("chunk_size", mcp.Description("Batch chunk size override")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := svc.ApplyFilterRulesOptimized(ctx, req.GetString("mailbox", ""), req.GetInt("limit", 100), req.GetInt("chunk_size", 0))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("rule run failed: %v", err)), nil
		}
		return jsonResult(result)
	})
}

func parseConditions(raw string) ([]rules.Condition, error) {
	var conditions []rules.Condition
	if err := json.Unmarshal([]byte(raw), &conditions); err != nil {
		return nil, fmt.Errorf("invalid conditions JSON: %v", err)
	}
	return conditions, nil
}

func parseActions(raw string) ([]rules.Action, error) {
	var actions []rules.Action
	if err := json.Unmarshal([]byte(raw), &actions); err != nil {
		return nil, fmt.Errorf("invalid actions JSON: %v", err)
	}
	return actions, nil
}

// hasArgument reports whether the caller supplied the named argument at all,
// distinguishing an explicit false from an omitted boolean.
func hasArgument(req mcp.CallToolRequest, name string) bool {
	args := req.GetArguments()
	_, ok := args[name]
	return ok
}
