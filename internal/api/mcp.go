package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"replyd/internal/feedback"
	"replyd/internal/profile"
)

// NewMCPServer creates an MCP server exposing the draft, feedback, and style
// tools plus profile and recent-feedback resources.
func NewMCPServer(deps Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"replyd",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("replyd — drafts text message replies in the user's voice using a local model."),
		server.WithRecovery(),
	)

	// Tools
	s.AddTool(
		mcp.NewTool("draft_reply",
			mcp.WithDescription("Draft a reply to an incoming text message in the user's style."),
			mcp.WithString("incoming", mcp.Description("The incoming message text"), mcp.Required()),
			mcp.WithString("contact", mcp.Description("Name of the sender")),
		),
		mcpDraftReply(deps),
	)

	s.AddTool(
		mcp.NewTool("record_feedback",
			mcp.WithDescription("Record the outcome of a drafted reply so the style profile can learn from it."),
			mcp.WithString("incoming", mcp.Description("The incoming message the draft answered")),
			mcp.WithString("draft", mcp.Description("The draft that was proposed")),
			mcp.WithString("final", mcp.Description("The text that was actually sent")),
			mcp.WithString("contact", mcp.Description("Name of the sender")),
			mcp.WithBoolean("accepted", mcp.Description("Whether the draft was accepted"), mcp.Required()),
			mcp.WithBoolean("edited", mcp.Description("Whether the draft was edited before sending")),
		),
		mcpRecordFeedback(deps),
	)

	s.AddTool(
		mcp.NewTool("set_style",
			mcp.WithDescription("Replace a style profile field. Valid fields: style_rules, preferred_phrases, banned_words."),
			mcp.WithString("field", mcp.Description("Field to set"), mcp.Required()),
			mcp.WithString("value", mcp.Description("New value; comma-separated for list fields"), mcp.Required()),
		),
		mcpSetStyle(deps),
	)

	// Resources
	s.AddResource(
		mcp.NewResource(
			"user://profile",
			"Style Profile",
			mcp.WithResourceDescription("Current style profile as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceProfile(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"user://recent",
			"Recent Feedback",
			mcp.WithResourceDescription("Last 10 feedback records"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecent(deps),
	)

	return s
}

func mcpDraftReply(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		incoming, err := req.RequireString("incoming")
		if err != nil {
			return mcpError("incoming is required"), nil
		}
		if strings.TrimSpace(incoming) == "" {
			return mcpError("incoming must not be empty"), nil
		}

		contact := req.GetString("contact", "")

		draft, err := draftReply(ctx, deps, incoming, contact)
		if err != nil {
			return mcpError(fmt.Sprintf("drafting failed: %v", err)), nil
		}

		return mcpText(draft), nil
	}
}

func mcpRecordFeedback(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		accepted, err := req.RequireBool("accepted")
		if err != nil {
			return mcpError("accepted is required"), nil
		}

		rec := feedback.Record{
			Contact:  req.GetString("contact", ""),
			Incoming: req.GetString("incoming", ""),
			Draft:    req.GetString("draft", ""),
			Final:    req.GetString("final", ""),
			Accepted: accepted,
			Edited:   req.GetBool("edited", false),
		}

		if err := deps.Learner.RecordAndLearn(rec); err != nil {
			return mcpError(fmt.Sprintf("recording feedback failed: %v", err)), nil
		}

		return mcpText("Feedback recorded"), nil
	}
}

func mcpSetStyle(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		field, err := req.RequireString("field")
		if err != nil {
			return mcpError("field is required"), nil
		}
		value, err := req.RequireString("value")
		if err != nil {
			return mcpError("value is required"), nil
		}

		var fields profile.Fields
		switch field {
		case "style_rules":
			fields.StyleRules = &value
		case "preferred_phrases":
			list := splitList(value)
			fields.PreferredPhrases = &list
		case "banned_words":
			list := splitList(value)
			fields.BannedWords = &list
		default:
			return mcpError(fmt.Sprintf("unknown field %q; valid fields: style_rules, preferred_phrases, banned_words", field)), nil
		}

		if _, err := deps.Profiles.SetFields(fields); err != nil {
			return mcpError(fmt.Sprintf("failed to set %s: %v", field, err)), nil
		}

		return mcpText(fmt.Sprintf("Set %s", field)), nil
	}
}

// splitList turns a comma-separated value into trimmed non-empty items.
func splitList(value string) []string {
	items := []string{}
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			items = append(items, part)
		}
	}
	return items
}

func mcpResourceProfile(deps Deps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		p, err := deps.Profiles.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load profile: %w", err)
		}

		b, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal profile: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpResourceRecent(deps Deps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		records, err := deps.Log.Recent(10)
		if err != nil {
			return nil, fmt.Errorf("failed to read feedback log: %w", err)
		}
		if records == nil {
			records = []feedback.Record{}
		}

		b, err := json.Marshal(records)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal records: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
