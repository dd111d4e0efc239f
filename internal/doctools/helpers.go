// Package doctools provides MCP tool handlers for the document store.
//
// Each tool handler follows the same pattern:
// - A struct with its dependencies (the store, the exporter) injected via constructor
// - Definition() returns the mcp.Tool schema
// - Handle() processes the request and returns a result
//
// Results carry the affected records as indented JSON in a single text
// content block. Domain errors come back as tool errors with a stable
// prefix per error kind, so callers can tell rejected input apart from
// missing records and storage trouble.
package doctools

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/docomatic/docomatic/internal/docstore"
	"github.com/docomatic/docomatic/internal/export"
)

// intArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// optionalString extracts a string argument, nil when absent. Partial
// updates need a missing field told apart from an empty one.
func optionalString(req mcp.CallToolRequest, key string) *string {
	v, ok := req.GetArguments()[key].(string)
	if !ok {
		return nil
	}
	return &v
}

// optionalInt extracts an integer argument, nil when absent.
func optionalInt(req mcp.CallToolRequest, key string) *int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return nil
	}
	n := int(v)
	return &n
}

// mapArg extracts an object argument, nil when absent.
func mapArg(req mcp.CallToolRequest, key string) map[string]any {
	v, ok := req.GetArguments()[key].(map[string]any)
	if !ok {
		return nil
	}
	return v
}

// stringSliceArg extracts an array-of-strings argument. Elements that are
// not strings are dropped.
func stringSliceArg(req mcp.CallToolRequest, key string) []string {
	raw, ok := req.GetArguments()[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// initialSectionsArg decodes the initial_sections array of create_document.
// Elements that are not objects decode to empty entries, which the store
// rejects.
func initialSectionsArg(req mcp.CallToolRequest, key string) []docstore.InitialSection {
	raw, ok := req.GetArguments()[key].([]any)
	if !ok {
		return nil
	}
	out := make([]docstore.InitialSection, len(raw))
	for i, elem := range raw {
		m, ok := elem.(map[string]any)
		if !ok {
			continue
		}
		if v, ok := m["id"].(string); ok {
			out[i].ID = v
		}
		if v, ok := m["heading"].(string); ok {
			out[i].Heading = &v
		}
		if v, ok := m["body"].(string); ok {
			out[i].Body = &v
		}
		if v, ok := m["order_index"].(float64); ok {
			n := int(v)
			out[i].OrderIndex = &n
		}
		if v, ok := m["parent_section_id"].(string); ok {
			out[i].ParentSectionID = &v
		}
		if v, ok := m["metadata"].(map[string]any); ok {
			out[i].Metadata = v
		}
	}
	return out
}

// jsonResult serializes v as indented JSON into a text result.
func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Internal error: %v", err))
	}
	return mcp.NewToolResultText(string(data))
}

// toolError maps a domain error onto a tool error. Each error kind keeps
// its message prefix stable across every tool.
func toolError(err error) *mcp.CallToolResult {
	var ve *docstore.ValidationError
	if errors.As(err, &ve) {
		return mcp.NewToolResultError(fmt.Sprintf("Validation error: %v", ve))
	}
	var nfe *docstore.NotFoundError
	if errors.As(err, &nfe) {
		return mcp.NewToolResultError(nfe.Error())
	}
	var de *docstore.DuplicateError
	if errors.As(err, &de) {
		return mcp.NewToolResultError(de.Error())
	}
	var se *docstore.StorageError
	if errors.As(err, &se) {
		return mcp.NewToolResultError(fmt.Sprintf("Database error: %v", se))
	}
	var ae *export.AuthError
	if errors.As(err, &ae) {
		return mcp.NewToolResultError(fmt.Sprintf("GitHub authentication error: %v", ae))
	}
	var ge *export.APIError
	if errors.As(err, &ge) {
		return mcp.NewToolResultError(fmt.Sprintf("GitHub API error: %v", ge))
	}
	return mcp.NewToolResultError(fmt.Sprintf("Internal error: %v", err))
}
