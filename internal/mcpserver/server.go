// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the document index and entry traversal via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/enigma/internal/apperr"
	"github.com/starford/enigma/internal/docservice"
)

// EntryModelURI names the resource describing traversal output.
const EntryModelURI = "enigma://entry-model"

// Server wraps the MCP server with document tools.
type Server struct {
	mcp *server.MCPServer
	svc *docservice.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *docservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Enigma",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List indexed EnigmaXML documents with their entry and issue counts."),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("iterate_entries",
		mcp.WithDescription("Traverse the entries of one (staff, measure) cell. Each entry carries its "+
			"elapsed time from the start of the cell and its actual duration with tuplets applied, "+
			"as exact fractions of a whole note. Read "+EntryModelURI+" for the field reference."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path of the document (e.g. quartets/op18.enigmaxml)")),
		mcp.WithNumber("staff", mcp.Required(), mcp.Description("Staff id")),
		mcp.WithNumber("measure", mcp.Required(), mcp.Description("Measure id")),
		mcp.WithNumber("layer", mcp.Description("Layer index 0-3; every layer when omitted")),
		mcp.WithNumber("part", mcp.Description("Linked part id; 0 (the score) when omitted")),
	), s.iterateEntries)

	s.mcp.AddTool(mcp.NewTool("get_issues",
		mcp.WithDescription("List the consistency violations found while indexing a document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path of the document")),
	), s.getIssues)

	s.mcp.AddResource(
		mcp.NewResource(EntryModelURI, "Entry Model",
			mcp.WithResourceDescription("Fields of a traversed entry and how times are computed."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readEntryModelResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func toolError(path string, err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path))
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := s.svc.ListDocuments(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(docs) == 0 {
		return mcp.NewToolResultText("no documents indexed"), nil
	}
	return jsonResult(docs)
}

func (s *Server) iterateEntries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	staff, err := req.RequireInt("staff")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	measure, err := req.RequireInt("measure")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	layer := req.GetInt("layer", -1)
	if layer < 0 && hasArgument(req, "layer") {
		return mcp.NewToolResultError("layer must not be negative"), nil
	}

	cell, err := s.svc.Cell(ctx, docservice.CellRequest{
		Path:    path,
		Part:    req.GetInt("part", 0),
		Staff:   staff,
		Measure: measure,
		Layer:   layer,
	})
	if err != nil {
		return toolError(path, err), nil
	}
	return jsonResult(cell)
}

func (s *Server) getIssues(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	issues, err := s.svc.Issues(ctx, path)
	if err != nil {
		return toolError(path, err), nil
	}
	if len(issues) == 0 {
		return mcp.NewToolResultText("no issues"), nil
	}
	return mcp.NewToolResultText(strings.Join(issues, "\n")), nil
}

func (s *Server) readEntryModelResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      EntryModelURI,
			MIMEType: "text/markdown",
			Text:     EntryModel,
		},
	}, nil
}

func hasArgument(req mcp.CallToolRequest, name string) bool {
	_, ok := req.GetArguments()[name]
	return ok
}
