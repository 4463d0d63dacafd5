// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the drift check as a tool over stdio.
package mcpserver

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/nightsync/internal"
	"github.com/starford/nightsync/internal/report"
)

const reportFormatURI = "nightsync://report-format"

// Server wraps the MCP server with the drift tools.
type Server struct {
	mcp    *server.MCPServer
	base   *internal.Config
	logger *slog.Logger
}

// New creates a new MCP server. Every tool call starts from a copy of base.
func New(base *internal.Config, logger *slog.Logger, version string) *Server {
	s := &Server{base: base, logger: logger}

	s.mcp = server.NewMCPServer(
		"Nightsync",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("detect_drift",
		mcp.WithDescription("Compare evidence cited in local-memory entries with evidence files on disk "+
			"and return the JSON drift report. Read the report format via get_report_contract "+
			"or the "+reportFormatURI+" resource."),
		mcp.WithString("specs", mcp.Description("Optional comma-separated spec ids to limit the check to (e.g. SPEC-1,SPEC-2)")),
		mcp.WithBoolean("pretty", mcp.Description("Indent the JSON report")),
	), s.detectDrift)

	s.mcp.AddTool(mcp.NewTool("get_report_contract",
		mcp.WithDescription("Returns the drift report format contract."),
	), s.getReportContract)

	s.mcp.AddResource(
		mcp.NewResource(reportFormatURI, "Drift Report Format",
			mcp.WithResourceDescription("Fields and semantics of the JSON drift report."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readReportFormatResource,
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

func (s *Server) detectDrift(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := *s.base
	if specs := splitSpecs(req.GetString("specs", "")); len(specs) > 0 {
		cfg.Specs = specs
	}

	res, err := internal.Detect(ctx, &cfg, s.logger)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	payload, err := report.Marshal(res.Report, req.GetBool("pretty", false))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(payload)), nil
}

func (s *Server) getReportContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ReportFormatContract), nil
}

func (s *Server) readReportFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      reportFormatURI,
			MIMEType: "text/markdown",
			Text:     ReportFormatContract,
		},
	}, nil
}

func splitSpecs(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
