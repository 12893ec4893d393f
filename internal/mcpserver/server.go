// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes ansuz tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ansuz/internal/docservice"
)

// Version is reported to MCP clients.
const Version = "1.0.0"

// Server wraps the MCP server with ansuz tools.
type Server struct {
	mcp      *server.MCPServer
	svc      *docservice.Service
	contract string
}

// New creates a new MCP server with all ansuz tools registered. requiredFields
// are listed in the header contract.
func New(svc *docservice.Service, requiredFields []string) *Server {
	cfg := svc.Normalizer().Config()
	s := &Server{
		svc:      svc,
		contract: HeaderContract(cfg.Project, cfg.Rules, requiredFields),
	}

	s.mcp = server.NewMCPServer(
		"ansuz",
		Version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("normalize_tree",
		mcp.WithDescription("Bring the header block of every document under a directory to the canonical template. "+
			"Returns the run summary and per-document outcomes."),
		mcp.WithString("dir", mcp.Description("Directory relative to the tree root (empty for the whole tree)")),
		mcp.WithBoolean("dry_run", mcp.Description("Compute outcomes without writing documents")),
	), s.normalizeTree)

	s.mcp.AddTool(mcp.NewTool("normalize_document",
		mcp.WithDescription("Normalize the header block of a single document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document (e.g. docs/guide.md)")),
	), s.normalizeDocument)

	s.mcp.AddTool(mcp.NewTool("preview_header",
		mcp.WithDescription("Show a document as it would look after normalization, without writing it."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document")),
	), s.previewHeader)

	s.mcp.AddTool(mcp.NewTool("check_structure",
		mcp.WithDescription("Verify the documentation layout: section directories, required documents and header fields."),
	), s.checkStructure)

	s.mcp.AddTool(mcp.NewTool("classify_path",
		mcp.WithDescription("Return the document type a path is classified as."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Document path; it need not exist")),
	), s.classifyPath)

	s.mcp.AddTool(mcp.NewTool("get_header_contract",
		mcp.WithDescription("Returns the canonical document header contract. "+
			"Call this before writing documents so new files match the template."),
	), s.getHeaderContract)

	s.mcp.AddResource(
		mcp.NewResource(HeaderFormatURI, "Document Header Contract",
			mcp.WithResourceDescription("Canonical header block that every document starts with."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readHeaderFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) normalizeTree(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir := req.GetString("dir", "")
	dryRun := req.GetBool("dry_run", false)
	res, err := s.svc.NormalizeTree(ctx, dir, dryRun)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) normalizeDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	o, err := s.svc.NormalizeDocument(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if o.Failed() {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %s", o.Path, o.Error)), nil
	}
	return jsonResult(o)
}

func (s *Server) previewHeader(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := s.svc.PreviewDocument(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(p.Content), nil
}

func (s *Server) checkStructure(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rep, err := s.svc.Check(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(rep)
}

func (s *Server) classifyPath(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(s.svc.Classify(path))), nil
}

func (s *Server) getHeaderContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.contract), nil
}

func (s *Server) readHeaderFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      HeaderFormatURI,
			MIMEType: "text/markdown",
			Text:     s.contract,
		},
	}, nil
}
