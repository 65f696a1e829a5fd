package mcp

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jcdickinson/rsfind/internal/docs"
	"github.com/jcdickinson/rsfind/internal/rpc"
)

//go:embed instructions.md
var instructions string

// Backend answers the requests the MCP tools make. *daemon.Client is the
// production implementation.
type Backend interface {
	AddCrates(ctx context.Context, crates []rpc.CrateSpec, onProgress func(string)) (*rpc.AddCratesResponse, error)
	Search(ctx context.Context, req rpc.SearchRequest) (*rpc.SearchResponse, error)
	GetDoc(ctx context.Context, req rpc.GetDocRequest) (*rpc.GetDocResponse, error)
	SearchCrates(ctx context.Context, req rpc.SearchCratesRequest) (*rpc.SearchCratesResponse, error)
}

type Server struct {
	mcpServer *server.MCPServer
	backend   Backend
}

// NewServer builds the MCP server. binary is how the instructions refer to
// the command-line tool.
func NewServer(backend Backend, version, binary string) *Server {
	s := &Server{backend: backend}

	mcpServer := server.NewMCPServer(
		"rsfind",
		version,
		server.WithInstructions(strings.ReplaceAll(instructions, "%s", binary)),
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
	)

	s.registerTools(mcpServer)
	s.registerResources(mcpServer)

	s.mcpServer = mcpServer
	return s
}

func (s *Server) registerTools(mcpServer *server.MCPServer) {
	mcpServer.AddTool(
		mcp.NewTool("search_docs",
			mcp.WithDescription("Fuzzy search a crate's items by path (e.g. \"Deserializer\", \"task::spawn\"). Returns rsdoc:// URIs that can be read as resources or with get_doc. The crate is fetched from docs.rs on first use."),
			mcp.WithString("crate",
				mcp.Description("Crate name, e.g. \"serde\""),
				mcp.Required(),
			),
			mcp.WithString("query",
				mcp.Description("Item name or path fragment"),
				mcp.Required(),
			),
			mcp.WithString("version",
				mcp.Description("Crate version (default \"latest\")"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of results (default 10)"),
			),
		),
		s.handleSearchDocs,
	)

	mcpServer.AddTool(
		mcp.NewTool("get_doc",
			mcp.WithDescription("Read the documentation page for an rsdoc://crate/version/path URI as markdown."),
			mcp.WithString("uri",
				mcp.Description("rsdoc:// URI from search_docs or a documentation link"),
				mcp.Required(),
			),
		),
		s.handleGetDoc,
	)

	mcpServer.AddTool(
		mcp.NewTool("add_crates",
			mcp.WithDescription("Fetch and index Rust crate documentation from docs.rs ahead of time. Synchronous, returns when complete. Version defaults to \"latest\"."),
			addCratesSchema,
		),
		s.handleAddCrates,
	)

	mcpServer.AddTool(
		mcp.NewTool("search_crates",
			mcp.WithDescription("Search crates.io for Rust crates by name or keyword. Results indicate which crates are already indexed locally."),
			mcp.WithString("query",
				mcp.Description("Search query (crate name or keyword)"),
				mcp.Required(),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of results (default 20)"),
			),
		),
		s.handleSearchCrates,
	)
}

func addCratesSchema(t *mcp.Tool) {
	t.InputSchema.Required = append(t.InputSchema.Required, "crates")
	t.InputSchema.Properties["crates"] = map[string]any{
		"type":        "array",
		"description": "List of crates to index",
		"items": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name": map[string]any{
					"type":        "string",
					"description": "Crate name (e.g., \"serde\")",
				},
				"version": map[string]any{
					"type":        "string",
					"description": "Version (default: \"latest\")",
				},
			},
			"required": []string{"name"},
		},
	}
}

func (s *Server) registerResources(mcpServer *server.MCPServer) {
	mcpServer.AddResourceTemplate(
		mcp.NewResourceTemplate(
			docs.URIScheme+"{crate}/{version}/{path}",
			"Rust documentation item",
			mcp.WithTemplateDescription("Read a specific Rust documentation item. Search results return these URIs."),
			mcp.WithTemplateMIMEType("text/markdown"),
		),
		s.handleReadResource,
	)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) handleSearchDocs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	crateName, _ := args["crate"].(string)
	query, _ := args["query"].(string)
	if crateName == "" {
		return mcp.NewToolResultError("missing required parameter: crate"), nil
	}
	if query == "" {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	searchReq := rpc.SearchRequest{Crate: crateName, Query: query}
	if version, ok := args["version"].(string); ok {
		searchReq.Version = version
	}
	if limit, ok := args["limit"].(float64); ok && limit > 0 {
		searchReq.Limit = int(limit)
	}

	resp, err := s.backend.Search(ctx, searchReq)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(resp.Results) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("no items in %s@%s match %q", resp.Crate, resp.Version, query)), nil
	}
	return jsonResult(resp.Results)
}

func (s *Server) handleGetDoc(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uri, _ := req.GetArguments()["uri"].(string)
	if uri == "" {
		return mcp.NewToolResultError("missing required parameter: uri"), nil
	}
	if !strings.HasPrefix(uri, docs.URIScheme) {
		uri = docs.URIScheme + uri
	}

	resp, err := s.backend.GetDoc(ctx, rpc.GetDocRequest{URI: uri})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("reading %s: %v", uri, err)), nil
	}
	return mcp.NewToolResultText(resp.Markdown), nil
}

func (s *Server) handleAddCrates(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	cratesRaw, ok := args["crates"]
	if !ok {
		return mcp.NewToolResultError("missing required parameter: crates"), nil
	}

	cratesJSON, err := json.Marshal(cratesRaw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid crates parameter: %v", err)), nil
	}

	var specs []rpc.CrateSpec
	if err := json.Unmarshal(cratesJSON, &specs); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid crates format: %v", err)), nil
	}
	for _, spec := range specs {
		// Local files are a CLI feature; the MCP client runs elsewhere.
		if spec.File != "" || spec.Name == "" {
			return mcp.NewToolResultError("every crate needs a name"), nil
		}
	}

	resp, err := s.backend.AddCrates(ctx, specs, nil)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to add crates: %v", err)), nil
	}
	return jsonResult(resp.Results)
}

func (s *Server) handleSearchCrates(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	query, _ := args["query"].(string)
	if query == "" {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	searchReq := rpc.SearchCratesRequest{Query: query}
	if limit, ok := args["limit"].(float64); ok {
		searchReq.Limit = int(limit)
	}

	resp, err := s.backend.SearchCrates(ctx, searchReq)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	return jsonResult(resp.Results)
}

func (s *Server) handleReadResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	if _, _, _, err := docs.ParseRsdocURI(uri); err != nil {
		return nil, fmt.Errorf("invalid resource URI: %w", err)
	}

	resp, err := s.backend.GetDoc(ctx, rpc.GetDocRequest{URI: uri})
	if err != nil {
		return nil, fmt.Errorf("getting doc: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/markdown",
			Text:     resp.Markdown,
		},
	}, nil
}

func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}
