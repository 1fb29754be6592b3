// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the vault to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/opnvault/internal/apperr"
	"github.com/starford/opnvault/internal/models"
	"github.com/starford/opnvault/internal/tags"
	"github.com/starford/opnvault/internal/vault"
)

const contractURI = "opnvault://vault-contract"

// Server wraps the MCP server with vault tools.
type Server struct {
	mcp   *server.MCPServer
	store *vault.Store
}

// New creates a new MCP server with all vault tools registered.
func New(store *vault.Store, version string) *Server {
	s := &Server{store: store}

	s.mcp = server.NewMCPServer(
		"opnvault",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_files",
		mcp.WithDescription("List vault files, most recently modified first. "+
			"Each line is: id, name, size, last modified, tags."),
		mcp.WithString("query", mcp.Description("Optional case-insensitive filter on name or tag")),
	), s.listFiles)

	s.mcp.AddTool(mcp.NewTool("read_file",
		mcp.WithDescription("Read the content of a vault file as text."),
		mcp.WithString("id", mcp.Required(), mcp.Description("File id as shown by list_files")),
	), s.readFile)

	s.mcp.AddTool(mcp.NewTool("create_file",
		mcp.WithDescription("Create a new file in the vault. The vault assigns its id. "+
			"Read the opnvault://vault-contract resource for naming rules."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Display name, e.g. report.md")),
		mcp.WithString("content", mcp.Description("Initial content (empty if omitted)")),
	), s.createFile)

	s.mcp.AddTool(mcp.NewTool("write_file",
		mcp.WithDescription("Replace the content of an existing file. Tags are kept."),
		mcp.WithString("id", mcp.Required(), mcp.Description("File id")),
		mcp.WithString("content", mcp.Required(), mcp.Description("New content")),
	), s.writeFile)

	s.mcp.AddTool(mcp.NewTool("rename_file",
		mcp.WithDescription("Change the display name of a file. Its id and tags are kept."),
		mcp.WithString("id", mcp.Required(), mcp.Description("File id")),
		mcp.WithString("name", mcp.Required(), mcp.Description("New display name")),
	), s.renameFile)

	s.mcp.AddTool(mcp.NewTool("delete_file",
		mcp.WithDescription("Delete a file and its tags."),
		mcp.WithString("id", mcp.Required(), mcp.Description("File id")),
	), s.deleteFile)

	s.mcp.AddTool(mcp.NewTool("get_tags",
		mcp.WithDescription("Return the tags of a file, one per line."),
		mcp.WithString("id", mcp.Required(), mcp.Description("File id")),
	), s.getTags)

	s.mcp.AddTool(mcp.NewTool("set_tags",
		mcp.WithDescription("Replace the tags of a file."),
		mcp.WithString("id", mcp.Required(), mcp.Description("File id")),
		mcp.WithString("tags", mcp.Required(), mcp.Description("Comma-separated tags, e.g. \"work, q3\". Empty clears them.")),
	), s.setTags)

	s.mcp.AddTool(mcp.NewTool("upload_file",
		mcp.WithDescription("Import a document into the vault from an http(s) URL or a base64 data: URI."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data: URI")),
		mcp.WithString("filename", mcp.Description("Display name; derived from the URL when omitted")),
	), s.uploadFile)

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Vault Contract",
			mcp.WithResourceDescription("How files, ids and tags behave in the vault."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
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

// resolve looks up the file named by the "id" argument.
func (s *Server) resolve(ctx context.Context, req mcp.CallToolRequest) (models.VaultFile, *mcp.CallToolResult) {
	id, err := req.RequireString("id")
	if err != nil {
		return models.VaultFile{}, mcp.NewToolResultError(err.Error())
	}
	f, err := s.store.Get(ctx, id)
	if err != nil {
		return models.VaultFile{}, mcp.NewToolResultError(fmt.Sprintf("not found: %s", id))
	}
	return f, nil
}

// optionalString returns the named argument, or "" when it is absent.
func optionalString(req mcp.CallToolRequest, key string) string {
	if v, err := req.RequireString(key); err == nil {
		return v
	}
	return ""
}

func (s *Server) listFiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	files, err := s.store.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	files = vault.Filter(files, optionalString(req, "query"))
	if len(files) == 0 {
		return mcp.NewToolResultText("no files"), nil
	}

	var b strings.Builder
	for _, f := range files {
		fmt.Fprintf(&b, "%s\t%s\t%s\t%s", f.ID, f.Name,
			humanize.Bytes(uint64(f.Size)), humanize.Time(f.ModifiedAt))
		if len(f.Tags) > 0 {
			fmt.Fprintf(&b, "\t%s", strings.Join(f.Tags, ", "))
		}
		b.WriteByte('\n')
	}
	return mcp.NewToolResultText(strings.TrimSuffix(b.String(), "\n")), nil
}

func (s *Server) readFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f, res := s.resolve(ctx, req)
	if res != nil {
		return res, nil
	}
	data, err := s.store.Read(ctx, f)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) createFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	f, err := s.store.Create(ctx, name, []byte(optionalString(req, "content")))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s (%s)", f.ID, f.Name)), nil
}

func (s *Server) writeFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	f, res := s.resolve(ctx, req)
	if res != nil {
		return res, nil
	}
	updated, err := s.store.Write(ctx, f, []byte(content))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %s (%s)", updated.ID, humanize.Bytes(uint64(updated.Size)))), nil
}

func (s *Server) renameFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	f, res := s.resolve(ctx, req)
	if res != nil {
		return res, nil
	}
	renamed, err := s.store.Rename(ctx, f, name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("renamed: %s (%s)", renamed.ID, renamed.Name)), nil
}

func (s *Server) deleteFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f, res := s.resolve(ctx, req)
	if res != nil {
		return res, nil
	}
	err := s.store.Delete(ctx, f)
	switch {
	case err == nil:
		return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", f.ID)), nil
	case apperr.IsNonFatal(err):
		return mcp.NewToolResultText(fmt.Sprintf("deleted: %s (warning: tags not removed)", f.ID)), nil
	default:
		return mcp.NewToolResultError(err.Error()), nil
	}
}

func (s *Server) getTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f, res := s.resolve(ctx, req)
	if res != nil {
		return res, nil
	}
	t, err := s.store.Tags(ctx, f.ID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(t) == 0 {
		return mcp.NewToolResultText("no tags"), nil
	}
	return mcp.NewToolResultText(strings.Join(t, "\n")), nil
}

func (s *Server) setTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("tags")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	f, res := s.resolve(ctx, req)
	if res != nil {
		return res, nil
	}
	stored, err := s.store.SetTags(ctx, f.ID, tags.ParseList(raw))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("tags: %s", strings.Join(stored, ", "))), nil
}

func (s *Server) readContractResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     VaultContract,
		},
	}, nil
}
