package mcp

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/filevault/vaultctl/internal/catalog"
	"github.com/filevault/vaultctl/internal/query"
	"github.com/filevault/vaultctl/internal/share"
	"github.com/filevault/vaultctl/internal/stats"
	"github.com/filevault/vaultctl/internal/upload"
	"github.com/filevault/vaultctl/internal/vault"
)

// Session supplies the signed-in identity and the saved filter.
type Session interface {
	Identity() vault.Identity
	SavedFilter() query.Filter
}

// ServerConfig holds configuration for the MCP server
type ServerConfig struct {
	Client        *vault.Client
	Session       Session
	ShareOrigin   string
	Location      *time.Location
	UploadTimeout time.Duration
	Logger        *slog.Logger
}

// Server exposes the file session engine as MCP tools
type Server struct {
	mcpServer *mcp.Server
	client    *vault.Client
	session   Session
	shares    *share.Manager
	stats     *stats.Presenter
	config    ServerConfig
	logger    *slog.Logger
}

// NewServer creates a new MCP server over the given storage client
func NewServer(config ServerConfig, version string) *Server {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "vaultctl",
		Version: version,
	}, nil)

	s := &Server{
		mcpServer: mcpServer,
		client:    config.Client,
		session:   config.Session,
		shares:    share.NewManager(config.Client, config.ShareOrigin, logger),
		stats:     stats.NewPresenter(config.Client, logger),
		config:    config,
		logger:    logger.With(slog.String("component", "mcp")),
	}

	s.registerTools()
	return s
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "search",
		Description: "Search your stored files by name, size, MIME type and upload date. Administrators get every user's files grouped by owner; filters do not apply to them. Without any filter field the saved filter is used.",
	}, s.handleSearch)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "upload",
		Description: "Upload one or more files. Files are sent one at a time and each file's outcome is reported.",
	}, s.handleUpload)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "delete",
		Description: "Delete one of your files by id.",
	}, s.handleDelete)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "share",
		Description: "Toggle the public link of a file. Calling it again makes the file private again. Returns the link.",
	}, s.handleShare)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "stats",
		Description: "Report file count, storage used, deduplicated usage, savings and quota.",
	}, s.handleStats)
}

// RunStdio runs the server using stdio transport
func (s *Server) RunStdio(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// NewHTTPHandler creates an HTTP handler for SSE transport
func (s *Server) NewHTTPHandler() http.Handler {
	return mcp.NewSSEHandler(func(req *http.Request) *mcp.Server {
		return s.mcpServer
	}, nil)
}

// NewStreamableHTTPHandler creates a streamable HTTP handler
func (s *Server) NewStreamableHTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(req *http.Request) *mcp.Server {
		return s.mcpServer
	}, nil)
}

// identity returns the session identity or a precondition error.
func (s *Server) identity(op string) (vault.Identity, error) {
	id := s.session.Identity()
	if err := vault.RequireIdentity(op, id); err != nil {
		return vault.Identity{}, err
	}
	return id, nil
}

// newCatalog returns a store private to one tool call. Calls are
// independent, so one call's listing must never supersede another's.
func (s *Server) newCatalog() *catalog.Store {
	return catalog.NewStore(s.client, s.config.Location, s.config.Logger)
}

func (s *Server) newOrchestrator(cb upload.Callbacks) *upload.Orchestrator {
	opts := []upload.Option{upload.WithLogger(s.config.Logger)}
	if s.config.UploadTimeout > 0 {
		opts = append(opts, upload.WithFileTimeout(s.config.UploadTimeout))
	}
	return upload.New(s.client, cb, opts...)
}
