package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	mcpserver "github.com/filevault/vaultctl/internal/mcp"
)

var (
	serveTransport string
	servePort      int
	serveAPIKey    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start MCP server for AI assistant integration",
	Long: `Start a Model Context Protocol (MCP) server that exposes search,
upload, delete, share and stats tools to AI assistants. Tools act as the
user signed in with 'vaultctl login'.

Transport options:
  stdio: Standard input/output (default, for local CLI integration)
  sse:   Server-Sent Events over HTTP (for remote connections, requires API key)
  http:  Streamable HTTP (for bidirectional HTTP communication, requires API key)

HTTP transports also serve Prometheus metrics on /metrics.

Examples:
  # Start stdio server
  vaultctl serve

  # Start HTTP/SSE server on port 8080 (API key required)
  vaultctl serve --transport sse --port 8080 --serve-api-key mysecretkey

  # Or use environment variable for API key
  export VAULTCTL_SERVE_API_KEY=mysecretkey
  vaultctl serve --transport http --port 8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveTransport, "transport", "stdio", "Transport type: stdio, sse, or http")
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port for HTTP/SSE server")
	serveCmd.Flags().StringVar(&serveAPIKey, "serve-api-key", "", "API key for HTTP authentication (or VAULTCTL_SERVE_API_KEY env var)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	server := mcpserver.NewServer(mcpserver.ServerConfig{
		Client:        newClient(),
		Session:       sess,
		ShareOrigin:   cfg.Origin(),
		Location:      loc,
		UploadTimeout: cfg.UploadTimeout,
		Logger:        logger,
	}, Version)

	ctx := cmd.Context()
	switch serveTransport {
	case "stdio":
		fmt.Fprintln(os.Stderr, "Starting MCP server on stdio...")
		return server.RunStdio(ctx)

	case "sse":
		return runHTTPServerWithShutdown(ctx, server.NewHTTPHandler(), "SSE")

	case "http":
		return runHTTPServerWithShutdown(ctx, server.NewStreamableHTTPHandler(), "HTTP")

	default:
		return fmt.Errorf("unknown transport: %s (must be stdio, sse, or http)", serveTransport)
	}
}

func runHTTPServerWithShutdown(ctx context.Context, handler http.Handler, transportName string) error {
	httpAPIKey := serveAPIKey
	if httpAPIKey == "" {
		httpAPIKey = os.Getenv("VAULTCTL_SERVE_API_KEY")
	}
	if httpAPIKey == "" {
		return fmt.Errorf("API key required for HTTP server. Use --serve-api-key or set VAULTCTL_SERVE_API_KEY environment variable")
	}

	addr := fmt.Sprintf(":%d", servePort)
	server := &http.Server{
		Addr:              addr,
		Handler:           mcpserver.NewMux(httpAPIKey, handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		fmt.Fprintln(os.Stderr, "\nShutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	fmt.Fprintf(os.Stderr, "Starting MCP %s server on http://localhost%s (API key authentication enabled, metrics on /metrics)\n", transportName, addr)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
