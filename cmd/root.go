package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/filevault/vaultctl/internal/catalog"
	"github.com/filevault/vaultctl/internal/config"
	"github.com/filevault/vaultctl/internal/session"
	"github.com/filevault/vaultctl/internal/vault"
)

var (
	Version     = "dev"
	configFile  string
	baseURL     string
	logLevel    string
	logFormat   string
	sessionFile string

	cfg    *config.Config
	logger *slog.Logger
	stdin  = bufio.NewReader(os.Stdin)
)

var rootCmd = &cobra.Command{
	Use:     "vaultctl",
	Short:   "Command-line client for the file vault service",
	Version: Version,
	Long: `vaultctl is a client for a deduplicating file storage service.
It lets you sign in, search, upload, download, delete and share files,
and shows your storage usage.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", vault.Message(err))
		if errors.Is(err, vault.ErrNoIdentity) {
			fmt.Fprintln(os.Stderr, "Run 'vaultctl login' first.")
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config file (or set VAULTCTL_CONFIG env var)")
	rootCmd.PersistentFlags().StringVarP(&baseURL, "url", "u", "", "Storage service URL (or set VAULTCTL_URL env var)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json")
	rootCmd.PersistentFlags().StringVarP(&sessionFile, "session-file", "d", "", "Path to session file (default: ~/.vaultctl.json)")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if baseURL != "" {
		c.BaseURL = baseURL
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
	if logFormat != "" {
		c.LogFormat = logFormat
	}
	if sessionFile != "" {
		c.SessionFile = sessionFile
	}
	if err := c.Validate(); err != nil {
		return err
	}

	cfg = c
	logger = config.SetupLogger(cfg, os.Stderr)
	return nil
}

func newClient() *vault.Client {
	return vault.NewClient(cfg.BaseURL,
		vault.WithTimeout(cfg.Timeout),
		vault.WithLogger(logger),
	)
}

func openSession() (*session.Manager, error) {
	sess, err := session.NewManager(cfg.SessionFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session: %w", err)
	}
	return sess, nil
}

func newCatalog(client *vault.Client) (*catalog.Store, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return catalog.NewStore(client, loc, logger), nil
}

func readLine(prompt string) string {
	fmt.Print(prompt)
	line, _ := stdin.ReadString('\n')
	return strings.TrimSpace(line)
}

// readSecret prompts without echo when stdin is a terminal.
func readSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return readLine(prompt), nil
	}
	fmt.Print(prompt)
	b, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return string(b), nil
}

func confirm(prompt string) bool {
	response := strings.ToLower(readLine(prompt + " [y/N]: "))
	return response == "y" || response == "yes"
}
