package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/filevault/vaultctl/internal/catalog"
	"github.com/filevault/vaultctl/internal/fileutil"
	"github.com/filevault/vaultctl/internal/query"
	"github.com/filevault/vaultctl/internal/vault"
)

var (
	deletePattern string
	forceDelete   bool
)

var deleteCmd = &cobra.Command{
	Use:   "delete [file-ids...]",
	Short: "Delete files",
	Long: `Delete files by id, or every listed file whose name matches
--pattern. The listing is fetched again after the deletions.`,
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().StringVarP(&deletePattern, "pattern", "P", "", "Regex pattern to match filenames for deletion")
	deleteCmd.Flags().BoolVarP(&forceDelete, "force", "f", false, "Force deletion without confirmation")
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && deletePattern == "" {
		return fmt.Errorf("give file ids or --pattern")
	}

	sess, err := openSession()
	if err != nil {
		return err
	}
	store, err := newCatalog(newClient())
	if err != nil {
		return err
	}
	view := catalog.NewView(store, sess.Identity(), query.Filter{})

	listing, err := view.Mount(cmd.Context())
	if err != nil {
		return err
	}

	var targets []vault.FileRecord
	for _, fileID := range args {
		f, ok := listing.Find(fileID)
		if !ok {
			f = vault.FileRecord{ID: fileID}
		}
		targets = append(targets, f)
	}
	if deletePattern != "" {
		matched, err := fileutil.FilterByPattern(listing.Files, func(f vault.FileRecord) string { return f.Filename }, deletePattern)
		if err != nil {
			return err
		}
		targets = append(targets, matched...)
	}

	if len(targets) == 0 {
		fmt.Printf("No files matching pattern '%s'\n", deletePattern)
		return nil
	}

	fmt.Println("Files to be deleted:")
	for _, f := range targets {
		if f.Filename == "" {
			fmt.Printf("  %s\n", f.ID)
			continue
		}
		fmt.Printf("  %s  %s (%s)\n", f.ID, f.Filename, humanize.IBytes(uint64(f.Size)))
	}
	fmt.Printf("\nTotal: %d files\n", len(targets))

	if !forceDelete && !confirm("\nAre you sure you want to delete these files?") {
		fmt.Println("Deletion cancelled")
		return nil
	}

	id := sess.Identity()
	var failed int
	for _, f := range targets {
		if err := store.Remove(cmd.Context(), id, f.ID); err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "  ✗ %s: %s\n", f.ID, vault.Message(err))
			continue
		}
		fmt.Printf("  ✓ %s\n", f.ID)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d deletions failed", failed, len(targets))
	}
	fmt.Printf("\nDeleted %d files\n", len(targets))

	rs, err := view.Invalidate(cmd.Context())
	if err != nil {
		logger.Warn("failed to reload listing", slog.Any("error", err))
		return nil
	}
	fmt.Printf("%d files remaining\n", rs.Count())
	return nil
}
