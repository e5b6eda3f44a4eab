package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/filevault/vaultctl/internal/fileutil"
	"github.com/filevault/vaultctl/internal/upload"
)

var (
	excludePatterns []string
	dryRun          bool
	assumeYes       bool
)

var uploadCmd = &cobra.Command{
	Use:   "upload [paths...]",
	Short: "Upload files",
	Long: `Upload the given files, and the files under the given directories.
Files matching exclude patterns are skipped.

The batch is listed and must be confirmed before anything is sent. Files
are uploaded one at a time; a failure does not stop the batch. The
command fails if any file failed.

Use --dry-run to list the batch and the files in it with identical
content without uploading.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringArrayVarP(&excludePatterns, "exclude", "e", nil, "Regex patterns to exclude files (can be specified multiple times)")
	uploadCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be uploaded without actually uploading")
	uploadCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Upload without asking for confirmation")
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	fmt.Printf("Discovering files in: %s\n", strings.Join(args, ", "))
	if len(excludePatterns) > 0 {
		fmt.Printf("Excluding patterns: %s\n", strings.Join(excludePatterns, ", "))
	}

	files, err := fileutil.DiscoverFiles(args, excludePatterns)
	if err != nil {
		return fmt.Errorf("failed to discover files: %w", err)
	}

	fmt.Printf("Found %d files\n\n", len(files))
	if len(files) == 0 {
		fmt.Println("No files to upload")
		return nil
	}

	var total int64
	for _, f := range files {
		fmt.Printf("  %s (%s, %s)\n", f.Path, humanize.IBytes(uint64(f.Size)), f.MimeType)
		total += f.Size
	}
	fmt.Printf("\nTotal: %d files, %s\n", len(files), humanize.IBytes(uint64(total)))

	if dryRun {
		dups, err := fileutil.FindDuplicates(files)
		if err != nil {
			return err
		}
		if len(dups) > 0 {
			fmt.Println("\nFiles with identical content (stored once by the server):")
			for _, group := range dups {
				for _, f := range group {
					fmt.Printf("  ⊘ %s\n", f.Path)
				}
				fmt.Println()
			}
		}
		fmt.Println("Dry run mode - nothing uploaded")
		return nil
	}

	sess, err := openSession()
	if err != nil {
		return err
	}
	tasks, err := fileutil.Tasks(files)
	if err != nil {
		return err
	}

	orch := upload.New(newClient(), upload.Callbacks{
		OnResult: func(r upload.Result) {
			if r.OK() {
				fmt.Printf("✓ %s\n", r.Name)
			} else {
				fmt.Fprintf(os.Stderr, "✗ %s: %s\n", r.Name, r.Message)
			}
		},
	},
		upload.WithFileTimeout(cfg.UploadTimeout),
		upload.WithLogger(logger),
	)
	if err := orch.Select(tasks); err != nil {
		return err
	}

	if !assumeYes && !confirm(fmt.Sprintf("\nUpload %d files?", len(tasks))) {
		_ = orch.Cancel()
		fmt.Println("Upload cancelled")
		return nil
	}

	fmt.Println("\nUploading...")
	result, err := orch.Confirm(cmd.Context(), sess.Identity())
	if err != nil {
		return err
	}

	fmt.Printf("\n%s\n", result.Message())
	if result.ErrorCount > 0 {
		return fmt.Errorf("some uploads failed")
	}
	return nil
}
