package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/filevault/vaultctl/internal/catalog"
	"github.com/filevault/vaultctl/internal/fileutil"
	"github.com/filevault/vaultctl/internal/query"
	"github.com/filevault/vaultctl/internal/vault"
)

var downloadOutput string

var downloadCmd = &cobra.Command{
	Use:   "download <file-ids...>",
	Short: "Download files",
	Long: `Download files into the download directory (download_dir in the
config, or the working directory). An existing file is never overwritten;
the new one gets a numbered name instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDownload,
}

func init() {
	downloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", "", "Directory to save into")
	rootCmd.AddCommand(downloadCmd)
}

func downloadDir() string {
	if downloadOutput != "" {
		return downloadOutput
	}
	if cfg.DownloadDir != "" {
		return cfg.DownloadDir
	}
	return "."
}

func runDownload(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	store, err := newCatalog(newClient())
	if err != nil {
		return err
	}

	// Filenames come from the listing; without one the id is used.
	var listing catalog.ResultSet
	if id := sess.Identity(); id.Present() {
		listing, err = catalog.NewView(store, id, query.Filter{}).Mount(cmd.Context())
		if err != nil {
			return err
		}
	}

	sink := &fileutil.DirSink{Dir: downloadDir()}
	for _, fileID := range args {
		f, ok := listing.Find(fileID)
		if !ok {
			f = vault.FileRecord{ID: fileID}
		}
		if err := store.Download(cmd.Context(), f, sink); err != nil {
			return fmt.Errorf("failed to download %s: %w", fileID, err)
		}
	}

	for _, p := range sink.Saved() {
		fmt.Printf("✓ %s\n", p)
	}
	return nil
}
