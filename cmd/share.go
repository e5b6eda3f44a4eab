package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/filevault/vaultctl/internal/fileutil"
	"github.com/filevault/vaultctl/internal/share"
	"github.com/filevault/vaultctl/internal/vault"
)

var publicDownload bool

var shareCmd = &cobra.Command{
	Use:   "share <file-id>",
	Short: "Turn a file's public link on or off",
	Long: `Toggle public sharing of a file and print its link. Running it again
makes the file private.`,
	Args: cobra.ExactArgs(1),
	RunE: runShare,
}

var sharedCmd = &cobra.Command{
	Use:   "shared",
	Short: "List your publicly shared files",
	Args:  cobra.NoArgs,
	RunE:  runShared,
}

var publicCmd = &cobra.Command{
	Use:   "public <token>",
	Short: "Show a public share, optionally downloading it",
	Long: `Show the details of a public share by its token. No login is needed.
Viewing a share counts as a download on the server.`,
	Args: cobra.ExactArgs(1),
	RunE: runPublic,
}

func init() {
	publicCmd.Flags().BoolVar(&publicDownload, "download", false, "Also download the shared file")
	publicCmd.Flags().StringVarP(&downloadOutput, "output", "o", "", "Directory to save into")
	rootCmd.AddCommand(shareCmd, sharedCmd, publicCmd)
}

func newShareManager(client *vault.Client) *share.Manager {
	return share.NewManager(client, cfg.Origin(), logger)
}

func runShare(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}

	link, err := newShareManager(newClient()).Toggle(cmd.Context(), sess.Identity(), args[0])
	if err != nil {
		return err
	}
	if link.IsPublic {
		fmt.Println("✓ File sharing enabled")
	} else {
		fmt.Println("⊘ File sharing disabled")
	}
	fmt.Println(link.URL)
	return nil
}

func runShared(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	m := newShareManager(newClient())

	shares, err := m.ListPublic(cmd.Context(), sess.Identity())
	if err != nil {
		return err
	}
	if len(shares) == 0 {
		fmt.Println("No publicly shared files")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSIZE\tDOWNLOADS\tSHARED\tLINK")
	fmt.Fprintln(w, "----\t----\t---------\t------\t----")
	for _, s := range shares {
		shared := "-"
		if !s.CreatedAt.IsZero() {
			shared = humanize.Time(s.CreatedAt.Time)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			s.Filename,
			humanize.IBytes(uint64(s.Size)),
			humanize.Comma(int64(s.DownloadCount)),
			shared,
			m.URL(s.ShareToken),
		)
	}
	w.Flush()
	return nil
}

func runPublic(cmd *cobra.Command, args []string) error {
	m := newShareManager(newClient())
	token := args[0]

	d, err := m.Open(cmd.Context(), token)
	if err != nil {
		return err
	}

	fmt.Printf("Name:      %s\n", d.Filename)
	fmt.Printf("Type:      %s\n", d.MimeType)
	fmt.Printf("Size:      %s\n", humanize.IBytes(uint64(d.Size)))
	fmt.Printf("Owner:     %s\n", d.OwnerUsername)
	fmt.Printf("Downloads: %s\n", humanize.Comma(int64(d.DownloadCount)))
	if !d.CreatedAt.IsZero() {
		fmt.Printf("Uploaded:  %s\n", humanize.Time(d.CreatedAt.Time))
	}
	fmt.Printf("Link:      %s\n", m.URL(token))

	if !publicDownload {
		return nil
	}
	sink := &fileutil.DirSink{Dir: downloadDir()}
	if err := m.Download(cmd.Context(), token, d.Filename, sink); err != nil {
		return err
	}
	for _, p := range sink.Saved() {
		fmt.Printf("✓ %s\n", p)
	}
	return nil
}
