package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/filevault/vaultctl/internal/catalog"
	"github.com/filevault/vaultctl/internal/fileutil"
	"github.com/filevault/vaultctl/internal/query"
	"github.com/filevault/vaultctl/internal/vault"
)

var (
	listPattern string
	listLong    bool
	listNoSaved bool
)

var listCmd = &cobra.Command{
	Use:   "list [query]",
	Short: "Search your files",
	Long: `List your files whose name contains the query, narrowed by the
saved filter (see 'vaultctl filter'). Optionally filter the result by a
regex pattern on the filename.

Administrators see every user's files grouped by owner; the query and
filter do not apply to them.`,
	RunE: runList,
}

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Show your most recently uploaded files",
	Args:  cobra.NoArgs,
	RunE:  runRecent,
}

func init() {
	listCmd.Flags().StringVarP(&listPattern, "pattern", "P", "", "Regex pattern to filter filenames")
	listCmd.Flags().BoolVarP(&listLong, "long", "l", false, "Show detailed information")
	listCmd.Flags().BoolVar(&listNoSaved, "no-filter", false, "Ignore the saved filter")
	rootCmd.AddCommand(listCmd, recentCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	store, err := newCatalog(newClient())
	if err != nil {
		return err
	}

	filter := sess.SavedFilter()
	if listNoSaved {
		filter = query.Filter{}
	}
	view := catalog.NewView(store, sess.Identity(), filter)
	view.SetQuery(strings.Join(args, " "))

	rs, err := view.Submit(cmd.Context())
	if err != nil {
		return err
	}

	files := rs.Files
	if listPattern != "" {
		files, err = fileutil.FilterByPattern(files, func(f vault.FileRecord) string { return f.Filename }, listPattern)
		if err != nil {
			return err
		}
	}

	if !filter.IsZero() && !rs.Admin {
		fmt.Printf("Filter: %s\n\n", describeFilter(filter))
	}
	if len(files) == 0 {
		fmt.Println("No files found")
		return nil
	}

	if rs.Admin {
		for _, g := range catalog.GroupByOwner(files) {
			fmt.Printf("%s (%d files)\n", g.Owner, len(g.Files))
			printFiles(g.Files, "  ")
			fmt.Println()
		}
	} else {
		printFiles(files, "")
	}

	var total int64
	for _, f := range files {
		total += f.Size
	}
	fmt.Printf("\nTotal: %s files, %s\n", humanize.Comma(int64(len(files))), humanize.IBytes(uint64(total)))
	return nil
}

func printFiles(files []vault.FileRecord, indent string) {
	if !listLong {
		for _, f := range files {
			fmt.Printf("%s%s\t%s\n", indent, f.ID, f.Filename)
		}
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%sID\tNAME\tSIZE\tTYPE\tUPLOADED\n", indent)
	fmt.Fprintf(w, "%s--\t----\t----\t----\t--------\n", indent)
	for _, f := range files {
		fmt.Fprintf(w, "%s%s\t%s\t%s\t%s\t%s\n",
			indent,
			f.ID,
			f.Filename,
			humanize.IBytes(uint64(f.Size)),
			f.MimeType,
			uploadedAt(f),
		)
	}
	w.Flush()
}

func uploadedAt(f vault.FileRecord) string {
	if f.CreatedAt.IsZero() {
		return "-"
	}
	return humanize.Time(f.CreatedAt)
}

func runRecent(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	store, err := newCatalog(newClient())
	if err != nil {
		return err
	}

	files, err := store.Recent(cmd.Context(), sess.Identity())
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("No files uploaded yet")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSIZE\tUPLOADED")
	fmt.Fprintln(w, "--\t----\t----\t--------")
	for _, f := range files {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", f.ID, f.Filename, humanize.IBytes(uint64(f.Size)), uploadedAt(f))
	}
	w.Flush()
	return nil
}
