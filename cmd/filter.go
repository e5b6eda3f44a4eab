package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/filevault/vaultctl/internal/fileutil"
	"github.com/filevault/vaultctl/internal/query"
)

// sizeValue is a size flag such as --min-size 1.5MB, kept as the value
// and unit the user typed.
type sizeValue struct {
	value string
	unit  query.Unit
}

var _ pflag.Value = (*sizeValue)(nil)

func (s *sizeValue) String() string {
	if s.value == "" {
		return ""
	}
	return s.value + " " + string(s.unit)
}

func (s *sizeValue) Set(v string) error {
	value, unit, err := query.ParseSize(v)
	if err != nil {
		return err
	}
	s.value, s.unit = value, unit
	return nil
}

func (s *sizeValue) Type() string {
	return "size"
}

var (
	filterMinSize   sizeValue
	filterMaxSize   sizeValue
	filterMimeType  string
	filterStartDate string
	filterEndDate   string
)

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Manage the saved search filter",
	Long: `The saved filter narrows 'vaultctl list'. It is kept with the session
and cleared on logout.`,
}

var filterSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Save a filter",
	Long: `Save a filter. Fields not given are unset.

Sizes take a unit: Bytes (or B), KB, MB or GB; a bare number is bytes.
Dates are YYYY-MM-DD in the configured timezone. Use --mime-type All to
match every type.

Examples:
  vaultctl filter set --min-size 500KB --max-size 1.5MB
  vaultctl filter set --mime-type application/pdf --start-date 2024-01-01`,
	Args: cobra.NoArgs,
	RunE: runFilterSet,
}

var filterShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the saved filter",
	Args:  cobra.NoArgs,
	RunE:  runFilterShow,
}

var filterResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the saved filter",
	Args:  cobra.NoArgs,
	RunE:  runFilterReset,
}

func init() {
	filterSetCmd.Flags().Var(&filterMinSize, "min-size", "Minimum file size, e.g. 200KB")
	filterSetCmd.Flags().Var(&filterMaxSize, "max-size", "Maximum file size, e.g. 2GB")
	filterSetCmd.Flags().StringVarP(&filterMimeType, "mime-type", "m", "", "Exact MIME type, one of: "+strings.Join(fileutil.KnownMimeTypes, ", "))
	filterSetCmd.Flags().StringVar(&filterStartDate, "start-date", "", "Earliest upload date (YYYY-MM-DD)")
	filterSetCmd.Flags().StringVar(&filterEndDate, "end-date", "", "Latest upload date (YYYY-MM-DD)")

	filterCmd.AddCommand(filterSetCmd, filterShowCmd, filterResetCmd)
	rootCmd.AddCommand(filterCmd)
}

func runFilterSet(cmd *cobra.Command, args []string) error {
	f, err := query.Canonicalize(query.FilterInput{
		MinSizeValue: filterMinSize.value,
		MinSizeUnit:  filterMinSize.unit,
		MaxSizeValue: filterMaxSize.value,
		MaxSizeUnit:  filterMaxSize.unit,
		MimeType:     filterMimeType,
		StartDate:    filterStartDate,
		EndDate:      filterEndDate,
	})
	if err != nil {
		return err
	}

	sess, err := openSession()
	if err != nil {
		return err
	}
	sess.SetFilter(f)
	if err := sess.Save(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	fmt.Printf("✓ Filter saved: %s\n", describeFilter(f))
	return nil
}

func runFilterShow(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	f := sess.SavedFilter()
	in := f.Input()

	show := func(label, value string) {
		if value == "" {
			value = "-"
		}
		fmt.Printf("%-11s %s\n", label+":", value)
	}
	size := func(value string, unit query.Unit) string {
		if value == "" {
			return ""
		}
		return value + " " + string(unit)
	}
	show("Min size", size(in.MinSizeValue, in.MinSizeUnit))
	show("Max size", size(in.MaxSizeValue, in.MaxSizeUnit))
	show("MIME type", in.MimeType)
	show("Start date", in.StartDate)
	show("End date", in.EndDate)
	return nil
}

func runFilterReset(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	sess.SetFilter(query.Filter{})
	if err := sess.Save(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	fmt.Println("✓ Filter cleared")
	return nil
}

func describeFilter(f query.Filter) string {
	var parts []string
	if s := query.DisplaySize(f.MinSizeBytes); s != "" {
		parts = append(parts, ">= "+s)
	}
	if s := query.DisplaySize(f.MaxSizeBytes); s != "" {
		parts = append(parts, "<= "+s)
	}
	if f.MimeType != "" {
		parts = append(parts, f.MimeType)
	}
	if f.StartDate != "" {
		parts = append(parts, "from "+f.StartDate)
	}
	if f.EndDate != "" {
		parts = append(parts, "until "+f.EndDate)
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}
