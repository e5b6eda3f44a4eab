package cmd

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/filevault/vaultctl/internal/stats"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show file count and storage usage",
	Long: `Show your file count and storage usage, or the service-wide totals
for administrators, followed by deduplicated usage against your quota.`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Show your storage quota and rate limit",
	Args:  cobra.NoArgs,
	RunE:  runQuota,
}

func init() {
	rootCmd.AddCommand(statsCmd, quotaCmd)
}

func usageBar(fraction float64, width int) string {
	filled := int(fraction*float64(width) + 0.5)
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

func runStats(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	id := sess.Identity()
	p := stats.NewPresenter(newClient(), logger)

	dash, err := p.FetchDashboard(cmd.Context(), id)
	if err != nil {
		return err
	}
	if dash.TotalUsers != nil {
		fmt.Printf("Users:         %s\n", humanize.Comma(*dash.TotalUsers))
	}
	fmt.Printf("Files:         %s\n", humanize.Comma(dash.TotalFiles))
	fmt.Printf("Storage used:  %s\n", humanize.IBytes(uint64(dash.TotalStorageUsed)))

	storage, err := p.FetchStorage(cmd.Context(), id)
	if err != nil {
		return err
	}
	fmt.Printf("Deduplicated:  %s of %s %s\n",
		humanize.IBytes(uint64(storage.UsedDeduplicated)),
		humanize.IBytes(uint64(storage.Quota)),
		usageBar(storage.UsedFraction(), 20),
	)
	if storage.OriginalStorageUsage > 0 {
		fmt.Printf("Original size: %s\n", humanize.IBytes(uint64(storage.OriginalStorageUsage)))
	}
	fmt.Printf("Savings:       %s", storage.SavingsPercentage)
	if storage.SavingsBytes > 0 {
		fmt.Printf(" (%s)", humanize.IBytes(uint64(storage.SavingsBytes)))
	}
	fmt.Println()
	return nil
}

func runQuota(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	q, err := stats.NewPresenter(newClient(), logger).FetchQuota(cmd.Context(), sess.Identity())
	if err != nil {
		return err
	}
	fmt.Printf("Storage quota: %s\n", humanize.IBytes(uint64(q.StorageQuota)))
	fmt.Printf("Rate limit:    %d requests\n", q.RateLimit)
	return nil
}
