package commands

import (
	"context"
	"errors"
	"fmt"

	"casetrack-backend/internal/tracker"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	refreshAll   bool
	refreshForce bool
)

func init() {
	refreshCmd.Flags().BoolVar(&refreshAll, "all", false, "Refresh every tracked case.")
	refreshCmd.Flags().BoolVar(&refreshForce, "force", false, "Write the record even if nothing changed.")
	rootCmd.AddCommand(refreshCmd)
}

var refreshCmd = &cobra.Command{
	Use:   "refresh (--all | <cnr>...) [--force]",
	Short: "Fetches the latest case history from upstream.",
	RunE: withEnv(func(ctx context.Context, e *env, args []string) error {
		var (
			result tracker.BatchResult
			err    error
		)
		switch {
		case refreshAll && len(args) > 0:
			return errors.New("pass either --all or cnr numbers, not both")
		case refreshAll:
			result, err = e.tracker.RefreshAll(ctx, refreshForce)
		case len(args) > 0:
			result, err = e.tracker.RefreshBatch(ctx, args, refreshForce)
		default:
			return errors.New("nothing to refresh, pass --all or cnr numbers")
		}
		printBatch(result)
		if err != nil {
			return err
		}
		if result.Failed > 0 {
			return fmt.Errorf("%d of %d cases failed to refresh", result.Failed, result.Total)
		}
		return nil
	}),
}

func printBatch(result tracker.BatchResult) {
	t := newTable()
	t.AppendHeader(table.Row{"CNR", "Status", "Changed", "Error"})
	for _, d := range result.Details {
		t.AppendRow(table.Row{d.CNR, d.Status, d.Changed, d.Error})
	}
	t.AppendFooter(table.Row{
		fmt.Sprintf("total %d", result.Total),
		fmt.Sprintf("ok %d", result.Succeeded),
		"",
		fmt.Sprintf("failed %d", result.Failed),
	})
	t.Render()
}
