package commands

import (
	"context"
	"fmt"

	"casetrack-backend/internal/store"
	"casetrack-backend/internal/tracker"

	"github.com/spf13/cobra"
)

var (
	addRequest tracker.SearchRequest
	addSync    bool

	listFilter store.Filter

	updateSync bool
)

func init() {
	addCmd.Flags().StringVar(&addRequest.CNR, "cnr", "", "Search by cnr, upstream rarely answers these.")
	addCmd.Flags().StringVar(&addRequest.CaseType, "case-type", "", "Case type code or description, e.g. 'W.P.(C)'.")
	addCmd.Flags().StringVar(&addRequest.Number, "number", "", "Registration number.")
	addCmd.Flags().StringVar(&addRequest.Year, "year", "", "Registration year.")
	addCmd.Flags().StringVar(&addRequest.StateCode, "state", "", "State code of the court.")
	addCmd.Flags().StringVar(&addRequest.CourtCode, "court", "", "Court code of the bench, empty for the principal seat.")
	addCmd.Flags().BoolVar(&addSync, "sync-calendar", false, "Put upcoming hearings on the calendar.")
	addCmd.MarkFlagRequired("state")

	listCmd.Flags().StringVar(&listFilter.Status, "status", "", "Only cases with this status.")
	listCmd.Flags().StringVar(&listFilter.CaseType, "case-type", "", "Only cases of this type.")
	listCmd.Flags().IntVar(&listFilter.Limit, "limit", 0, "Maximum number of cases, 0 for all.")
	listCmd.Flags().IntVar(&listFilter.Offset, "offset", 0, "Cases to skip.")

	updateCmd.Flags().BoolVar(&updateSync, "sync-calendar", true, "Whether upcoming hearings go on the calendar.")

	rootCmd.AddCommand(addCmd, listCmd, showCmd, updateCmd, deleteCmd)
}

var addCmd = &cobra.Command{
	Use:   "add --state <code> (--cnr <cnr> | --case-type <type> --number <no> --year <year>)",
	Short: "Finds a case upstream and starts tracking it.",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(ctx context.Context, e *env, _ []string) error {
		req := addRequest
		req.Kind = tracker.SearchCase
		if req.CNR != "" {
			req.Kind = tracker.SearchCNR
		}
		rec, created, err := e.tracker.AddCase(ctx, req, addSync)
		if err != nil {
			return err
		}
		if !created {
			fmt.Println("already tracked")
		}
		printRecords(rec)
		return nil
	}),
}

var listCmd = &cobra.Command{
	Use:   "list [--status <status>] [--case-type <type>] [--limit n] [--offset n]",
	Short: "Lists tracked cases, most recently updated first.",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(ctx context.Context, e *env, _ []string) error {
		t := newTable()
		t.AppendHeader(recordHeader)
		count := 0
		err := e.store.List(ctx, listFilter, func(rec store.Record) error {
			t.AppendRow(recordRow(rec))
			count++
			return nil
		})
		if err != nil {
			return err
		}
		t.AppendFooter([]any{"", "", "", "", "", "", "Total", count})
		t.Render()
		return nil
	}),
}

var showCmd = &cobra.Command{
	Use:   "show <cnr>",
	Short: "Shows everything stored about a case.",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(ctx context.Context, e *env, args []string) error {
		rec, err := e.store.Get(ctx, args[0])
		if err != nil {
			return err
		}
		printCase(rec)
		return nil
	}),
}

var updateCmd = &cobra.Command{
	Use:   "update <cnr> --sync-calendar=<true|false>",
	Short: "Turns calendar sync of a case on or off.",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(ctx context.Context, e *env, args []string) error {
		rec, err := e.tracker.Update(ctx, args[0], updateSync)
		if err != nil {
			return err
		}
		printRecords(rec)
		return nil
	}),
}

var deleteCmd = &cobra.Command{
	Use:   "delete <cnr>",
	Short: "Stops tracking a case.",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(ctx context.Context, e *env, args []string) error {
		deleted, err := e.tracker.Delete(ctx, args[0])
		if err != nil {
			return err
		}
		if !deleted {
			return fmt.Errorf("%s is not tracked", args[0])
		}
		fmt.Println("deleted", args[0])
		return nil
	}),
}
