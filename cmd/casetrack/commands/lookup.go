package commands

import (
	"context"
	"fmt"

	"casetrack-backend/internal/ecourts"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	typesState string
	typesCourt string
	typesSync  bool
	typesActs  bool
	typesQuery string
)

func init() {
	caseTypesCmd.Flags().StringVar(&typesState, "state", "", "State code of the court.")
	caseTypesCmd.Flags().StringVar(&typesCourt, "court", "", "Court code of the bench, empty for the principal seat.")
	caseTypesCmd.Flags().BoolVar(&typesSync, "sync", false, "Fetch from upstream and replace the stored list.")
	caseTypesCmd.Flags().BoolVar(&typesActs, "acts", false, "List act types instead of case types.")
	caseTypesCmd.Flags().StringVar(&typesQuery, "query", "", "Act name to search for, only with --acts.")
	caseTypesCmd.MarkFlagRequired("state")

	rootCmd.AddCommand(courtsCmd, caseTypesCmd)
}

var courtsCmd = &cobra.Command{
	Use:   "courts",
	Short: "Lists every supported high court bench.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		t := newTable()
		t.AppendHeader(table.Row{"State", "Court", "Name"})
		for _, court := range ecourts.Courts() {
			t.AppendRow(table.Row{court.StateCode(), court.CourtCode(), court.Name()})
		}
		t.Render()
	},
}

var caseTypesCmd = &cobra.Command{
	Use:   "case-types --state <code> [--court <code>] [--sync] [--acts [--query <name>]]",
	Short: "Lists the case or act types of a court.",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(ctx context.Context, e *env, _ []string) error {
		court, err := ecourts.NewCourt(typesState, "", typesCourt)
		if err != nil {
			return err
		}
		if typesActs {
			return printActTypes(ctx, e, court)
		}

		types, err := e.store.CaseTypes(ctx, court)
		if err != nil {
			return err
		}
		if typesSync || len(types) == 0 {
			c, err := e.pool.Get(court)
			if err != nil {
				return err
			}
			types, err = c.CaseTypes(ctx)
			if err != nil {
				return err
			}
			err = e.store.PutCaseTypes(ctx, court, types)
			if err != nil {
				return err
			}
		}

		t := newTable()
		t.SetTitle(court.Name())
		t.AppendHeader(table.Row{"Code", "Description"})
		for _, ct := range types {
			t.AppendRow(table.Row{ct.Code, ct.Description})
		}
		t.Render()
		return nil
	}),
}

func printActTypes(ctx context.Context, e *env, court ecourts.Court) error {
	types, err := e.store.ActTypes(ctx, court)
	if err != nil {
		return err
	}
	if typesSync || typesQuery != "" || len(types) == 0 {
		c, err := e.pool.Get(court)
		if err != nil {
			return err
		}
		types, err = c.ActTypes(ctx, typesQuery)
		if err != nil {
			return err
		}
		if typesQuery == "" {
			err = e.store.PutActTypes(ctx, court, types)
			if err != nil {
				return err
			}
		}
	}

	t := newTable()
	t.SetTitle(fmt.Sprintf("%s - acts", court.Name()))
	t.AppendHeader(table.Row{"Code", "Description"})
	for _, at := range types {
		t.AppendRow(table.Row{at.Code, at.Description})
	}
	t.Render()
	return nil
}
