package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"casetrack-backend/internal/ecourts"
	"casetrack-backend/internal/ecourts/client"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// caseSearcher is the part of *client.Client the search command uses.
type caseSearcher interface {
	SearchByCaseType(ctx context.Context, caseType string, status client.Status, year string) ([]ecourts.Case, error)
	SearchByActType(ctx context.Context, actCode string, status client.Status) ([]ecourts.Case, error)
	ExpandCase(ctx context.Context, sparse ecourts.Case) ecourts.Case
}

type searchOptions struct {
	CaseType string
	ActCode  string
	Year     string
	Status   string
	Expand   bool
}

func parseStatus(raw string) (client.Status, error) {
	switch strings.ToLower(raw) {
	case "", "pending":
		return client.Pending, nil
	case "disposed":
		return client.Disposed, nil
	}
	return "", fmt.Errorf("--status must be pending or disposed, got '%s'", raw)
}

func runSearch(ctx context.Context, s caseSearcher, opts searchOptions) ([]ecourts.Case, error) {
	status, err := parseStatus(opts.Status)
	if err != nil {
		return nil, err
	}

	var cases []ecourts.Case
	switch {
	case opts.CaseType != "" && opts.ActCode != "":
		return nil, errors.New("pass either --type or --act, not both")
	case opts.CaseType != "":
		cases, err = s.SearchByCaseType(ctx, opts.CaseType, status, opts.Year)
	case opts.ActCode != "":
		if opts.Year != "" {
			return nil, errors.New("--year only applies to --type searches")
		}
		cases, err = s.SearchByActType(ctx, opts.ActCode, status)
	default:
		return nil, errors.New("nothing to search, pass --type or --act")
	}
	if err != nil {
		return nil, err
	}

	if opts.Expand {
		for i, c := range cases {
			cases[i] = s.ExpandCase(ctx, c)
		}
	}
	return cases, nil
}

var (
	searchState string
	searchCourt string
	searchFlags searchOptions
)

func init() {
	searchCmd.Flags().StringVar(&searchState, "state", "", "State code of the court.")
	searchCmd.Flags().StringVar(&searchCourt, "court", "", "Court code of the bench, empty for the principal seat.")
	searchCmd.Flags().StringVar(&searchFlags.CaseType, "type", "", "Case type code, see case-types.")
	searchCmd.Flags().StringVar(&searchFlags.ActCode, "act", "", "Act code, see case-types --acts.")
	searchCmd.Flags().StringVar(&searchFlags.Year, "year", "", "Registration year, only with --type.")
	searchCmd.Flags().StringVar(&searchFlags.Status, "status", "pending", "pending or disposed.")
	searchCmd.Flags().BoolVar(&searchFlags.Expand, "expand", false, "Fetch the full case history of every hit.")
	searchCmd.MarkFlagRequired("state")
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search --state <code> (--type <code> [--year <year>] | --act <code>) [--status pending|disposed] [--expand]",
	Short: "Lists upstream cases of a case type or act without tracking them.",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(ctx context.Context, e *env, _ []string) error {
		court, err := ecourts.NewCourt(searchState, "", searchCourt)
		if err != nil {
			return err
		}
		c, err := e.pool.Get(court)
		if err != nil {
			return err
		}
		cases, err := runSearch(ctx, c, searchFlags)
		if err != nil {
			return err
		}
		printSearch(cases)
		return nil
	}),
}

func printSearch(cases []ecourts.Case) {
	t := newTable()
	t.AppendHeader(table.Row{"CNR", "Case", "Type", "Registration", "Status", "Next hearing"})
	for _, c := range cases {
		t.AppendRow(table.Row{
			c.CNRNumber,
			c.Name(),
			c.CaseType,
			c.RegistrationNumber,
			c.CaseStatus,
			formatDate(c.NextHearingDate),
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "Total", len(cases)})
	t.Render()
}
