package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"casetrack-backend/internal/archive"
	"casetrack-backend/internal/store"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
)

var reparseSave bool

func init() {
	reparseCmd.Flags().BoolVar(&reparseSave, "save", false, "Store the reparsed record.")
	rootCmd.AddCommand(reparseCmd, orderCmd, businessCmd)
}

func recordIndex(raw string, length int, what string) (int, error) {
	index, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s index: %w", what, err)
	}
	if index < 0 || index >= length {
		return 0, fmt.Errorf("%s index %d out of range, case has %d", what, index, length)
	}
	return index, nil
}

var reparseCmd = &cobra.Command{
	Use:   "reparse <cnr> [--save]",
	Short: "Parses the archived case history again and shows what differs from the stored record.",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(ctx context.Context, e *env, args []string) error {
		if e.archive == nil {
			return errors.New("archive.dir is not configured")
		}
		rec, err := e.store.Get(ctx, args[0])
		if err != nil {
			return err
		}
		document, err := e.archive.GetCase(ctx, rec.Case.CNRNumber)
		if errors.Is(err, archive.ErrNotArchived) {
			return fmt.Errorf("no archived history for %s, refresh it first", rec.Case.CNRNumber)
		}
		if err != nil {
			return err
		}

		c, err := e.pool.Get(rec.Court)
		if err != nil {
			return err
		}
		history, err := c.ParseHistory(rec.Case, document)
		if err != nil {
			return err
		}

		diff := cmp.Diff(rec.Case, history.Case)
		if diff == "" {
			fmt.Println("no differences")
			return nil
		}
		fmt.Println(diff)

		if !reparseSave {
			return nil
		}
		err = e.store.Upsert(ctx, store.Record{
			Case:            history.Case,
			Court:           rec.Court,
			CalendarEventID: rec.CalendarEventID,
			SyncCalendar:    rec.SyncCalendar,
		})
		if err != nil {
			return err
		}
		fmt.Println("saved", rec.Case.CNRNumber)
		return nil
	}),
}

var orderCmd = &cobra.Command{
	Use:   "order <cnr> <index> <file>",
	Short: "Downloads an order of a tracked case.",
	Args:  cobra.ExactArgs(3),
	RunE: withEnv(func(ctx context.Context, e *env, args []string) error {
		rec, err := e.store.Get(ctx, args[0])
		if err != nil {
			return err
		}
		index, err := recordIndex(args[1], len(rec.Case.Orders), "order")
		if err != nil {
			return err
		}
		c, err := e.pool.Get(rec.Court)
		if err != nil {
			return err
		}

		f, err := os.Create(args[2])
		if err != nil {
			return err
		}
		n, err := c.DownloadOrder(ctx, rec.Case.Orders[index], rec.Case, f)
		closeErr := f.Close()
		if err != nil {
			return err
		}
		if closeErr != nil {
			return closeErr
		}
		fmt.Printf("wrote %d bytes to %s\n", n, args[2])
		return nil
	}),
}

var businessCmd = &cobra.Command{
	Use:   "business <cnr> <hearing-index>",
	Short: "Shows the business recorded for a hearing of a tracked case.",
	Args:  cobra.ExactArgs(2),
	RunE: withEnv(func(ctx context.Context, e *env, args []string) error {
		rec, err := e.store.Get(ctx, args[0])
		if err != nil {
			return err
		}
		index, err := recordIndex(args[1], len(rec.Case.Hearings), "hearing")
		if err != nil {
			return err
		}
		c, err := e.pool.Get(rec.Court)
		if err != nil {
			return err
		}
		business, err := c.HearingBusiness(ctx, rec.Case.Hearings[index])
		if err != nil {
			return err
		}
		fmt.Println(business)
		return nil
	}),
}
