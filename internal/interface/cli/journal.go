package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/deeboard/internal/app"
	"github.com/YoshitsuguKoike/deeboard/internal/application/port/output"
	"github.com/YoshitsuguKoike/deeboard/internal/infrastructure/di"
)

// errNoJournal is returned when the journal driver is none
var errNoJournal = errors.New("journal is disabled (journal_driver is none)")

func newJournalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect recorded turns",
	}
	cmd.AddCommand(newJournalListCmd())
	cmd.AddCommand(newJournalStatsCmd())
	return cmd
}

func openJournal(ctx context.Context) (output.Journal, error) {
	j, err := di.OpenJournal(ctx, afero.NewOsFs(), globalConfig, app.GetLogger())
	if err != nil {
		return nil, err
	}
	if j == nil {
		return nil, errNoJournal
	}
	return j, nil
}

func newJournalListCmd() *cobra.Command {
	var (
		session string
		limit   int
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded turns",
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := openJournal(cmd.Context())
			if err != nil {
				return err
			}
			defer j.Close()

			recs, err := j.List(cmd.Context(), session, limit)
			if err != nil {
				return err
			}
			return printRecords(cmd.OutOrStdout(), recs, asJSON)
		},
	}
	cmd.Flags().StringVarP(&session, "session", "s", "", "Only list turns of this session")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of turns, 0 for all")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print one JSON record per line")
	return cmd
}

func printRecords(w io.Writer, recs []output.TurnRecord, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		for _, rec := range recs {
			if err := enc.Encode(rec); err != nil {
				return err
			}
		}
		return nil
	}
	if len(recs) == 0 {
		fmt.Fprintln(w, "No turns recorded")
		return nil
	}
	for _, rec := range recs {
		fmt.Fprintf(w, "%s  ", rec.SessionID)
		printTurn(w, rec)
	}
	return nil
}

// statusCounter is implemented by journals that aggregate in storage
type statusCounter interface {
	Count(ctx context.Context, sessionID string) (map[string]int, error)
}

func newJournalStatsCmd() *cobra.Command {
	var session string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Count the turns of a session by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			if session == "" {
				return errors.New("--session is required")
			}
			j, err := openJournal(cmd.Context())
			if err != nil {
				return err
			}
			defer j.Close()

			counts, err := countTurns(cmd.Context(), j, session)
			if err != nil {
				return err
			}
			statuses := make([]string, 0, len(counts))
			for s := range counts {
				statuses = append(statuses, s)
			}
			sort.Strings(statuses)
			for _, s := range statuses {
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %d\n", s, counts[s])
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&session, "session", "s", "", "Session ID")
	return cmd
}

func countTurns(ctx context.Context, j output.Journal, session string) (map[string]int, error) {
	if c, ok := j.(statusCounter); ok {
		return c.Count(ctx, session)
	}
	recs, err := j.List(ctx, session, 0)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, rec := range recs {
		counts[rec.Status]++
	}
	return counts, nil
}
