package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
)

// ErrJournalDisabled is returned by history operations when no journal path
// is configured.
var ErrJournalDisabled = errors.New("journal is disabled: set journal.path")

// History writes the most recent runs to w, newest first.
func (a *App) History(ctx context.Context, limit int, w io.Writer) error {
	if a.journal == nil {
		return ErrJournalDisabled
	}
	runs, err := a.journal.List(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tPIPELINE\tSTARTED\tDURATION\tOUTCOME\tEXECUTED\tREUSED\tFAILED\tSKIPPED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			r.ID, r.Pipeline, r.StartedAt.Local().Format(time.DateTime), r.Duration().Round(time.Millisecond),
			r.Outcome, r.Executed, r.Reused, r.Failed, r.Skipped)
	}
	return tw.Flush()
}

// HistoryRun writes one run and the outcome of each node it visited.
func (a *App) HistoryRun(ctx context.Context, id string, w io.Writer) error {
	if a.journal == nil {
		return ErrJournalDisabled
	}
	runID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", id, err)
	}
	run, err := a.journal.Get(ctx, runID)
	if err != nil {
		return err
	}
	nodes, err := a.journal.Nodes(ctx, runID)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Run:      %s\n", run.ID)
	fmt.Fprintf(w, "Pipeline: %s\n", run.Pipeline)
	fmt.Fprintf(w, "Targets:  %v\n", run.Targets)
	fmt.Fprintf(w, "Outcome:  %s\n", run.Outcome)
	if run.Error != "" {
		fmt.Fprintf(w, "Error:    %s\n", run.Error)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NODE\tKIND\tACTION\tREQUEST\tDURATION\tERROR")
	for _, n := range nodes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			n.Node, n.Kind, n.Action, n.Request, n.Duration.Round(time.Microsecond), n.Error)
	}
	return tw.Flush()
}
