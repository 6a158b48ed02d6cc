package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/coopco/dodgem/internal/session"
)

func newHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history [session-id]",
		Short: "List past bump sessions, or show one session's cycles",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			m := session.NewManager(cfg.History.Dir)
			if len(args) == 1 {
				return a.showSession(m, args[0])
			}
			return a.listSessions(m)
		},
	}
}

func (a *app) listSessions(m *session.Manager) error {
	metas, err := m.List()
	if err != nil {
		return err
	}
	if len(metas) == 0 {
		a.printer.Info("No bump sessions recorded yet")
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tACCOUNT\tTARGET\tEVERY\tBUMPED\tFAILED")
	for _, meta := range metas {
		var ok, failed int
		if s := m.Get(meta.ID); s != nil {
			ok, failed = s.Totals()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%sm\t%d\t%d\n",
			meta.ID, meta.CreatedAt, meta.Identity, meta.Target,
			strconv.FormatFloat(meta.IntervalMinutes, 'f', -1, 64), ok, failed)
	}
	return w.Flush()
}

func (a *app) showSession(m *session.Manager, id string) error {
	s := m.Get(id)
	if s == nil {
		return fmt.Errorf("no session %q in history", id)
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tCYCLE\tRESULT\tDETAIL")
	for _, r := range s.AllRecords() {
		switch r.Kind {
		case session.KindOutcome:
			detail := fmt.Sprintf("%s (%dms)", r.Listing, r.ElapsedMs)
			if r.Reason != "" {
				detail += ": " + r.Reason
			}
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", r.Time, r.Cycle, r.Status, detail)
		case session.KindCycle:
			detail := fmt.Sprintf("bumped %d/%d", r.Succeeded, r.Total)
			if r.Error != "" {
				detail = r.Error
			}
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", r.Time, r.Cycle, "cycle", detail)
		case session.KindFatal:
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", r.Time, r.Cycle, "fatal", r.Error)
		}
	}
	return w.Flush()
}
