package admin

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/okx/vesting/config"
	"github.com/okx/vesting/utils"
	"github.com/okx/vesting/vesting"
)

// WritePlan prints what create-schedules and initial-transfer would send.
func WritePlan(w io.Writer, schedules []vesting.Schedule, entries []vesting.Distribution) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "INDEX\tBENEFICIARY\tSTART\tCLIFF\tDURATION\tSLICE\tREVOCABLE\tAMOUNT")
	for i, s := range schedules {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%t\t%s\n", i, s.Beneficiary.Hex(),
			time.Unix(int64(s.Start), 0).UTC().Format(time.RFC3339),
			formatSeconds(s.Cliff), formatSeconds(s.Duration), formatSeconds(s.SlicePeriodSeconds),
			s.Revocable, s.Amount.Dec())
	}
	fmt.Fprintf(tw, "\t%d schedules\t\t\t\t\t\t%s\n", len(schedules), vesting.TotalScheduled(schedules).Dec())
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tRECEIVER\tAMOUNT")
	for i, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", i, e.Receiver.Hex(), e.Amount.Dec())
	}
	fmt.Fprintf(tw, "\t%d receivers (one transaction)\t%s\n", len(entries), vesting.TotalDistributed(entries).Dec())
	return tw.Flush()
}

// WriteJournalSummary prints one line per run and operation.
func WriteJournalSummary(w io.Writer, summaries []utils.RunSummary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tOP\tSTARTED\tCONFIRMED\tPENDING\tFAILED\tNEXT INDEX")
	for _, s := range summaries {
		failed := "-"
		if s.Failed != nil {
			failed = fmt.Sprintf("#%d %s", s.Failed.Index, s.Failed.Error)
		}
		next := "-"
		if s.Op == vesting.OpCreateVestingSchedule {
			next = fmt.Sprint(s.NextIndex())
			if s.Failed != nil {
				next = fmt.Sprint(s.Failed.Index)
				if s.Failed.TxHash != "" {
					next = fmt.Sprintf("%d or %d (check tx %s)", s.Failed.Index, s.Failed.Index+1, s.Failed.TxHash)
				}
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n", s.RunID, s.Op, s.Started.Format(time.RFC3339),
			s.Confirmed, len(s.Pending), failed, next)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, s := range summaries {
		for _, p := range s.Pending {
			fmt.Fprintf(w, "warning: run %s index %d tx %s was sent but never confirmed, check it on chain before rerunning\n",
				s.RunID, p.Index, p.TxHash)
		}
	}
	return nil
}

func formatSeconds(s uint64) string {
	if s > 0 && s%config.SecondsPerMonth == 0 {
		return fmt.Sprintf("%dmo", s/config.SecondsPerMonth)
	}
	return fmt.Sprintf("%ds", s)
}
