// Package output renders computed schedules for the terminal and for
// machine consumers.
package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/hrushi1881/fintrack-cycles/internal/recurrence"
)

// JSONSchedule is the root JSON output object.
type JSONSchedule struct {
	Rule        string           `json:"rule"`
	Cycles      []JSONCycle      `json:"cycles"`
	Past        []int            `json:"past_cycles"`
	Current     []int            `json:"current_cycles"`
	Upcoming    []int            `json:"upcoming_cycles"`
	Summary     JSONSummary      `json:"summary"`
	Diagnostics []JSONDiagnostic `json:"diagnostics,omitempty"`
}

// JSONCycle is the JSON output format for one cycle.
type JSONCycle struct {
	Number         int    `json:"number"`
	Start          string `json:"start"`
	End            string `json:"end"`
	ExpectedDate   string `json:"expected_date"`
	ExpectedAmount string `json:"expected_amount"`
	MinimumAmount  string `json:"minimum_amount,omitempty"`
	PhaseLabel     string `json:"phase_label,omitempty"`
	Status         string `json:"status"`
	TransactionID  string `json:"transaction_id,omitempty"`
	PaymentID      string `json:"payment_id,omitempty"`
	BillCount      int    `json:"bill_count,omitempty"`
	Representative string `json:"representative_bill,omitempty"`
	Overridden     bool   `json:"overridden,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

// JSONSummary carries the aggregate statistics.
type JSONSummary struct {
	Cycles        int    `json:"cycles"`
	Upcoming      int    `json:"upcoming"`
	Current       int    `json:"current"`
	Overdue       int    `json:"overdue"`
	Paid          int    `json:"paid"`
	Skipped       int    `json:"skipped"`
	Cancelled     int    `json:"cancelled"`
	Postponed     int    `json:"postponed"`
	ExpectedTotal string `json:"expected_total"`
	MatchedTotal  string `json:"matched_total"`
	Overrides     int    `json:"overrides"`
}

// JSONDiagnostic is a pipeline finding worth surfacing.
type JSONDiagnostic struct {
	CycleNumber int    `json:"cycle_number,omitempty"`
	Message     string `json:"message"`
}

// PrintScheduleJSON writes the schedule as indented JSON.
func PrintScheduleJSON(w io.Writer, sched recurrence.Schedule) error {
	out := JSONSchedule{
		Rule:     sched.Rule.ID,
		Past:     cycleNumbers(sched.Past),
		Current:  cycleNumbers(sched.Current),
		Upcoming: cycleNumbers(sched.Upcoming),
		Summary: JSONSummary{
			Cycles:        sched.Stats.Cycles,
			Upcoming:      sched.Stats.Upcoming,
			Current:       sched.Stats.Current,
			Overdue:       sched.Stats.Overdue,
			Paid:          sched.Stats.Paid,
			Skipped:       sched.Stats.Skipped,
			Cancelled:     sched.Stats.Cancelled,
			Postponed:     sched.Stats.Postponed,
			ExpectedTotal: sched.Stats.ExpectedTotal.String(),
			MatchedTotal:  sched.Stats.MatchedTotal.String(),
			Overrides:     sched.Stats.OverrideCount,
		},
	}
	for _, c := range sched.Cycles {
		out.Cycles = append(out.Cycles, toJSONCycle(c))
	}
	for _, d := range sched.Diagnostics {
		out.Diagnostics = append(out.Diagnostics, JSONDiagnostic{CycleNumber: d.CycleNumber, Message: d.Message})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func toJSONCycle(c recurrence.Cycle) JSONCycle {
	jc := JSONCycle{
		Number:         c.Number,
		Start:          c.Start.Format("2006-01-02"),
		End:            c.End.Format("2006-01-02"),
		ExpectedDate:   c.ExpectedDate.Format("2006-01-02"),
		ExpectedAmount: c.ExpectedAmount.String(),
		PhaseLabel:     c.PhaseLabel,
		Status:         string(c.Status),
		BillCount:      len(c.Bills),
		Overridden:     c.Override != nil,
		Notes:          c.Notes,
	}
	if c.MinimumAmount != nil {
		jc.MinimumAmount = c.MinimumAmount.String()
	}
	if c.MatchedTransaction != nil {
		jc.TransactionID = c.MatchedTransaction.ID
	}
	if c.MatchedPayment != nil {
		jc.PaymentID = c.MatchedPayment.ID
	}
	if c.RepresentativeBill != nil {
		jc.Representative = c.RepresentativeBill.ID
	}
	return jc
}

func cycleNumbers(cycles []recurrence.Cycle) []int {
	nums := make([]int, 0, len(cycles))
	for _, c := range cycles {
		nums = append(nums, c.Number)
	}
	return nums
}

// PrintScheduleTable renders the schedule as a formatted table with a
// totals footer.
func PrintScheduleTable(w io.Writer, sched recurrence.Schedule) {
	fmt.Fprintf(w, "Rule %s: %d cycles (%d paid, %d overdue, %d upcoming)\n\n",
		sched.Rule.ID, sched.Stats.Cycles, sched.Stats.Paid, sched.Stats.Overdue, sched.Stats.Upcoming)

	t := table.NewWriter()
	t.SetOutputMirror(w)

	t.AppendHeader(table.Row{"#", "Expected", "Amount", "Min", "Phase", "Status", "Matched", "Bill", "Notes"})

	for _, c := range sched.Cycles {
		minStr := ""
		if c.MinimumAmount != nil {
			minStr = c.MinimumAmount.String()
		}
		matched := ""
		if c.MatchedTransaction != nil {
			matched = c.MatchedTransaction.ID
		} else if c.MatchedPayment != nil {
			matched = c.MatchedPayment.ID + " (pending)"
		}
		billStr := ""
		if c.RepresentativeBill != nil {
			billStr = c.RepresentativeBill.Title
			if billStr == "" {
				billStr = c.RepresentativeBill.ID
			}
			if len(c.Bills) > 1 {
				billStr = fmt.Sprintf("%s (+%d)", billStr, len(c.Bills)-1)
			}
		}
		notes := c.Notes
		if c.Override != nil {
			notes = "pinned " + notes
		}

		t.AppendRow(table.Row{
			c.Number,
			c.ExpectedDate.Format("2006-01-02"),
			c.ExpectedAmount.String(),
			minStr,
			c.PhaseLabel,
			statusCell(c.Status),
			matched,
			billStr,
			notes,
		})
	}

	t.AppendSeparator()
	t.AppendFooter(table.Row{"", "", "", "", "", "",
		text.Bold.Sprint("Expected / Matched"),
		text.Bold.Sprint(sched.Stats.ExpectedTotal.String()),
		text.Bold.Sprint(sched.Stats.MatchedTotal.String()),
	})

	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatDefault
	t.Style().Format.Footer = text.FormatDefault
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})

	t.Render()

	if len(sched.Diagnostics) > 0 {
		fmt.Fprintln(w)
		for _, d := range sched.Diagnostics {
			fmt.Fprintf(w, "warning: %s\n", d.Message)
		}
	}
}

func statusCell(s recurrence.Status) string {
	switch s {
	case recurrence.StatusPaid:
		return text.FgGreen.Sprint("PAID")
	case recurrence.StatusOverdue:
		return text.FgRed.Sprint("OVERDUE")
	case recurrence.StatusCurrent:
		return text.FgYellow.Sprint("CURRENT")
	case recurrence.StatusCancelled, recurrence.StatusSkipped:
		return text.FgHiBlack.Sprint(string(s))
	default:
		return string(s)
	}
}
