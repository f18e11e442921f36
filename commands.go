package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/hrushi1881/fintrack-cycles/internal/importer"
	"github.com/hrushi1881/fintrack-cycles/internal/output"
	"github.com/hrushi1881/fintrack-cycles/internal/recurrence"
	"github.com/hrushi1881/fintrack-cycles/internal/service"
)

func init() {
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(addRuleCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(setOverrideCmd)
	rootCmd.AddCommand(removeOverrideCmd)
	rootCmd.AddCommand(setNoteCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(watchCmd)
}

// --- rules ---

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the configured recurrence rules",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		rules, err := st.ListRules(cmd.Context())
		if err != nil {
			return err
		}
		if len(rules) == 0 {
			fmt.Println("No rules configured.")
			return nil
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"ID", "Title", "Nature", "Frequency", "Start", "End", "Amount"})
		for _, r := range rules {
			end := ""
			if r.End != nil {
				end = r.End.Format("2006-01-02")
			}
			freq := string(r.Frequency)
			if r.Frequency == recurrence.FreqCustom {
				freq = fmt.Sprintf("every %d %s", r.Interval, r.CustomUnit)
			} else if r.Interval > 1 {
				freq = fmt.Sprintf("%s x%d", freq, r.Interval)
			}
			t.AppendRow(table.Row{r.ID, r.Title, string(r.Nature), freq, r.Start.Format("2006-01-02"), end, r.BaseAmount.String()})
		}
		t.SetStyle(table.StyleRounded)
		t.Style().Format.Header = text.FormatDefault
		t.SetColumnConfigs([]table.ColumnConfig{{Number: 7, Align: text.AlignRight}})
		t.Render()
		return nil
	},
}

// --- add-rule ---

var addRuleCmd = &cobra.Command{
	Use:   "add-rule [id]",
	Short: "Create or replace a recurrence rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rule := recurrence.Rule{ID: args[0]}

		rule.Title, _ = cmd.Flags().GetString("title")
		rule.Category, _ = cmd.Flags().GetString("category")

		nature, _ := cmd.Flags().GetString("nature")
		rule.Nature = recurrence.ParseNature(nature)

		freqStr, _ := cmd.Flags().GetString("frequency")
		freq, ok := recurrence.ParseFrequency(freqStr)
		if !ok {
			return fmt.Errorf("unknown frequency %q", freqStr)
		}
		rule.Frequency = freq

		rule.Interval, _ = cmd.Flags().GetInt("interval")
		rule.AnchorDay, _ = cmd.Flags().GetInt("anchor-day")

		unit, _ := cmd.Flags().GetString("custom-unit")
		rule.CustomUnit = recurrence.ParseCustomUnit(unit)

		startStr, _ := cmd.Flags().GetString("start")
		start, err := parseDateArg(startStr)
		if err != nil {
			return fmt.Errorf("invalid --start: %w", err)
		}
		rule.Start = start

		if endStr, _ := cmd.Flags().GetString("end"); endStr != "" {
			end, err := parseDateArg(endStr)
			if err != nil {
				return fmt.Errorf("invalid --end: %w", err)
			}
			rule.End = &end
		}

		amountStr, _ := cmd.Flags().GetString("amount")
		rule.BaseAmount, err = decimal.NewFromString(amountStr)
		if err != nil {
			return fmt.Errorf("invalid --amount %q: %w", amountStr, err)
		}

		phaseArgs, _ := cmd.Flags().GetStringArray("phase")
		for _, raw := range phaseArgs {
			phase, err := parsePhaseArg(raw)
			if err != nil {
				return err
			}
			rule.Phases = append(rule.Phases, phase)
		}

		if err := rule.Validate(); err != nil {
			return err
		}

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.SaveRule(cmd.Context(), rule); err != nil {
			return err
		}
		fmt.Printf("Saved rule %s.\n", rule.ID)
		return nil
	},
}

func init() {
	addRuleCmd.Flags().String("title", "", "human readable rule title")
	addRuleCmd.Flags().String("category", "", "transaction category the rule matches against")
	addRuleCmd.Flags().String("nature", "other", "obligation nature: subscription, bill, income, other")
	addRuleCmd.Flags().String("frequency", "monthly", "daily, weekly, monthly, quarterly, yearly, custom")
	addRuleCmd.Flags().Int("interval", 1, "repeat interval for custom frequency")
	addRuleCmd.Flags().Int("anchor-day", 0, "day of month to anchor monthly-like cycles to")
	addRuleCmd.Flags().String("custom-unit", "days", "unit for custom frequency: days, weeks, months")
	addRuleCmd.Flags().String("start", "", "first occurrence date, YYYY-MM-DD (required)")
	addRuleCmd.Flags().String("end", "", "optional last date, YYYY-MM-DD")
	addRuleCmd.Flags().String("amount", "0", "base expected amount per cycle")
	addRuleCmd.Flags().StringArray("phase", nil, "pricing phase as DATE=AMOUNT[:LABEL], repeatable")
	addRuleCmd.MarkFlagRequired("start")
}

// parsePhaseArg parses "2024-06-01=49.90:Promo" into a pricing phase.
// The label part is optional.
func parsePhaseArg(raw string) (recurrence.PricingPhase, error) {
	datePart, rest, ok := strings.Cut(raw, "=")
	if !ok {
		return recurrence.PricingPhase{}, fmt.Errorf("invalid --phase %q, want DATE=AMOUNT[:LABEL]", raw)
	}
	start, err := parseDateArg(datePart)
	if err != nil {
		return recurrence.PricingPhase{}, fmt.Errorf("invalid --phase date %q: %w", datePart, err)
	}
	amountPart, label, _ := strings.Cut(rest, ":")
	amount, err := decimal.NewFromString(amountPart)
	if err != nil {
		return recurrence.PricingPhase{}, fmt.Errorf("invalid --phase amount %q: %w", amountPart, err)
	}
	return recurrence.PricingPhase{Start: start, Amount: amount, Label: label}, nil
}

// --- schedule ---

var scheduleCmd = &cobra.Command{
	Use:   "schedule [rule-id]",
	Short: "Compute and print the cycle schedule for a rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		opts := []service.Option{}
		maxCycles, _ := cmd.Flags().GetInt("max-cycles")
		if maxCycles == 0 {
			maxCycles = cfg.MaxCycles
		}
		opts = append(opts, service.WithMaxCycles(maxCycles))

		if todayStr, _ := cmd.Flags().GetString("today"); todayStr != "" {
			today, err := parseDateArg(todayStr)
			if err != nil {
				return fmt.Errorf("invalid --today: %w", err)
			}
			opts = append(opts, service.WithClock(func() time.Time { return today }))
		}

		tracker := service.New(st, log, opts...)
		sched, err := tracker.Schedule(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("output")
		switch format {
		case "json":
			return output.PrintScheduleJSON(os.Stdout, sched)
		case "table":
			output.PrintScheduleTable(os.Stdout, sched)
			return nil
		default:
			return fmt.Errorf("unknown output format %q, want table or json", format)
		}
	},
}

func init() {
	scheduleCmd.Flags().Int("max-cycles", 0, "cap on generated cycles (0 = configured default)")
	scheduleCmd.Flags().String("today", "", "classify against this date instead of the wall clock, YYYY-MM-DD")
	scheduleCmd.Flags().String("output", "table", "output format: table or json")
}

// --- set-override ---

var setOverrideCmd = &cobra.Command{
	Use:   "set-override [rule-id] [cycle-number]",
	Short: "Pin the date, amount, or minimum of one cycle",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cycleNumber, err := parseCycleArg(args[1])
		if err != nil {
			return err
		}
		ov := recurrence.Override{CycleNumber: cycleNumber}

		if dateStr, _ := cmd.Flags().GetString("date"); dateStr != "" {
			date, err := parseDateArg(dateStr)
			if err != nil {
				return fmt.Errorf("invalid --date: %w", err)
			}
			ov.Date = &date
		}
		if amountStr, _ := cmd.Flags().GetString("amount"); amountStr != "" {
			amount, err := decimal.NewFromString(amountStr)
			if err != nil {
				return fmt.Errorf("invalid --amount %q: %w", amountStr, err)
			}
			ov.Amount = &amount
		}
		if minStr, _ := cmd.Flags().GetString("minimum"); minStr != "" {
			min, err := decimal.NewFromString(minStr)
			if err != nil {
				return fmt.Errorf("invalid --minimum %q: %w", minStr, err)
			}
			ov.MinimumAmount = &min
		}
		if notes, _ := cmd.Flags().GetString("notes"); notes != "" {
			ov.Notes = &notes
		}

		if ov.Date == nil && ov.Amount == nil && ov.MinimumAmount == nil && ov.Notes == nil {
			return fmt.Errorf("nothing to override, set at least one of --date, --amount, --minimum, --notes")
		}

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		tracker := service.New(st, log)
		if err := tracker.SetOverride(cmd.Context(), args[0], ov); err != nil {
			return err
		}
		fmt.Printf("Override saved for cycle %d of rule %s.\n", cycleNumber, args[0])
		return nil
	},
}

func init() {
	setOverrideCmd.Flags().String("date", "", "pinned expected date, YYYY-MM-DD")
	setOverrideCmd.Flags().String("amount", "", "pinned expected amount")
	setOverrideCmd.Flags().String("minimum", "", "pinned minimum amount")
	setOverrideCmd.Flags().String("notes", "", "note attached to the cycle")
}

// --- remove-override ---

var removeOverrideCmd = &cobra.Command{
	Use:   "remove-override [rule-id] [cycle-number]",
	Short: "Remove a cycle override, restoring computed values",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cycleNumber, err := parseCycleArg(args[1])
		if err != nil {
			return err
		}

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		tracker := service.New(st, log)
		if err := tracker.RemoveOverride(cmd.Context(), args[0], cycleNumber); err != nil {
			return err
		}
		fmt.Printf("Override removed for cycle %d of rule %s.\n", cycleNumber, args[0])
		return nil
	},
}

// --- set-note ---

var setNoteCmd = &cobra.Command{
	Use:   "set-note [rule-id] [cycle-number] [text]",
	Short: "Attach a note to one cycle",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		cycleNumber, err := parseCycleArg(args[1])
		if err != nil {
			return err
		}

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		tracker := service.New(st, log)
		if err := tracker.SetNote(cmd.Context(), args[0], cycleNumber, args[2]); err != nil {
			return err
		}
		fmt.Printf("Note saved for cycle %d of rule %s.\n", cycleNumber, args[0])
		return nil
	},
}

// --- import ---

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import transactions from a bank export file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, _ := cmd.Flags().GetString("source")
		parser, err := importer.Get(source)
		if err != nil {
			return err
		}

		txs, err := parser.Parse(args[0])
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", args[0], err)
		}
		if len(txs) == 0 {
			fmt.Println("No transactions found in file.")
			return nil
		}

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.AddTransactions(cmd.Context(), txs); err != nil {
			return err
		}
		fmt.Printf("Imported %d transactions.\n", len(txs))
		return nil
	},
}

func init() {
	importCmd.Flags().String("source", "xlsx", fmt.Sprintf("file format, one of: %s", strings.Join(importer.Sources(), ", ")))
}

// --- watch ---

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Periodically recompute all schedules and print changes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		cronSpec, _ := cmd.Flags().GetString("cron")
		if cronSpec == "" {
			cronSpec = cfg.CronSpec
		}

		tracker := service.New(st, log, service.WithMaxCycles(cfg.MaxCycles))
		watcher := service.NewWatcher(tracker, log, cronSpec, func(sched recurrence.Schedule) {
			output.PrintScheduleTable(os.Stdout, sched)
			fmt.Println()
		})

		if err := watcher.Start(); err != nil {
			return err
		}
		log.WithField("cron", cronSpec).Info("watching for schedule changes")

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop

		watcher.Stop()
		return nil
	},
}

func init() {
	watchCmd.Flags().String("cron", "", "cron spec for recomputes (default from FINTRACK_CRON)")
}

func parseDateArg(s string) (time.Time, error) {
	return time.Parse("2006-01-02", strings.TrimSpace(s))
}

func parseCycleArg(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid cycle number %q", s)
	}
	return n, nil
}
