package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewScheduleCmd создаёт группу команд для управления schedules.
func NewScheduleCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage schedules",
	}

	cmd.AddCommand(
		newScheduleAddCmd(clientFn, outputFn),
		newScheduleListCmd(clientFn, outputFn),
		newScheduleShowCmd(clientFn, outputFn),
		newScheduleRemoveCmd(clientFn, outputFn),
	)

	return cmd
}

var scheduleHeaders = []string{"ID", "FLOW_ID", "CRON", "TIMEZONE", "ENABLED", "NEXT_DUE", "LAST_RUN"}

func scheduleRow(s ScheduleResponse) []string {
	return []string{
		s.ID, s.FlowID, s.CronExpr, s.Timezone,
		strconv.FormatBool(s.Enabled), s.NextDueAt, s.LastRunAt,
	}
}

func newScheduleListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var flowID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List schedules",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			schedules, err := client.ListSchedules(flowID)
			if err != nil {
				return err
			}

			rows := make([][]string, len(schedules))
			for i, s := range schedules {
				rows[i] = scheduleRow(s)
			}

			out.Print(scheduleHeaders, rows, schedules)
			return nil
		},
	}

	cmd.Flags().StringVar(&flowID, "flow-id", "", "Filter by flow ID")

	return cmd
}

func newScheduleAddCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var cronExpr string
	var timezone string
	var pairs []string
	var contextFile string

	cmd := &cobra.Command{
		Use:   "add FLOW_ID",
		Short: "Run a flow on a cron schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			execCtx, err := ParseContext(pairs, contextFile)
			if err != nil {
				return err
			}

			schedule, err := client.CreateSchedule(args[0], CreateScheduleRequest{
				CronExpr: cronExpr,
				Timezone: timezone,
				Context:  execCtx,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Schedule created: %s", schedule.ID))
			out.Print(scheduleHeaders, [][]string{scheduleRow(*schedule)}, schedule)
			return nil
		},
	}

	cmd.Flags().StringVar(&cronExpr, "cron", "", "Cron expression (e.g. '*/5 * * * *' or '@hourly')")
	cmd.Flags().StringVar(&timezone, "timezone", "", "Timezone (e.g. 'Europe/Moscow', default UTC)")
	cmd.Flags().StringArrayVar(&pairs, "context", nil, "Context values as KEY=VALUE (repeatable)")
	cmd.Flags().StringVar(&contextFile, "context-file", "", "JSON file with the initial context")
	cmd.MarkFlagRequired("cron")

	return cmd
}

func newScheduleShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show schedule details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schedule, err := clientFn().GetSchedule(args[0])
			if err != nil {
				return err
			}

			outputFn().Print(scheduleHeaders, [][]string{scheduleRow(*schedule)}, schedule)
			return nil
		},
	}
}

func newScheduleRemoveCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:     "remove ID",
		Aliases: []string{"rm"},
		Short:   "Remove a schedule",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := clientFn().DeleteSchedule(args[0]); err != nil {
				return err
			}

			outputFn().Success(fmt.Sprintf("Schedule removed: %s", args[0]))
			return nil
		},
	}
}
