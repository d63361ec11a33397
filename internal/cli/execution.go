package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewExecutionCmd создаёт группу команд для просмотра executions.
func NewExecutionCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "execution",
		Aliases: []string{"exec"},
		Short:   "Inspect executions",
	}

	cmd.AddCommand(
		newExecutionGetCmd(clientFn, outputFn),
		newExecutionListCmd(clientFn, outputFn),
	)

	return cmd
}

func newExecutionGetCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show execution results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exec, err := clientFn().GetExecution(args[0])
			if err != nil {
				return err
			}

			printExecution(outputFn(), exec)
			return nil
		},
	}
}

func newExecutionListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var flowID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List executions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			execs, err := client.ListExecutions(flowID)
			if err != nil {
				return err
			}

			headers := []string{"ID", "FLOW_ID", "STATUS", "TASKS", "DURATION", "STARTED"}
			rows := make([][]string, len(execs))
			for i, e := range execs {
				rows[i] = []string{
					e.ExecutionID, e.FlowID, e.Status,
					strconv.Itoa(len(e.TaskResults)),
					fmt.Sprintf("%dms", e.DurationMs),
					e.StartTime,
				}
			}

			out.Print(headers, rows, execs)
			return nil
		},
	}

	cmd.Flags().StringVar(&flowID, "flow-id", "", "Filter by flow ID")

	return cmd
}

// printExecution выводит результаты tasks в порядке выполнения.
func printExecution(out *Output, exec *ExecutionResponse) {
	headers := []string{"TASK", "STATUS", "TIME", "ERROR"}
	rows := make([][]string, len(exec.TaskResults))
	for i, r := range exec.TaskResults {
		rows[i] = []string{r.Task, r.Status, fmt.Sprintf("%.1fms", r.ExecutionTimeMs), r.Error}
	}

	out.Print(headers, rows, exec)
}
