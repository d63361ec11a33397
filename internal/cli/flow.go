package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaiso/flowmanager/internal/definition"
)

// NewFlowCmd создаёт группу команд для управления flows.
func NewFlowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flow",
		Short: "Manage flows",
	}

	cmd.AddCommand(
		newFlowRegisterCmd(clientFn, outputFn),
		newFlowListCmd(clientFn, outputFn),
		newFlowGetCmd(clientFn, outputFn),
		newFlowExecuteCmd(clientFn, outputFn),
	)

	return cmd
}

func newFlowRegisterCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "register FILE",
		Short: "Register flows from a .json or .hcl file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			sources, err := definition.LoadFile(args[0])
			if err != nil {
				return err
			}
			if len(sources) == 0 {
				return fmt.Errorf("no flows in %s", args[0])
			}

			headers := []string{"FLOW_ID", "WARNINGS"}
			rows := make([][]string, 0, len(sources))
			results := make([]*RegisterFlowResponse, 0, len(sources))

			for _, src := range sources {
				resp, err := client.RegisterFlow(src.Raw)
				if err != nil {
					return err
				}
				results = append(results, resp)

				out.Success(fmt.Sprintf("Flow registered: %s", resp.FlowID))
				for _, w := range resp.Warnings {
					out.Warn(fmt.Sprintf("%s: %s", w.Code, w.Message))
				}
				rows = append(rows, []string{resp.FlowID, strconv.Itoa(len(resp.Warnings))})
			}

			out.Print(headers, rows, results)
			return nil
		},
	}
}

func newFlowListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all flows",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			flows, err := client.ListFlows()
			if err != nil {
				return err
			}

			headers := []string{"ID", "NAME", "START", "TASKS", "CREATED"}
			rows := make([][]string, len(flows))
			for i, f := range flows {
				rows[i] = []string{f.ID, f.Name, f.StartTask, strconv.Itoa(len(f.Tasks)), f.CreatedAt}
			}

			out.Print(headers, rows, flows)
			return nil
		},
	}
}

func newFlowGetCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show flow tasks and conditions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			flow, err := client.GetFlow(args[0])
			if err != nil {
				return err
			}

			// В табличном режиме — task и её переходы
			transitions := make(map[string]string, len(flow.Conditions))
			for _, c := range flow.Conditions {
				if _, seen := transitions[c.SourceTask]; seen {
					continue
				}
				transitions[c.SourceTask] = fmt.Sprintf("%s ? %s : %s", c.Outcome, c.TargetTaskSuccess, c.TargetTaskFailure)
			}

			headers := []string{"TASK", "DESCRIPTION", "WORK", "NEXT"}
			rows := make([][]string, len(flow.Tasks))
			for i, t := range flow.Tasks {
				work := "-"
				switch {
				case t.Work != nil:
					work = t.Work.Type
				case t.Bound:
					work = "bound"
				}

				next := transitions[t.Name]
				if next == "" {
					next = "end"
				}
				if t.Name == flow.StartTask {
					next = strings.TrimSpace(next + " (start)")
				}

				rows[i] = []string{t.Name, t.Description, work, next}
			}

			out.Print(headers, rows, flow)
			return nil
		},
	}
}

func newFlowExecuteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var pairs []string
	var contextFile string
	var async bool

	cmd := &cobra.Command{
		Use:   "execute ID",
		Short: "Execute a flow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			execCtx, err := ParseContext(pairs, contextFile)
			if err != nil {
				return err
			}

			if async {
				resp, err := client.RequestExecution(args[0], execCtx)
				if err != nil {
					return err
				}
				out.Success(fmt.Sprintf("Execution requested: %s", resp.MessageID))
				out.Print(
					[]string{"FLOW_ID", "MESSAGE_ID"},
					[][]string{{resp.FlowID, resp.MessageID}},
					resp,
				)
				return nil
			}

			exec, err := client.ExecuteFlow(args[0], execCtx)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Execution %s: %s", exec.ExecutionID, exec.Status))
			printExecution(out, exec)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&pairs, "context", nil, "Context values as KEY=VALUE (repeatable)")
	cmd.Flags().StringVar(&contextFile, "context-file", "", "JSON file with the initial context")
	cmd.Flags().BoolVar(&async, "async", false, "Queue the execution through RabbitMQ")

	return cmd
}
