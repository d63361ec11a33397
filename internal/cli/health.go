package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewHealthCmd создаёт команду проверки состояния сервиса.
func NewHealthCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show service health",
		RunE: func(cmd *cobra.Command, args []string) error {
			health, err := clientFn().Health()
			if err != nil {
				return err
			}

			outputFn().Print(
				[]string{"STATUS", "FLOWS", "EXECUTIONS", "ACTIVE", "WORK TYPES"},
				[][]string{{
					health.Status,
					strconv.Itoa(health.Flows),
					strconv.Itoa(health.Executions),
					strconv.Itoa(health.Active),
					strings.Join(health.WorkTypes, ","),
				}},
				health,
			)
			return nil
		},
	}
}
