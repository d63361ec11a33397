// flowctl — инструмент командной строки для работы с flowmanager
// через HTTP API.
//
// Использование:
//
//	flowctl [--api-url URL] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	flow       Регистрация, просмотр и запуск flows
//	execution  Просмотр executions
//	schedule   Управление cron-расписаниями
//	health     Состояние сервиса
//
// Адрес API по умолчанию берётся из FLOWMANAGER_URL.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/flowmanager/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var jsonOutput bool

	defaultURL := os.Getenv("FLOWMANAGER_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:8080"
	}

	rootCmd := &cobra.Command{
		Use:           "flowctl",
		Short:         "Manage flowmanager flows, executions and schedules",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", defaultURL, "API server URL (env FLOWMANAGER_URL)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewFlowCmd(clientFn, outputFn),
		cli.NewExecutionCmd(clientFn, outputFn),
		cli.NewScheduleCmd(clientFn, outputFn),
		cli.NewHealthCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		cli.NewOutput(jsonOutput).Error(err.Error())
		os.Exit(1)
	}
}
