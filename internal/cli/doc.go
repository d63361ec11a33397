// Package cli реализует flowctl — инструмент командной строки flowmanager.
//
// # Обзор
//
// CLI работает с сервисом через HTTP API и не импортирует его внутренние
// пакеты, кроме internal/definition: команда flow register читает .json и
// .hcl файлы локально и отправляет каждое определение в POST /api/v1/flows.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для API. Инкапсулирует запросы, разбор ответов
// (data, list, error) и обработку ошибок.
//
//	client := cli.NewClient("http://localhost:8080")
//	exec, err := client.ExecuteFlow("flow123", map[string]any{"user": "bob"})
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Warn/Error) — в stderr.
// Это позволяет использовать pipe: flowctl flow list --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - flow: register, list, get, execute
//   - execution: get, list
//   - schedule: add, list, show, remove
//   - health
//
// Каждая группа создаётся через фабричную функцию (NewFlowCmd и т.д.),
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
