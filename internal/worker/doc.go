// Package worker выполняет tasks и асинхронные запросы на запуск flows.
//
// # Executor
//
// Executor запускает работу одной task против контекста execution
// и всегда возвращает ровно один domain.TaskResult:
//
//	exec := worker.NewExecutor(worker.ExecutorConfig{Logger: logger})
//	result := exec.Execute(ctx, &task, execCtx)
//
// Правила:
//   - task без работы ждёт NoopDelay и возвращает "Result from <name>"
//   - ошибка или паника работы дают failure с текстом ошибки
//   - отмена контекста даёт failure "task cancelled: <причина>"
//   - время выполнения измеряется всегда
//
// Работа получает копию контекста, поэтому не видит записей движка,
// сделанных после отмены.
//
// # Worker
//
// Worker потребляет очередь executions.requested и передаёт каждый
// запрос Runner'у (flowmanager.Manager):
//
//	w := worker.New(worker.Config{
//	    Runner: manager,
//	    Conn:   mqConn,
//	    Logger: logger,
//	})
//
//	if err := w.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Stop()
//
// Запрос на неизвестный flow или с некорректным контекстом
// отклоняется без повторной доставки и уходит в DLQ.
package worker
