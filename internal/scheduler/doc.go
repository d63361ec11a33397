// Package scheduler запускает зарегистрированные flows по cron-расписаниям.
//
// Структура:
//   - scheduler.go — Scheduler (Add, Remove, List, Tick, Run)
//   - cron.go      — парсинг cron-выражений и вычисление следующего времени
//
// Использование:
//
//	sched := scheduler.New(scheduler.Config{
//	    Schedules: repo.NewScheduleRepo(),
//	    Runner:    manager,
//	    Logger:    logger,
//	})
//
//	s, err := sched.Add(ctx, scheduler.AddRequest{
//	    FlowID:   "flow123",
//	    CronExpr: "*/5 * * * *",
//	})
//
//	go sched.Run(ctx)
//
// Расписания живут в памяти процесса и теряются при рестарте, как и flows.
// Schedule с удалённым flow или некорректным выражением выключается.
package scheduler
