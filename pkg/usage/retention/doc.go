// Package retention prunes old usage records.
//
// The Pruner deletes records older than the configured retention
// period. The Scheduler runs the Pruner on a cron schedule and stops
// when its context is canceled.
//
//	pruner := retention.NewPruner(store, &retention.Config{
//	    RetentionDays: 90,
//	    PruneSchedule: "0 3 * * *",
//	})
//
//	scheduler := retention.NewScheduler(pruner)
//	if err := scheduler.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer scheduler.Stop()
//
// A retention period of zero disables pruning; an empty schedule
// disables the scheduler while still allowing manual Prune calls.
package retention
