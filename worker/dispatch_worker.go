package worker

import (
	"context"
	"log"
	"time"

	"echonotes/dispatch"
)

// DispatchWorker runs the engine on a fixed interval so the service
// self-dispatches even when no external cron caller is configured. Overlap
// with an external trigger is safe: both paths go through the engine's
// per-sequence claim.
type DispatchWorker struct {
	Engine   *dispatch.Engine
	Interval time.Duration
	Logger   *log.Logger
}

func NewDispatchWorker(engine *dispatch.Engine, interval time.Duration, logger *log.Logger) *DispatchWorker {
	return &DispatchWorker{
		Engine:   engine,
		Interval: interval,
		Logger:   logger,
	}
}

func (dw *DispatchWorker) Start(ctx context.Context) {
	// Initial delay to let the server start up
	time.Sleep(5 * time.Second)

	dw.Logger.Println("Dispatch worker started")

	ticker := time.NewTicker(dw.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			dw.Logger.Println("Dispatch worker shutting down...")
			return
		case <-ticker.C:
			summary, err := dw.Engine.RunOnce(ctx)
			if err != nil {
				dw.Logger.Printf("Dispatch run failed: %v", err)
				continue
			}
			if summary.Dispatched > 0 || len(summary.Errors) > 0 {
				dw.Logger.Printf("Dispatch run finished: %d sent, %d errors", summary.Dispatched, len(summary.Errors))
			}
		}
	}
}
