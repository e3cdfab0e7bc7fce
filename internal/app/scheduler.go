package app

import (
	"context"

	"go.uber.org/zap"
)

// StartBackgroundJobs runs the cron scheduler until ctx is done
func (a *Application) StartBackgroundJobs(ctx context.Context) error {
	if a.sched == nil {
		<-ctx.Done()
		return nil
	}
	a.sched.Start()
	zap.S().Infof("background jobs started, %d scheduled", len(a.sched.Entries()))
	<-ctx.Done()
	<-a.sched.Stop().Done()
	return nil
}
