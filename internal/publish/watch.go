package publish

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
)

// Watch runs Publish on the cron schedule spec until ctx is cancelled.
// A cycle is skipped if the previous one is still running.
func (p *Publisher) Watch(ctx context.Context, spec string) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(spec, func() {
		if _, err := p.Publish(ctx); err != nil {
			p.logger.Error("Publish cycle failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}

	p.logger.Info("Watching schedule for changes", "schedule", spec)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	p.logger.Info("Stopped watching schedule")
	return nil
}
