package challenges

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/saayr-labs/progression-layer/internal/app/domain/challenge"
	"github.com/saayr-labs/progression-layer/pkg/logger"
)

// Rotator swaps the challenge board on schedule: daily challenges at
// midnight, weekly ones on Monday. It implements system.Service.
type Rotator struct {
	svc  *Service
	cron *cron.Cron
	log  *logger.Logger
}

// NewRotator constructs a rotator for the given challenge service.
func NewRotator(svc *Service, log *logger.Logger) *Rotator {
	if log == nil {
		log = logger.NewDefault("challenge-rotator")
	}
	return &Rotator{
		svc:  svc,
		cron: cron.New(),
		log:  log,
	}
}

// Name implements system.Service.
func (r *Rotator) Name() string { return "challenge-rotator" }

// Start registers the cron entries and starts the scheduler.
func (r *Rotator) Start(context.Context) error {
	if _, err := r.cron.AddFunc("0 0 * * *", func() { r.rotate(challenge.CadenceDaily) }); err != nil {
		return err
	}
	if _, err := r.cron.AddFunc("0 0 * * 1", func() { r.rotate(challenge.CadenceWeekly) }); err != nil {
		return err
	}
	r.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for any in-flight rotation.
func (r *Rotator) Stop(ctx context.Context) error {
	stopped := r.cron.Stop()
	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Rotator) rotate(cadence challenge.Cadence) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	title, description := rotationTemplate(cadence, time.Now().UTC())
	ch, err := r.svc.Rotate(ctx, cadence, title, description)
	if err != nil {
		r.log.WithError(err).WithField("cadence", string(cadence)).Error("challenge rotation failed")
		return
	}
	r.log.WithField("challenge_id", ch.ID).
		WithField("cadence", string(cadence)).
		Info("challenge board rotated")
}

var dailyTemplates = []struct{ title, description string }{
	{"Coffee run", "Make a purchase at any cafe today."},
	{"Local explorer", "Check in at a new location."},
	{"Small spender", "Record any transaction today."},
	{"Partner patron", "Shop with a partner merchant."},
	{"Weekend warmup", "Check in twice today."},
	{"Budget bite", "Record a dining transaction."},
	{"Errand sprint", "Record a retail transaction."},
}

var weeklyTemplates = []struct{ title, description string }{
	{"Streak keeper", "Check in five days this week."},
	{"Big week", "Record transactions on three different days."},
	{"Partner loyalist", "Make three partner purchases this week."},
	{"Challenger", "Win a battle this week."},
}

// rotationTemplate picks a deterministic template for the date so every
// replica publishes the same challenge.
func rotationTemplate(cadence challenge.Cadence, now time.Time) (string, string) {
	if cadence == challenge.CadenceWeekly {
		_, week := now.ISOWeek()
		tpl := weeklyTemplates[week%len(weeklyTemplates)]
		return fmt.Sprintf("%s (week %d)", tpl.title, week), tpl.description
	}
	tpl := dailyTemplates[now.YearDay()%len(dailyTemplates)]
	return fmt.Sprintf("%s (%s)", tpl.title, now.Format("Jan 2")), tpl.description
}
