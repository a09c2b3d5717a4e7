package uc2000

import (
	"context"
	"fmt"
	"time"

	"github.com/lightbench/uc2000/remote"
)

// Shot timing limits. The lower bound reflects the REMOTE round-trip
// latency at 9600 baud; shots shorter than it cannot be timed from the
// host.
const (
	MinShotDuration = 50 * time.Millisecond
	MaxShotDuration = 10 * time.Second
	MaxShots        = 10000
)

// ShotPlan describes a timed sequence of laser shots: each shot is one
// Duration-long ON interval at Percent duty cycle, followed by OFF.
type ShotPlan struct {
	Percent  int
	Duration time.Duration
	Count    int
}

// Validate checks the plan against the shot timing limits and the percent
// domain. It never touches hardware.
func (p ShotPlan) Validate() error {
	setting, err := remote.Lookup(remote.SettingPercent)
	if err != nil {
		return err
	}
	if err := setting.Validate(p.Percent); err != nil {
		return err
	}
	if p.Duration < MinShotDuration || p.Duration > MaxShotDuration {
		return &remote.DomainError{
			Setting: "shot duration", Value: p.Duration,
			Reason: fmt.Sprintf("must be between %v and %v", MinShotDuration, MaxShotDuration),
		}
	}
	if p.Count < 0 || p.Count > MaxShots {
		return &remote.DomainError{
			Setting: "shot count", Value: p.Count,
			Reason: fmt.Sprintf("must be between 0 and %d", MaxShots),
		}
	}
	return nil
}

// Shoot fires plan.Count shots: percent is set once, then each shot turns
// the laser on, holds it for plan.Duration, and turns it off again, with no
// added rest between shots. The whole sequence runs inside Guard, so any
// failure or cancellation mid-sequence aborts the remaining shots with the
// laser forced off before the originating error is returned. Failed shots
// are never retried. A plan with Count zero is a no-op.
func (s *Session) Shoot(ctx context.Context, plan ShotPlan) error {
	if err := plan.Validate(); err != nil {
		return err
	}
	if plan.Count == 0 {
		return nil
	}

	return s.Guard(ctx, func(ctx context.Context) error {
		if err := s.SetPercent(plan.Percent); err != nil {
			return err
		}
		for shot := 0; shot < plan.Count; shot++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := s.SetLase(true); err != nil {
				return err
			}
			if err := s.wait(ctx, plan.Duration); err != nil {
				return err
			}
			if err := s.SetLase(false); err != nil {
				return err
			}
		}
		return nil
	})
}

// wait blocks for d or until ctx is cancelled. Shot timing uses a blocking
// timer wait rather than cooperative yielding; millisecond precision
// matters here and the session has nothing else to service mid-shot.
func (s *Session) wait(ctx context.Context, d time.Duration) error {
	t := s.clock.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
