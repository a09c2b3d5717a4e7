package uc2000

import (
	"context"
	"log"
)

// Guard runs fn against the session and guarantees that a lase-off command
// is issued before Guard returns whenever the laser is believed on — on
// normal return, on error, on panic, and immediately when ctx is cancelled,
// typically by an interrupt signal wired through signal.NotifyContext.
//
// No code path leaves the guarded scope with the laser commanded on. The
// off command issued by the guard itself reports failures in the log rather
// than masking fn's error; software cannot close the race of an interrupt
// landing mid-write, so the guarantee is best-effort immediate off-command
// issuance, with the controller hardware as the final backstop.
func (s *Session) Guard(ctx context.Context, fn func(context.Context) error) error {
	done := make(chan struct{})
	watcher := make(chan struct{})

	// The watcher issues the off command the moment ctx is cancelled, so
	// that an interrupt delivered during a blocking shot wait does not
	// have to wait for fn to unwind first. Session operations are
	// serialized by the session mutex, so the off command cannot
	// interleave with a frame already in flight.
	go func() {
		defer close(watcher)
		select {
		case <-ctx.Done():
			if err := s.ForceOff(); err != nil {
				log.Printf("uc2000: lase off on cancellation: %v", err)
			}
		case <-done:
		}
	}()

	defer func() {
		close(done)
		<-watcher
		if s.Lase() {
			if err := s.ForceOff(); err != nil {
				log.Printf("uc2000: lase off on guard exit: %v", err)
			}
		}
	}()

	return fn(ctx)
}
