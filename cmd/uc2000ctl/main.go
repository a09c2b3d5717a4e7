// Command uc2000ctl applies settings to a UC-2000 laser controller over its
// REMOTE serial port and optionally fires a timed sequence of shots. An
// interrupt while shots are in flight unwinds through the driver's shutdown
// guard, so the laser is commanded off before the process exits.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/lightbench/uc2000"
	"github.com/lightbench/uc2000/remote"
	"github.com/lightbench/uc2000/serialport"
)

var (
	portPath = flag.String("port", "/dev/ttyUSB0", "serial port connected to the UC-2000 REMOTE port")
	baudRate = flag.Int("baud", 9600, "serial baud rate")
	parity   = flag.String("parity", "N", "serial parity (N, E, or O)")

	noChecksum = flag.Bool("no-checksum", false, "disable the checksum protocol (must match the controller's front-panel setting)")
	initialize = flag.Bool("init", false, "push factory defaults to the controller before other operations")

	mode      = flag.String("mode", "", "operating mode: manual, anc, anv, man_closed, or anv_closed")
	pwmFreq   = flag.Int("freq", 0, "PWM frequency in kHz: 5, 10, or 20")
	gateLogic = flag.String("gate", "", "gate logic: up or down")
	maxPWM    = flag.Int("max-pwm", 0, "maximum PWM percent: 95 or 99")

	percent  = flag.Int("percent", -1, "PWM duty-cycle percent to set (0-100)")
	duration = flag.Duration("duration", 500*time.Millisecond, "shot duration")
	shots    = flag.Int("shots", 0, "number of shots to fire")

	showStatus = flag.Bool("status", false, "query and print the controller status")
)

func main() {
	flag.Parse()

	runID := uuid.NewString()
	log.Printf("uc2000ctl run %s: connecting to %s", runID, *portPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []uc2000.Option
	if *noChecksum {
		opts = append(opts, uc2000.WithoutChecksum())
	}

	session, err := uc2000.Dial(*portPath, serialport.Options{
		BaudRate: *baudRate,
		Parity:   *parity,
	}, opts...)
	if err != nil {
		log.Fatalf("run %s: %v", runID, err)
	}
	defer session.Close()

	if err := run(ctx, session); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Printf("run %s: interrupted, laser commanded off", runID)
			return
		}
		log.Fatalf("run %s: %v", runID, err)
	}
	log.Printf("run %s: done", runID)
}

func run(ctx context.Context, session *uc2000.Session) error {
	if *initialize {
		if err := session.Initialize(); err != nil {
			return err
		}
		log.Printf("controller reset to factory defaults")
	}

	// Setup commands, applied in the controller's documented order.
	if *pwmFreq != 0 {
		if err := session.SetPWMFreq(*pwmFreq); err != nil {
			return err
		}
	}
	if *gateLogic != "" {
		if err := session.SetGateLogic(remote.GateLogic(*gateLogic)); err != nil {
			return err
		}
	}
	if *maxPWM != 0 {
		if err := session.SetMaxPWM(*maxPWM); err != nil {
			return err
		}
	}
	if *mode != "" {
		if err := session.SetMode(remote.Mode(*mode)); err != nil {
			return err
		}
	}

	if *shots > 0 {
		if *percent < 0 {
			return errors.New("-shots requires -percent")
		}
		plan := uc2000.ShotPlan{Percent: *percent, Duration: *duration, Count: *shots}
		log.Printf("firing %d shot(s) at %d%% for %v each", plan.Count, plan.Percent, plan.Duration)
		if err := session.Shoot(ctx, plan); err != nil {
			return err
		}
	} else if *percent >= 0 {
		if err := session.SetPercent(*percent); err != nil {
			return err
		}
	}

	if *showStatus {
		st, err := session.Status()
		if err != nil {
			return err
		}
		log.Printf("mode=%s pwm_freq=%dkHz gate=%s max_pwm=%d%% lase=%t percent=%d%% power=%d%%",
			st.Mode, st.PWMFreq, st.GateLogic, st.MaxPWM, st.Lase, st.Percent, st.Power)
	}

	return nil
}
