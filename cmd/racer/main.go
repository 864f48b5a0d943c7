// cmd/racer/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"github.com/tamzrod/openracer/internal/config"
	"github.com/tamzrod/openracer/internal/diag"
	"github.com/tamzrod/openracer/internal/link"
	"github.com/tamzrod/openracer/internal/supervisor"
)

const (
	flagConfig   = "config"
	flagLogLevel = "log-level"
	flagBump     = "bump"
)

func main() {
	app := &cli.App{
		Name:  "racer",
		Usage: "drive an RC car over a serial or websocket link",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Value:   "racer.yaml",
				Usage:   "load configuration from `FILE`",
			},
			&cli.StringFlag{
				Name:  flagLogLevel,
				Usage: "override log.level (trace, debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "boot the car and run the control loop until interrupted",
				Action: runAction,
			},
			{
				Name:      "setname",
				Usage:     "rename the wireless module (right after a power cycle only)",
				ArgsUsage: "NAME",
				Action:    setNameAction,
			},
			{
				Name:  "age",
				Usage: "show the persisted age counter on the LEDs",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  flagBump,
						Usage: "increment the counter between two displays",
					},
				},
				Action: ageAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "racer:", err)
		os.Exit(1)
	}
}

// --------------------
// Load + normalize + validate config
// --------------------

func loadConfig(c *cli.Context) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(c.String(flagConfig))
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if lvl := c.String(flagLogLevel); lvl != "" {
		cfg.Log.Level = lvl
	}

	config.Normalize(cfg)

	if err := config.Validate(cfg); err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, newLogger(cfg.Log), nil
}

// --------------------
// run
// --------------------

func runAction(c *cli.Context) (err error) {
	cfg, log, err := loadConfig(c)
	if err != nil {
		return err
	}
	rc := cfg.Racer

	// Reset cause is read first, inside openHardware, before any output moves.
	hw, closeHW, err := openHardware(rc, log)
	if err != nil {
		return fmt.Errorf("hardware: %w", err)
	}
	defer func() { err = multierr.Append(err, closeHW()) }()

	lnk, presence, err := openLink(rc, log)
	if err != nil {
		return fmt.Errorf("link: %w", err)
	}
	defer func() { err = multierr.Append(err, lnk.Close()) }()
	if presence != nil {
		hw.Presence = presence
	}

	pub := buildTelemetry(rc, lnk, log.With().Str("component", "telemetry").Logger())
	// runs after stop() below: delivers the shutdown snapshot before the link closes
	defer func() { err = multierr.Append(err, pub.Close()) }()

	sup, err := supervisor.Build(rc, hw, lnk, pub, log)
	if err != nil {
		return fmt.Errorf("supervisor build failed: %w", err)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if pub.Enabled() {
		pub.Start(ctx)
	}

	if err := sup.Boot(ctx); err != nil {
		return fmt.Errorf("boot: %w", err)
	}

	log.Info().
		Str("protocol", rc.Protocol).
		Str("link", rc.Link.Kind).
		Str("backend", rc.HAL.Backend).
		Msg("control loop running")

	sup.Run(ctx)
	return nil
}

// --------------------
// setname
// --------------------

func setNameAction(c *cli.Context) error {
	cfg, log, err := loadConfig(c)
	if err != nil {
		return err
	}
	name := c.Args().First()
	if name == "" {
		name = cfg.Racer.Link.Name
	}
	if name == "" {
		return fmt.Errorf("setname: NAME argument or racer.link.name required")
	}

	lnk, _, err := openLink(cfg.Racer, log)
	if err != nil {
		return fmt.Errorf("link: %w", err)
	}
	defer lnk.Close()

	ctx, cancel := context.WithTimeout(c.Context, time.Duration(cfg.Racer.Link.NameTimeoutMs)*time.Millisecond)
	defer cancel()

	ok, err := link.SetName(ctx, lnk, name)
	if err != nil {
		return fmt.Errorf("setname: %w", err)
	}
	if !ok {
		return fmt.Errorf("setname: module did not acknowledge %q", name)
	}
	fmt.Fprintf(c.App.Writer, "module renamed to %s\n", name)
	return nil
}

// --------------------
// age
// --------------------

func ageAction(c *cli.Context) (err error) {
	cfg, log, err := loadConfig(c)
	if err != nil {
		return err
	}

	hw, closeHW, err := openHardware(cfg.Racer, log)
	if err != nil {
		return fmt.Errorf("hardware: %w", err)
	}
	defer func() { err = multierr.Append(err, closeHW()) }()

	dg, err := diag.New(hw.Board, hw.Board, hw.Delay, hw.Store, log)
	if err != nil {
		return err
	}

	report := func() error {
		age, ok, err := dg.Age()
		if err != nil {
			return fmt.Errorf("age: %w", err)
		}
		fmt.Fprintf(c.App.Writer, "age=%d magic_ok=%v\n", age, ok)
		return nil
	}

	if err := report(); err != nil {
		return err
	}
	dg.ShowAge()
	if !c.Bool(flagBump) {
		return nil
	}

	dg.BumpAge()
	dg.ShowAge()
	return report()
}
