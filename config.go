package main

import (
	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"qtermsim/engine"
)

// Config holds everything the binary can be told from the command line or
// the environment.
type Config struct {
	CircuitPath string
	SavePath    string
	Qubits      int
	Time        float64
	Step        int // last column to evaluate, -1 for all
	Workers     int
	MaxWidth    int
	MaxHeight   int
	LogLevel    string
	LogFile     string
	Print       bool
	Conditional int // qubit to condition on in print mode, -1 for none
}

// DefaultConfig returns the settings used when no flag is given.
func DefaultConfig() Config {
	return Config{
		SavePath:    "circuit.qasm",
		Qubits:      3,
		Step:        -1,
		Workers:     engine.DefaultWorkers(),
		MaxWidth:    engine.DefaultLimits.MaxWidth,
		MaxHeight:   engine.DefaultLimits.MaxHeight,
		LogLevel:    "info",
		Conditional: -1,
	}
}

// Validate checks the values that cannot be caught by flag parsing.
func (c Config) Validate() error {
	if c.Qubits < 1 {
		return errors.Errorf("qubits must be at least 1, got %d", c.Qubits)
	}
	if c.MaxWidth < 1 || c.MaxHeight < 1 {
		return errors.Errorf("grid limits must be positive, got %dx%d", c.MaxWidth, c.MaxHeight)
	}
	if c.Time < 0 {
		return errors.Errorf("time must not be negative, got %g", c.Time)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "log level")
	}
	return nil
}

// Limits returns the engine grid limits from the config.
func (c Config) Limits() engine.Limits {
	return engine.Limits{MaxWidth: c.MaxWidth, MaxHeight: c.MaxHeight}
}

func configFlags() []cli.Flag {
	def := DefaultConfig()
	return []cli.Flag{
		&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "QASM circuit to load", EnvVars: []string{"QTERMSIM_FILE"}},
		&cli.StringFlag{Name: "save", Value: def.SavePath, Usage: "where ctrl+s writes the circuit", EnvVars: []string{"QTERMSIM_SAVE"}},
		&cli.IntFlag{Name: "qubits", Aliases: []string{"n"}, Value: def.Qubits, Usage: "register size of the demo circuit", EnvVars: []string{"QTERMSIM_QUBITS"}},
		&cli.Float64Flag{Name: "time", Aliases: []string{"t"}, Value: def.Time, Usage: "time parameter of X^t, Y^t and Z^t gates", EnvVars: []string{"QTERMSIM_TIME"}},
		&cli.IntFlag{Name: "step", Value: def.Step, Usage: "last column to evaluate in print mode (-1 for all)"},
		&cli.IntFlag{Name: "workers", Value: def.Workers, Usage: "goroutines per kernel pass", EnvVars: []string{"QTERMSIM_WORKERS"}},
		&cli.IntFlag{Name: "max-width", Value: def.MaxWidth, Usage: "largest buffer grid width", EnvVars: []string{"QTERMSIM_MAX_WIDTH"}},
		&cli.IntFlag{Name: "max-height", Value: def.MaxHeight, Usage: "largest buffer grid height", EnvVars: []string{"QTERMSIM_MAX_HEIGHT"}},
		&cli.StringFlag{Name: "log-level", Value: def.LogLevel, Usage: "debug, info, warn or error", EnvVars: []string{"QTERMSIM_LOG_LEVEL"}},
		&cli.StringFlag{Name: "log-file", Usage: "write logs here (the TUI discards them otherwise)", EnvVars: []string{"QTERMSIM_LOG_FILE"}},
		&cli.BoolFlag{Name: "print", Aliases: []string{"p"}, Usage: "print the statistics once instead of starting the TUI"},
		&cli.IntFlag{Name: "condition", Value: def.Conditional, Usage: "qubit to condition on in print mode (-1 for none)"},
	}
}

// configFromCLI reads the parsed flags into a Config.
func configFromCLI(ctx *cli.Context) (Config, error) {
	cfg := Config{
		CircuitPath: ctx.String("file"),
		SavePath:    ctx.String("save"),
		Qubits:      ctx.Int("qubits"),
		Time:        ctx.Float64("time"),
		Step:        ctx.Int("step"),
		Workers:     ctx.Int("workers"),
		MaxWidth:    ctx.Int("max-width"),
		MaxHeight:   ctx.Int("max-height"),
		LogLevel:    ctx.String("log-level"),
		LogFile:     ctx.String("log-file"),
		Print:       ctx.Bool("print"),
		Conditional: ctx.Int("condition"),
	}
	return cfg, cfg.Validate()
}
