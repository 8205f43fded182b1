package main

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"qtermsim/engine"
)

func main() {
	app := &cli.App{
		Name:   "qtermsim",
		Usage:  "edit and simulate quantum circuits in the terminal",
		Flags:  configFlags(),
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	cfg, err := configFromCLI(ctx)
	if err != nil {
		return err
	}

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	eng := engine.New(
		engine.WithLimits(cfg.Limits()),
		engine.WithWorkers(cfg.Workers),
		engine.WithLogger(logger.WithPrefix("engine")),
	)
	logger.Debug("engine ready", "workers", eng.Workers(), "limits", fmt.Sprintf("%dx%d", cfg.MaxWidth, cfg.MaxHeight), "max_qubits", eng.Limits().MaxQubits())

	c, err := loadCircuit(cfg)
	if err != nil {
		return err
	}

	if cfg.Print {
		return printReport(ctx.Context, os.Stdout, eng, logger, c, cfg)
	}
	_, err = tea.NewProgram(newModel(eng, logger, c, cfg), tea.WithAltScreen()).Run()
	return err
}

// newLogger writes to the log file when one is given. Without one, print
// mode logs to stderr and the TUI discards logs since it owns the terminal.
func newLogger(cfg Config) (*log.Logger, func(), error) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, errors.Wrap(err, "log level")
	}

	var w io.Writer = io.Discard
	closer := func() {}
	switch {
	case cfg.LogFile != "":
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, errors.Wrap(err, "open log file")
		}
		w, closer = f, func() { _ = f.Close() }
	case cfg.Print:
		w = os.Stderr
	}

	logger := log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: true,
		Prefix:          "qtermsim",
	})
	return logger, closer, nil
}

// loadCircuit reads the circuit file, or builds the demo circuit.
func loadCircuit(cfg Config) (Circuit, error) {
	if cfg.CircuitPath == "" {
		return demoCircuit(cfg.Qubits)
	}
	data, err := os.ReadFile(cfg.CircuitPath)
	if err != nil {
		return Circuit{}, errors.Wrap(err, "read circuit")
	}
	c, err := ParseQASM(string(data))
	if err != nil {
		return Circuit{}, errors.Wrapf(err, "parse %s", cfg.CircuitPath)
	}
	return c, nil
}

// demoCircuit prepares a GHZ state on n qubits: H on q[0] followed by a
// CNOT chain.
func demoCircuit(n int) (Circuit, error) {
	gates := []Gate{NewGate("H", 0, 0)}
	for q := 1; q < n; q++ {
		gates = append(gates, NewGate("X", q, q).Controlled(q-1))
	}
	return NewCircuit(n, gates...)
}

// printReport evaluates the circuit once and writes the statistics.
func printReport(ctx context.Context, w io.Writer, eng *engine.Engine, logger *log.Logger, c Circuit, cfg Config) error {
	res, err := NewSimulator(eng, logger).Run(ctx, c, cfg.Step, cfg.Time)
	if err != nil {
		return err
	}
	var cond *Conditional
	if cfg.Conditional >= 0 {
		if cond, err = Condition(ctx, eng, res, cfg.Conditional, true); err != nil {
			return err
		}
	}
	fmt.Fprintln(w, statsStyle.Render(statsView(res, cond)))
	return nil
}
