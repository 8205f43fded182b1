package main

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"qtermsim/engine"
)

// Pre-compiled regexps for QASM parsing.
var (
	gateLineRegex    = regexp.MustCompile(`^(\w+)\s*(?:\(\s*(` + paramPattern + `(?:\s*,\s*` + paramPattern + `)*)\s*\))?\s+(q\[\d+\](?:\s*,\s*q\[\d+\])*)\s*;?$`)
	wireRegex        = regexp.MustCompile(`q\[(\d+)\]`)
	qregRegex        = regexp.MustCompile(`^qreg\s+(\w+)\[(\d+)\];?$`)
	barrierRegex     = regexp.MustCompile(`^barrier\b`)
	unsupportedRegex = regexp.MustCompile(`^(measure|reset|if)\b`)
)

// Gate is a single operation placed on the circuit.
type Gate struct {
	Type         string
	Target       int
	Target2      int   // second wire of SWAP, -1 otherwise
	Controls     []int // qubits that must be |1>
	AntiControls []int // qubits that must be |0>
	Step         int   // column in the circuit timeline
	Params       []float64
}

// NewGate returns a single-target gate with no controls.
func NewGate(gateType string, target, step int, params ...float64) Gate {
	return Gate{Type: strings.ToUpper(gateType), Target: target, Target2: -1, Step: step, Params: params}
}

// NewSwap returns a SWAP of qubits a and b.
func NewSwap(a, b, step int) Gate {
	return Gate{Type: "SWAP", Target: a, Target2: b, Step: step}
}

// Controlled returns a copy of g conditioned on the given qubits being |1>.
func (g Gate) Controlled(qubits ...int) Gate {
	g.Controls = append(slices.Clone(g.Controls), qubits...)
	return g
}

// AntiControlled returns a copy of g conditioned on the given qubits being |0>.
func (g Gate) AntiControlled(qubits ...int) Gate {
	g.AntiControls = append(slices.Clone(g.AntiControls), qubits...)
	return g
}

// Targets returns the wires the gate acts on.
func (g Gate) Targets() []int {
	if g.Target2 >= 0 {
		return []int{g.Target, g.Target2}
	}
	return []int{g.Target}
}

// Qubits returns every wire the gate references.
func (g Gate) Qubits() []int {
	qs := g.Targets()
	qs = append(qs, g.Controls...)
	return append(qs, g.AntiControls...)
}

// References reports whether the gate references the given qubit.
func (g Gate) References(qubit int) bool {
	return slices.Contains(g.Qubits(), qubit)
}

// ControlSpec builds the engine control condition for the gate.
func (g Gate) ControlSpec() (engine.ControlSpec, error) {
	spec := engine.Always
	var err error
	for _, q := range g.Controls {
		if spec, err = spec.And(q, true); err != nil {
			return spec, err
		}
	}
	for _, q := range g.AntiControls {
		if spec, err = spec.And(q, false); err != nil {
			return spec, err
		}
	}
	return spec, nil
}

// validate checks the gate against the catalog and the register size. A
// control may never sit on one of the gate's own targets.
func (g Gate) validate(numQubits int) error {
	def, ok := lookupGate(g.Type)
	if !ok {
		return errors.Errorf("unknown gate %q", g.Type)
	}
	if len(g.Params) != def.Params {
		return errors.Errorf("gate %s takes %d parameters, got %d", g.Type, def.Params, len(g.Params))
	}
	if (def.Display == displaySwap) != (g.Target2 >= 0) {
		return errors.Errorf("gate %s has wrong number of targets", g.Type)
	}
	if g.Step < 0 {
		return errors.Errorf("gate %s at negative step %d", g.Type, g.Step)
	}
	seen := make(map[int]bool)
	for _, q := range g.Qubits() {
		if q < 0 || q >= numQubits {
			return errors.Errorf("gate %s references q[%d] outside a %d-qubit register", g.Type, q, numQubits)
		}
		if seen[q] {
			return errors.Errorf("gate %s uses q[%d] twice", g.Type, q)
		}
		seen[q] = true
	}
	return nil
}

// Circuit is an immutable circuit description. Every With* method returns a
// new value; the per-column index is computed once per value and shared
// by its copies.
type Circuit struct {
	numQubits int
	gates     []Gate
	columns   *columnIndex
}

type columnIndex struct {
	once  sync.Once
	steps [][]Gate
}

// NewCircuit validates gates and builds a circuit over numQubits wires.
func NewCircuit(numQubits int, gates ...Gate) (Circuit, error) {
	if numQubits < 1 {
		return Circuit{}, errors.Errorf("circuit needs at least one qubit, got %d", numQubits)
	}
	c := Circuit{numQubits: numQubits, columns: &columnIndex{}}
	for _, g := range gates {
		if err := g.validate(numQubits); err != nil {
			return Circuit{}, errors.Wrapf(err, "step %d", g.Step)
		}
		if other, ok := c.conflict(g); ok {
			return Circuit{}, errors.Errorf("step %d: %s and %s share a qubit", g.Step, g.Type, other.Type)
		}
		c.gates = append(c.gates, g)
	}
	return c, nil
}

func (c Circuit) conflict(g Gate) (Gate, bool) {
	for _, other := range c.gates {
		if other.Step != g.Step {
			continue
		}
		for _, q := range g.Qubits() {
			if other.References(q) {
				return other, true
			}
		}
	}
	return Gate{}, false
}

func (c Circuit) NumQubits() int { return c.numQubits }

// Gates returns a copy of the gate list.
func (c Circuit) Gates() []Gate { return slices.Clone(c.gates) }

// Steps returns the number of columns.
func (c Circuit) Steps() int {
	return len(c.index())
}

// Column returns the gates placed at step, ordered by target.
func (c Circuit) Column(step int) []Gate {
	steps := c.index()
	if step < 0 || step >= len(steps) {
		return nil
	}
	return steps[step]
}

func (c Circuit) index() [][]Gate {
	if c.columns == nil {
		return nil
	}
	c.columns.once.Do(func() {
		n := 0
		for _, g := range c.gates {
			n = max(n, g.Step+1)
		}
		steps := make([][]Gate, n)
		for _, g := range c.gates {
			steps[g.Step] = append(steps[g.Step], g)
		}
		for _, col := range steps {
			slices.SortFunc(col, func(a, b Gate) int { return a.Target - b.Target })
		}
		c.columns.steps = steps
	})
	return c.columns.steps
}

// GateAt returns the gate at the given step that references qubit.
func (c Circuit) GateAt(step, qubit int) (Gate, bool) {
	for _, g := range c.Column(step) {
		if g.References(qubit) {
			return g, true
		}
	}
	return Gate{}, false
}

// WithGate returns a circuit with g added, replacing whatever occupied its
// qubits at that step.
func (c Circuit) WithGate(g Gate) (Circuit, error) {
	gates := slices.DeleteFunc(c.Gates(), func(other Gate) bool {
		if other.Step != g.Step {
			return false
		}
		for _, q := range g.Qubits() {
			if other.References(q) {
				return true
			}
		}
		return false
	})
	return NewCircuit(c.numQubits, append(gates, g)...)
}

// WithoutGateAt returns a circuit without the gate at (step, qubit).
func (c Circuit) WithoutGateAt(step, qubit int) Circuit {
	gates := slices.DeleteFunc(c.Gates(), func(g Gate) bool {
		return g.Step == step && g.References(qubit)
	})
	return Circuit{numQubits: c.numQubits, gates: gates, columns: &columnIndex{}}
}

// WithQubits resizes the register, dropping gates on removed wires.
func (c Circuit) WithQubits(n int) (Circuit, error) {
	gates := slices.DeleteFunc(c.Gates(), func(g Gate) bool {
		return slices.ContainsFunc(g.Qubits(), func(q int) bool { return q >= n })
	})
	return NewCircuit(n, gates...)
}

// ToQASM generates QASM 2.0 output. Anti-controls have no QASM spelling and
// are written as X gates on both sides of the controlled gate.
func (c Circuit) ToQASM() string {
	var sb strings.Builder
	sb.WriteString("OPENQASM 2.0;\n")
	sb.WriteString("include \"qelib1.inc\";\n\n")
	fmt.Fprintf(&sb, "qreg q[%d];\n\n", c.numQubits)

	for step := range c.Steps() {
		for _, g := range c.Column(step) {
			for _, q := range g.AntiControls {
				fmt.Fprintf(&sb, "x q[%d];\n", q)
			}
			writeGateQASM(&sb, g)
			for _, q := range g.AntiControls {
				fmt.Fprintf(&sb, "x q[%d];\n", q)
			}
		}
	}
	return sb.String()
}

// writeGateQASM spells a gate with one leading "c" per control, so ccx,
// cswap and crz come out in their usual QASM form.
func writeGateQASM(sb *strings.Builder, g Gate) {
	controls := append(slices.Clone(g.Controls), g.AntiControls...)
	name := strings.Repeat("c", len(controls)) + strings.ToLower(g.Type)
	if name == "i" {
		name = "id"
	}
	if len(g.Params) > 0 {
		ps := make([]string, len(g.Params))
		for i, p := range g.Params {
			ps[i] = formatParam(p)
		}
		name += "(" + strings.Join(ps, ", ") + ")"
	}

	var wires []string
	for _, q := range append(controls, g.Targets()...) {
		wires = append(wires, fmt.Sprintf("q[%d]", q))
	}
	fmt.Fprintf(sb, "%s %s;\n", name, strings.Join(wires, ", "))
}

// ParseQASM parses a QASM 2.0 subset into a circuit. Gates are packed into
// the earliest step after the last gate on any of their wires, so
// independent gates share a column; barriers synchronize all wires.
func ParseQASM(qasm string) (Circuit, error) {
	numQubits := 0
	var gates []Gate
	lastStep := make(map[int]int)

	place := func(g Gate) Gate {
		step := 0
		for _, q := range g.Qubits() {
			if s, ok := lastStep[q]; ok {
				step = max(step, s+1)
			}
		}
		g.Step = step
		for _, q := range g.Qubits() {
			lastStep[q] = step
		}
		return g
	}

	for lineNo, line := range strings.Split(qasm, "\n") {
		line = strings.TrimSpace(line)
		if i := strings.Index(line, "//"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if line == "" || strings.HasPrefix(line, "OPENQASM") || strings.HasPrefix(line, "include") || strings.HasPrefix(line, "creg") {
			continue
		}

		g, err := parseQASMLine(line)
		if err != nil {
			return Circuit{}, errors.Wrapf(err, "line %d", lineNo+1)
		}
		switch {
		case g == nil && qregRegex.MatchString(line):
			m := qregRegex.FindStringSubmatch(line)
			numQubits, _ = strconv.Atoi(m[2])
		case g == nil:
			// barrier
			top := -1
			for _, s := range lastStep {
				top = max(top, s)
			}
			for q := range numQubits {
				lastStep[q] = top
			}
		default:
			gates = append(gates, place(*g))
		}
	}

	if numQubits == 0 {
		for _, g := range gates {
			for _, q := range g.Qubits() {
				numQubits = max(numQubits, q+1)
			}
		}
	}
	return NewCircuit(numQubits, gates...)
}

// parseQASMLine returns the gate on a line, or nil for qreg and barrier lines.
func parseQASMLine(line string) (*Gate, error) {
	switch {
	case qregRegex.MatchString(line), barrierRegex.MatchString(line):
		return nil, nil
	case unsupportedRegex.MatchString(line):
		return nil, errors.Errorf("%q: measurement and classical control are not simulated", line)
	}

	m := gateLineRegex.FindStringSubmatch(line)
	if m == nil {
		return nil, errors.Errorf("cannot parse %q", line)
	}

	def, controls, err := resolveGateName(m[1])
	if err != nil {
		return nil, err
	}

	var params []float64
	if m[2] != "" {
		for _, s := range strings.Split(m[2], ",") {
			p, ok := parseParamExpr(s)
			if !ok {
				return nil, errors.Errorf("bad parameter %q", s)
			}
			params = append(params, p)
		}
	}

	var wires []int
	for _, w := range wireRegex.FindAllStringSubmatch(m[3], -1) {
		q, _ := strconv.Atoi(w[1])
		wires = append(wires, q)
	}
	targets := 1
	if def.Display == displaySwap {
		targets = 2
	}
	if len(wires) != controls+targets {
		return nil, errors.Errorf("%s takes %d qubits, got %d", m[1], controls+targets, len(wires))
	}

	var g Gate
	if targets == 2 {
		g = NewSwap(wires[controls], wires[controls+1], 0)
	} else {
		g = NewGate(def.Type, wires[controls], 0, params...)
	}
	if controls > 0 {
		g = g.Controlled(wires[:controls]...)
	}
	return &g, nil
}

// resolveGateName strips leading "c" control prefixes until a catalog gate
// remains: "ccx" is X with two controls, "crz" is RZ with one.
func resolveGateName(name string) (GateDef, int, error) {
	upper := strings.ToUpper(name)
	switch upper {
	case "ID":
		upper = "I"
	case "TOFFOLI":
		upper = "CCX"
	}
	for k := 0; k < len(upper); k++ {
		if def, ok := lookupGate(upper[k:]); ok {
			return def, k, nil
		}
		if upper[k] != 'C' {
			break
		}
	}
	return GateDef{}, 0, errors.Errorf("unknown gate %q", name)
}
