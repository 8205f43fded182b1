package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"qtermsim/engine"
)

// focus represents which panel/mode has keyboard input.
type focus int

const (
	focusCircuit focus = iota
	focusQASM
	focusMenu
	focusInputParam
	focusSelectTarget
)

// selectKind is what the chosen qubit becomes in focusSelectTarget.
type selectKind int

const (
	selectSwap selectKind = iota
	selectControl
	selectAntiControl
)

func (k selectKind) String() string {
	switch k {
	case selectControl:
		return "Control"
	case selectAntiControl:
		return "Anti-control"
	}
	return "SWAP"
}

// animation speed of the time parameter
const (
	tickInterval = 50 * time.Millisecond
	tickDelta    = 0.02
	timeStep     = 0.125
)

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Model represents the TUI application state.
type Model struct {
	eng      *engine.Engine
	sim      *Simulator
	log      *log.Logger
	savePath string

	circuit   Circuit
	result    *Result // last successful evaluation
	cond      *Conditional
	showCond  bool
	t         float64
	animating bool

	cursorQubit int
	cursorStep  int
	width       int
	height      int
	qasmEditor  textarea.Model
	focus       focus
	lastQASM    string
	statusMsg   string // transient status message (e.g. save confirmation)

	// Menu state
	menuCat  int
	menuItem int

	// Pending placement
	pendingGate string
	paramInput  string
	selectKind  selectKind
	targetQubit int
}

func newModel(eng *engine.Engine, logger *log.Logger, c Circuit, cfg Config) Model {
	ta := textarea.New()
	ta.Placeholder = "Edit QASM here..."
	ta.SetWidth(40)
	ta.SetHeight(20)
	ta.ShowLineNumbers = true
	ta.KeyMap.InsertNewline.SetEnabled(true)

	m := Model{
		eng:        eng,
		sim:        NewSimulator(eng, logger),
		log:        logger,
		savePath:   cfg.SavePath,
		circuit:    c,
		t:          cfg.Time,
		cursorStep: c.Steps(),
		qasmEditor: ta,
		focus:      focusCircuit,
	}
	m.syncFromCircuit()
	return m
}

// syncFromCircuit rewrites the editor from the circuit and re-evaluates.
func (m *Model) syncFromCircuit() {
	qasm := m.circuit.ToQASM()
	m.qasmEditor.SetValue(qasm)
	m.lastQASM = qasm
	m.simulate()
}

func (m *Model) parseQASMInput() {
	qasm := m.qasmEditor.Value()
	if qasm == m.lastQASM {
		return
	}
	m.lastQASM = qasm
	c, err := ParseQASM(qasm)
	if err != nil {
		m.statusMsg = fmt.Sprintf("QASM: %v", err)
		return
	}
	m.circuit = c
	m.cursorQubit = min(m.cursorQubit, c.NumQubits()-1)
	m.statusMsg = ""
	m.simulate()
}

// simulate evaluates the circuit through the cursor column. A failed
// evaluation keeps the previous result on screen.
func (m *Model) simulate() {
	res, err := m.sim.Run(context.Background(), m.circuit, m.cursorStep, m.t)
	if err != nil {
		m.log.Error("simulate", "err", err)
		m.statusMsg = err.Error()
		return
	}
	m.result = res
	m.cond = nil
	if m.showCond {
		q := min(m.cursorQubit, res.NumQubits-1)
		cond, err := Condition(context.Background(), m.eng, res, q, true)
		if err != nil {
			m.log.Error("condition", "err", err)
			m.statusMsg = err.Error()
			return
		}
		m.cond = cond
	}
}

// apply replaces the circuit when next is valid.
func (m *Model) apply(next Circuit, err error) bool {
	if err != nil {
		m.statusMsg = err.Error()
		return false
	}
	m.circuit = next
	m.syncFromCircuit()
	return true
}

// placeGate places a single-target gate at the cursor.
func (m *Model) placeGate(gateType string, params []float64) {
	if m.apply(m.circuit.WithGate(NewGate(gateType, m.cursorQubit, m.cursorStep, params...))) {
		m.cursorStep++
		m.simulate()
	}
}

// beginSelect enters target selection starting next to the cursor.
func (m *Model) beginSelect(kind selectKind) {
	if m.circuit.NumQubits() < 2 {
		m.statusMsg = "needs at least two qubits"
		return
	}
	m.selectKind = kind
	m.targetQubit = m.cursorQubit + 1
	if m.targetQubit >= m.circuit.NumQubits() {
		m.targetQubit = m.cursorQubit - 1
	}
	m.focus = focusSelectTarget
}

// finishSelect completes a swap, or adds a control to the gate under the
// cursor.
func (m *Model) finishSelect() {
	m.focus = focusCircuit
	if m.selectKind == selectSwap {
		if m.apply(m.circuit.WithGate(NewSwap(m.cursorQubit, m.targetQubit, m.cursorStep))) {
			m.cursorStep++
			m.simulate()
		}
		return
	}

	g, ok := m.circuit.GateAt(m.cursorStep, m.cursorQubit)
	if !ok {
		m.statusMsg = "no gate under the cursor"
		return
	}
	if m.selectKind == selectControl {
		g = g.Controlled(m.targetQubit)
	} else {
		g = g.AntiControlled(m.targetQubit)
	}
	m.apply(m.circuit.WithGate(g))
}

// ──────────────────────────── Init / Update ────────────────────────────

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.qasmEditor.SetWidth(max(msg.Width/3-6, 20))
		m.qasmEditor.SetHeight(max(m.topHeight()-8, 4))

	case tickMsg:
		if !m.animating {
			break
		}
		m.t += tickDelta
		if m.t >= 2 {
			m.t -= 2
		}
		m.simulate()
		cmds = append(cmds, tick())

	case tea.KeyMsg:
		key := msg.String()
		if key == "ctrl+c" {
			return m, tea.Quit
		}
		if m.focus != focusQASM {
			m.statusMsg = ""
		}

		switch m.focus {
		case focusCircuit:
			switch key {
			case "q":
				return m, tea.Quit
			case "tab":
				m.focus = focusQASM
				m.qasmEditor.Focus()
			case "ctrl+r":
				c, err := NewCircuit(m.circuit.NumQubits())
				m.cursorStep = 0
				m.apply(c, err)
			case "ctrl+s":
				if err := os.WriteFile(m.savePath, []byte(m.circuit.ToQASM()), 0644); err != nil {
					m.statusMsg = fmt.Sprintf("Save error: %v", err)
				} else {
					m.statusMsg = "Saved " + m.savePath
				}
			case "up", "k":
				if m.cursorQubit > 0 {
					m.cursorQubit--
					m.simulate()
				}
			case "down", "j":
				if m.cursorQubit < m.circuit.NumQubits()-1 {
					m.cursorQubit++
					m.simulate()
				}
			case "left", "h":
				if m.cursorStep > 0 {
					m.cursorStep--
					m.simulate()
				}
			case "right", "l":
				m.cursorStep++
				m.simulate()
			case "+", "=":
				n := m.circuit.NumQubits() + 1
				if n > m.eng.Limits().MaxQubits() {
					m.statusMsg = fmt.Sprintf("at most %d qubits fit the grid limits", m.eng.Limits().MaxQubits())
					break
				}
				m.apply(m.circuit.WithQubits(n))
			case "-":
				if n := m.circuit.NumQubits() - 1; n >= 1 {
					m.cursorQubit = min(m.cursorQubit, n-1)
					m.apply(m.circuit.WithQubits(n))
				}
			case "a":
				m.focus = focusMenu
				m.menuCat = 0
				m.menuItem = 0
			case "c":
				m.beginSelect(selectControl)
			case "n":
				m.beginSelect(selectAntiControl)
			case "v":
				m.showCond = !m.showCond
				m.simulate()
			case " ", "space":
				m.animating = !m.animating
				if m.animating {
					cmds = append(cmds, tick())
				}
			case "[":
				m.t = max(m.t-timeStep, 0)
				m.simulate()
			case "]":
				m.t += timeStep
				m.simulate()
			case "backspace", "delete":
				m.circuit = m.circuit.WithoutGateAt(m.cursorStep, m.cursorQubit)
				m.syncFromCircuit()
			}

		case focusMenu:
			cat := gateCategories[m.menuCat]
			switch key {
			case "esc":
				m.focus = focusCircuit
			case "up", "k":
				if m.menuItem > 0 {
					m.menuItem--
				}
			case "down", "j":
				if m.menuItem < len(cat.types)-1 {
					m.menuItem++
				}
			case "left", "h":
				if m.menuCat > 0 {
					m.menuCat--
					m.menuItem = 0
				}
			case "right", "l":
				if m.menuCat < len(gateCategories)-1 {
					m.menuCat++
					m.menuItem = 0
				}
			case "enter":
				def := gateCatalog[cat.types[m.menuItem]]
				m.pendingGate = def.Type
				switch {
				case def.Params > 0:
					m.paramInput = ""
					m.focus = focusInputParam
				case def.Display == displaySwap:
					m.beginSelect(selectSwap)
				default:
					m.focus = focusCircuit
					m.placeGate(def.Type, nil)
				}
			}

		case focusSelectTarget:
			switch key {
			case "esc":
				m.focus = focusCircuit
			case "up", "k":
				if next := m.targetQubit - 1; next == m.cursorQubit && next > 0 {
					m.targetQubit = next - 1
				} else if next >= 0 && next != m.cursorQubit {
					m.targetQubit = next
				}
			case "down", "j":
				last := m.circuit.NumQubits() - 1
				if next := m.targetQubit + 1; next == m.cursorQubit && next < last {
					m.targetQubit = next + 1
				} else if next <= last && next != m.cursorQubit {
					m.targetQubit = next
				}
			case "enter":
				m.finishSelect()
			}

		case focusInputParam:
			switch key {
			case "esc":
				m.focus = focusCircuit
				m.paramInput = ""
			case "backspace":
				if len(m.paramInput) > 0 {
					m.paramInput = m.paramInput[:len(m.paramInput)-1]
				}
			case "enter":
				params, err := parseParams(m.paramInput)
				if err != nil {
					m.statusMsg = err.Error() + " (use numbers or pi expressions, e.g. pi/2)"
					break
				}
				if want := gateCatalog[m.pendingGate].Params; len(params) != want {
					m.statusMsg = fmt.Sprintf("%s takes %d parameters", m.pendingGate, want)
					break
				}
				m.focus = focusCircuit
				m.paramInput = ""
				m.placeGate(m.pendingGate, params)
			default:
				if len(key) == 1 && isParamRune(key[0]) {
					m.paramInput += key
				}
			}

		case focusQASM:
			switch key {
			case "tab":
				m.focus = focusCircuit
				m.qasmEditor.Blur()
			default:
				var cmd tea.Cmd
				m.qasmEditor, cmd = m.qasmEditor.Update(msg)
				cmds = append(cmds, cmd)
				m.parseQASMInput()
			}
		}
	}

	return m, tea.Batch(cmds...)
}

func isParamRune(ch byte) bool {
	if ch >= '0' && ch <= '9' {
		return true
	}
	switch ch {
	case '.', ',', '-', '+', 'e', 'E', 'p', 'i', '*', '/', ' ':
		return true
	}
	return false
}

func (m Model) topHeight() int {
	return max(m.height-m.statsHeight()-controlsHeight-2, 6)
}

func (m Model) statsHeight() int {
	return max(m.height/3, 8)
}

const controlsHeight = 4

// View renders the UI.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	qasmWidth := m.width / 3
	circuitWidth := m.width - qasmWidth - 4

	top := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderCircuitPanel(circuitWidth, m.topHeight()),
		m.renderQASMPanel(qasmWidth, m.topHeight()),
	)
	frame := lipgloss.JoinVertical(lipgloss.Left,
		top,
		m.renderStatsPanel(m.width-4, m.statsHeight()),
		m.renderControlsPanel(m.width-4, controlsHeight-2),
	)

	switch m.focus {
	case focusMenu:
		frame = overlayAt(frame, m.renderMenu(), 2, 2)
	case focusInputParam:
		frame = overlayAt(frame, m.renderParamInput(), 2, 2)
	}
	return frame
}
