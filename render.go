package main

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// ──────────────────────────── Rendering helpers ────────────────────────────

// padCenter centres s within width visible columns.
func padCenter(s string, width int) string {
	w := ansi.StringWidth(s)
	if w >= width {
		return ansi.Truncate(s, width, "")
	}
	left := (width - w) / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", width-w-left)
}

// basisLabel writes basis state i as a ket with q[n-1] leftmost.
func basisLabel(i, n int) string {
	return fmt.Sprintf("|%0*b⟩", n, i)
}

// bar draws p in [0, 1] as a fixed-width block bar.
func bar(p float64, width int) string {
	filled := min(max(int(math.Round(p*float64(width))), 0), width)
	return barStyle.Render(strings.Repeat("█", filled)) + dimStyle.Render(strings.Repeat("░", width-filled))
}

var sparkLevels = []rune("▁▂▃▄▅▆▇█")

// sparkline draws one block per value in [0, 1].
func sparkline(values []float64) string {
	var sb strings.Builder
	top := len(sparkLevels) - 1
	for _, v := range values {
		sb.WriteRune(sparkLevels[min(max(int(v*float64(top)+0.5), 0), top)])
	}
	return sb.String()
}

// ──────────────────────────── Cell rendering ────────────────────────────

type cellRole int

const (
	roleBox cellRole = iota
	roleControl
	roleAntiControl
	roleTarget // ⊕ of a controlled X
	roleSwap
)

// cellInfo describes what occupies a single cell in the circuit grid.
type cellInfo struct {
	gate      *Gate
	def       GateDef
	role      cellRole
	vertAbove bool
	vertBelow bool
}

func (info cellInfo) passThrough() bool {
	return info.gate == nil && (info.vertAbove || info.vertBelow)
}

// cellAt returns rendering information for the cell at (step, qubit).
func cellAt(c Circuit, step, qubit int) cellInfo {
	var info cellInfo
	for _, g := range c.Column(step) {
		qs := g.Qubits()
		lo, hi := slices.Min(qs), slices.Max(qs)
		if qubit < lo || qubit > hi {
			continue
		}
		if len(qs) > 1 {
			info.vertAbove = info.vertAbove || qubit > lo
			info.vertBelow = info.vertBelow || qubit < hi
		}
		if !g.References(qubit) {
			continue
		}
		info.gate = &g
		info.def, _ = lookupGate(g.Type)
		switch {
		case slices.Contains(g.Controls, qubit):
			info.role = roleControl
		case slices.Contains(g.AntiControls, qubit):
			info.role = roleAntiControl
		case info.def.Display == displaySwap:
			info.role = roleSwap
		case g.Type == "X" && len(qs) > 1:
			info.role = roleTarget
		default:
			info.role = roleBox
		}
	}
	return info
}

type cellHighlight int

const (
	hlNone cellHighlight = iota
	hlCursor
	hlTargetSelect
)

// wireWith draws a wire of the given width with sym in the middle.
func wireWith(sym string, width int) string {
	left := (width - 1) / 2
	return strings.Repeat("─", left) + sym + strings.Repeat("─", width-left-1)
}

// cellMid returns the wire row of a cell drawn in width columns.
func cellMid(info cellInfo, width int) string {
	switch {
	case info.passThrough():
		return wireWith("┼", width)
	case info.gate == nil:
		return strings.Repeat("─", width)
	}

	style := gateStyle
	if info.def.Display == displayTimed {
		style = timedGateStyle
	}
	switch info.role {
	case roleControl:
		return wireWith(style.Render("●"), width)
	case roleAntiControl:
		return wireWith(style.Render("○"), width)
	case roleTarget:
		return wireWith(style.Render("⊕"), width)
	case roleSwap:
		return wireWith(style.Render("×"), width)
	}
	margin := (width - gateBoxW) / 2
	return strings.Repeat("─", margin) +
		style.Render("┤"+padCenter(info.def.Symbol, gateNameW)+"├") +
		strings.Repeat("─", width-margin-gateBoxW)
}

// renderCell returns the three rows (top, mid, bot) of a cell, each cellW
// columns wide.
func renderCell(info cellInfo, hl cellHighlight) (top, mid, bot string) {
	if hl != hlNone {
		bdr := cursorBoxStyle
		if hl == hlTargetSelect {
			bdr = targetSelectStyle
		}
		inner := cellW - 2
		top = bdr.Render("╔" + strings.Repeat("═", inner) + "╗")
		mid = bdr.Render("║") + cellMid(info, inner) + bdr.Render("║")
		bot = bdr.Render("╚" + strings.Repeat("═", inner) + "╝")
		return top, mid, bot
	}

	half := cellW / 2
	blank := strings.Repeat(" ", cellW)
	vert := strings.Repeat(" ", half) + "│" + strings.Repeat(" ", cellW-half-1)
	top, bot = blank, blank
	if info.vertAbove {
		top = vert
	}
	if info.vertBelow {
		bot = vert
	}
	mid = cellMid(info, cellW)

	if info.gate != nil && info.role == roleBox {
		style := gateStyle
		if info.def.Display == displayTimed {
			style = timedGateStyle
		}
		margin := (cellW - gateBoxW) / 2
		pad := strings.Repeat(" ", margin)
		rpad := strings.Repeat(" ", cellW-margin-gateBoxW)
		edge := func(left, joint, right string, joined bool) string {
			border := strings.Repeat("─", gateNameW)
			if joined {
				border = wireWith(joint, gateNameW)
			}
			return pad + style.Render(left+border+right) + rpad
		}
		top = edge("┌", "┴", "┐", info.vertAbove)
		bot = edge("└", "┬", "┘", info.vertBelow)
	}
	return top, mid, bot
}

// ──────────────────────────── Panel rendering ────────────────────────────

// renderCircuitPanel renders the circuit grid panel.
func (m Model) renderCircuitPanel(width, height int) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Quantum Circuit"))
	sb.WriteString("\n\n")

	maxSteps := max((width-labelVisualW-4)/cellW, 1)
	startStep := 0
	if m.cursorStep >= maxSteps {
		startStep = m.cursorStep - maxSteps + 1
	}
	if startStep > 0 {
		fmt.Fprintf(&sb, "  ◀ showing steps %d–%d\n", startStep, startStep+maxSteps-1)
	}

	header := strings.Repeat(" ", labelVisualW)
	for step := startStep; step < startStep+maxSteps; step++ {
		label := fmt.Sprintf("%d", step)
		if m.result != nil && step == m.result.Step {
			label += "◆"
		}
		header += dimStyle.Render(padCenter(label, cellW))
	}
	sb.WriteString(header + "\n")

	for qubit := range m.circuit.NumQubits() {
		topLine := strings.Repeat(" ", labelVisualW)
		midLine := qubitLabelStyle.Render(fmt.Sprintf("%-5s", fmt.Sprintf("q[%d]", qubit))) + "──"
		botLine := strings.Repeat(" ", labelVisualW)

		for step := startStep; step < startStep+maxSteps; step++ {
			hl := hlNone
			switch {
			case step == m.cursorStep && qubit == m.cursorQubit && m.focus != focusQASM:
				hl = hlCursor
			case step == m.cursorStep && qubit == m.targetQubit && m.focus == focusSelectTarget:
				hl = hlTargetSelect
			}
			top, mid, bot := renderCell(cellAt(m.circuit, step, qubit), hl)
			topLine += top
			midLine += mid
			botLine += bot
		}

		sb.WriteString(topLine + "\n")
		sb.WriteString(midLine + "\n")
		sb.WriteString(botLine + "\n")
	}

	if m.focus == focusSelectTarget {
		sb.WriteString("\n")
		fmt.Fprintf(&sb, "  %s", activeGateStyle.Render(m.selectKind.String()))
		sb.WriteString("  Select qubit: ")
		sb.WriteString(targetSelectStyle.Render(fmt.Sprintf("q[%d]", m.targetQubit)))
		sb.WriteString(dimStyle.Render("   ↑↓ Move  Enter Confirm  Esc Cancel"))
	} else {
		fmt.Fprintf(&sb, "\n  Position: Step %d, Qubit %d  │  t = %.2f", m.cursorStep, m.cursorQubit, m.t)
		if m.animating {
			sb.WriteString(activeGateStyle.Render(" ▶"))
		}
		if m.statusMsg != "" {
			fmt.Fprintf(&sb, "  │  %s", errorStyle.Render(m.statusMsg))
		}
	}

	return circuitStyle.Width(width).Height(height).Render(sb.String())
}

// renderQASMPanel renders the QASM editor panel.
func (m Model) renderQASMPanel(width, height int) string {
	var sb strings.Builder

	title := "QASM Editor"
	if m.focus == focusQASM {
		title += " [ACTIVE]"
	}
	sb.WriteString(titleStyle.Render(title))
	sb.WriteString("\n\n")
	sb.WriteString(m.qasmEditor.View())

	return qasmStyle.Width(width).Height(height).Render(sb.String())
}

// renderStatsPanel renders the measurement statistics of the current result.
func (m Model) renderStatsPanel(width, height int) string {
	if m.result == nil {
		return statsStyle.Width(width).Height(height).Render(dimStyle.Render("no result"))
	}
	return statsStyle.Width(width).Height(height).Render(statsView(m.result, m.cond))
}

// statsView is the statistics report shared by the TUI and print mode.
func statsView(res *Result, cond *Conditional) string {
	var sb strings.Builder
	n := res.NumQubits

	sb.WriteString(titleStyle.Render("Qubits"))
	fmt.Fprintf(&sb, "  %s\n", dimStyle.Render(fmt.Sprintf("after step %d, t = %.2f", res.Step, res.Time)))
	for q, p1 := range QubitOne(res) {
		d := res.Densities[q]
		x, y, z := d.Bloch()
		fmt.Fprintf(&sb, "%s P(1) %s %.3f  bloch (%+.2f, %+.2f, %+.2f)  purity %.2f\n",
			qubitLabelStyle.Render(fmt.Sprintf("%-5s", fmt.Sprintf("q[%d]", q))), bar(p1, barW), p1, x, y, z, d.Purity())
	}

	sum := Summarize(res.Probabilities)
	sb.WriteString("\n")
	sb.WriteString(titleStyle.Render("Basis states"))
	fmt.Fprintf(&sb, "  %s\n", dimStyle.Render(fmt.Sprintf("most likely %s  total %.3f", basisLabel(sum.MostLikely, n), sum.Total)))
	sb.WriteString(histogram(res.Probabilities, n))

	if res.Timeline != nil {
		track := make([]float64, len(res.Timeline))
		for k, row := range res.Timeline {
			track[k] = row[sum.MostLikely]
		}
		fmt.Fprintf(&sb, "\n%s  %s %s\n", titleStyle.Render("Timeline"),
			dimStyle.Render("P("+basisLabel(sum.MostLikely, n)+")"), barStyle.Render(sparkline(track)))
	}

	if cond != nil {
		sb.WriteString("\n")
		sb.WriteString(titleStyle.Render("Conditional"))
		bit := 0
		if cond.Value {
			bit = 1
		}
		fmt.Fprintf(&sb, "  %s\n", dimStyle.Render(fmt.Sprintf("given q[%d] = %d (p = %.3f)", cond.Qubit, bit, cond.Prob)))
		if cond.Prob == 0 {
			sb.WriteString(dimStyle.Render("  impossible outcome\n"))
		} else {
			sb.WriteString(histogram(cond.Dist, n-1))
		}
	}
	return sb.String()
}

// histogram lists the most likely basis states of probs over n qubits.
func histogram(probs []float64, n int) string {
	idx := make([]int, 0, len(probs))
	for i, p := range probs {
		if p > 1e-6 {
			idx = append(idx, i)
		}
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		switch {
		case probs[a] > probs[b]:
			return -1
		case probs[a] < probs[b]:
			return 1
		}
		return 0
	})

	var sb strings.Builder
	for _, i := range idx[:min(len(idx), histRows)] {
		fmt.Fprintf(&sb, "  %s %s %.3f\n", padCenter(basisLabel(i, n), n+2), bar(probs[i], barW), probs[i])
	}
	if len(idx) > histRows {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("  … %d more\n", len(idx)-histRows)))
	}
	return sb.String()
}

// renderControlsPanel renders the bottom help/controls bar.
func (m Model) renderControlsPanel(width, height int) string {
	var sb strings.Builder

	sb.WriteString(activeGateStyle.Render("Navigate: "))
	sb.WriteString("↑↓/jk Move qubit  ←→/hl Move step  +/- Qubits  ")
	sb.WriteString(activeGateStyle.Render("a"))
	sb.WriteString(" Add gate  ")
	sb.WriteString(activeGateStyle.Render("c/n"))
	sb.WriteString(" Control/anti-control\n")

	sb.WriteString(activeGateStyle.Render("Actions:  "))
	sb.WriteString("Tab Switch focus  Bksp Delete  Space Animate t  [ ] Step t  v Conditional  ^R Reset  ^S Save  q/^C Quit")

	return controlsStyle.Width(width).Height(height).Render(sb.String())
}

// renderMenu renders the floating gate-picker popup.
func (m Model) renderMenu() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Add Gate"))
	sb.WriteString("\n")

	for i, cat := range gateCategories {
		name := " " + cat.name + " "
		if i == m.menuCat {
			sb.WriteString(activeGateStyle.Render(name))
		} else {
			sb.WriteString(dimStyle.Render(name))
		}
		if i < len(gateCategories)-1 {
			sb.WriteString(dimStyle.Render("│"))
		}
	}
	sb.WriteString("\n")
	sb.WriteString(dimStyle.Render(strings.Repeat("─", 42)))
	sb.WriteString("\n")

	for i, gateType := range gateCategories[m.menuCat].types {
		def := gateCatalog[gateType]
		if i == m.menuItem {
			sb.WriteString(menuSelectedStyle.Render(" ▸ " + fmt.Sprintf("%-18s", def.Name)))
			sb.WriteString(gateStyle.Render(def.Symbol))
		} else {
			sb.WriteString("   " + menuNormalStyle.Render(fmt.Sprintf("%-18s", def.Name)))
			sb.WriteString(dimStyle.Render(def.Symbol))
		}
		switch {
		case def.Params > 0:
			sb.WriteString(dimStyle.Render(fmt.Sprintf(" (%d params)", def.Params)))
		case def.Display == displaySwap:
			sb.WriteString(dimStyle.Render(" →target"))
		case def.Display == displayTimed:
			sb.WriteString(dimStyle.Render(" (t)"))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(dimStyle.Render(" ↑↓ Select  ←→ Cat  ⏎ Ok  Esc ✕"))

	return menuBorderStyle.Render(sb.String())
}

// renderParamInput renders the parameter input overlay.
func (m Model) renderParamInput() string {
	def := gateCatalog[m.pendingGate]
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(fmt.Sprintf("%s parameters (%d)", def.Name, def.Params)))
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "Value: %s_", m.paramInput)
	sb.WriteString("\n\n")
	sb.WriteString(dimStyle.Render("Examples: pi/2, 3*pi/4, 1.57"))
	return menuBorderStyle.Render(sb.String())
}

// ──────────────────────────── Overlay helpers ────────────────────────────

// overlayAt composites overlay on top of bg with its top-left corner at
// visible column x of line y.
func overlayAt(bg, overlay string, x, y int) string {
	bgLines := strings.Split(bg, "\n")
	for i, ov := range strings.Split(overlay, "\n") {
		row := y + i
		if row < 0 || row >= len(bgLines) {
			continue
		}
		line := bgLines[row]
		left := ansi.Truncate(line, x, "")
		if pad := x - ansi.StringWidth(left); pad > 0 {
			left += strings.Repeat(" ", pad)
		}
		bgLines[row] = left + ov + ansi.TruncateLeft(line, x+ansi.StringWidth(ov), "")
	}
	return strings.Join(bgLines, "\n")
}
