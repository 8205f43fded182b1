package main

import (
	"math"
	"math/cmplx"
	"strings"

	"qtermsim/engine"
)

// displayKind tells the renderer how to draw a gate; the simulator never
// looks at it.
type displayKind int

const (
	displayBox displayKind = iota
	displaySwap
	displayTimed
)

// GateDef is one entry of the gate catalog: pure data plus a function from
// the time parameter and the gate parameters to its matrix.
type GateDef struct {
	Type    string
	Symbol  string
	Name    string
	Params  int
	Display displayKind
	Matrix  func(t float64, params []float64) engine.Matrix2 // nil for SWAP
}

// gateCategory groups catalog entries for the help panel.
type gateCategory struct {
	name  string
	types []string
}

var gateCategories = []gateCategory{
	{name: "Single Qubit", types: []string{"I", "H", "X", "Y", "Z", "S", "SDG", "T", "TDG", "SX", "SXDG", "SY", "SYDG"}},
	{name: "Rotation", types: []string{"RX", "RY", "RZ", "P", "U1", "U2", "U3"}},
	{name: "Time", types: []string{"XT", "YT", "ZT"}},
	{name: "Multi Qubit", types: []string{"SWAP"}},
}

var (
	pauliX = matrix(0, 1, 1, 0)
	pauliY = matrix(0, -1i, 1i, 0)
	pauliZ = matrix(1, 0, 0, -1)
)

var gateCatalog = map[string]GateDef{
	"I":    fixed("I", "I", "Identity", matrix(1, 0, 0, 1)),
	"H":    fixed("H", "H", "Hadamard", matrix(1/math.Sqrt2, 1/math.Sqrt2, 1/math.Sqrt2, -1/math.Sqrt2)),
	"X":    fixed("X", "X", "Pauli-X (NOT)", pauliX),
	"Y":    fixed("Y", "Y", "Pauli-Y", pauliY),
	"Z":    fixed("Z", "Z", "Pauli-Z", pauliZ),
	"S":    fixed("S", "S", "Phase (S)", matrix(1, 0, 0, 1i)),
	"SDG":  fixed("SDG", "S†", "Phase Dagger (S†)", matrix(1, 0, 0, -1i)),
	"T":    fixed("T", "T", "T Gate", matrix(1, 0, 0, cmplx.Exp(1i*math.Pi/4))),
	"TDG":  fixed("TDG", "T†", "T Dagger (T†)", matrix(1, 0, 0, cmplx.Exp(-1i*math.Pi/4))),
	"SX":   fixed("SX", "√X", "√X (SX)", pauliPow(pauliX, 0.5)),
	"SXDG": fixed("SXDG", "√X†", "√X Dagger", pauliPow(pauliX, -0.5)),
	"SY":   fixed("SY", "√Y", "√Y (SY)", pauliPow(pauliY, 0.5)),
	"SYDG": fixed("SYDG", "√Y†", "√Y Dagger", pauliPow(pauliY, -0.5)),

	"RX": {Type: "RX", Symbol: "RX", Name: "Rotate X", Params: 1, Matrix: func(_ float64, p []float64) engine.Matrix2 {
		c, s := math.Cos(p[0]/2), math.Sin(p[0]/2)
		return matrix(complex(c, 0), complex(0, -s), complex(0, -s), complex(c, 0))
	}},
	"RY": {Type: "RY", Symbol: "RY", Name: "Rotate Y", Params: 1, Matrix: func(_ float64, p []float64) engine.Matrix2 {
		c, s := math.Cos(p[0]/2), math.Sin(p[0]/2)
		return matrix(complex(c, 0), complex(-s, 0), complex(s, 0), complex(c, 0))
	}},
	"RZ": {Type: "RZ", Symbol: "RZ", Name: "Rotate Z", Params: 1, Matrix: func(_ float64, p []float64) engine.Matrix2 {
		return matrix(cmplx.Exp(complex(0, -p[0]/2)), 0, 0, cmplx.Exp(complex(0, p[0]/2)))
	}},
	"P":  {Type: "P", Symbol: "P", Name: "Phase Shift", Params: 1, Matrix: phaseShift},
	"U1": {Type: "U1", Symbol: "U1", Name: "Universal U1", Params: 1, Matrix: phaseShift},
	"U2": {Type: "U2", Symbol: "U2", Name: "Universal U2", Params: 2, Matrix: func(_ float64, p []float64) engine.Matrix2 {
		return u3(math.Pi/2, p[0], p[1])
	}},
	"U3": {Type: "U3", Symbol: "U3", Name: "Universal U3", Params: 3, Matrix: func(_ float64, p []float64) engine.Matrix2 {
		return u3(p[0], p[1], p[2])
	}},

	"XT": timed("XT", "X^t", "X to the power t", pauliX),
	"YT": timed("YT", "Y^t", "Y to the power t", pauliY),
	"ZT": timed("ZT", "Z^t", "Z to the power t", pauliZ),

	"SWAP": {Type: "SWAP", Symbol: "×", Name: "Swap", Display: displaySwap},
}

// lookupGate finds a catalog entry by case-insensitive type name.
func lookupGate(gateType string) (GateDef, bool) {
	def, ok := gateCatalog[strings.ToUpper(gateType)]
	return def, ok
}

func fixed(gateType, symbol, name string, m engine.Matrix2) GateDef {
	return GateDef{Type: gateType, Symbol: symbol, Name: name, Matrix: func(float64, []float64) engine.Matrix2 { return m }}
}

func timed(gateType, symbol, name string, pauli engine.Matrix2) GateDef {
	return GateDef{Type: gateType, Symbol: symbol, Name: name, Display: displayTimed, Matrix: func(t float64, _ []float64) engine.Matrix2 {
		return pauliPow(pauli, t)
	}}
}

func matrix(a, b, c, d complex128) engine.Matrix2 {
	return engine.Matrix2{
		{complex64(a), complex64(b)},
		{complex64(c), complex64(d)},
	}
}

// pauliPow returns P^t = (I+P)/2 + e^{iπt}(I-P)/2 for a Pauli matrix P.
func pauliPow(p engine.Matrix2, t float64) engine.Matrix2 {
	phase := cmplx.Exp(complex(0, math.Pi*t))
	var out engine.Matrix2
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			id := 0.0
			if i == j {
				id = 1
			}
			v := complex128(p[i][j])
			out[i][j] = complex64((complex(id, 0)+v)/2 + phase*(complex(id, 0)-v)/2)
		}
	}
	return out
}

func phaseShift(_ float64, p []float64) engine.Matrix2 {
	return matrix(1, 0, 0, cmplx.Exp(complex(0, p[0])))
}

func u3(theta, phi, lambda float64) engine.Matrix2 {
	c, s := math.Cos(theta/2), math.Sin(theta/2)
	return matrix(
		complex(c, 0),
		-cmplx.Exp(complex(0, lambda))*complex(s, 0),
		cmplx.Exp(complex(0, phi))*complex(s, 0),
		cmplx.Exp(complex(0, phi+lambda))*complex(c, 0),
	)
}
