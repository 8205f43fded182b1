package main

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// paramPattern matches one gate parameter inside a QASM argument list, for
// example "1.5707", "pi/2", "-2*pi/3" or "3.14e-2".
const paramPattern = `-?(?:\d*\.?\d*\*?pi(?:/\d+\.?\d*)?|\d+\.?\d*(?:[eE][+\-]?\d+)?)`

var piExprRegex = regexp.MustCompile(`^(-?)(\d*\.?\d*)\s*\*?\s*pi(?:\s*/\s*(\d+\.?\d*))?$`)

// parseParamExpr evaluates a plain number or a multiple of pi with an
// optional divisor ("2pi", "-3*pi/4").
func parseParamExpr(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	if val, err := strconv.ParseFloat(s, 64); err == nil {
		return val, true
	}

	m := piExprRegex.FindStringSubmatch(strings.ToLower(s))
	if m == nil {
		return 0, false
	}
	val := math.Pi
	if m[2] != "" {
		coeff, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return 0, false
		}
		val *= coeff
	}
	if m[3] != "" {
		denom, err := strconv.ParseFloat(m[3], 64)
		if err != nil || denom == 0 {
			return 0, false
		}
		val /= denom
	}
	if m[1] == "-" {
		val = -val
	}
	return val, true
}

// piForms are the multiples of pi formatParam writes symbolically.
var piForms = []struct {
	value   float64
	display string
}{
	{2 * math.Pi, "2*pi"},
	{3 * math.Pi / 2, "3*pi/2"},
	{math.Pi, "pi"},
	{3 * math.Pi / 4, "3*pi/4"},
	{2 * math.Pi / 3, "2*pi/3"},
	{math.Pi / 2, "pi/2"},
	{math.Pi / 3, "pi/3"},
	{math.Pi / 4, "pi/4"},
	{math.Pi / 6, "pi/6"},
	{math.Pi / 8, "pi/8"},
}

// formatParam writes a parameter back out, preferring pi notation so that
// written QASM reads the way it was typed.
func formatParam(val float64) string {
	for _, pf := range piForms {
		switch {
		case math.Abs(val-pf.value) < 1e-10:
			return pf.display
		case math.Abs(val+pf.value) < 1e-10:
			return "-" + pf.display
		}
	}
	return strconv.FormatFloat(val, 'g', -1, 64)
}

// parseParams parses a comma-separated parameter list as typed into the
// editor prompt. Empty entries are skipped.
func parseParams(input string) ([]float64, error) {
	var params []float64
	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		val, ok := parseParamExpr(part)
		if !ok {
			return nil, errors.Errorf("bad parameter %q", part)
		}
		params = append(params, val)
	}
	return params, nil
}
