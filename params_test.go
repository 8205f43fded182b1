package main

import (
	"math"
	"regexp"
	"testing"
)

func TestParseParamExpr(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1.5707", 1.5707, true},
		{"-0.5", -0.5, true},
		{"3.14e-2", 0.0314, true},
		{"pi", math.Pi, true},
		{"PI", math.Pi, true},
		{"pi/2", math.Pi / 2, true},
		{"2pi", 2 * math.Pi, true},
		{"3*pi/4", 3 * math.Pi / 4, true},
		{"-pi/2", -math.Pi / 2, true},
		{" -3*pi/4 ", -3 * math.Pi / 4, true},
		{"pi/0", 0, false},
		{"", 0, false},
		{"tau", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseParamExpr(tt.in)
		if ok != tt.ok {
			t.Errorf("parseParamExpr(%q): expected ok=%v, got %v", tt.in, tt.ok, ok)
			continue
		}
		if ok && math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("parseParamExpr(%q) = %g, want %g", tt.in, got, tt.want)
		}
	}
}

func TestFormatParam(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{math.Pi, "pi"},
		{-math.Pi / 2, "-pi/2"},
		{3 * math.Pi / 4, "3*pi/4"},
		{2 * math.Pi, "2*pi"},
		{0.25, "0.25"},
		{1e-5, "1e-05"},
	}
	for _, tt := range tests {
		if got := formatParam(tt.in); got != tt.want {
			t.Errorf("formatParam(%g) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormattedParamsParseBack(t *testing.T) {
	pattern := regexp.MustCompile(`^` + paramPattern + `$`)
	for _, v := range []float64{math.Pi / 3, -2 * math.Pi / 3, 0.125, -7.5, 1e-5, 123456789} {
		s := formatParam(v)
		if !pattern.MatchString(s) {
			t.Errorf("%q does not match the QASM parameter pattern", s)
		}
		got, ok := parseParamExpr(s)
		if !ok || math.Abs(got-v) > 1e-9 {
			t.Errorf("%g formatted as %q parsed back as %g (ok=%v)", v, s, got, ok)
		}
	}
}

func TestParseParams(t *testing.T) {
	params, err := parseParams("pi/2, 0.5,, -pi")
	if err != nil {
		t.Fatalf("parseParams error: %v", err)
	}
	if len(params) != 3 || params[1] != 0.5 {
		t.Errorf("unexpected params %v", params)
	}
	if _, err := parseParams("pi/2, nope"); err == nil {
		t.Errorf("expected an error for a bad entry")
	}
}
