package main

import (
	"context"
	"math"
	"testing"
)

func TestRootCommands(t *testing.T) {
	root := newRootCmd(context.Background())
	want := map[string]bool{"staking": false, "tokens": false, "news": false, "wallet": false, "recommend": false}
	for _, c := range root.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
	if f := root.PersistentFlags().Lookup("log-level"); f == nil || f.DefValue != "warn" {
		t.Errorf("log-level flag = %+v", f)
	}
}

func TestCheckAmount(t *testing.T) {
	tests := []struct {
		amount float64
		ok     bool
	}{
		{100, true},
		{0.5, true},
		{0, false},
		{-3, false},
		{math.NaN(), false},
		{math.Inf(1), false},
		{math.Inf(-1), false},
	}
	for _, tt := range tests {
		if err := checkAmount(tt.amount); (err == nil) != tt.ok {
			t.Errorf("checkAmount(%v) = %v, want ok=%v", tt.amount, err, tt.ok)
		}
	}
}
