package main

import (
	"errors"
	"testing"
)

func TestFormatCobraError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"accepts 1 arg(s), received 0", "expected 1 argument(s), got 0"},
		{"accepts 2 arg(s), received 3", "expected 2 argument(s), got 3"},
		{`unknown command "nope" for "ffctl"`, `unknown command "nope" for "ffctl"`},
		{"unknown flag: --nope", "unknown flag: --nope"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			if got := formatCobraError(errors.New(tt.in)); got != tt.want {
				t.Errorf("formatCobraError(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
