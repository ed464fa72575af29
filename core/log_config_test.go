package core

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestLevelFromEnv(t *testing.T) {
	tests := []struct {
		value string
		want  zerolog.Level
	}{
		{"off", zerolog.Disabled},
		{"0", zerolog.Disabled},
		{" OFF ", zerolog.Disabled},
		{"full", zerolog.DebugLevel},
		{"Full", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := levelFromEnv(tt.value); got != tt.want {
			t.Errorf("levelFromEnv(%q) = %v; want %v", tt.value, got, tt.want)
		}
	}
}
