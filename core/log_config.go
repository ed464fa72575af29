package core

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// init sets the global logging level from the DEBUG_VISUALWORDS environment variable.
func init() {
	zerolog.SetGlobalLevel(levelFromEnv(os.Getenv("DEBUG_VISUALWORDS")))
}

// levelFromEnv maps "off" or "0" to Disabled, "full" to Debug and anything else to Info.
func levelFromEnv(value string) zerolog.Level {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "off", "0":
		return zerolog.Disabled
	case "full":
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}
