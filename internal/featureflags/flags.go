package featureflags

import (
	"os"
	"strings"
)

// DevErrors shows wrapped error chains instead of short messages.
const DevErrors = "dev_errors"

// Lookup reads an environment value. os.Getenv satisfies it.
type Lookup func(key string) string

// Enabled returns true if a flag is enabled via environment variable.
// Flags are read from env as FLAG_<NAME>=true/1/yes (case-insensitive)
func Enabled(name string) bool {
	return EnabledIn(os.Getenv, name)
}

// EnabledIn is Enabled against an arbitrary lookup.
func EnabledIn(lookup Lookup, name string) bool {
	v := lookup("FLAG_" + strings.ToUpper(name))
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
