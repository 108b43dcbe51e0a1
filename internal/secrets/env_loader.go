package secrets

import (
	"os"
	"strings"
)

// EnvLoader returns a Loader that reads the given environment variables.
// Values are trimmed of surrounding whitespace (rotated tokens injected via
// env files often carry a trailing newline); variables that are unset or
// blank after trimming are omitted.
func EnvLoader(keys ...string) Loader {
	return func() (map[string]string, error) {
		vals := make(map[string]string, len(keys))
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				vals[k] = v
			}
		}
		return vals, nil
	}
}
