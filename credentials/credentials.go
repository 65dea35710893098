// Package credentials resolves the e-Stat application id
package credentials

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

var ErrNoAPIKey = errors.New("no e-Stat application id found")

// Environment variables checked for the application id, in order
var EnvNames = []string{
	"E_STAT_APPLICATION_ID",
	"ESTAT_APPLICATION_ID",
	"E_STAT_API_KEY",
	"ESTAT_API_KEY",
}

// Dotenv files tried when no path is given
var DefaultDotenvFiles = []string{".env", ".env.local"}

// Resolve returns explicit if set, else the first of EnvNames found in the environment,
// else the first of EnvNames found in the dotenv file at dotenvPath (or one of
// DefaultDotenvFiles). The dotenv file is only read when no variable is set.
func Resolve(explicit, dotenvPath string) (string, error) {
	if key := strings.TrimSpace(explicit); key != "" {
		return key, nil
	}

	for _, name := range EnvNames {
		if key := strings.TrimSpace(os.Getenv(name)); key != "" {
			return key, nil
		}
	}

	files := DefaultDotenvFiles
	if dotenvPath != "" {
		files = []string{dotenvPath}
	}

	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			if dotenvPath != "" {
				return "", fmt.Errorf("%w: %s", ErrNoAPIKey, err)
			}
			continue
		}

		env, err := godotenv.Read(file)
		if err != nil {
			slog.Warn(fmt.Sprintf("Could not read '%s': %s", file, err))
			continue
		}
		for _, name := range EnvNames {
			if key := strings.TrimSpace(env[name]); key != "" {
				return key, nil
			}
		}
		// Only the first existing file is consulted
		break
	}
	return "", ErrNoAPIKey
}
