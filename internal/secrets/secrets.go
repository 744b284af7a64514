// Package secrets supplies the signing key to the process without letting it
// leak into logs. The ledger components never read the environment
// themselves; they take a Source by injection.
package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// DefaultPrivateKeyVar is the conventional environment variable holding the
// hex Ed25519 seed.
const DefaultPrivateKeyVar = "LEDGER_PRIVATE_KEY"

// Source yields the hex-encoded Ed25519 private key seed.
type Source interface {
	PrivateKeyHex(ctx context.Context) (string, error)
}

// NotFoundError reports a missing secret without including any value.
type NotFoundError struct {
	Var string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("secret not found: environment variable %s is unset or empty", e.Var)
}

// EnvSource reads the key from a single environment variable. The simplest
// provider, suitable for a scheduled single-writer job.
type EnvSource struct {
	Var string
}

// NewEnvSource returns an EnvSource for the given variable, defaulting to
// DefaultPrivateKeyVar.
func NewEnvSource(envVar string) EnvSource {
	if envVar == "" {
		envVar = DefaultPrivateKeyVar
	}
	return EnvSource{Var: envVar}
}

// PrivateKeyHex returns the trimmed variable value or a NotFoundError.
func (s EnvSource) PrivateKeyHex(ctx context.Context) (string, error) {
	v := strings.TrimSpace(os.Getenv(s.Var))
	if v == "" {
		return "", &NotFoundError{Var: s.Var}
	}
	return v, nil
}

// StaticSource holds a fixed key. Test use only.
type StaticSource string

// PrivateKeyHex returns the static key.
func (s StaticSource) PrivateKeyHex(ctx context.Context) (string, error) {
	if s == "" {
		return "", &NotFoundError{Var: "(static)"}
	}
	return string(s), nil
}

// Redact masks a secret value for log output, keeping only enough to confirm
// which key is loaded.
func Redact(v string) string {
	if len(v) <= 8 {
		return "[REDACTED]"
	}
	return v[:4] + "…[REDACTED]"
}
