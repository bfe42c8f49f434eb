package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// ServiceSecret describes one shared secret the server reads from its environment
type ServiceSecret struct {
	EnvKey string
	Bytes  int
	Usage  string
}

// ServiceSecrets lists the secrets the server needs at startup
var ServiceSecrets = []ServiceSecret{
	{EnvKey: "JWT_SECRET", Bytes: 32, Usage: "verifies access tokens; must match the issuing auth service"},
	{EnvKey: "PAYMENT_CALLBACK_SECRET", Bytes: 24, Usage: "X-Payment-Signature header expected on payment callbacks"},
}

// GeneratedSecret is a ServiceSecret with a fresh hex value
type GeneratedSecret struct {
	ServiceSecret
	Value string
}

// GenerateSecret returns n random bytes hex encoded
func GenerateSecret(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateServiceSecrets generates values for the given secrets, or for all of
// ServiceSecrets when keys is empty
func GenerateServiceSecrets(keys ...string) ([]GeneratedSecret, error) {
	wanted := make(map[string]bool, len(keys))
	for _, k := range keys {
		wanted[k] = true
	}

	var out []GeneratedSecret
	for _, s := range ServiceSecrets {
		if len(wanted) > 0 && !wanted[s.EnvKey] {
			continue
		}
		delete(wanted, s.EnvKey)

		value, err := GenerateSecret(s.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to generate %s: %w", s.EnvKey, err)
		}
		out = append(out, GeneratedSecret{ServiceSecret: s, Value: value})
	}

	for k := range wanted {
		return nil, fmt.Errorf("unknown secret %q", k)
	}
	return out, nil
}
