// Package env reads settings that must be known before pkg/config loads,
// such as the log format.
package env

import (
	"os"
	"strings"
)

// Prefix matches the envconfig prefix used by pkg/config.
const Prefix = "MKS_"

// Get returns MKS_<key>, then <key>, then fallback.
func Get(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(Prefix + key)); val != "" {
		return val
	}
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}
