// Package appid holds the static application identity. TransLens ships a
// single binary, so the identity is compiled in rather than discovered from
// an external manifest.
package appid

const (
	// BinaryName is the installed executable name.
	BinaryName = "translens"

	// ConfigName is the directory name used under XDG config and data roots.
	ConfigName = "translens"

	// EnvPrefix is the prefix for environment variable overrides,
	// e.g. TRANSLENS_LOG_LEVEL.
	EnvPrefix = "TRANSLENS"

	// Description is the one-line summary shown in CLI help.
	Description = "Local translation relay with request rate governance"
)
