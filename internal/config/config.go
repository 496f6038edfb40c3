// Package config loads the engine's runtime configuration: data directory,
// logging and the in-scope fields of the settings-file collaborator
// (music directory, collection kind, nested-directory strategy).
package config

import (
	"flag"
	"os"

	"github.com/joho/godotenv"
)

// NestedMusicDirsStrategy controls how the collection state machine reacts
// when a chosen music directory is nested inside (or contains) an existing
// collection's root.
type NestedMusicDirsStrategy string

const (
	NestedMusicDirsPermit NestedMusicDirsStrategy = "permit"
	NestedMusicDirsDeny   NestedMusicDirsStrategy = "deny"
)

// Config holds the engine's flag- and environment-derived settings.
type Config struct {
	DataDir  string
	LogLevel string

	MusicDir                string
	CollectionKind           string
	NestedMusicDirsStrategy  NestedMusicDirsStrategy
	GatekeeperReadTimeoutMs  int
	GatekeeperWriteTimeoutMs int
}

// Parse loads a .env file if present (ignored when absent), then parses
// flags with environment-variable fallbacks, mirroring the teacher's
// config.Parse but scoped to the library-engine core.
func Parse(args []string) *Config {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("meridian", flag.ContinueOnError)
	cfg := &Config{}

	fs.StringVar(&cfg.DataDir, "data-dir", defaultDataDir(), "data directory for the SQLite catalog")
	fs.StringVar(&cfg.LogLevel, "log-level", envOr("MERIDIAN_LOG_LEVEL", "info"), "log level (debug, info, warn, error)")
	fs.StringVar(&cfg.MusicDir, "music-dir", envOr("MERIDIAN_MUSIC_DIR", ""), "root directory of the active collection")
	fs.StringVar(&cfg.CollectionKind, "collection-kind", envOr("MERIDIAN_COLLECTION_KIND", ""), "optional collection kind tag")
	nested := fs.String("nested-music-dirs", envOr("MERIDIAN_NESTED_MUSIC_DIRS", string(NestedMusicDirsDeny)), "nested music directory strategy (permit, deny)")
	fs.IntVar(&cfg.GatekeeperReadTimeoutMs, "gatekeeper-read-timeout-ms", 10_000, "database gatekeeper read timeout in milliseconds")
	fs.IntVar(&cfg.GatekeeperWriteTimeoutMs, "gatekeeper-write-timeout-ms", 30_000, "database gatekeeper write timeout in milliseconds")

	_ = fs.Parse(args)

	switch NestedMusicDirsStrategy(*nested) {
	case NestedMusicDirsPermit:
		cfg.NestedMusicDirsStrategy = NestedMusicDirsPermit
	default:
		cfg.NestedMusicDirsStrategy = NestedMusicDirsDeny
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultDataDir() string {
	if dir := os.Getenv("MERIDIAN_DATA_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".meridian"
	}
	return home + "/.meridian"
}
