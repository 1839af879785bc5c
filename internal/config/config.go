// config.go - the CLI-facing configuration the orchestrator is
// driven by, plus the DB bootstrap supplementing
// original_source/waybackup-db.py's WayBackupDatabaseRecorder.get_connection,
// generalized from its hardcoded "WAYBACKUP_" prefix/MySQL-shaped URL
// to a driver-agnostic DSN read from the environment.
package config

import (
	"fmt"
	"os"
)

// Config is the fully-resolved set of knobs one waysnap invocation
// runs with.
type Config struct {
	SrcDir  string
	RefDir  string
	TgtDir  string
	Verbose bool
	Dryrun  bool

	// Concurrency is reserved for the recorder's flush batch size;
	// the core reconciliation walk itself is always single-threaded.
	Concurrency int

	PreserveXattr bool
	Excludes      []string

	DB DBConfig
}

// DBConfig describes how to reach the optional SQL recorder. An
// empty Driver means no recorder is wired in.
type DBConfig struct {
	Driver string
	DSN    string
}

// EnvPrefix is the prefix waysnap reads its DB bootstrap variables
// under, e.g. WAYSNAP_DRIVER, WAYSNAP_DSN.
const EnvPrefix = "WAYSNAP_"

// DBConfigFromEnv reads DBConfig from the environment under prefix,
// mirroring waybackup-db.py's get_connection but collapsing its five
// separate host/port/user/password/database variables into a single
// driver-native DSN, since the set of fields a connection string
// needs varies by driver (sqlite3's is a file path, not a URL).
func DBConfigFromEnv(prefix string) DBConfig {
	return DBConfig{
		Driver: os.Getenv(prefix + "DRIVER"),
		DSN:    os.Getenv(prefix + "DSN"),
	}
}

// Validate checks the invariants the CLI layer cannot enforce via
// flag parsing alone.
func (c *Config) Validate() error {
	if c.SrcDir == "" || c.RefDir == "" || c.TgtDir == "" {
		return fmt.Errorf("srcdir, refdir, and tgtdir are all required")
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative")
	}
	return nil
}
