// flags.go - CLI flag wiring, grounded on the teacher's
// testsuite/main.go use of github.com/opencoff/pflag
// (flag.NewFlagSet(name, flag.ExitOnError), BoolVarP/StringVarP).
package config

import (
	"os"

	flag "github.com/opencoff/pflag"
)

// Parse builds a FlagSet named prog, parses args against it, and
// returns the resulting Config. A parse error (including -h/--help)
// exits the process directly, per flag.ExitOnError - that exit path
// is CLI usage error territory and uses code 1.
func Parse(prog string, args []string) *Config {
	var cfg Config

	fs := flag.NewFlagSet(prog, flag.ExitOnError)

	fs.StringVarP(&cfg.SrcDir, "srcdir", "s", "", "Source directory `D` to back up (required)")
	fs.StringVarP(&cfg.RefDir, "refdir", "r", "", "Reference snapshot directory `D` (required)")
	fs.StringVarP(&cfg.TgtDir, "tgtdir", "t", "", "Target directory `D` for the new snapshot (required)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Emit per-entry events [False]")
	fs.BoolVarP(&cfg.Dryrun, "dryrun", "n", false, "Compute but do not mutate the filesystem [False]")
	fs.IntVarP(&cfg.Concurrency, "concurrency", "c", 4, "Coalesce up to `N` rows per recorder batch insert")
	fs.BoolVarP(&cfg.PreserveXattr, "preserve-xattr", "", false, "Replicate extended attributes too [False]")
	fs.StringArrayVarP(&cfg.Excludes, "exclude", "x", nil, "Glob `PATTERN` to exclude, in addition to .waybackup.ignore; may repeat")

	var dbDriver, dbDSN string
	fs.StringVarP(&dbDriver, "db-driver", "", "", "SQL driver for the backup-history recorder [unset: recorder disabled]")
	fs.StringVarP(&dbDSN, "db-dsn", "", "", "DSN for --db-driver")

	fs.SetOutput(os.Stderr)

	if err := fs.Parse(args); err != nil {
		fs.PrintDefaults()
		os.Exit(1)
	}

	cfg.DB = DBConfigFromEnv(EnvPrefix)
	if dbDriver != "" {
		cfg.DB.Driver = dbDriver
	}
	if dbDSN != "" {
		cfg.DB.DSN = dbDSN
	}

	return &cfg
}
