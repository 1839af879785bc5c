// main.go - CLI entrypoint: wires parsed flags into a backup run and
// fans each event out to a log sink and, when configured, a SQL
// recorder.
//
// Grounded on the teacher's testsuite/main.go overall shape (parse
// flags, build a config, run, propagate the error as an exit code)
// though the two programs' actual exit-code conventions differ
// (theirs is a test runner; ours follows spec §6).
package main

import (
	"fmt"
	"os"
	"path"

	"github.com/opencoff/go-logger"

	"github.com/waysnap/waysnap/internal/backup"
	"github.com/waysnap/waysnap/internal/config"
	"github.com/waysnap/waysnap/internal/event"
	"github.com/waysnap/waysnap/internal/recorder"
)

var prog = path.Base(os.Args[0])

func main() {
	cfg := config.Parse(prog, os.Args[1:])

	if err := cfg.Validate(); err != nil {
		die("%s", err)
	}

	log, err := logger.NewLogger("STDERR", logger.LOG_INFO, prog, logger.Ldate|logger.Ltime|logger.Lmicroseconds)
	if err != nil {
		die("logger: %s", err)
	}
	defer log.Close()

	sinks := event.Fanout{recorder.NewLogSink(log)}

	if cfg.DB.Driver != "" {
		rec, err := recorder.Open(cfg.DB.Driver, cfg.DB.DSN, cfg.Concurrency)
		if err != nil {
			die("recorder: %s", err)
		}
		defer rec.Close()
		sinks = append(sinks, rec)
	}

	status := backup.Run(backup.Options{
		SrcDir:        cfg.SrcDir,
		RefDir:        cfg.RefDir,
		TgtDir:        cfg.TgtDir,
		Dryrun:        cfg.Dryrun,
		Verbose:       cfg.Verbose,
		Sink:          sinks,
		PreserveXattr: cfg.PreserveXattr,
		Excludes:      cfg.Excludes,
	})

	os.Exit(status)
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, prog+": "+format+"\n", args...)
	os.Exit(1)
}
