package config

import (
	"os"
	"testing"
)

func newAsserter(t *testing.T) func(cond bool, msg string, args ...any) {
	return func(cond bool, msg string, args ...any) {
		if !cond {
			t.Fatalf(msg, args...)
		}
	}
}

func TestValidateRequiresAllThreeDirs(t *testing.T) {
	assert := newAsserter(t)

	c := &Config{SrcDir: "/s", RefDir: "/r"}
	assert(c.Validate() != nil, "expected error with tgtdir missing")

	c.TgtDir = "/t"
	assert(c.Validate() == nil, "expected no error once all three are set")
}

func TestValidateRejectsNegativeConcurrency(t *testing.T) {
	assert := newAsserter(t)

	c := &Config{SrcDir: "/s", RefDir: "/r", TgtDir: "/t", Concurrency: -1}
	assert(c.Validate() != nil, "expected error with negative concurrency")
}

func TestDBConfigFromEnvReadsPrefixedVars(t *testing.T) {
	assert := newAsserter(t)

	t.Setenv("WAYSNAP_DRIVER", "sqlite3")
	t.Setenv("WAYSNAP_DSN", "/tmp/waysnap.db")

	db := DBConfigFromEnv(EnvPrefix)
	assert(db.Driver == "sqlite3", "expected driver sqlite3, got %q", db.Driver)
	assert(db.DSN == "/tmp/waysnap.db", "expected dsn /tmp/waysnap.db, got %q", db.DSN)
}

func TestDBConfigFromEnvEmptyWhenUnset(t *testing.T) {
	assert := newAsserter(t)

	os.Unsetenv("WAYSNAP_DRIVER")
	os.Unsetenv("WAYSNAP_DSN")

	db := DBConfigFromEnv(EnvPrefix)
	assert(db.Driver == "", "expected empty driver, got %q", db.Driver)
	assert(db.DSN == "", "expected empty dsn, got %q", db.DSN)
}
