package app

import (
	"os"
	"strconv"
)

// TestModeEnv is set by the shared test bootstrap package.
const TestModeEnv = "MENDAUR_TEST_MODE"

// InTestMode reports whether entrypoints should skip connecting to Redis,
// Postgres and the backend.
func InTestMode() bool {
	on, _ := strconv.ParseBool(os.Getenv(TestModeEnv))
	return on
}
