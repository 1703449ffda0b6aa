// Package testing is blank-imported by package tests. It flags test mode and
// points outbound URLs at an unroutable port so nothing leaves the process.
package testing

import (
	"os"
	stdtesting "testing"
)

var defaults = map[string]string{
	"MENDAUR_TEST_MODE": "1",
	"BACKEND_BASE_URL":  "http://127.0.0.1:0",
	"GOTENBERG_URL":     "http://127.0.0.1:0",
}

func init() {
	for key, value := range defaults {
		if os.Getenv(key) == "" {
			_ = os.Setenv(key, value)
		}
	}
}

// TestMain runs the suite after init has applied the defaults.
func TestMain(m *stdtesting.M) {
	os.Exit(m.Run())
}
