package engine_test

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain runs all tests in the engine_test package and checks for
// goroutine leaks after all tests complete: the dispatch loop's reader
// goroutines must exit cleanly when Run's context is cancelled.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
