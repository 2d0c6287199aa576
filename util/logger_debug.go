//go:build flagdecide_debug_logging

package util

import (
	"log"
)

func init() {
	log.Printf("flagdecide debug logging enabled")
}

// Debugf is only compiled in with the flagdecide_debug_logging build tag, since
// it sits on the decision hot path.
func Debugf(format string, a ...any) {
	currentLogger().Debugf(format, a...)
}
