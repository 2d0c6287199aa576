package flagdecide

import (
	"time"

	"github.com/flagdecide/go-server-sdk/api"
)

// HookContext stores the context information passed to hooks during a decide call
type HookContext struct {
	// User is the user the flag is decided for
	User api.User
	// FlagKey is the flag being decided
	FlagKey string
	// Options are the effective decide options, client defaults included
	Options api.DecideOptions
	// Revision of the datafile the decision is made against
	Revision string
	// StartedAt is when the decide call began
	StartedAt time.Time
}
