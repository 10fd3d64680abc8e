package stage

import "context"

// Handler describes the contract the workflow manager needs from each
// pipeline stage. Exactly one handler executes per pipeline invocation.
type Handler interface {
	// Name identifies the stage in logs and notifications.
	Name() string
	// Prepare validates preconditions without mutating the store.
	Prepare(context.Context) error
	// Execute runs the stage to completion.
	Execute(context.Context) error
	// HealthCheck reports stage readiness for diagnostics.
	HealthCheck(context.Context) Health
}
