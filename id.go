package actionbox

import "github.com/google/uuid"

// newActionID generates the identifier for a new action. It doubles as the
// idempotency key, so it must never be reused.
func newActionID() string {
	return uuid.NewString()
}
