package trace

import "github.com/google/uuid"

// newFixtureID mints a short opaque fixture identifier at record time.
func newFixtureID() string {
	return uuid.NewString()
}
