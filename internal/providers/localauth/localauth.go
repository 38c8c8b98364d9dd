// Package localauth adapts device biometric hardware.
package localauth

import (
	"context"

	"inkwell/internal/domain"
)

// Unavailable is the fallback for platforms without reachable biometric
// hardware: every prompt reports not_available so callers fall through to
// passcode or manual authentication.
type Unavailable struct{}

func (Unavailable) Authenticate(_ context.Context, _ string) (domain.BiometricResult, error) {
	return domain.BiometricNotAvailable, nil
}
