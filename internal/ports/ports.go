package ports

import (
	"context"

	"inkwell/internal/domain"
)

// SettingsStore is a durable, synchronous boolean key/value area. It is read
// fully at process start; writes must be visible on the next cold start.
type SettingsStore interface {
	Get(key string) bool
	Set(key string, value bool) error
}

// OnboardingProgressStore persists partial onboarding answers and the last two
// lifecycle phase snapshots, independent of the settings namespace.
type OnboardingProgressStore interface {
	// SaveSnapshot merges the patch into the stored snapshot. Fields the
	// patch does not carry are left untouched.
	SaveSnapshot(patch domain.SnapshotPatch) error
	Snapshot() (domain.OnboardingSnapshot, error)

	// SavePhase records the current phase. The previously recorded phase,
	// if different, becomes the last-known-valid marker.
	SavePhase(phase domain.Phase) error
	PersistedPhase() (domain.Phase, bool, error)
	LastValidPhase() (domain.Phase, bool, error)

	ClearAll() error
}

// SecureCredentialStore holds the single local unlock code behind OS-level
// access control. Delete succeeds even when nothing is stored. Exists answers
// whether a code is stored without decrypting it.
type SecureCredentialStore interface {
	Save(code string) error
	Get() (code string, ok bool, err error)
	Exists() (bool, error)
	Delete() error
}

// RemoteIdentitySession is the external, push-notified authentication
// session. It changes asynchronously and independently of the lifecycle
// machine.
type RemoteIdentitySession interface {
	// CurrentUser returns nil when no remote session is present.
	CurrentUser() *domain.Identity
	// OnChange registers a callback fired whenever the session changes.
	OnChange(fn func(*domain.Identity))
}

// BiometricAuthenticator wraps device biometric hardware. One invocation,
// one yes/no answer; retries belong to the caller.
type BiometricAuthenticator interface {
	Authenticate(ctx context.Context, reason string) (domain.BiometricResult, error)
}

// RemoteProfileWriter is the best-effort remote profile store. Callers treat
// writes as fire-and-forget; retry policy lives behind this interface.
type RemoteProfileWriter interface {
	UpsertProfile(ctx context.Context, fields domain.ProfileFields) error
	AppendReflection(ctx context.Context, text string, meta map[string]string) error
}

// EventSink emits lifecycle state and errors to the UI.
type EventSink interface {
	PhaseChanged(phase domain.Phase, reason domain.PhaseReason)
	RecoverySuggested(action domain.RecoveryAction, detail string)
	LifecycleError(code domain.ErrorCode, detail string)
}
