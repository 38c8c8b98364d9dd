package usecase

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"inkwell/internal/domain"
	"inkwell/internal/ports"
)

// AuthResolver computes which local authentication flow a returning user must
// complete, from the durable settings, the secure credential slot, and the
// remote identity session. Decisions are recomputed on every call; only the
// first-completion exemption writes anything.
type AuthResolver struct {
	settings    ports.SettingsStore
	credentials ports.SecureCredentialStore
	identity    ports.RemoteIdentitySession
	logger      *log.Logger

	mu          sync.Mutex
	localAuthed bool
}

func NewAuthResolver(
	settings ports.SettingsStore,
	credentials ports.SecureCredentialStore,
	identity ports.RemoteIdentitySession,
	logger *log.Logger,
) *AuthResolver {
	if logger == nil {
		logger = log.Default()
	}
	return &AuthResolver{
		settings:    settings,
		credentials: credentials,
		identity:    identity,
		logger:      logger,
	}
}

// MarkLocallyAuthenticated records a successful local unlock for the life of
// this process. It is never persisted.
func (r *AuthResolver) MarkLocallyAuthenticated() {
	r.mu.Lock()
	r.localAuthed = true
	r.mu.Unlock()
}

// LocallyAuthenticated reports whether a local unlock happened this process.
func (r *AuthResolver) LocallyAuthenticated() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.localAuthed
}

// Resolve gathers the current facts and decides the flow.
//
// The first time a signed-in user would otherwise be challenged, the
// challenge is waived once: the user is treated as locally authenticated now
// and the has-ever-required-auth flag is permanently set. The waiver keys off
// the persisted flag alone, so a user who finishes onboarding, quits, and
// returns days later still receives it on that first return.
func (r *AuthResolver) Resolve() (domain.AuthFlowDecision, error) {
	passcodeSet, err := r.credentials.Exists()
	if err != nil {
		return domain.AuthFlowDecision{}, fmt.Errorf("checking credential slot: %w", err)
	}

	in := domain.AuthInputs{
		OnboardingCompleted:  r.settings.Get(domain.SettingOnboardingCompleted),
		RemoteSessionPresent: r.identity.CurrentUser() != nil,
		LocallyAuthenticated: r.LocallyAuthenticated(),
		StayLoggedIn:         r.settings.Get(domain.SettingStaySignedIn),
		BiometricEnabled:     r.settings.Get(domain.SettingBiometricEnabled),
		PasscodeSet:          passcodeSet,
		EverRequiredAuth:     r.settings.Get(domain.SettingEverRequiredAuth),
	}

	flow, exempted := decideAuthFlow(in)
	if exempted {
		if err := r.settings.Set(domain.SettingEverRequiredAuth, true); err != nil {
			return domain.AuthFlowDecision{}, fmt.Errorf("recording auth requirement: %w", err)
		}
		r.MarkLocallyAuthenticated()
		r.logger.Debug("first-completion auth exemption granted")
	}
	return domain.AuthFlowDecision{Flow: flow, Inputs: in}, nil
}

// decideAuthFlow is the pure decision table. It reports whether the
// first-completion exemption fired, which is the caller's cue to persist the
// has-ever-required-auth flag.
func decideAuthFlow(in domain.AuthInputs) (domain.AuthFlow, bool) {
	switch {
	case !in.OnboardingCompleted:
		return domain.AuthFlowNewUser, false
	case !in.RemoteSessionPresent:
		return domain.AuthFlowManual, false
	case in.LocallyAuthenticated:
		return domain.AuthFlowSkip, false
	case in.StayLoggedIn:
		return domain.AuthFlowSkip, false
	case !in.EverRequiredAuth:
		return domain.AuthFlowSkip, true
	case in.BiometricEnabled && in.PasscodeSet:
		return domain.AuthFlowBiometric, false
	case in.PasscodeSet:
		return domain.AuthFlowPasscode, false
	default:
		return domain.AuthFlowManual, false
	}
}
