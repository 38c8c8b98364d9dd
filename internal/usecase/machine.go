package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"inkwell/internal/domain"
	"inkwell/internal/ports"
)

// LifecycleMachine owns the canonical current phase of the app lifecycle. It
// validates and applies transitions, persists them before mutating memory,
// triggers phase-entry side effects, and exposes recovery actions when an
// operation fails.
//
// All writes (Advance, Reset, HandleError) are expected to arrive from one
// logical sequencing context; reads are safe from any goroutine.
type LifecycleMachine struct {
	settings ports.SettingsStore
	progress ports.OnboardingProgressStore
	identity ports.RemoteIdentitySession
	profile  ports.RemoteProfileWriter
	events   ports.EventSink
	logger   *log.Logger

	now func() time.Time

	mu         sync.Mutex
	current    domain.Phase
	recovering bool
	lastErr    string
}

func NewLifecycleMachine(
	settings ports.SettingsStore,
	progress ports.OnboardingProgressStore,
	identity ports.RemoteIdentitySession,
	profile ports.RemoteProfileWriter,
	events ports.EventSink,
	logger *log.Logger,
) *LifecycleMachine {
	if logger == nil {
		logger = log.Default()
	}
	return &LifecycleMachine{
		settings: settings,
		progress: progress,
		identity: identity,
		profile:  profile,
		events:   events,
		logger:   logger,
		now:      time.Now,
		current:  domain.PhaseFirstLaunch,
	}
}

// Initialize restores the persisted phase, if any, as a trusted recovery read:
// no validation, because the persisted value was validated when written.
func (m *LifecycleMachine) Initialize() {
	phase, ok, err := m.progress.PersistedPhase()
	if err != nil {
		m.logger.Warn("could not read persisted phase", "err", err)
		return
	}
	if !ok {
		return
	}
	m.mu.Lock()
	m.current = phase
	m.mu.Unlock()
	m.events.PhaseChanged(phase, domain.PhaseReasonRestored)
}

// DetermineInitialPhase computes where a launch should land. Pure: no side
// effects, no mutation. Onboarding resumes from the furthest answered step so
// a user is never re-asked a question that already persisted.
func (m *LifecycleMachine) DetermineInitialPhase() domain.Phase {
	if m.settings.Get(domain.SettingOnboardingCompleted) {
		return domain.PhaseReturningUserAuth
	}
	snap, err := m.progress.Snapshot()
	if err != nil {
		m.logger.Warn("could not read onboarding snapshot", "err", err)
		return domain.PhaseWelcome
	}
	switch {
	case snap.SelectedTone != "":
		return domain.PhaseAhaMoment
	case snap.SelectedGoal != "":
		return domain.PhaseToneSelection
	case snap.TermsAccepted:
		return domain.PhaseGoalSelection
	default:
		return domain.PhaseWelcome
	}
}

// Advance requests a move to the given phase, merging the patch into the
// onboarding snapshot when the transition is applied. Invalid requests never
// mutate the phase and never return an error to the caller; they are routed
// through handleInvalidTransition instead.
func (m *LifecycleMachine) Advance(to domain.Phase, patch domain.SnapshotPatch) {
	from := m.Phase()
	if !canTransition(from, to) {
		m.handleInvalidTransition(from, to, patch)
		return
	}
	reason := domain.PhaseReasonAdvanced
	if to == from {
		reason = domain.PhaseReasonReentered
	}
	m.apply(to, patch, reason)
}

// apply persists the transition, then mutates memory, then runs entry side
// effects. Persist-before-mutate is the crash-safety contract: a process
// death between the two must resume in the new phase, not a stale one. A
// store failure therefore aborts the transition outright. The snapshot patch
// is written before the phase: snapshot merges are additive, so a failure
// between the two writes can only leave extra answers behind, never a durable
// phase the machine reported as aborted.
func (m *LifecycleMachine) apply(to domain.Phase, patch domain.SnapshotPatch, reason domain.PhaseReason) {
	if !patch.IsZero() {
		if err := m.progress.SaveSnapshot(patch); err != nil {
			m.abortTransition(to, err)
			return
		}
	}
	if err := m.progress.SavePhase(to); err != nil {
		m.abortTransition(to, err)
		return
	}

	m.mu.Lock()
	m.current = to
	m.lastErr = ""
	m.mu.Unlock()

	m.events.PhaseChanged(to, reason)
	m.onPhaseEntered(to)
}

func (m *LifecycleMachine) abortTransition(to domain.Phase, err error) {
	detail := fmt.Sprintf("persisting transition to %s: %v", to, err)
	m.logger.Error("transition aborted", "to", to, "err", err)
	m.mu.Lock()
	m.lastErr = detail
	m.mu.Unlock()
	m.events.LifecycleError(domain.ErrorCodePersistence, detail)
}

// handleInvalidTransition self-heals the common "user tried to jump ahead to
// the main app" case by routing toward the first unmet prerequisite, checked
// in order: subscription, account, completed onboarding. Any other invalid
// target is recorded and the phase holds position.
func (m *LifecycleMachine) handleInvalidTransition(from, to domain.Phase, patch domain.SnapshotPatch) {
	if to != domain.PhaseMainApp {
		detail := fmt.Sprintf("invalid transition %s -> %s", from, to)
		m.logger.Warn("invalid transition requested", "from", from, "to", to)
		m.mu.Lock()
		m.lastErr = detail
		m.mu.Unlock()
		m.events.LifecycleError(domain.ErrorCodeInvalidTransition, detail)
		return
	}

	snap, err := m.progress.Snapshot()
	if err != nil {
		detail := fmt.Sprintf("checking prerequisites for %s: %v", to, err)
		m.mu.Lock()
		m.lastErr = detail
		m.mu.Unlock()
		m.events.LifecycleError(domain.ErrorCodePersistence, detail)
		return
	}

	switch {
	case snap.SubscriptionActivatedAt.IsZero():
		m.apply(domain.PhasePaywallPresented, patch, domain.PhaseReasonRedirected)
	case m.identity.CurrentUser() == nil:
		m.apply(domain.PhaseAccountCreationInProgress, patch, domain.PhaseReasonRedirected)
	default:
		m.apply(domain.PhaseFullyOnboarded, patch, domain.PhaseReasonForcedComplete)
		m.Advance(domain.PhaseMainApp, domain.SnapshotPatch{})
	}
}

// onPhaseEntered runs phase-entry side effects. Each one is idempotent, so
// re-running on a self-loop re-entry is harmless.
func (m *LifecycleMachine) onPhaseEntered(phase domain.Phase) {
	switch phase {
	case domain.PhaseSubscriptionActive:
		m.markSubscriptionActive()
	case domain.PhaseAccountCreated:
		m.flushProfile()
	case domain.PhaseFullyOnboarded:
		if err := m.settings.Set(domain.SettingOnboardingCompleted, true); err != nil {
			m.logger.Error("could not persist onboarding completion", "err", err)
			m.events.LifecycleError(domain.ErrorCodePersistence, err.Error())
		}
	case domain.PhaseMainApp:
		m.mu.Lock()
		m.lastErr = ""
		m.recovering = false
		m.mu.Unlock()
	}
}

// markSubscriptionActive records the activation timestamp, keeping the first
// one on re-entry.
func (m *LifecycleMachine) markSubscriptionActive() {
	snap, err := m.progress.Snapshot()
	if err == nil && !snap.SubscriptionActivatedAt.IsZero() {
		return
	}
	now := m.now().UTC()
	if err := m.progress.SaveSnapshot(domain.SnapshotPatch{SubscriptionActivatedAt: &now}); err != nil {
		m.logger.Error("could not record subscription activation", "err", err)
	}
}

// flushProfile pushes the collected onboarding answers to the remote profile
// store. Fire-and-forget: a failure is logged, never retried here, and never
// gates subsequent phase changes.
func (m *LifecycleMachine) flushProfile() {
	snap, err := m.progress.Snapshot()
	if err != nil {
		m.logger.Warn("skipping profile flush", "err", err)
		return
	}
	fields := domain.ProfileFields{
		Goal:                    snap.SelectedGoal,
		Tone:                    snap.SelectedTone,
		ReminderEnabled:         snap.ReminderEnabled,
		ReminderTime:            snap.ReminderTime,
		TermsAccepted:           snap.TermsAccepted,
		SubscriptionActivatedAt: snap.SubscriptionActivatedAt,
	}
	logger := m.logger
	go func() {
		if err := m.profile.UpsertProfile(context.Background(), fields); err != nil {
			logger.Warn("profile flush failed", "err", err)
		}
	}()
}

// HandleError classifies a failed operation into a recovery action. Phases
// whose underlying operation the caller can simply re-trigger hold position;
// all others resume from the last persisted good phase. Retry never clears
// lastError; only a later successful Advance does.
func (m *LifecycleMachine) HandleError(opErr error) domain.RecoveryAction {
	detail := "operation failed"
	if opErr != nil {
		detail = opErr.Error()
	}

	m.mu.Lock()
	m.lastErr = detail
	m.recovering = true
	current := m.current
	m.mu.Unlock()
	m.events.LifecycleError(domain.ErrorCodeOperation, detail)

	action := domain.RecoveryResumeFromLastValid
	switch current {
	case domain.PhasePaywallPresented, domain.PhaseAccountCreationInProgress, domain.PhaseReturningUserAuth:
		action = domain.RecoveryRetry
	}
	if action == domain.RecoveryResumeFromLastValid {
		m.resumeFromLastValid()
	}
	m.events.RecoverySuggested(action, detail)
	return action
}

// resumeFromLastValid reloads the last persisted good phase as a trusted read.
func (m *LifecycleMachine) resumeFromLastValid() {
	phase, ok, err := m.progress.LastValidPhase()
	if err != nil {
		m.logger.Warn("could not read last valid phase", "err", err)
		return
	}
	if !ok {
		phase, ok, err = m.progress.PersistedPhase()
		if err != nil || !ok {
			if err != nil {
				m.logger.Warn("could not read persisted phase", "err", err)
			}
			return
		}
	}
	m.mu.Lock()
	m.current = phase
	m.mu.Unlock()
	m.events.PhaseChanged(phase, domain.PhaseReasonResumedValid)
}

// Reset is the full data erase path: onboarding progress is wiped, the
// completion and auth-requirement flags are cleared, and the machine returns
// to first launch.
func (m *LifecycleMachine) Reset() error {
	if err := m.progress.ClearAll(); err != nil {
		m.mu.Lock()
		m.lastErr = err.Error()
		m.mu.Unlock()
		m.events.LifecycleError(domain.ErrorCodePersistence, err.Error())
		return fmt.Errorf("wiping onboarding progress: %w", err)
	}
	if err := m.settings.Set(domain.SettingOnboardingCompleted, false); err != nil {
		return fmt.Errorf("clearing onboarding completion flag: %w", err)
	}
	if err := m.settings.Set(domain.SettingEverRequiredAuth, false); err != nil {
		return fmt.Errorf("clearing auth requirement flag: %w", err)
	}

	m.mu.Lock()
	m.current = domain.PhaseFirstLaunch
	m.recovering = false
	m.lastErr = ""
	m.mu.Unlock()

	m.events.PhaseChanged(domain.PhaseFirstLaunch, domain.PhaseReasonReset)
	return nil
}

// Phase returns the current phase.
func (m *LifecycleMachine) Phase() domain.Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Status summarizes the machine for the UI.
func (m *LifecycleMachine) Status() domain.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.Status{Phase: m.current, Recovering: m.recovering, LastError: m.lastErr}
}

// ShouldShowOnboarding reports whether an onboarding step is on screen.
func (m *LifecycleMachine) ShouldShowOnboarding() bool {
	return onboardingPhases[m.Phase()]
}

// ShouldShowPaywall reports whether the paywall is on screen.
func (m *LifecycleMachine) ShouldShowPaywall() bool {
	return m.Phase() == domain.PhasePaywallPresented
}

// ShouldShowAuthGate reports whether the returning-user auth gate is on screen.
func (m *LifecycleMachine) ShouldShowAuthGate() bool {
	return m.Phase() == domain.PhaseReturningUserAuth
}

// ShouldShowMainApp reports whether the main application is on screen.
func (m *LifecycleMachine) ShouldShowMainApp() bool {
	return m.Phase() == domain.PhaseMainApp
}
