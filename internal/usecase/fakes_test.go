package usecase

import (
	"context"
	"sync"

	"inkwell/internal/domain"
)

type fakeSettings struct {
	mu     sync.Mutex
	values map[string]bool
	setErr error
}

func newFakeSettings() *fakeSettings {
	return &fakeSettings{values: make(map[string]bool)}
}

func (s *fakeSettings) Get(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key]
}

func (s *fakeSettings) Set(key string, value bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.values[key] = value
	return nil
}

type fakeProgress struct {
	mu sync.Mutex

	snap         domain.OnboardingSnapshot
	phase        domain.Phase
	phaseSet     bool
	lastValid    domain.Phase
	lastValidSet bool

	savePhaseErr error
	saveSnapErr  error
	snapshotErr  error
}

func (p *fakeProgress) SaveSnapshot(patch domain.SnapshotPatch) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.saveSnapErr != nil {
		return p.saveSnapErr
	}
	if patch.SelectedGoal != nil {
		p.snap.SelectedGoal = *patch.SelectedGoal
	}
	if patch.SelectedTone != nil {
		p.snap.SelectedTone = *patch.SelectedTone
	}
	if patch.ReminderEnabled != nil {
		p.snap.ReminderEnabled = *patch.ReminderEnabled
	}
	if patch.ReminderTime != nil {
		p.snap.ReminderTime = *patch.ReminderTime
	}
	if patch.TermsAccepted != nil {
		p.snap.TermsAccepted = *patch.TermsAccepted
	}
	if patch.SubscriptionActivatedAt != nil {
		p.snap.SubscriptionActivatedAt = *patch.SubscriptionActivatedAt
	}
	return nil
}

func (p *fakeProgress) Snapshot() (domain.OnboardingSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.snapshotErr != nil {
		return domain.OnboardingSnapshot{}, p.snapshotErr
	}
	return p.snap, nil
}

func (p *fakeProgress) SavePhase(phase domain.Phase) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.savePhaseErr != nil {
		return p.savePhaseErr
	}
	if p.phaseSet && p.phase != phase {
		p.lastValid = p.phase
		p.lastValidSet = true
	}
	p.phase = phase
	p.phaseSet = true
	return nil
}

func (p *fakeProgress) PersistedPhase() (domain.Phase, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.phase, p.phaseSet, nil
}

func (p *fakeProgress) LastValidPhase() (domain.Phase, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastValid, p.lastValidSet, nil
}

func (p *fakeProgress) ClearAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap = domain.OnboardingSnapshot{}
	p.phase = ""
	p.phaseSet = false
	p.lastValid = ""
	p.lastValidSet = false
	return nil
}

type fakeIdentity struct {
	mu   sync.Mutex
	user *domain.Identity
}

func (f *fakeIdentity) CurrentUser() *domain.Identity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.user
}

func (f *fakeIdentity) OnChange(_ func(*domain.Identity)) {}

type fakeProfile struct {
	upserts chan domain.ProfileFields
	err     error
}

func newFakeProfile() *fakeProfile {
	return &fakeProfile{upserts: make(chan domain.ProfileFields, 4)}
}

func (f *fakeProfile) UpsertProfile(_ context.Context, fields domain.ProfileFields) error {
	f.upserts <- fields
	return f.err
}

func (f *fakeProfile) AppendReflection(_ context.Context, _ string, _ map[string]string) error {
	return f.err
}

type phaseEvent struct {
	phase  domain.Phase
	reason domain.PhaseReason
}

type errorEvent struct {
	code   domain.ErrorCode
	detail string
}

type recoveryEvent struct {
	action domain.RecoveryAction
	detail string
}

type fakeEventSink struct {
	mu         sync.Mutex
	phases     []phaseEvent
	errors     []errorEvent
	recoveries []recoveryEvent
}

func (f *fakeEventSink) PhaseChanged(phase domain.Phase, reason domain.PhaseReason) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.phases = append(f.phases, phaseEvent{phase: phase, reason: reason})
}

func (f *fakeEventSink) RecoverySuggested(action domain.RecoveryAction, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recoveries = append(f.recoveries, recoveryEvent{action: action, detail: detail})
}

func (f *fakeEventSink) LifecycleError(code domain.ErrorCode, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, errorEvent{code: code, detail: detail})
}

func (f *fakeEventSink) snapshotPhases() []phaseEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]phaseEvent(nil), f.phases...)
}

func (f *fakeEventSink) snapshotErrors() []errorEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]errorEvent(nil), f.errors...)
}

func (f *fakeEventSink) snapshotRecoveries() []recoveryEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recoveryEvent(nil), f.recoveries...)
}

type fakeCredentials struct {
	mu     sync.Mutex
	code   string
	set    bool
	getErr error
}

func (f *fakeCredentials) Save(code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.code = code
	f.set = true
	return nil
}

func (f *fakeCredentials) Get() (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return "", false, f.getErr
	}
	return f.code, f.set, nil
}

func (f *fakeCredentials) Exists() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return false, f.getErr
	}
	return f.set, nil
}

func (f *fakeCredentials) Delete() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.code = ""
	f.set = false
	return nil
}
