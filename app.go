package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"regexp"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"inkwell/internal/bootstrap"
	"inkwell/internal/domain"
	"inkwell/internal/providers/localauth"
)

const (
	eventPhase    = "inkwell:phase"
	eventRecovery = "inkwell:recovery"
	eventError    = "inkwell:error"
	eventIdentity = "inkwell:identity"
)

var passcodePattern = regexp.MustCompile(`^[0-9]{4,8}$`)

// ErrNotReady is returned by every bound method until startup has wired the
// backend services.
var ErrNotReady = errors.New("application is not initialized")

// App is the Wails application root.
type App struct {
	ctx context.Context

	services bootstrap.Services
	bootErr  error
}

func NewApp() *App {
	return &App{}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a, localauth.Unavailable{})
	if err != nil {
		a.bootErr = err
		a.LifecycleError(domain.ErrorCodeStartup, err.Error())
		return
	}
	a.services = services

	services.Machine.Initialize()

	services.Identity.OnChange(func(user *domain.Identity) {
		a.emitIdentity(user)
		// Losing the remote session while inside the main app forces the
		// returning-user gate.
		if user == nil && services.Machine.Phase() == domain.PhaseMainApp {
			services.Machine.Advance(domain.PhaseReturningUserAuth, domain.SnapshotPatch{})
		}
	})
	go func() {
		if err := services.Identity.Refresh(ctx); err != nil {
			services.Logger.Warn("remote session refresh failed", "err", err)
		}
	}()
}

func (a *App) shutdown(_ context.Context) {
	if a.services.Close != nil {
		_ = a.services.Close()
	}
}

// GetStatus returns the current lifecycle status.
func (a *App) GetStatus() domain.Status {
	if a.services.Machine == nil {
		if a.bootErr != nil {
			return domain.Status{Phase: domain.PhaseFirstLaunch, LastError: a.bootErr.Error()}
		}
		return domain.Status{Phase: domain.PhaseFirstLaunch}
	}
	return a.services.Machine.Status()
}

// InitialPhase computes where this launch should land.
func (a *App) InitialPhase() (domain.Phase, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}
	return a.services.Machine.DetermineInitialPhase(), nil
}

// Advance requests a phase transition, merging the patch into the onboarding
// snapshot. Invalid requests self-heal or hold position; either way the
// caller gets the resulting status, never an exception.
func (a *App) Advance(to domain.Phase, patch domain.SnapshotPatch) (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	a.services.Machine.Advance(to, patch)
	return a.services.Machine.Status(), nil
}

// ResolveAuthFlow decides which local auth challenge the user faces.
func (a *App) ResolveAuthFlow() (domain.AuthFlowDecision, error) {
	if err := a.requireReady(); err != nil {
		return domain.AuthFlowDecision{}, err
	}
	return a.services.Resolver.Resolve()
}

// AuthenticateBiometric runs a single biometric prompt. A success counts as
// this process's local authentication.
func (a *App) AuthenticateBiometric(reason string) (domain.BiometricResult, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}
	result, err := a.services.Biometric.Authenticate(a.ctx, reason)
	if err != nil {
		return "", err
	}
	if result == domain.BiometricSuccess {
		a.services.Resolver.MarkLocallyAuthenticated()
	}
	return result, nil
}

// SetPasscode stores a new local unlock code.
func (a *App) SetPasscode(code string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if !passcodePattern.MatchString(code) {
		return errors.New("passcode must be 4 to 8 digits")
	}
	if err := a.services.Credentials.Save(code); err != nil {
		a.LifecycleError(domain.ErrorCodeCredential, err.Error())
		return err
	}
	return nil
}

// VerifyPasscode checks the entered code against the stored one. A match
// counts as this process's local authentication.
func (a *App) VerifyPasscode(code string) (bool, error) {
	if err := a.requireReady(); err != nil {
		return false, err
	}
	stored, ok, err := a.services.Credentials.Get()
	if err != nil {
		a.LifecycleError(domain.ErrorCodeCredential, err.Error())
		return false, err
	}
	if !ok {
		return false, errors.New("no passcode is set")
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return false, nil
	}
	a.services.Resolver.MarkLocallyAuthenticated()
	return true, nil
}

// ClearPasscode removes the local unlock code. Clearing an empty slot is fine.
func (a *App) ClearPasscode() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.services.Credentials.Delete()
}

// SetBiometricUnlock persists the biometric unlock preference.
func (a *App) SetBiometricUnlock(enabled bool) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.services.Settings.Set(domain.SettingBiometricEnabled, enabled)
}

// SetStaySignedIn persists the stay-signed-in preference.
func (a *App) SetStaySignedIn(enabled bool) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.services.Settings.Set(domain.SettingStaySignedIn, enabled)
}

// ReportFailure classifies a failed vendor operation into a recovery action
// the UI should take.
func (a *App) ReportFailure(detail string) (domain.RecoveryAction, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}
	return a.services.Machine.HandleError(errors.New(detail)), nil
}

// ResetAll is the full data erase path: onboarding progress, lifecycle flags,
// and the stored passcode are all wiped.
func (a *App) ResetAll() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if err := a.services.Machine.Reset(); err != nil {
		return err
	}
	return a.services.Credentials.Delete()
}

// AppendReflection forwards one finished journaling reflection to the remote
// profile, best effort.
func (a *App) AppendReflection(text string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if !a.services.Machine.ShouldShowMainApp() {
		return errors.New("journaling requires the main app")
	}
	logger := a.services.Logger
	go func() {
		meta := map[string]string{"source": "voice_journal"}
		if err := a.services.Identity.AppendReflection(context.Background(), text, meta); err != nil {
			logger.Warn("reflection append failed", "err", err)
		}
	}()
	return nil
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}
	return map[string]string{
		"apiBase":  a.services.Config.Remote.APIBase,
		"dataDir":  a.services.Config.Data.Dir,
		"logLevel": a.services.Config.Log.Level,
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.services.Machine == nil {
		return ErrNotReady
	}
	return nil
}

// PhaseChanged emits lifecycle phase updates to the frontend.
func (a *App) PhaseChanged(phase domain.Phase, reason domain.PhaseReason) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventPhase, map[string]string{
		"phase":   string(phase),
		"reason":  string(reason),
		"message": phaseReasonMessage(reason),
	})
}

// RecoverySuggested emits the recovery action for a failed operation.
func (a *App) RecoverySuggested(action domain.RecoveryAction, detail string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventRecovery, map[string]string{
		"action": string(action),
		"detail": detail,
	})
}

// LifecycleError emits backend errors to the UI.
func (a *App) LifecycleError(code domain.ErrorCode, detail string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

func (a *App) emitIdentity(user *domain.Identity) {
	if a.ctx == nil {
		return
	}
	payload := map[string]string{"present": "false"}
	if user != nil {
		payload = map[string]string{
			"present":     "true",
			"id":          user.ID,
			"email":       user.Email,
			"displayName": user.DisplayName,
		}
	}
	runtime.EventsEmit(a.ctx, eventIdentity, payload)
}

func phaseReasonMessage(reason domain.PhaseReason) string {
	switch reason {
	case domain.PhaseReasonColdStart:
		return "Starting up"
	case domain.PhaseReasonRestored:
		return "Restored previous session"
	case domain.PhaseReasonAdvanced:
		return "Moving on"
	case domain.PhaseReasonReentered:
		return "Still here"
	case domain.PhaseReasonRedirected:
		return "One more step first"
	case domain.PhaseReasonForcedComplete:
		return "Onboarding complete"
	case domain.PhaseReasonResumedValid:
		return "Picked up where you left off"
	case domain.PhaseReasonReset:
		return "Starting fresh"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeInvalidTransition:
		return "That step isn't available yet"
	case domain.ErrorCodePersistence:
		return "Could not save your progress"
	case domain.ErrorCodeProfileFlush:
		return "Could not sync your profile"
	case domain.ErrorCodeOperation:
		return "Something went wrong"
	case domain.ErrorCodeCredential:
		return "Passcode storage failed"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}
