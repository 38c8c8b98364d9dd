package domain

import "time"

// Phase models one mutually-exclusive stage of the app lifecycle.
// Ordering is defined only by the transition table, never by comparison.
type Phase string

const (
	PhaseFirstLaunch               Phase = "first_launch"
	PhaseWelcome                   Phase = "welcome"
	PhaseGoalSelection             Phase = "goal_selection"
	PhaseToneSelection             Phase = "tone_selection"
	PhaseAhaMoment                 Phase = "aha_moment"
	PhasePreAccountInterstitial    Phase = "pre_account_interstitial"
	PhaseAccountCreationInProgress Phase = "account_creation_in_progress"
	PhaseAccountCreated            Phase = "account_created"
	PhasePaywallPresented          Phase = "paywall_presented"
	PhaseSubscriptionActive        Phase = "subscription_active"
	PhaseFullyOnboarded            Phase = "fully_onboarded"
	PhaseReturningUserAuth         Phase = "returning_user_auth"
	PhaseMainApp                   Phase = "main_app"
)

// PhaseReason provides a structured reason for phase changes.
type PhaseReason string

const (
	PhaseReasonColdStart      PhaseReason = "cold_start"
	PhaseReasonRestored       PhaseReason = "restored"
	PhaseReasonAdvanced       PhaseReason = "advanced"
	PhaseReasonReentered      PhaseReason = "reentered"
	PhaseReasonRedirected     PhaseReason = "redirected"
	PhaseReasonForcedComplete PhaseReason = "forced_complete"
	PhaseReasonResumedValid   PhaseReason = "resumed_last_valid"
	PhaseReasonReset          PhaseReason = "reset"
)

// ErrorCode identifies non-fatal and fatal lifecycle errors.
type ErrorCode string

const (
	ErrorCodeStartup           ErrorCode = "startup"
	ErrorCodeInvalidTransition ErrorCode = "invalid_transition"
	ErrorCodePersistence       ErrorCode = "persistence"
	ErrorCodeProfileFlush      ErrorCode = "profile_flush"
	ErrorCodeOperation         ErrorCode = "operation"
	ErrorCodeCredential        ErrorCode = "credential"
)

// RecoveryAction tells the UI how a failed operation should be recovered.
type RecoveryAction string

const (
	RecoveryRetry               RecoveryAction = "retry"
	RecoverySkipToNext          RecoveryAction = "skip_to_next"
	RecoveryResetToBeginning    RecoveryAction = "reset_to_beginning"
	RecoveryContactSupport      RecoveryAction = "contact_support"
	RecoveryResumeFromLastValid RecoveryAction = "resume_from_last_valid"
)

// OnboardingSnapshot is the durable record of onboarding answers collected so
// far. Absent answers are zero values; reads must tolerate any subset.
type OnboardingSnapshot struct {
	SelectedGoal            string    `json:"selectedGoal,omitempty"`
	SelectedTone            string    `json:"selectedTone,omitempty"`
	ReminderEnabled         bool      `json:"reminderEnabled"`
	ReminderTime            string    `json:"reminderTime,omitempty"`
	TermsAccepted           bool      `json:"termsAccepted"`
	SubscriptionActivatedAt time.Time `json:"subscriptionActivatedAt,omitempty"`
}

// SnapshotPatch is a typed partial snapshot merged into the stored one.
// Nil fields are left untouched; set fields overlay the existing value.
type SnapshotPatch struct {
	SelectedGoal            *string    `json:"selectedGoal,omitempty"`
	SelectedTone            *string    `json:"selectedTone,omitempty"`
	ReminderEnabled         *bool      `json:"reminderEnabled,omitempty"`
	ReminderTime            *string    `json:"reminderTime,omitempty"`
	TermsAccepted           *bool      `json:"termsAccepted,omitempty"`
	SubscriptionActivatedAt *time.Time `json:"subscriptionActivatedAt,omitempty"`
}

// IsZero reports whether the patch carries no fields at all.
func (p SnapshotPatch) IsZero() bool {
	return p.SelectedGoal == nil &&
		p.SelectedTone == nil &&
		p.ReminderEnabled == nil &&
		p.ReminderTime == nil &&
		p.TermsAccepted == nil &&
		p.SubscriptionActivatedAt == nil
}

// Identity describes the remote session's user, when one is present.
type Identity struct {
	ID          string `json:"id"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// ProfileFields is the shape flushed to the remote profile store once an
// account exists.
type ProfileFields struct {
	Goal                    string    `json:"goal,omitempty"`
	Tone                    string    `json:"tone,omitempty"`
	ReminderEnabled         bool      `json:"reminderEnabled"`
	ReminderTime            string    `json:"reminderTime,omitempty"`
	TermsAccepted           bool      `json:"termsAccepted"`
	SubscriptionActivatedAt time.Time `json:"subscriptionActivatedAt,omitempty"`
}

// AuthFlow identifies which local authentication flow a user must complete.
type AuthFlow string

const (
	AuthFlowNewUser   AuthFlow = "new_user"
	AuthFlowSkip      AuthFlow = "skip"
	AuthFlowBiometric AuthFlow = "biometric"
	AuthFlowPasscode  AuthFlow = "passcode"
	AuthFlowManual    AuthFlow = "manual"
)

// AuthInputs are the facts an auth decision was derived from. They are
// recomputed on demand and never persisted themselves.
type AuthInputs struct {
	OnboardingCompleted  bool `json:"onboardingCompleted"`
	RemoteSessionPresent bool `json:"remoteSessionPresent"`
	LocallyAuthenticated bool `json:"locallyAuthenticated"`
	StayLoggedIn         bool `json:"stayLoggedIn"`
	BiometricEnabled     bool `json:"biometricEnabled"`
	PasscodeSet          bool `json:"passcodeSet"`
	EverRequiredAuth     bool `json:"everRequiredAuth"`
}

// AuthFlowDecision pairs the chosen flow with the inputs it was derived from.
type AuthFlowDecision struct {
	Flow   AuthFlow   `json:"flow"`
	Inputs AuthInputs `json:"inputs"`
}

// BiometricResult is the outcome of a single biometric prompt.
// The authenticator never retries internally.
type BiometricResult string

const (
	BiometricSuccess      BiometricResult = "success"
	BiometricFailed       BiometricResult = "failed"
	BiometricCancelled    BiometricResult = "cancelled"
	BiometricNotAvailable BiometricResult = "not_available"
)

// Status summarizes the machine for the UI.
type Status struct {
	Phase      Phase  `json:"phase"`
	Recovering bool   `json:"recovering"`
	LastError  string `json:"lastError,omitempty"`
}
