package domain

// Keys in the durable settings namespace. All reads are absent-tolerant:
// a key that was never written reads as false.
const (
	SettingOnboardingCompleted = "onboarding_completed"
	SettingBiometricEnabled    = "biometric_unlock_enabled"
	SettingStaySignedIn        = "stay_signed_in"
	SettingEverRequiredAuth    = "has_ever_required_auth"
)
