package usecase

import (
	"errors"
	"testing"

	"inkwell/internal/domain"
)

func TestDecideAuthFlow(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		in       domain.AuthInputs
		want     domain.AuthFlow
		exempted bool
	}{
		{
			name: "onboarding incomplete is a new user",
			in:   domain.AuthInputs{RemoteSessionPresent: true},
			want: domain.AuthFlowNewUser,
		},
		{
			name: "no remote session means manual sign-in",
			in:   domain.AuthInputs{OnboardingCompleted: true, EverRequiredAuth: true},
			want: domain.AuthFlowManual,
		},
		{
			name: "already authenticated this process skips",
			in:   domain.AuthInputs{OnboardingCompleted: true, RemoteSessionPresent: true, LocallyAuthenticated: true, EverRequiredAuth: true},
			want: domain.AuthFlowSkip,
		},
		{
			name: "stay signed in skips",
			in:   domain.AuthInputs{OnboardingCompleted: true, RemoteSessionPresent: true, StayLoggedIn: true, EverRequiredAuth: true},
			want: domain.AuthFlowSkip,
		},
		{
			name:     "first completion exemption",
			in:       domain.AuthInputs{OnboardingCompleted: true, RemoteSessionPresent: true},
			want:     domain.AuthFlowSkip,
			exempted: true,
		},
		{
			name: "biometric when enabled and passcode set",
			in:   domain.AuthInputs{OnboardingCompleted: true, RemoteSessionPresent: true, EverRequiredAuth: true, BiometricEnabled: true, PasscodeSet: true},
			want: domain.AuthFlowBiometric,
		},
		{
			name: "biometric enabled without passcode falls to manual",
			in:   domain.AuthInputs{OnboardingCompleted: true, RemoteSessionPresent: true, EverRequiredAuth: true, BiometricEnabled: true},
			want: domain.AuthFlowManual,
		},
		{
			name: "passcode without biometric",
			in:   domain.AuthInputs{OnboardingCompleted: true, RemoteSessionPresent: true, EverRequiredAuth: true, PasscodeSet: true},
			want: domain.AuthFlowPasscode,
		},
		{
			name: "nothing configured falls to manual",
			in:   domain.AuthInputs{OnboardingCompleted: true, RemoteSessionPresent: true, EverRequiredAuth: true},
			want: domain.AuthFlowManual,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			flow, exempted := decideAuthFlow(tc.in)
			if flow != tc.want {
				t.Fatalf("unexpected flow: %s", flow)
			}
			if exempted != tc.exempted {
				t.Fatalf("unexpected exemption: %v", exempted)
			}
		})
	}
}

func TestResolveFirstCompletionExemptionFiresOnce(t *testing.T) {
	t.Parallel()

	settings := newFakeSettings()
	settings.values[domain.SettingOnboardingCompleted] = true
	credentials := &fakeCredentials{}
	identity := &fakeIdentity{user: &domain.Identity{ID: "u-1"}}

	resolver := NewAuthResolver(settings, credentials, identity, nil)

	decision, err := resolver.Resolve()
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if decision.Flow != domain.AuthFlowSkip {
		t.Fatalf("expected skip on first completion, got %s", decision.Flow)
	}
	if decision.Inputs.EverRequiredAuth {
		t.Fatalf("inputs should reflect the pre-exemption state")
	}
	if !settings.Get(domain.SettingEverRequiredAuth) {
		t.Fatalf("exemption must persist the auth requirement flag")
	}
	if !resolver.LocallyAuthenticated() {
		t.Fatalf("exemption counts as local authentication for this process")
	}

	// A fresh process with the same stores no longer gets the exemption.
	later := NewAuthResolver(settings, credentials, identity, nil)
	decision, err = later.Resolve()
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if decision.Flow != domain.AuthFlowManual {
		t.Fatalf("expected manual after exemption spent, got %s", decision.Flow)
	}
}

func TestResolvePrefersBiometricWhenConfigured(t *testing.T) {
	t.Parallel()

	settings := newFakeSettings()
	settings.values[domain.SettingOnboardingCompleted] = true
	settings.values[domain.SettingEverRequiredAuth] = true
	settings.values[domain.SettingBiometricEnabled] = true
	credentials := &fakeCredentials{}
	if err := credentials.Save("4812"); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	identity := &fakeIdentity{user: &domain.Identity{ID: "u-1"}}

	resolver := NewAuthResolver(settings, credentials, identity, nil)
	decision, err := resolver.Resolve()
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if decision.Flow != domain.AuthFlowBiometric {
		t.Fatalf("expected biometric, got %s", decision.Flow)
	}
	if !decision.Inputs.PasscodeSet || !decision.Inputs.BiometricEnabled {
		t.Fatalf("unexpected inputs: %+v", decision.Inputs)
	}
}

func TestResolveMarkLocallyAuthenticatedSkips(t *testing.T) {
	t.Parallel()

	settings := newFakeSettings()
	settings.values[domain.SettingOnboardingCompleted] = true
	settings.values[domain.SettingEverRequiredAuth] = true
	identity := &fakeIdentity{user: &domain.Identity{ID: "u-1"}}

	resolver := NewAuthResolver(settings, &fakeCredentials{}, identity, nil)
	resolver.MarkLocallyAuthenticated()

	decision, err := resolver.Resolve()
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if decision.Flow != domain.AuthFlowSkip {
		t.Fatalf("expected skip, got %s", decision.Flow)
	}
}

func TestResolveCredentialReadFailure(t *testing.T) {
	t.Parallel()

	settings := newFakeSettings()
	credentials := &fakeCredentials{getErr: errors.New("keychain locked")}
	resolver := NewAuthResolver(settings, credentials, &fakeIdentity{}, nil)

	if _, err := resolver.Resolve(); err == nil {
		t.Fatalf("expected credential error to propagate")
	}
}
