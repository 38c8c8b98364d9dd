package usecase

import "inkwell/internal/domain"

// transitionTable lists the legal forward edges between lifecycle phases.
// Self-transitions and the two universal edges (reset to first launch, forced
// returning-user auth) are valid from anywhere and handled in canTransition.
var transitionTable = map[domain.Phase][]domain.Phase{
	domain.PhaseFirstLaunch:               {domain.PhaseWelcome},
	domain.PhaseWelcome:                   {domain.PhaseGoalSelection},
	domain.PhaseGoalSelection:             {domain.PhaseToneSelection},
	domain.PhaseToneSelection:             {domain.PhaseAhaMoment},
	domain.PhaseAhaMoment:                 {domain.PhasePreAccountInterstitial},
	domain.PhasePreAccountInterstitial:    {domain.PhaseAccountCreationInProgress},
	domain.PhaseAccountCreationInProgress: {domain.PhaseAccountCreated},
	domain.PhaseAccountCreated:            {domain.PhasePaywallPresented},
	// The paywall may be dismissed without purchase.
	domain.PhasePaywallPresented:   {domain.PhaseSubscriptionActive, domain.PhaseFullyOnboarded},
	domain.PhaseSubscriptionActive: {domain.PhaseFullyOnboarded},
	domain.PhaseFullyOnboarded:     {domain.PhaseMainApp},
	domain.PhaseReturningUserAuth:  {domain.PhaseMainApp},
}

func canTransition(from, to domain.Phase) bool {
	if to == from {
		return true
	}
	if to == domain.PhaseFirstLaunch || to == domain.PhaseReturningUserAuth {
		return true
	}
	for _, next := range transitionTable[from] {
		if next == to {
			return true
		}
	}
	return false
}

var onboardingPhases = map[domain.Phase]bool{
	domain.PhaseFirstLaunch:               true,
	domain.PhaseWelcome:                   true,
	domain.PhaseGoalSelection:             true,
	domain.PhaseToneSelection:             true,
	domain.PhaseAhaMoment:                 true,
	domain.PhasePreAccountInterstitial:    true,
	domain.PhaseAccountCreationInProgress: true,
	domain.PhaseAccountCreated:            true,
}
