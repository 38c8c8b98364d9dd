package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"inkwell/internal/domain"
)

// Keys in the onboarding progress namespace.
const (
	keyGoal            = "goal"
	keyTone            = "tone"
	keyReminderEnabled = "reminder_enabled"
	keyReminderTime    = "reminder_time"
	keyTermsAccepted   = "terms_accepted"
	keySubscribedAt    = "subscription_activated_at"
	keyPhase           = "phase"
	keyLastValidPhase  = "last_valid_phase"
)

// Progress persists partial onboarding answers and the last two lifecycle
// phase snapshots. Snapshot writes have merge semantics: a patch only
// overlays the fields it carries.
type Progress struct {
	db *sql.DB
}

func NewProgress(db *sql.DB) *Progress {
	return &Progress{db: db}
}

// SaveSnapshot merges the patch into the stored snapshot inside one
// transaction, so a crash never persists half a patch.
func (p *Progress) SaveSnapshot(patch domain.SnapshotPatch) error {
	if patch.IsZero() {
		return nil
	}

	tx, err := p.db.Begin()
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	defer tx.Rollback()

	if patch.SelectedGoal != nil {
		if err := upsert(tx, keyGoal, *patch.SelectedGoal); err != nil {
			return err
		}
	}
	if patch.SelectedTone != nil {
		if err := upsert(tx, keyTone, *patch.SelectedTone); err != nil {
			return err
		}
	}
	if patch.ReminderEnabled != nil {
		if err := upsert(tx, keyReminderEnabled, encodeBool(*patch.ReminderEnabled)); err != nil {
			return err
		}
	}
	if patch.ReminderTime != nil {
		if err := upsert(tx, keyReminderTime, *patch.ReminderTime); err != nil {
			return err
		}
	}
	if patch.TermsAccepted != nil {
		if err := upsert(tx, keyTermsAccepted, encodeBool(*patch.TermsAccepted)); err != nil {
			return err
		}
	}
	if patch.SubscriptionActivatedAt != nil {
		if err := upsert(tx, keySubscribedAt, patch.SubscriptionActivatedAt.Format(time.RFC3339Nano)); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// Snapshot returns the full stored snapshot. Absent fields are zero values.
func (p *Progress) Snapshot() (domain.OnboardingSnapshot, error) {
	rows, err := p.db.Query("SELECT key, value FROM onboarding_progress")
	if err != nil {
		return domain.OnboardingSnapshot{}, fmt.Errorf("reading snapshot: %w", err)
	}
	defer rows.Close()

	var snap domain.OnboardingSnapshot
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return domain.OnboardingSnapshot{}, fmt.Errorf("reading snapshot: %w", err)
		}
		switch key {
		case keyGoal:
			snap.SelectedGoal = value
		case keyTone:
			snap.SelectedTone = value
		case keyReminderEnabled:
			snap.ReminderEnabled = value == "1"
		case keyReminderTime:
			snap.ReminderTime = value
		case keyTermsAccepted:
			snap.TermsAccepted = value == "1"
		case keySubscribedAt:
			if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
				snap.SubscriptionActivatedAt = t
			}
		}
	}
	if err := rows.Err(); err != nil {
		return domain.OnboardingSnapshot{}, fmt.Errorf("reading snapshot: %w", err)
	}
	return snap, nil
}

// SavePhase records the current phase. The previously recorded phase, if
// different, rotates into the last-known-valid slot in the same transaction.
func (p *Progress) SavePhase(phase domain.Phase) error {
	tx, err := p.db.Begin()
	if err != nil {
		return fmt.Errorf("saving phase: %w", err)
	}
	defer tx.Rollback()

	var previous string
	err = tx.QueryRow("SELECT value FROM onboarding_progress WHERE key = ?", keyPhase).Scan(&previous)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("saving phase: %w", err)
	case previous != string(phase):
		if err := upsert(tx, keyLastValidPhase, previous); err != nil {
			return err
		}
	}

	if err := upsert(tx, keyPhase, string(phase)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("saving phase: %w", err)
	}
	return nil
}

// PersistedPhase returns the recorded current phase, if any.
func (p *Progress) PersistedPhase() (domain.Phase, bool, error) {
	return p.phaseAt(keyPhase)
}

// LastValidPhase returns the last-known-valid phase, if any.
func (p *Progress) LastValidPhase() (domain.Phase, bool, error) {
	return p.phaseAt(keyLastValidPhase)
}

func (p *Progress) phaseAt(key string) (domain.Phase, bool, error) {
	var value string
	err := p.db.QueryRow("SELECT value FROM onboarding_progress WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", key, err)
	}
	return domain.Phase(value), true, nil
}

// ClearAll wipes the entire namespace, answers and phase markers alike.
func (p *Progress) ClearAll() error {
	if _, err := p.db.Exec("DELETE FROM onboarding_progress"); err != nil {
		return fmt.Errorf("clearing onboarding progress: %w", err)
	}
	return nil
}

func upsert(tx *sql.Tx, key, value string) error {
	_, err := tx.Exec(
		"INSERT INTO onboarding_progress (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

func encodeBool(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
