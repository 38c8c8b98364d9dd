package remoteid

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"inkwell/internal/domain"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 2 * time.Second})
}

func TestRefreshCachesSessionUser(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/session" || r.Method != http.MethodGet {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header: %q", got)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Errorf("expected a request id")
		}
		_ = json.NewEncoder(w).Encode(domain.Identity{ID: "u-1", Email: "a@b.c"})
	}))

	var mu sync.Mutex
	var changes []*domain.Identity
	client.OnChange(func(user *domain.Identity) {
		mu.Lock()
		changes = append(changes, user)
		mu.Unlock()
	})

	if err := client.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	user := client.CurrentUser()
	if user == nil || user.ID != "u-1" {
		t.Fatalf("unexpected user: %+v", user)
	}

	// Refreshing the same session must not re-notify.
	if err := client.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(changes) != 1 {
		t.Fatalf("expected one change notification, got %d", len(changes))
	}
}

func TestRefreshUnauthorizedClearsUser(t *testing.T) {
	t.Parallel()

	status := http.StatusOK
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if status == http.StatusOK {
			_ = json.NewEncoder(w).Encode(domain.Identity{ID: "u-1"})
			return
		}
		w.WriteHeader(status)
	}))

	if err := client.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	status = http.StatusUnauthorized
	if err := client.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if client.CurrentUser() != nil {
		t.Fatalf("expected session to be cleared")
	}
}

func TestRefreshServerErrorKeepsCachedUser(t *testing.T) {
	t.Parallel()

	status := http.StatusOK
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if status == http.StatusOK {
			_ = json.NewEncoder(w).Encode(domain.Identity{ID: "u-1"})
			return
		}
		w.WriteHeader(status)
	}))

	if err := client.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	status = http.StatusInternalServerError
	if err := client.Refresh(context.Background()); err == nil {
		t.Fatalf("expected error on server failure")
	}
	if client.CurrentUser() == nil {
		t.Fatalf("a transient failure must not clear the cached session")
	}
}

func TestUpsertProfile(t *testing.T) {
	t.Parallel()

	var got domain.ProfileFields
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/profile" || r.Method != http.MethodPut {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode failed: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	fields := domain.ProfileFields{Goal: "reflect", Tone: "warm", TermsAccepted: true}
	if err := client.UpsertProfile(context.Background(), fields); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if got.Goal != "reflect" || got.Tone != "warm" || !got.TermsAccepted {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestUpsertProfileErrorStatus(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	if err := client.UpsertProfile(context.Background(), domain.ProfileFields{}); err == nil {
		t.Fatalf("expected error on bad status")
	}
}

func TestAppendReflection(t *testing.T) {
	t.Parallel()

	var payload struct {
		ID   string            `json:"id"`
		Text string            `json:"text"`
		Meta map[string]string `json:"meta"`
	}
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reflections" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode failed: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))

	err := client.AppendReflection(context.Background(), "today went well", map[string]string{"source": "voice_journal"})
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if payload.ID == "" || payload.Text != "today went well" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if payload.Meta["source"] != "voice_journal" {
		t.Fatalf("meta was dropped: %+v", payload.Meta)
	}
}

func TestMissingAPIKey(t *testing.T) {
	t.Parallel()

	client := NewClient(Config{})
	if err := client.Refresh(context.Background()); err == nil {
		t.Fatalf("expected configuration error")
	}
}
