package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"replyd/internal/engine"
	"replyd/internal/feedback"
	"replyd/internal/ollama"
	"replyd/internal/profile"
	"replyd/internal/storage"
)

type fakeEngine struct {
	draft         string
	err           error
	generateCalls int
	lastPrompt    string
	lastModel     string
}

func (f *fakeEngine) Generate(ctx context.Context, model, prompt string, timeout time.Duration) (string, error) {
	f.generateCalls++
	f.lastModel = model
	f.lastPrompt = prompt
	return f.draft, f.err
}

func (f *fakeEngine) ListModels(ctx context.Context) ([]string, error) {
	return []string{"llama2-uncensored:7b"}, nil
}

func (f *fakeEngine) IsRunning(ctx context.Context) bool { return true }

func newTestDeps(t *testing.T, eng *fakeEngine) Deps {
	t.Helper()
	dir := t.TempDir()

	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening storage: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	profiles := profile.NewStore(dir)
	log := feedback.NewLog(dir)

	return Deps{
		Profiles:     profiles,
		Learner:      feedback.NewLearner(log, profiles),
		Log:          log,
		Engine:       eng,
		Selector:     engine.NewSelector(eng, "fallback:model"),
		Memory:       store,
		Timeout:      time.Second,
		ContextTurns: 3,
	}
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	h := NewHandler(newTestDeps(t, &fakeEngine{}))

	w := doJSON(t, h, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("body = %q, want ok status", w.Body.String())
	}
}

func TestReply_ReturnsDraft(t *testing.T) {
	eng := &fakeEngine{draft: "sounds good"}
	h := NewHandler(newTestDeps(t, eng))

	w := doJSON(t, h, http.MethodPost, "/reply", map[string]string{
		"incoming": "you coming tonight?",
		"contact":  "Sam",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp["draft"] != "sounds good" {
		t.Errorf("draft = %q, want %q", resp["draft"], "sounds good")
	}
	if !strings.Contains(eng.lastPrompt, "you coming tonight?") {
		t.Error("prompt should include the incoming message")
	}
	if !strings.Contains(eng.lastPrompt, "Incoming from Sam:") {
		t.Error("prompt should name the contact")
	}
}

func TestReply_EmptyIncomingSkipsBackend(t *testing.T) {
	eng := &fakeEngine{draft: "never used"}
	h := NewHandler(newTestDeps(t, eng))

	w := doJSON(t, h, http.MethodPost, "/reply", map[string]string{"incoming": "   "})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if eng.generateCalls != 0 {
		t.Errorf("backend called %d times on invalid input, want 0", eng.generateCalls)
	}

	var resp struct {
		Error struct {
			Type string `json:"type"`
		} `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	if resp.Error.Type != "invalid_request_error" {
		t.Errorf("error type = %q, want invalid_request_error", resp.Error.Type)
	}
}

func TestReply_BackendErrorIs502(t *testing.T) {
	eng := &fakeEngine{err: &ollama.BackendError{Op: "generate", Err: context.DeadlineExceeded}}
	h := NewHandler(newTestDeps(t, eng))

	w := doJSON(t, h, http.MethodPost, "/reply", map[string]string{"incoming": "hey"})
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
	if !strings.Contains(w.Body.String(), "api_error") {
		t.Errorf("body = %q, want api_error type", w.Body.String())
	}
}

func TestReply_DefaultsContactToUnknown(t *testing.T) {
	eng := &fakeEngine{draft: "ok"}
	h := NewHandler(newTestDeps(t, eng))

	w := doJSON(t, h, http.MethodPost, "/reply", map[string]string{"incoming": "hey"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(eng.lastPrompt, "Incoming from Unknown:") {
		t.Errorf("prompt = %q, want Unknown contact", eng.lastPrompt)
	}
}

func TestReply_RecordsTurn(t *testing.T) {
	eng := &fakeEngine{draft: "on my way"}
	deps := newTestDeps(t, eng)
	h := NewHandler(deps)

	w := doJSON(t, h, http.MethodPost, "/reply", map[string]string{
		"incoming": "where are you?",
		"contact":  "Sam",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	turns, err := deps.Memory.RecentTurns("Sam", 5)
	if err != nil {
		t.Fatalf("RecentTurns: %v", err)
	}
	if len(turns) != 1 {
		t.Fatalf("got %d turns, want 1", len(turns))
	}
	if turns[0].Incoming != "where are you?" || turns[0].Draft != "on my way" {
		t.Errorf("turn = %+v, want incoming and draft recorded", turns[0])
	}
}

func TestFeedback_AcksAndLearns(t *testing.T) {
	deps := newTestDeps(t, &fakeEngine{})
	h := NewHandler(deps)

	w := doJSON(t, h, http.MethodPost, "/feedback", feedback.Record{
		Contact:  "Sam",
		Final:    "Sweet, see you at eight",
		Accepted: true,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"ok":true`) {
		t.Errorf("body = %q, want ok ack", w.Body.String())
	}

	p, err := deps.Profiles.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	found := false
	for _, phrase := range p.PreferredPhrases {
		if phrase == "Sweet, see you at eight" {
			found = true
		}
	}
	if !found {
		t.Errorf("phrases = %v, want accepted final merged in", p.PreferredPhrases)
	}

	turns, err := deps.Memory.RecentTurns("Sam", 5)
	if err != nil {
		t.Fatalf("RecentTurns: %v", err)
	}
	if len(turns) != 1 || turns[0].Final != "Sweet, see you at eight" {
		t.Errorf("turns = %+v, want final text kept in memory", turns)
	}
}

func TestFeedback_RejectedStillAcked(t *testing.T) {
	deps := newTestDeps(t, &fakeEngine{})
	h := NewHandler(deps)

	w := doJSON(t, h, http.MethodPost, "/feedback", feedback.Record{
		Draft:    "some rejected draft",
		Accepted: false,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	records, err := deps.Log.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("log has %d records, want 1", len(records))
	}
}

func TestProfile_GetReturnsDefaults(t *testing.T) {
	h := NewHandler(newTestDeps(t, &fakeEngine{}))

	w := doJSON(t, h, http.MethodGet, "/profile", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var p profile.Profile
	if err := json.NewDecoder(w.Body).Decode(&p); err != nil {
		t.Fatalf("decoding profile: %v", err)
	}
	if p.StyleRules == "" {
		t.Error("default profile should carry style rules")
	}
	if p.BannedWords == nil {
		t.Error("banned_words should serialize as an empty list, not null")
	}
}

func TestProfile_SetMergesFields(t *testing.T) {
	deps := newTestDeps(t, &fakeEngine{})
	h := NewHandler(deps)

	w := doJSON(t, h, http.MethodPost, "/profile", map[string]any{
		"banned_words": []string{"mate", "cheers"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	p, err := deps.Profiles.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(p.BannedWords) != 2 {
		t.Errorf("banned words = %v, want the submitted pair", p.BannedWords)
	}
	if p.StyleRules != profile.Default().StyleRules {
		t.Error("untouched fields must keep their previous values")
	}
}

func TestMemory_ListAndDelete(t *testing.T) {
	deps := newTestDeps(t, &fakeEngine{})
	h := NewHandler(deps)

	for i := 0; i < 3; i++ {
		err := deps.Memory.SaveTurn(storage.Turn{
			ID:      string(rune('a' + i)),
			Contact: "Sam",
			Final:   "hello",
		})
		if err != nil {
			t.Fatalf("SaveTurn: %v", err)
		}
	}

	w := doJSON(t, h, http.MethodGet, "/memory?contact=Sam&limit=2", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Contact string         `json:"contact"`
		Turns   []storage.Turn `json:"turns"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Contact != "Sam" || len(resp.Turns) != 2 {
		t.Errorf("got contact %q with %d turns, want Sam with 2", resp.Contact, len(resp.Turns))
	}

	w = doJSON(t, h, http.MethodDelete, "/memory?contact=Sam", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}

	turns, err := deps.Memory.RecentTurns("Sam", 10)
	if err != nil {
		t.Fatalf("RecentTurns: %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("got %d turns after delete, want 0", len(turns))
	}
}

func TestParseIntParam(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 5},
		{"limit=10", 10},
		{"limit=abc", 5},
		{"limit=-1", 5},
		{"limit=500", 100},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/memory?"+tt.query, nil)
		if got := parseIntParam(req, "limit", 5, 100); got != tt.want {
			t.Errorf("parseIntParam(%q) = %d, want %d", tt.query, got, tt.want)
		}
	}
}
