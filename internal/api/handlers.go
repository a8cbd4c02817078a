package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"replyd/internal/composer"
	"replyd/internal/engine"
	"replyd/internal/feedback"
	"replyd/internal/ollama"
	"replyd/internal/profile"
	"replyd/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// defaultContact labels messages whose sender the caller did not identify.
const defaultContact = "Unknown"

// Deps holds the collaborators shared by the HTTP and MCP surfaces.
type Deps struct {
	Profiles     *profile.Store
	Learner      *feedback.Learner
	Log          *feedback.Log
	Engine       engine.Engine
	Selector     *engine.Selector
	Memory       *storage.Store // optional; nil disables turn recording
	Timeout      time.Duration  // generation timeout per draft
	ContextTurns int            // recent turns injected into the prompt
}

// NewHandler returns the HTTP surface: draft, feedback, profile, memory, and
// health routes.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Post("/reply", handleReply(deps))
	r.Post("/feedback", handleFeedback(deps))
	r.Get("/profile", handleGetProfile(deps))
	r.Post("/profile", handleSetProfile(deps))
	r.Get("/memory", handleListMemory(deps))
	r.Delete("/memory", handleDeleteMemory(deps))

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

type replyRequest struct {
	Incoming string `json:"incoming"`
	Contact  string `json:"contact"`
}

func handleReply(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req replyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		if strings.TrimSpace(req.Incoming) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "incoming is required and must not be empty")
			return
		}

		draft, err := draftReply(r.Context(), deps, req.Incoming, req.Contact)
		var be *ollama.BackendError
		if errors.As(err, &be) {
			httpError(w, http.StatusBadGateway, "api_error", "drafting reply: %v", err)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "drafting reply: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"draft": draft})
	}
}

// draftReply runs the full draft path: load profile, gather recent turns,
// compose the prompt, pick the model, and call the backend. Memory failures
// never fail the draft.
func draftReply(ctx context.Context, deps Deps, incoming, contact string) (string, error) {
	if contact == "" {
		contact = defaultContact
	}

	p, err := deps.Profiles.Load()
	if err != nil {
		return "", fmt.Errorf("loading profile: %w", err)
	}

	var recent []storage.Turn
	if deps.Memory != nil && deps.ContextTurns > 0 {
		recent, err = deps.Memory.RecentTurns(contact, deps.ContextTurns)
		if err != nil {
			slog.Warn("loading recent turns failed", "contact", contact, "error", err)
			recent = nil
		}
	}

	prompt := composer.Compose(p, incoming, contact, recent)
	model := deps.Selector.Model(ctx)

	draft, err := deps.Engine.Generate(ctx, model, prompt, deps.Timeout)
	if err != nil {
		return "", err
	}

	if deps.Memory != nil {
		turn := storage.Turn{
			ID:       uuid.New().String(),
			Contact:  contact,
			Incoming: incoming,
			Draft:    draft,
		}
		if err := deps.Memory.SaveTurn(turn); err != nil {
			slog.Warn("recording turn failed", "contact", contact, "error", err)
		}
	}

	return draft, nil
}

func handleFeedback(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var rec feedback.Record
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		if err := deps.Learner.RecordAndLearn(rec); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "recording feedback: %v", err)
			return
		}

		// Keep the final text in contact memory for prompt continuity.
		if deps.Memory != nil && strings.TrimSpace(rec.Final) != "" {
			contact := rec.Contact
			if contact == "" {
				contact = defaultContact
			}
			turn := storage.Turn{
				ID:      uuid.New().String(),
				Contact: contact,
				Final:   rec.Final,
			}
			if err := deps.Memory.SaveTurn(turn); err != nil {
				slog.Warn("recording final turn failed", "contact", contact, "error", err)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	}
}

func handleGetProfile(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := deps.Profiles.Load()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "loading profile: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(p)
	}
}

func handleSetProfile(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var fields profile.Fields
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		if _, err := deps.Profiles.SetFields(fields); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "saving profile: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	}
}

func handleListMemory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contact := r.URL.Query().Get("contact")
		if contact == "" {
			contact = defaultContact
		}
		limit := parseIntParam(r, "limit", 5, 100)

		turns := []storage.Turn{}
		if deps.Memory != nil {
			var err error
			turns, err = deps.Memory.RecentTurns(contact, limit)
			if err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "listing memory: %v", err)
				return
			}
			if turns == nil {
				turns = []storage.Turn{}
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"contact": contact,
			"turns":   turns,
		})
	}
}

func handleDeleteMemory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contact := r.URL.Query().Get("contact")
		if contact == "" {
			contact = defaultContact
		}

		if deps.Memory != nil {
			if err := deps.Memory.DeleteTurns(contact); err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "deleting memory: %v", err)
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	}
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
