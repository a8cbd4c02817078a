package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"replyd/internal/config"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
		})

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"error":{"message":"not found","type":"not_found"}}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		httpClient: ts.server.Client(),
	}
}

var ctx = context.Background()

func TestReplyCommand(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /reply": `{"draft":"sounds good"}`,
	})

	client := ts.client()
	resp, err := client.post(ctx, "/reply", map[string]string{
		"incoming": "you coming tonight?",
		"contact":  "Sam",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result map[string]string
	if err := decodeJSON(resp, &result); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if result["draft"] != "sounds good" {
		t.Errorf("draft = %q, want 'sounds good'", result["draft"])
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}

	var body map[string]any
	if err := json.Unmarshal([]byte(ts.requests[0].Body), &body); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if body["incoming"] != "you coming tonight?" {
		t.Errorf("body.incoming = %v", body["incoming"])
	}
	if body["contact"] != "Sam" {
		t.Errorf("body.contact = %v", body["contact"])
	}
}

func TestFeedbackCommand(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /feedback": `{"ok":true}`,
	})

	client := ts.client()
	resp, err := client.post(ctx, "/feedback", map[string]any{
		"final":    "Sweet, see you at eight",
		"accepted": true,
		"edited":   false,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result map[string]bool
	if err := decodeJSON(resp, &result); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if !result["ok"] {
		t.Error("expected ok ack")
	}

	var body map[string]any
	if err := json.Unmarshal([]byte(ts.requests[0].Body), &body); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if body["accepted"] != true {
		t.Errorf("body.accepted = %v, want true", body["accepted"])
	}
}

func TestProfileShow(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /profile": `{"style_rules":"Short and blunt.","preferred_phrases":[],"banned_words":[]}`,
	})

	client := ts.client()
	resp, err := client.get(ctx, "/profile")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var profile map[string]any
	if err := decodeJSON(resp, &profile); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if profile["style_rules"] != "Short and blunt." {
		t.Errorf("style_rules = %v", profile["style_rules"])
	}
}

func TestMemoryPath_URLEncoding(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /memory": `{"contact":"A & B","turns":[]}`,
	})

	client := ts.client()
	path := "/memory?contact=" + url.QueryEscape("A & B") + "&limit=10"
	resp, err := client.get(ctx, path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	reqPath := ts.requests[0].Path
	if strings.Contains(reqPath, "& B") {
		t.Errorf("contact not URL-encoded: %q", reqPath)
	}
	if !strings.Contains(reqPath, "contact=A+%26+B") {
		t.Errorf("unexpected encoded path: %q", reqPath)
	}
}

func TestStatusCommand_Stopped(t *testing.T) {
	ts := newTestServer(t, map[string]string{})
	ts.server.Close()

	client := ts.client()
	_, err := client.get(ctx, "/health")
	if err == nil {
		t.Fatal("expected error for stopped server")
	}
	if !strings.Contains(err.Error(), "not reachable") {
		t.Errorf("error = %q, want it to mention 'not reachable'", err.Error())
	}
}

func TestNoColorFlag(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	result := colorize(colorGreen, "test message")
	if strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", result)
	}
	if result != "test message" {
		t.Errorf("result = %q, want %q", result, "test message")
	}

	noColor = false
	result = colorize(colorGreen, "test message")
	if !strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
}

func TestDecodeJSON_ErrorResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(502)
		w.Write([]byte(`{"error":{"message":"backend down","type":"api_error"}}`))
	}))
	defer ts.Close()

	client := &apiClient{
		baseURL:    ts.URL,
		httpClient: ts.Client(),
	}

	resp, err := client.get(ctx, "/reply")
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}

	var result any
	err = decodeJSON(resp, &result)
	if err == nil {
		t.Fatal("expected error for 502 response")
	}
	if !strings.Contains(err.Error(), "502") {
		t.Errorf("error = %q, want it to contain '502'", err.Error())
	}
}

func TestConfigShowAll(t *testing.T) {
	cfg := config.Config{}
	cfg.Server.Port = 7481
	cfg.Ollama.DefaultModel = "llama2-uncensored:7b"

	keys := config.ShowAll(cfg)
	if len(keys) == 0 {
		t.Fatal("expected non-empty keys from ShowAll")
	}

	found := false
	for _, k := range keys {
		if k.Key == "server.port" && k.Value == "7481" {
			found = true
		}
	}
	if !found {
		t.Error("expected to find server.port=7481 in ShowAll output")
	}
}
