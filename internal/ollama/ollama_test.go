// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with Ollama API.
package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kosiew/my-chat-gpt/internal/model"
	"github.com/kosiew/my-chat-gpt/internal/stream"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func ndjsonServer(t *testing.T, lines []string, check func(ChatRequest)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if check != nil {
			check(req)
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		for _, line := range lines {
			io.WriteString(w, line+"\n")
			w.(http.Flusher).Flush()
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func collect(t *testing.T, ch <-chan stream.Chunk) []stream.Chunk {
	t.Helper()
	var out []stream.Chunk
	timeout := time.After(5 * time.Second)
	for {
		select {
		case c, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, c)
		case <-timeout:
			t.Fatal("stream did not close")
		}
	}
}

func newTestClient(url string) *Client {
	return NewClientWithConfig(&ClientConfig{BaseURL: url, DefaultModel: "test-model"})
}

// =============================================================================
// STREAM SOURCE TESTS
// =============================================================================

func TestClient_StreamFragments(t *testing.T) {
	srv := ndjsonServer(t, []string{
		`{"model":"test-model","message":{"role":"assistant","content":"Hel"},"done":false}`,
		``,
		`{"model":"test-model","message":{"role":"assistant","content":"lo"},"done":false}`,
		`{"model":"test-model","message":{"role":"assistant","content":""},"done":true,"eval_count":2,"eval_duration":1000000000}`,
	}, func(req ChatRequest) {
		if !req.Stream {
			t.Error("request should ask for streaming")
		}
		if req.Model != "test-model" {
			t.Errorf("Model = %q, want default test-model", req.Model)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("unexpected messages %+v", req.Messages)
		}
		if req.Options == nil || req.Options.NumPredict != 64 {
			t.Errorf("Options = %+v, want num_predict 64", req.Options)
		}
	})

	c := newTestClient(srv.URL)
	chunks := collect(t, c.Stream(context.Background(), stream.Request{
		ChatID:    "20240301120000",
		Messages:  []model.Message{model.NewPreamble("be brief"), model.NewUserMessage("hi")},
		MaxTokens: 64,
	}))

	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3: %+v", len(chunks), chunks)
	}
	if chunks[0].Content != "Hel" || chunks[1].Content != "lo" {
		t.Errorf("fragments = %q, %q", chunks[0].Content, chunks[1].Content)
	}
	if !chunks[2].Done {
		t.Error("last chunk should be done")
	}
}

func TestClient_StreamModelNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	chunks := collect(t, newTestClient(srv.URL).Stream(context.Background(), stream.Request{}))
	if len(chunks) != 1 || !IsModelNotFound(chunks[0].Err) {
		t.Fatalf("chunks = %+v, want one model-not-found error", chunks)
	}
}

func TestClient_StreamServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error":"out of memory"}`)
	}))
	defer srv.Close()

	chunks := collect(t, newTestClient(srv.URL).Stream(context.Background(), stream.Request{}))
	if len(chunks) != 1 || chunks[0].Err == nil {
		t.Fatalf("chunks = %+v, want one error", chunks)
	}
	if !strings.Contains(chunks[0].Err.Error(), "out of memory") {
		t.Errorf("error = %v, want server message", chunks[0].Err)
	}
}

func TestClient_StreamErrorLine(t *testing.T) {
	srv := ndjsonServer(t, []string{
		`{"message":{"content":"par"},"done":false}`,
		`{"error":"model crashed"}`,
	}, nil)

	chunks := collect(t, newTestClient(srv.URL).Stream(context.Background(), stream.Request{}))
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if chunks[1].Err == nil || !strings.Contains(chunks[1].Err.Error(), "model crashed") {
		t.Errorf("second chunk = %+v, want model crashed error", chunks[1])
	}
}

func TestClient_StreamTruncated(t *testing.T) {
	srv := ndjsonServer(t, []string{`{"message":{"content":"par"},"done":false}`}, nil)

	chunks := collect(t, newTestClient(srv.URL).Stream(context.Background(), stream.Request{}))
	if len(chunks) != 2 || !errors.Is(chunks[1].Err, io.ErrUnexpectedEOF) {
		t.Fatalf("chunks = %+v, want fragment then unexpected EOF", chunks)
	}
}

func TestClient_StreamNotRunning(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	chunks := collect(t, newTestClient(url).Stream(context.Background(), stream.Request{}))
	if len(chunks) != 1 || !IsNotRunning(chunks[0].Err) {
		t.Fatalf("chunks = %+v, want not-running error", chunks)
	}
}

func TestClient_StreamCancel(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"message":{"content":"first"},"done":false}`+"\n")
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	ch := newTestClient(srv.URL).Stream(ctx, stream.Request{})

	first := <-ch
	if first.Content != "first" {
		t.Fatalf("first chunk = %+v", first)
	}
	cancel()

	for c := range ch {
		t.Errorf("unexpected chunk after cancel: %+v", c)
	}
}

// =============================================================================
// OTHER ENDPOINTS
// =============================================================================

func TestClient_ListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			io.WriteString(w, "Ollama is running")
		case "/api/tags":
			io.WriteString(w, `{"models":[{"name":"llama3.2","size":2000000000}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	if err := c.CheckRunning(context.Background()); err != nil {
		t.Fatalf("CheckRunning: %v", err)
	}
	models, err := c.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 1 || models[0].Name != "llama3.2" {
		t.Errorf("models = %+v", models)
	}
}

func TestStreamChunk_TokensPerSecond(t *testing.T) {
	tests := []struct {
		name  string
		chunk StreamChunk
		want  float64
	}{
		{"normal", StreamChunk{CompletionTokens: 100, EvalDuration: time.Second}, 100},
		{"zero duration", StreamChunk{CompletionTokens: 100}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.chunk.TokensPerSecond(); got != tc.want {
				t.Errorf("TokensPerSecond() = %f, want %f", got, tc.want)
			}
		})
	}
}

func TestFromHistory(t *testing.T) {
	msgs := FromHistory([]model.Message{
		model.NewPreamble("sys"),
		model.NewUserMessage("hi"),
		model.NewMessage(model.RoleAssistant, "hello"),
	})
	want := []string{"system", "user", "assistant"}
	for i, m := range msgs {
		if m.Role != want[i] {
			t.Errorf("msgs[%d].Role = %q, want %q", i, m.Role, want[i])
		}
	}
}
