package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nextlevelbuilder/recall/internal/config"
)

func TestResolve(t *testing.T) {
	if p, err := Resolve(config.ResolvedSearchConfig{}); p != nil || err != nil {
		t.Errorf("empty provider: p=%v err=%v, want nil/nil", p, err)
	}
	if p, err := Resolve(config.ResolvedSearchConfig{Provider: "none"}); p != nil || err != nil {
		t.Errorf("provider none: p=%v err=%v, want nil/nil", p, err)
	}

	p, err := Resolve(config.ResolvedSearchConfig{Provider: "openai", Model: "text-embedding-3-large"})
	if err != nil {
		t.Fatalf("openai: %v", err)
	}
	if p.Name() != "openai" || p.Model() != "text-embedding-3-large" {
		t.Errorf("openai provider = %s/%s", p.Name(), p.Model())
	}

	p, err = Resolve(config.ResolvedSearchConfig{Provider: "ollama"})
	if err != nil {
		t.Fatalf("ollama: %v", err)
	}
	if p.Name() != "ollama" || p.Model() != "nomic-embed-text" {
		t.Errorf("ollama defaults = %s/%s", p.Name(), p.Model())
	}

	if _, err := Resolve(config.ResolvedSearchConfig{Provider: "carrier-pigeon"}); err == nil {
		t.Error("unknown provider accepted")
	}
}

func TestOpenAIEmbedder_Batch(t *testing.T) {
	var gotAuth string
	var gotReq openaiEmbeddingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotReq)
		// Deliberately out of order: index is authoritative.
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"index": 1, "embedding": []float32{0, 1}},
				{"index": 0, "embedding": []float32{1, 0}},
			},
		})
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder("sk-test", srv.URL, "test-model")
	vecs, err := e.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotReq.Model != "test-model" || len(gotReq.Input) != 2 {
		t.Errorf("request = %+v", gotReq)
	}
	if len(vecs) != 2 || vecs[0][0] != 1 || vecs[1][1] != 1 {
		t.Errorf("vectors not reordered by index: %v", vecs)
	}
}

func TestOpenAIEmbedder_CountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"index": 0, "embedding": []float32{1}}},
		})
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder("", srv.URL, "m")
	if _, err := e.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected count mismatch error")
	}
}

func TestOpenAIEmbedder_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder("", srv.URL, "m")
	if _, err := e.Embed(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected error on 429")
	}
}

func TestOpenAIEmbedder_EmptyInput(t *testing.T) {
	e := NewOpenAIEmbedder("", "http://unused.invalid", "m")
	vecs, err := e.Embed(context.Background(), nil)
	if err != nil || vecs != nil {
		t.Errorf("empty input: vecs=%v err=%v", vecs, err)
	}
}

func TestOllamaEmbedder_FanOut(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("path = %s", r.URL.Path)
		}
		calls++
		json.NewEncoder(w).Encode(map[string]any{"embedding": []float32{float32(calls), 0}})
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(srv.URL, "test-model")
	vecs, err := e.Embed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want one per text", calls)
	}
	if len(vecs) != 3 || vecs[2][0] != 3 {
		t.Errorf("vectors = %v", vecs)
	}
}
