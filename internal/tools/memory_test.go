package tools

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nextlevelbuilder/recall/internal/config"
	"github.com/nextlevelbuilder/recall/internal/memory"
	"github.com/nextlevelbuilder/recall/internal/store"
)

func newToolManager(t *testing.T) *memory.Manager {
	t.Helper()
	ws := t.TempDir()

	stores, err := store.Open(filepath.Join(ws, "memory"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	stores.Semantic.Add(&store.Semantic{Fact: "User prefers dark mode", Category: "preferences"})

	mgr, err := memory.NewManager(ws, (&config.Config{}).ResolveSearch())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { mgr.Close() })

	if err := mgr.Sync(context.Background(), "test", false); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	return mgr
}

func TestMemorySearchTool(t *testing.T) {
	tool := NewMemorySearchTool(newToolManager(t))

	res := tool.Execute(context.Background(), map[string]interface{}{"query": "dark mode"})
	if res.IsError {
		t.Fatalf("tool error: %s", res.ForLLM)
	}

	var parsed struct {
		Count   int                   `json:"count"`
		Results []memory.SearchResult `json:"results"`
	}
	if err := json.Unmarshal([]byte(res.ForLLM), &parsed); err != nil {
		t.Fatalf("tool output not JSON: %v\n%s", err, res.ForLLM)
	}
	if parsed.Count != 1 || !strings.Contains(parsed.Results[0].Snippet, "dark mode") {
		t.Errorf("output = %+v", parsed)
	}
}

func TestMemorySearchTool_RequiresQuery(t *testing.T) {
	tool := NewMemorySearchTool(newToolManager(t))
	if res := tool.Execute(context.Background(), map[string]interface{}{}); !res.IsError {
		t.Error("missing query accepted")
	}
}

func TestMemorySearchTool_NoResults(t *testing.T) {
	tool := NewMemorySearchTool(newToolManager(t))
	res := tool.Execute(context.Background(), map[string]interface{}{"query": "zyzzyva"})
	if res.IsError {
		t.Fatalf("tool error: %s", res.ForLLM)
	}
	if !strings.Contains(res.ForLLM, "No memory results") {
		t.Errorf("output = %q", res.ForLLM)
	}
}

func TestMemoryGetTool(t *testing.T) {
	tool := NewMemoryGetTool(newToolManager(t))

	res := tool.Execute(context.Background(), map[string]interface{}{"path": "memory/semantic.json"})
	if res.IsError {
		t.Fatalf("tool error: %s", res.ForLLM)
	}
	if !strings.Contains(res.ForLLM, "dark mode") {
		t.Errorf("output missing file content: %q", res.ForLLM)
	}

	res = tool.Execute(context.Background(), map[string]interface{}{"path": "../etc/passwd"})
	if !res.IsError {
		t.Error("path escape accepted")
	}
}

func TestRegistry(t *testing.T) {
	mgr := newToolManager(t)
	reg := NewRegistry()
	reg.Register(NewMemorySearchTool(mgr))
	reg.Register(NewMemoryGetTool(mgr))

	if len(reg.List()) != 2 {
		t.Fatalf("registered = %v", reg.List())
	}
	if _, ok := reg.Get("memory_search"); !ok {
		t.Error("memory_search not registered")
	}

	res := reg.Execute(context.Background(), "nope", nil)
	if !res.IsError {
		t.Error("unknown tool did not error")
	}

	defs := reg.Definitions()
	if len(defs) != 2 {
		t.Fatalf("definitions = %d", len(defs))
	}
	for _, d := range defs {
		if d.Type != "function" || d.Function.Parameters["type"] != "object" {
			t.Errorf("definition = %+v", d)
		}
	}
}
