package registry

import (
	"strconv"
	"sync"
	"testing"

	"github.com/modelcontext/hub/internal/domain"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := New()
	info := domain.ModelInfo{ID: "m1", Name: "GPT", Type: "llm", Endpoint: "http://llm.local", Status: domain.ModelStatusActive}

	stored := reg.Register(info)
	if stored.ID != "m1" {
		t.Errorf("Expected stored id m1, got %s", stored.ID)
	}

	got, ok := reg.Get("m1")
	if !ok {
		t.Fatal("Expected model m1 to be present")
	}
	if got.Name != "GPT" {
		t.Errorf("Expected name GPT, got %s", got.Name)
	}
}

func TestRegistry_OverwriteReplacesRecord(t *testing.T) {
	reg := New()
	reg.Register(domain.ModelInfo{ID: "m1", Name: "old", Type: "llm", Endpoint: "http://a"})

	reg.Register(domain.ModelInfo{ID: "m1", Name: "new", Type: "llm", Endpoint: "http://b"})

	got, ok := reg.Get("m1")
	if !ok {
		t.Fatal("Expected model m1 to be present")
	}
	if got.Name != "new" || got.Endpoint != "http://b" {
		t.Errorf("Expected overwritten record, got %+v", got)
	}
	if len(reg.List()) != 1 {
		t.Errorf("Expected one record after overwrite, got %d", len(reg.List()))
	}
}

func TestRegistry_GetAbsent(t *testing.T) {
	reg := New()
	if _, ok := reg.Get("nope"); ok {
		t.Error("Expected absent model to report ok=false")
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	reg := New()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				id := "m" + strconv.Itoa(j%10)
				reg.Register(domain.ModelInfo{ID: id, Name: id, Type: "llm", Endpoint: "http://x"})
				reg.Get(id)
				reg.List()
			}
		}(i)
	}
	wg.Wait()

	if len(reg.List()) != 10 {
		t.Errorf("Expected 10 distinct models, got %d", len(reg.List()))
	}
}
