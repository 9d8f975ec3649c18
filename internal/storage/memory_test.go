package storage

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/prasenjit/go-pact/internal/models"
	"github.com/prasenjit/go-pact/internal/pactspec"
)

func newPact(consumer, provider string, descriptions ...string) *models.Pact {
	p := &models.Pact{Consumer: consumer, Provider: provider, Version: pactspec.V3}
	for _, d := range descriptions {
		resp := models.NewResponse(200)
		p.Interactions = append(p.Interactions, &models.Interaction{
			Description: d,
			Request:     models.NewRequest("GET", "/"+d),
			Response:    resp,
		})
	}
	return p
}

func TestNewMemoryStorage(t *testing.T) {
	s := NewMemoryStorage()
	if s == nil {
		t.Fatal("NewMemoryStorage returned nil")
	}
	if s.pacts == nil {
		t.Fatal("Storage map not initialized")
	}
}

func TestSaveAndGetPact(t *testing.T) {
	s := NewMemoryStorage()

	if err := s.SavePact(newPact("web", "users", "a", "b")); err != nil {
		t.Fatalf("SavePact failed: %v", err)
	}

	p, err := s.GetPact("web-users")
	if err != nil {
		t.Fatalf("GetPact failed: %v", err)
	}
	if len(p.Interactions) != 2 {
		t.Errorf("Expected 2 interactions, got %d", len(p.Interactions))
	}

	_, err = s.GetPact("nonexistent")
	if !errors.Is(err, ErrPactNotFound) {
		t.Errorf("Expected ErrPactNotFound, got %v", err)
	}
}

func TestSavePactMerges(t *testing.T) {
	s := NewMemoryStorage()
	_ = s.SavePact(newPact("web", "users", "a", "b"))

	update := newPact("web", "users", "b", "c")
	update.Interactions[0].Response.Status = 404
	if err := s.SavePact(update); err != nil {
		t.Fatalf("SavePact failed: %v", err)
	}

	p, _ := s.GetPact("web-users")
	if len(p.Interactions) != 3 {
		t.Fatalf("Expected 3 interactions after merge, got %d", len(p.Interactions))
	}
	if p.Interactions[1].Description != "b" || p.Interactions[1].Response.Status != 404 {
		t.Errorf("Expected interaction b to be replaced, got %+v", p.Interactions[1])
	}
	if p.Interactions[2].Description != "c" {
		t.Errorf("Expected interaction c appended, got %q", p.Interactions[2].Description)
	}
}

func TestSavePactRequiresNames(t *testing.T) {
	s := NewMemoryStorage()
	if err := s.SavePact(&models.Pact{Consumer: "web"}); err == nil {
		t.Error("Expected error for pact without provider")
	}
}

func TestGetPactReturnsCopy(t *testing.T) {
	s := NewMemoryStorage()
	_ = s.SavePact(newPact("web", "users", "a"))

	p, _ := s.GetPact("web-users")
	p.Interactions = nil

	again, _ := s.GetPact("web-users")
	if len(again.Interactions) != 1 {
		t.Error("Mutating a returned pact changed the stored one")
	}
}

func TestGetAllPacts(t *testing.T) {
	s := NewMemoryStorage()

	pacts, err := s.GetAllPacts()
	if err != nil {
		t.Fatalf("GetAllPacts failed: %v", err)
	}
	if len(pacts) != 0 {
		t.Errorf("Expected 0 pacts, got %d", len(pacts))
	}

	_ = s.SavePact(newPact("web", "users"))
	_ = s.SavePact(newPact("app", "orders"))

	pacts, _ = s.GetAllPacts()
	if len(pacts) != 2 {
		t.Fatalf("Expected 2 pacts, got %d", len(pacts))
	}
	if pacts[0].ID() != "app-orders" {
		t.Errorf("Expected pacts sorted by ID, got %q first", pacts[0].ID())
	}
}

func TestDeletePact(t *testing.T) {
	s := NewMemoryStorage()
	_ = s.SavePact(newPact("web", "users"))

	if err := s.DeletePact("web-users"); err != nil {
		t.Fatalf("DeletePact failed: %v", err)
	}
	if err := s.DeletePact("web-users"); !errors.Is(err, ErrPactNotFound) {
		t.Errorf("Expected ErrPactNotFound, got %v", err)
	}
}

func TestConcurrentSaves(t *testing.T) {
	s := NewMemoryStorage()
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.SavePact(newPact("web", "users", fmt.Sprintf("i%d", i)))
		}(i)
	}
	wg.Wait()

	p, _ := s.GetPact("web-users")
	if len(p.Interactions) != 20 {
		t.Errorf("Expected 20 interactions, got %d", len(p.Interactions))
	}
}
