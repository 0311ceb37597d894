package selection

import (
	"context"
	"errors"
	"testing"

	"github.com/xonecas/typecast/internal/api"
	"github.com/xonecas/typecast/internal/constants"
	"github.com/xonecas/typecast/internal/store"
)

type fakeLister struct {
	list *api.ModelList
	err  error
}

func (f *fakeLister) Models(ctx context.Context) (*api.ModelList, error) {
	return f.list, f.err
}

func catalog() *api.ModelList {
	return &api.ModelList{
		Models: []api.Model{
			{ID: "gemini-2.0-flash", Name: "Gemini 2.0 Flash", Category: "recommended"},
			{ID: "gemini-2.5-flash", Name: "Gemini 2.5 Flash", Category: "recommended"},
			{ID: "gemini-2.5-pro", Name: "Gemini 2.5 Pro", Category: "advanced"},
		},
		DefaultModel: "gemini-2.5-flash",
	}
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoadUsesSavedModel(t *testing.T) {
	prefs := openStore(t)
	prefs.SetPreference(constants.PreferenceSelectedModel, "gemini-2.5-pro")

	sel := New(&fakeLister{list: catalog()}, prefs)
	if err := sel.Load(context.Background()); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if sel.CurrentID() != "gemini-2.5-pro" {
		t.Errorf("expected saved model, got %s", sel.CurrentID())
	}
	if sel.Current().Category != "advanced" {
		t.Errorf("expected full model record, got %+v", sel.Current())
	}
}

func TestLoadFallsBackToServerDefault(t *testing.T) {
	prefs := openStore(t)
	prefs.SetPreference(constants.PreferenceSelectedModel, "retired-model")

	sel := New(&fakeLister{list: catalog()}, prefs)
	if err := sel.Load(context.Background()); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if sel.CurrentID() != "gemini-2.5-flash" {
		t.Errorf("expected server default, got %s", sel.CurrentID())
	}
}

func TestLoadWithoutSavedModel(t *testing.T) {
	sel := New(&fakeLister{list: catalog()}, openStore(t))
	if err := sel.Load(context.Background()); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// The built-in fallback is in the list, so it is kept.
	if sel.CurrentID() != "gemini-2.0-flash" {
		t.Errorf("expected gemini-2.0-flash, got %s", sel.CurrentID())
	}
}

func TestLoadFetchFailureUsesFallback(t *testing.T) {
	prefs := openStore(t)
	prefs.SetPreference(constants.PreferenceSelectedModel, "gemini-2.5-pro")
	boom := errors.New("connection refused")

	sel := New(&fakeLister{err: boom}, prefs)
	err := sel.Load(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected fetch error, got %v", err)
	}

	if sel.CurrentID() != constants.FallbackModel {
		t.Errorf("expected fallback model, got %s", sel.CurrentID())
	}
	if !errors.Is(sel.Err(), boom) {
		t.Errorf("expected Err() to keep the failure, got %v", sel.Err())
	}
	if sel.Current().ID != constants.FallbackModel {
		t.Errorf("expected Current() to report the fallback, got %+v", sel.Current())
	}
}

func TestSelectPersists(t *testing.T) {
	prefs := openStore(t)
	sel := New(&fakeLister{list: catalog()}, prefs)
	sel.Load(context.Background())

	if err := sel.Select("gemini-2.5-pro"); err != nil {
		t.Fatalf("Select() error: %v", err)
	}
	saved, err := prefs.GetPreference(constants.PreferenceSelectedModel)
	if err != nil {
		t.Fatalf("GetPreference() error: %v", err)
	}
	if saved != "gemini-2.5-pro" {
		t.Errorf("expected saved gemini-2.5-pro, got %s", saved)
	}

	if err := sel.Select("nope"); !errors.Is(err, ErrUnknownModel) {
		t.Errorf("expected ErrUnknownModel, got %v", err)
	}
	if sel.CurrentID() != "gemini-2.5-pro" {
		t.Errorf("expected selection unchanged, got %s", sel.CurrentID())
	}
}

func TestCycleWraps(t *testing.T) {
	sel := New(&fakeLister{list: catalog()}, nil)
	sel.Load(context.Background())

	want := []string{"gemini-2.5-flash", "gemini-2.5-pro", "gemini-2.0-flash"}
	for _, id := range want {
		m, err := sel.Cycle()
		if err != nil {
			t.Fatalf("Cycle() error: %v", err)
		}
		if m.ID != id {
			t.Errorf("expected %s, got %s", id, m.ID)
		}
	}
}

func TestModelsIsCopy(t *testing.T) {
	sel := New(&fakeLister{list: catalog()}, nil)
	sel.Load(context.Background())

	models := sel.Models()
	models[0].ID = "mutated"
	if sel.Models()[0].ID != "gemini-2.0-flash" {
		t.Error("expected Models to return a copy")
	}
}
