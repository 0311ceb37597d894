// Package selection tracks which model the client sends messages to.
package selection

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/xonecas/typecast/internal/api"
	"github.com/xonecas/typecast/internal/constants"
	"github.com/xonecas/typecast/internal/store"
)

// ErrUnknownModel is returned by Select for an id missing from the loaded list.
var ErrUnknownModel = errors.New("unknown model")

// ModelLister fetches the server's model catalog.
type ModelLister interface {
	Models(ctx context.Context) (*api.ModelList, error)
}

// Preferences persists the selected model id.
type Preferences interface {
	GetPreference(key string) (string, error)
	SetPreference(key, value string) error
}

// Selector holds the model list and the current choice.
//
// The choice starts from the saved preference, is validated against the list
// fetched from the server, and falls back to the server default when unknown.
// If the list cannot be fetched the built-in fallback model is used.
type Selector struct {
	lister ModelLister
	prefs  Preferences

	models   []api.Model
	current  string
	fallback string
	err      error
}

// New creates a selector. prefs may be nil, in which case nothing is persisted.
func New(lister ModelLister, prefs Preferences) *Selector {
	return &Selector{
		lister:   lister,
		prefs:    prefs,
		current:  constants.FallbackModel,
		fallback: constants.FallbackModel,
	}
}

// Load reads the saved choice and refreshes the model list. The returned error
// is also kept in Err; the selector stays usable with the fallback model.
func (s *Selector) Load(ctx context.Context) error {
	if s.prefs != nil {
		saved, err := s.prefs.GetPreference(constants.PreferenceSelectedModel)
		switch {
		case err == nil && saved != "":
			s.current = saved
		case err != nil && !errors.Is(err, store.ErrNotFound):
			log.Warn().Err(err).Msg("Failed to read saved model")
		}
	}
	return s.Refresh(ctx)
}

// Refresh fetches the model list and revalidates the current choice.
func (s *Selector) Refresh(ctx context.Context) error {
	list, err := s.lister.Models(ctx)
	if err != nil {
		s.err = fmt.Errorf("load models: %w", err)
		s.current = s.fallback
		log.Warn().Err(err).Str("model", s.current).Msg("Using fallback model")
		return s.err
	}

	s.err = nil
	s.models = list.Models
	if !list.Has(s.current) {
		log.Debug().Str("saved", s.current).Str("model", list.DefaultModel).Msg("Saved model unavailable, using server default")
		s.current = list.DefaultModel
	}
	return nil
}

// Select makes id current and saves it.
func (s *Selector) Select(id string) error {
	if len(s.models) > 0 && !s.has(id) {
		return fmt.Errorf("%w: %s", ErrUnknownModel, id)
	}
	s.current = id
	if s.prefs != nil {
		if err := s.prefs.SetPreference(constants.PreferenceSelectedModel, id); err != nil {
			return fmt.Errorf("save model: %w", err)
		}
	}
	return nil
}

// Cycle selects the model after the current one, wrapping around.
func (s *Selector) Cycle() (api.Model, error) {
	if len(s.models) == 0 {
		return s.Current(), nil
	}
	next := 0
	for i, m := range s.models {
		if m.ID == s.current {
			next = (i + 1) % len(s.models)
			break
		}
	}
	if err := s.Select(s.models[next].ID); err != nil {
		return s.Current(), err
	}
	return s.models[next], nil
}

// CurrentID returns the selected model id.
func (s *Selector) CurrentID() string {
	return s.current
}

// Current returns the selected model. When the list is not loaded only the ID is set.
func (s *Selector) Current() api.Model {
	for _, m := range s.models {
		if m.ID == s.current {
			return m
		}
	}
	return api.Model{ID: s.current, Name: s.current}
}

// Models returns the loaded model list.
func (s *Selector) Models() []api.Model {
	out := make([]api.Model, len(s.models))
	copy(out, s.models)
	return out
}

// Err returns the error of the last failed Load or Refresh.
func (s *Selector) Err() error {
	return s.err
}

func (s *Selector) has(id string) bool {
	for _, m := range s.models {
		if m.ID == id {
			return true
		}
	}
	return false
}
