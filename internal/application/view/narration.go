package view

import (
	"context"
	"fmt"
	"strings"

	"github.com/wayfarer/v2/internal/ports/inbound"
	"github.com/wayfarer/v2/pkg/errors"
)

// NarrationIndex reports the narrated-stop cursor over the visible set.
func (s *Service) NarrationIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.narrationIdx
}

// NarrateNext advances the cursor and speaks the stop it lands on.
func (s *Service) NarrateNext(ctx context.Context) error {
	s.mu.Lock()
	idx := s.narrationIdx + 1
	s.mu.Unlock()
	return s.narrate(ctx, idx)
}

// NarratePrevious moves the cursor back and speaks the stop it lands on.
func (s *Service) NarratePrevious(ctx context.Context) error {
	s.mu.Lock()
	idx := s.narrationIdx - 1
	s.mu.Unlock()
	return s.narrate(ctx, idx)
}

// NarrateSeek jumps the cursor to an absolute position in the visible set.
func (s *Service) NarrateSeek(ctx context.Context, index int) error {
	return s.narrate(ctx, index)
}

func (s *Service) narrate(ctx context.Context, index int) error {
	view, err := s.Render(ctx)
	if err != nil {
		return err
	}
	if len(view.Entries) == 0 {
		return errors.NewNotFoundError("narratable activity")
	}
	if index < 0 {
		index = 0
	}
	if index >= len(view.Entries) {
		index = len(view.Entries) - 1
	}

	s.mu.Lock()
	s.narrationIdx = index
	s.mu.Unlock()

	if s.narrator == nil {
		return nil
	}
	return s.narrator.Speak(ctx, narrationText(view.Entries[index]))
}

// narrationText flattens one stop into a spoken sentence.
func narrationText(entry inbound.ListEntry) string {
	a := entry.Activity
	parts := []string{fmt.Sprintf("%s. %s", a.Time, a.PlaceName)}
	if a.Description != "" {
		parts = append(parts, a.Description)
	}
	if entry.Comment != "" {
		parts = append(parts, "Your note: "+entry.Comment)
	}
	return strings.Join(parts, ". ")
}
