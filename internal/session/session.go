package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/BerylCAtieno/ikigai-coach/internal/advice"
	"github.com/BerylCAtieno/ikigai-coach/internal/apperr"
	"github.com/BerylCAtieno/ikigai-coach/internal/generator"
	"github.com/BerylCAtieno/ikigai-coach/internal/kvstore"
	"github.com/BerylCAtieno/ikigai-coach/internal/models"
	"github.com/BerylCAtieno/ikigai-coach/internal/palette"
	"go.uber.org/zap"
)

// Session is the form state of one client: the record, the intersection
// generation flag, the palette and the advice modal.
type Session struct {
	ID     string
	Advice *advice.Modal

	store   kvstore.Store
	gen     *generator.IntersectionGenerator
	timeout time.Duration
	logger  *zap.Logger

	mu         sync.Mutex
	record     models.IkigaiRecord
	generating bool
	flash      Flash

	// colorMu serialises palette read-modify-write cycles.
	colorMu sync.Mutex
}

// Flash is a one-shot notice for the next page render. A non-empty Confirm
// is the path to re-post with confirm=true.
type Flash struct {
	Message string
	Confirm string
}

// Record returns a copy of the current record.
func (s *Session) Record() models.IkigaiRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record
}

// Generating reports whether an intersection request is in flight.
func (s *Session) Generating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generating
}

// UpdateFields merges a partial update and returns the new record.
func (s *Session) UpdateFields(p models.RecordPatch) models.IkigaiRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record.Merge(p)
	return s.record
}

// GenerateIntersections asks the generator for the four intersections and
// merges them. The record is left untouched on any failure.
func (s *Session) GenerateIntersections(ctx context.Context) (models.IkigaiRecord, error) {
	s.mu.Lock()
	rec := s.record
	if missing := rec.Missing(models.CoreFields); len(missing) > 0 {
		s.mu.Unlock()
		return rec, apperr.InvalidInput(fmt.Sprintf("Please fill in the four core fields first (missing: %s)", models.JoinFields(missing)))
	}
	if s.generating {
		s.mu.Unlock()
		return rec, apperr.Busy("intersections are already being generated")
	}
	s.generating = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.generating = false
		s.mu.Unlock()
	}()

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := s.gen.Generate(reqCtx, rec)
	if err != nil {
		s.logger.Warn("intersection generation failed", zap.String("client", s.ID), zap.Error(err))
		return s.Record(), err
	}

	return s.UpdateFields(out.Patch()), nil
}

// Colors returns the persisted palette.
func (s *Session) Colors(ctx context.Context) (models.ColorAssignment, error) {
	return palette.Load(ctx, s.store)
}

// SetColor validates and persists one circle colour.
func (s *Session) SetColor(ctx context.Context, field models.Field, color string) (models.ColorAssignment, error) {
	return s.SetColors(ctx, map[models.Field]string{field: color})
}

// SetColors validates every colour and persists them together, or none.
func (s *Session) SetColors(ctx context.Context, colors map[models.Field]string) (models.ColorAssignment, error) {
	s.colorMu.Lock()
	defer s.colorMu.Unlock()
	return palette.SetMany(ctx, s.store, colors)
}

// ResetColors restores the default palette.
func (s *Session) ResetColors(ctx context.Context) (models.ColorAssignment, error) {
	s.colorMu.Lock()
	defer s.colorMu.Unlock()
	if err := palette.Reset(ctx, s.store); err != nil {
		return nil, err
	}
	return models.DefaultColors(), nil
}

// SetFlash stores a one-shot message for the next page render.
func (s *Session) SetFlash(f Flash) {
	s.mu.Lock()
	s.flash = f
	s.mu.Unlock()
}

// TakeFlash returns and clears the pending notice.
func (s *Session) TakeFlash() Flash {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.flash
	s.flash = Flash{}
	return f
}
