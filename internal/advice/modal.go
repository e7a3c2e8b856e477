package advice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/BerylCAtieno/ikigai-coach/internal/apperr"
	"github.com/BerylCAtieno/ikigai-coach/internal/gateway"
	"github.com/BerylCAtieno/ikigai-coach/internal/kvstore"
	"github.com/BerylCAtieno/ikigai-coach/internal/models"
	"go.uber.org/zap"
)

// StorageKey holds the single saved advice text.
const StorageKey = "ikigaiSavedAdvice"

// FallbackText is shown when the provider answers without any text.
const FallbackText = "Sorry, no advice could be generated right now."

// State of the advice modal.
type State string

const (
	StateClosed  State = "closed"
	StateLoading State = "loading"
	StateLoaded  State = "loaded"
	StateFailed  State = "failed"
	StateHistory State = "history"
)

// View is a snapshot of the modal for rendering.
type View struct {
	State    State  `json:"state"`
	Text     string `json:"text,omitempty"`
	Error    string `json:"error,omitempty"`
	Saved    bool   `json:"saved"`
	HasSaved bool   `json:"hasSaved"`
}

// Clipboard receives copied advice text.
type Clipboard interface {
	WriteAll(text string) error
}

// Modal is the advice state machine for one client. Results of a request
// that was superseded by Close or Delete are discarded.
type Modal struct {
	gen       gateway.Generator
	store     kvstore.Store
	clipboard Clipboard
	timeout   time.Duration
	logger    *zap.Logger

	mu    sync.Mutex
	state State
	text  string
	err   string
	saved bool
	epoch uint64
}

type Option func(*Modal)

// WithClipboard sets the clipboard used by Copy.
func WithClipboard(c Clipboard) Option {
	return func(m *Modal) { m.clipboard = c }
}

// WithTimeout bounds each advice request.
func WithTimeout(d time.Duration) Option {
	return func(m *Modal) { m.timeout = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(m *Modal) { m.logger = l }
}

func NewModal(gen gateway.Generator, store kvstore.Store, opts ...Option) *Modal {
	m := &Modal{
		gen:     gen,
		store:   store,
		timeout: 30 * time.Second,
		logger:  zap.NewNop(),
		state:   StateClosed,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// View returns the current snapshot.
func (m *Modal) View(ctx context.Context) View {
	m.mu.Lock()
	v := View{State: m.state, Text: m.text, Error: m.err, Saved: m.saved}
	m.mu.Unlock()

	_, err := m.store.Get(ctx, StorageKey)
	v.HasSaved = err == nil
	return v
}

// Request asks for coaching advice on a complete record. On an incomplete
// record the modal stays where it is and no request is made. Replacing
// unsaved loaded advice needs confirmation.
func (m *Modal) Request(ctx context.Context, rec models.IkigaiRecord, confirmed bool) (View, error) {
	if missing := rec.Missing(models.AllFields); len(missing) > 0 {
		return m.View(ctx), apperr.InvalidInput(fmt.Sprintf("Please fill in all eight fields before asking for advice (missing: %s)", models.JoinFields(missing)))
	}

	m.mu.Lock()
	if m.state == StateLoading {
		m.mu.Unlock()
		return m.View(ctx), apperr.Busy("advice is already being generated")
	}
	if m.holdsUnsaved() && !confirmed {
		m.mu.Unlock()
		return m.View(ctx), apperr.ConfirmationRequired("This advice has not been saved. Replace it with new advice?")
	}
	m.epoch++
	epoch := m.epoch
	m.state, m.text, m.err, m.saved = StateLoading, "", "", false
	m.mu.Unlock()

	reqCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	resp, genErr := m.gen.Generate(reqCtx, gateway.GenerationRequest{Prompt: BuildPrompt(rec)})

	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		m.logger.Info("discarding advice result for a closed modal")
		return m.View(ctx), nil
	}
	if genErr != nil {
		m.state = StateFailed
		m.err = fmt.Sprintf("Could not reach the AI coach: %s", apperr.MessageOf(genErr))
		m.mu.Unlock()
		m.logger.Warn("advice request failed", zap.Error(genErr))
		return m.View(ctx), fmt.Errorf("request advice: %w", genErr)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		text = FallbackText
	}
	m.state, m.text = StateLoaded, text
	m.mu.Unlock()

	return m.View(ctx), nil
}

// Close dismisses the modal. Unsaved loaded advice needs confirmation.
func (m *Modal) Close(confirmed bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.holdsUnsaved() && !confirmed {
		return apperr.ConfirmationRequired("This advice has not been saved. Close anyway?")
	}
	m.reset()
	return nil
}

// Save persists the loaded advice as the only saved entry. Replacing an
// existing entry needs confirmation.
func (m *Modal) Save(ctx context.Context, confirmed bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateLoaded {
		return apperr.InvalidInput("there is no advice to save")
	}

	_, err := m.store.Get(ctx, StorageKey)
	switch {
	case err == nil && !confirmed:
		return apperr.ConfirmationRequired("You already have saved advice. Replace it?")
	case err != nil && !errors.Is(err, kvstore.ErrNotFound):
		return fmt.Errorf("check saved advice: %w", err)
	}

	if err := m.store.Set(ctx, StorageKey, m.text); err != nil {
		return fmt.Errorf("save advice: %w", err)
	}
	m.saved = true
	return nil
}

// Delete removes the saved advice and closes the modal.
func (m *Modal) Delete(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return apperr.ConfirmationRequired("Delete your saved advice?")
	}
	if err := m.store.Delete(ctx, StorageKey); err != nil {
		return fmt.Errorf("delete advice: %w", err)
	}

	m.mu.Lock()
	m.reset()
	m.mu.Unlock()
	return nil
}

// ShowHistory opens the modal on the saved advice without a request.
// Leaving unsaved loaded advice needs confirmation.
func (m *Modal) ShowHistory(ctx context.Context, confirmed bool) (View, error) {
	m.mu.Lock()
	unsaved := m.holdsUnsaved()
	m.mu.Unlock()
	if unsaved && !confirmed {
		return m.View(ctx), apperr.ConfirmationRequired("This advice has not been saved. Show your saved advice anyway?")
	}

	text, err := m.store.Get(ctx, StorageKey)
	if errors.Is(err, kvstore.ErrNotFound) {
		return m.View(ctx), apperr.NotFound("No saved advice yet.")
	}
	if err != nil {
		return m.View(ctx), fmt.Errorf("load saved advice: %w", err)
	}

	m.mu.Lock()
	if m.state == StateLoading {
		// The pending result must not overwrite the history view.
		m.epoch++
	}
	m.state, m.text, m.err, m.saved = StateHistory, text, "", true
	m.mu.Unlock()

	return m.View(ctx), nil
}

// Copy returns the displayed text and hands it to the clipboard, if any.
func (m *Modal) Copy() (string, error) {
	m.mu.Lock()
	state, text := m.state, m.text
	m.mu.Unlock()

	if (state != StateLoaded && state != StateHistory) || text == "" {
		return "", apperr.InvalidInput("there is no advice to copy")
	}
	if m.clipboard != nil {
		if err := m.clipboard.WriteAll(text); err != nil {
			return "", fmt.Errorf("copy advice: %w", err)
		}
	}
	return text, nil
}

// holdsUnsaved must be called with m.mu held.
func (m *Modal) holdsUnsaved() bool {
	return m.state == StateLoaded && !m.saved
}

// reset must be called with m.mu held.
func (m *Modal) reset() {
	m.epoch++
	m.state, m.text, m.err, m.saved = StateClosed, "", "", false
}
