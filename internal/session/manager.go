package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/BerylCAtieno/ikigai-coach/internal/advice"
	"github.com/BerylCAtieno/ikigai-coach/internal/gateway"
	"github.com/BerylCAtieno/ikigai-coach/internal/generator"
	"github.com/BerylCAtieno/ikigai-coach/internal/kvstore"
	"github.com/BerylCAtieno/ikigai-coach/internal/metrics"
	"github.com/BerylCAtieno/ikigai-coach/internal/models"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// Manager hands out sessions by client id. Evicted sessions lose their
// record but keep colours and saved advice, which live in the store.
type Manager struct {
	store   kvstore.Store
	gen     gateway.Generator
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *zap.Logger

	mu       sync.Mutex
	sessions *lru.Cache[string, *Session]
}

func NewManager(store kvstore.Store, gen gateway.Generator, size int, timeout time.Duration, m *metrics.Metrics, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	cache, err := lru.NewWithEvict[string, *Session](size, func(id string, _ *Session) {
		logger.Debug("session evicted", zap.String("client", id))
	})
	if err != nil {
		return nil, fmt.Errorf("session cache: %w", err)
	}
	return &Manager{
		store:    store,
		gen:      gen,
		timeout:  timeout,
		metrics:  m,
		logger:   logger,
		sessions: cache,
	}, nil
}

// Get returns the session for id, creating it with the seeded record if it
// is new or was evicted.
func (m *Manager) Get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions.Get(id); ok {
		return s
	}

	scoped := kvstore.NewScoped(m.store, id)
	s := &Session{
		ID: id,
		Advice: advice.NewModal(m.gen, scoped,
			advice.WithTimeout(m.timeout),
			advice.WithLogger(m.logger.With(zap.String("client", id))),
		),
		store:   scoped,
		gen:     generator.New(m.gen, m.logger),
		timeout: m.timeout,
		logger:  m.logger,
		record:  models.DefaultRecord(),
	}
	m.sessions.Add(id, s)
	m.metrics.SetActiveSessions(m.sessions.Len())
	m.logger.Debug("session created", zap.String("client", id))
	return s
}

// Len is the number of sessions held in memory.
func (m *Manager) Len() int {
	return m.sessions.Len()
}
