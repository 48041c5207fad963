// Package settings holds editor-wide preferences behind an explicit
// provider with subscribe/notify.
package settings

import (
	"log/slog"
	"sync"

	"bodyshop-gallery/internal/blur/models"
	"bodyshop-gallery/internal/common/logging"
)

const (
	DefaultZoneWidth  = 100.0
	DefaultZoneHeight = 50.0
	DefaultMinDraw    = 10.0
	EditorVersion     = "2.0"
)

// Settings are the values shared by every editor session.
type Settings struct {
	DefaultBlurAmount int     `json:"defaultBlurAmount"`
	DefaultZoneWidth  float64 `json:"defaultZoneWidth"`
	DefaultZoneHeight float64 `json:"defaultZoneHeight"`
	// Drawn rectangles with a side at or below MinDrawSize are discarded.
	MinDrawSize     float64 `json:"minDrawSize"`
	EditorVersion   string  `json:"editorVersion"`
	OverlaysEnabled bool    `json:"overlaysEnabled"`
}

// Default returns the factory settings.
func Default() Settings {
	return Settings{
		DefaultBlurAmount: models.DefaultBlurAmount,
		DefaultZoneWidth:  DefaultZoneWidth,
		DefaultZoneHeight: DefaultZoneHeight,
		MinDrawSize:       DefaultMinDraw,
		EditorVersion:     EditorVersion,
		OverlaysEnabled:   true,
	}
}

// Normalized returns s with out-of-range values clamped or reset.
func (s Settings) Normalized() Settings {
	d := Default()
	s.DefaultBlurAmount = models.ClampBlurAmount(s.DefaultBlurAmount)
	if !(s.DefaultZoneWidth > 0) {
		s.DefaultZoneWidth = d.DefaultZoneWidth
	}
	if !(s.DefaultZoneHeight > 0) {
		s.DefaultZoneHeight = d.DefaultZoneHeight
	}
	if !(s.MinDrawSize >= 0) {
		s.MinDrawSize = d.MinDrawSize
	}
	if s.EditorVersion == "" {
		s.EditorVersion = d.EditorVersion
	}
	return s
}

// Listener receives the new settings after every change.
type Listener func(Settings)

// Provider owns the current Settings. Safe for concurrent use.
type Provider struct {
	mu        sync.RWMutex
	current   Settings
	listeners map[int]Listener
	nextID    int
	logger    *slog.Logger
}

// NewProvider starts from initial (normalized).
func NewProvider(initial Settings, logger *slog.Logger) *Provider {
	return &Provider{
		current:   initial.Normalized(),
		listeners: make(map[int]Listener),
		logger:    logging.OrNop(logger),
	}
}

func (p *Provider) Get() Settings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Update applies fn to a copy of the current settings, stores the normalized
// result and notifies subscribers if anything changed.
func (p *Provider) Update(fn func(*Settings)) Settings {
	p.mu.Lock()
	next := p.current
	fn(&next)
	next = next.Normalized()
	changed := next != p.current
	p.current = next
	listeners := make([]Listener, 0, len(p.listeners))
	if changed {
		for _, l := range p.listeners {
			listeners = append(listeners, l)
		}
	}
	p.mu.Unlock()

	if !changed {
		return next
	}
	p.logger.Info(logging.EventSettingsChanged,
		"defaultBlurAmount", next.DefaultBlurAmount,
		"editorVersion", next.EditorVersion,
		"overlaysEnabled", next.OverlaysEnabled,
		"subscribers", len(listeners))
	for _, l := range listeners {
		l(next)
	}
	return next
}

// Subscribe registers l and returns a function that removes it.
func (p *Provider) Subscribe(l Listener) (cancel func()) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = l
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.listeners, id)
			p.mu.Unlock()
		})
	}
}
