// Package editor implements the interactive blur-zone editor: a pointer
// driven state machine over a working copy of one image's zones.
//
// Working zones are kept in editing-surface pixels when the surface size is
// known, otherwise in the image's natural pixels. Save always persists
// natural pixels.
package editor

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"bodyshop-gallery/internal/blur/geometry"
	"bodyshop-gallery/internal/blur/models"
	"bodyshop-gallery/internal/blur/paths"
	"bodyshop-gallery/internal/blur/settings"
	"bodyshop-gallery/internal/common/logging"
)

// ZoneStore is the persistence collaborator.
type ZoneStore interface {
	LoadZones(ctx context.Context, key string) ([]models.Zone, error)
	SaveZones(ctx context.Context, key string, zones []models.Zone) error
}

// Options wires a Controller to its collaborators. Only Normalizer is
// required.
type Options struct {
	Normalizer *paths.Normalizer
	Store      ZoneStore
	Settings   *settings.Provider
	Logger     *slog.Logger
	Now        func() time.Time
	NewID      func() string
}

// Controller is not safe for concurrent use; callers serialize access.
type Controller struct {
	normalizer *paths.Normalizer
	store      ZoneStore
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string

	prefs       atomic.Pointer[settings.Settings]
	unsubscribe func()

	key      string
	original string
	zones    []models.Zone
	selected string

	surface models.Size
	natural models.Size

	// gesture
	state       State
	active      string
	handle      geometry.Handle
	anchor      models.Point
	draft       models.Zone
	grabOffset  models.Point
	angleOffset float64
	before      []models.Zone
}

// New builds an idle Controller with no image loaded.
func New(opts Options) *Controller {
	c := &Controller{
		normalizer: opts.Normalizer,
		store:      opts.Store,
		logger:     logging.OrNop(opts.Logger),
		now:        opts.Now,
		newID:      opts.NewID,
	}
	if c.normalizer == nil {
		c.normalizer = paths.New(paths.Options{Logger: opts.Logger})
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.newID == nil {
		c.newID = uuid.NewString
	}

	initial := settings.Default()
	if opts.Settings != nil {
		initial = opts.Settings.Get()
		c.unsubscribe = opts.Settings.Subscribe(func(s settings.Settings) {
			c.prefs.Store(&s)
		})
	}
	c.prefs.Store(&initial)
	return c
}

// Close detaches the controller from the settings provider.
func (c *Controller) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

func (c *Controller) settings() settings.Settings {
	return *c.prefs.Load()
}

// ============================================================
// Loading & sizes
// ============================================================

// Load normalizes raw and replaces the working set with the stored zones for
// that key. Stored zones are rescaled from their saved image size into the
// current working space; invalid entries are dropped.
func (c *Controller) Load(ctx context.Context, raw string) error {
	return c.LoadFor(ctx, raw, "")
}

// LoadFor is Load with item as the page context identifier used when raw
// names a bare file.
func (c *Controller) LoadFor(ctx context.Context, raw, item string) error {
	key, err := c.normalizer.NormalizeFor(raw, item)
	if err != nil {
		return err
	}

	var stored []models.Zone
	if c.store != nil {
		stored, err = c.store.LoadZones(ctx, key)
		if err != nil {
			return fmt.Errorf("load zones for %s: %w", key, err)
		}
	}

	c.reset()
	c.key, c.original = key, raw
	c.selected = ""
	c.zones = make([]models.Zone, 0, len(stored))

	target := c.workSpace()
	dropped := 0
	for _, z := range stored {
		z = c.intoWorkSpace(z, target)
		if z.ID == "" {
			z.ID = c.newID()
		}
		if !z.Valid() {
			dropped++
			continue
		}
		c.zones = append(c.zones, z)
	}
	if dropped > 0 {
		c.logger.Warn(logging.EventZonesDropped, "key", key, "dropped", dropped)
	}
	c.logger.Info(logging.EventZonesLoaded, "key", key, "zones", len(c.zones))
	return nil
}

// intoWorkSpace converts a stored zone into working coordinates.
func (c *Controller) intoWorkSpace(z models.Zone, target models.Size) models.Zone {
	basis := models.Size{Width: z.Metadata.ImageWidth, Height: z.Metadata.ImageHeight}
	if !basis.Known() {
		basis = c.natural
	}

	if z.Metadata.CoordinateSpace == models.CoordinatePercentCenter {
		space := target
		if !space.Known() {
			space = basis
		}
		if !space.Known() {
			return z
		}
		w := z.Width * space.Width / 100
		h := z.Height * space.Height / 100
		z.X = z.X*space.Width/100 - w/2
		z.Y = z.Y*space.Height/100 - h/2
		z.Width, z.Height = w, h
		z.Metadata.CoordinateSpace = models.CoordinatePixels
		z.Metadata.ImageWidth, z.Metadata.ImageHeight = space.Width, space.Height
		return z
	}

	if basis.Known() && target.Known() {
		z = z.Scaled(target.Width/basis.Width, target.Height/basis.Height)
	}
	if target.Known() {
		z.Metadata.ImageWidth, z.Metadata.ImageHeight = target.Width, target.Height
	}
	return z
}

// workSpace is the size working coordinates are relative to.
func (c *Controller) workSpace() models.Size {
	if c.surface.Known() {
		return c.surface
	}
	return c.natural
}

// SetSurfaceSize records the rendered size of the editing surface and
// rescales working zones into it. Any gesture in progress is cancelled.
func (c *Controller) SetSurfaceSize(width, height float64) {
	c.Cancel()
	old := c.workSpace()
	c.surface = models.Size{Width: width, Height: height}
	c.rescale(old, c.workSpace())
}

// SetNaturalSize records the image's intrinsic size.
func (c *Controller) SetNaturalSize(width, height float64) {
	c.Cancel()
	old := c.workSpace()
	c.natural = models.Size{Width: width, Height: height}
	c.rescale(old, c.workSpace())
}

// rescale moves working zones into to. A zone's own image size, when
// recorded, takes precedence over from.
func (c *Controller) rescale(from, to models.Size) {
	if !to.Known() {
		return
	}
	for i := range c.zones {
		z := &c.zones[i]
		basis := models.Size{Width: z.Metadata.ImageWidth, Height: z.Metadata.ImageHeight}
		if !basis.Known() {
			basis = from
		}
		if basis.Known() && basis != to {
			*z = z.Scaled(to.Width/basis.Width, to.Height/basis.Height)
		}
		z.Metadata.ImageWidth, z.Metadata.ImageHeight = to.Width, to.Height
	}
}

// ============================================================
// Pointer gestures
// ============================================================

// PointerDown starts a gesture at (x,y): a handle of any zone wins over the
// body of any zone, which wins over drawing. Zones are inspected most
// recently added first.
func (c *Controller) PointerDown(x, y float64) State {
	if c.state != StateIdle {
		c.Cancel()
	}
	c.before = models.CloneZones(c.zones)

	for i := len(c.zones) - 1; i >= 0; i-- {
		z := c.zones[i]
		h := geometry.HitTestHandle(x, y, z)
		if h == geometry.HandleNone {
			continue
		}
		c.active, c.handle, c.selected = z.ID, h, z.ID
		if h == geometry.HandleRotation {
			center := z.Center()
			c.angleOffset = geometry.AngleDegrees(center.X, center.Y, x, y) - z.Rotation
			c.state = StateRotating
		} else {
			c.state = StateResizing
		}
		c.logBegin(x, y)
		return c.state
	}

	for i := len(c.zones) - 1; i >= 0; i-- {
		z := c.zones[i]
		if !geometry.PointInRotatedRect(x, y, z) {
			continue
		}
		c.active, c.selected = z.ID, z.ID
		c.grabOffset = models.Point{X: x - z.X, Y: y - z.Y}
		c.state = StateDragging
		c.logBegin(x, y)
		return c.state
	}

	c.selected = ""
	c.anchor = models.Point{X: x, Y: y}
	c.draft = models.Zone{X: x, Y: y}
	c.state = StateDrawing
	c.logBegin(x, y)
	return c.state
}

// PointerMove updates the active gesture. It reports whether anything
// changed.
func (c *Controller) PointerMove(x, y float64) bool {
	switch c.state {
	case StateDrawing:
		c.draft.Width = x - c.anchor.X
		c.draft.Height = y - c.anchor.Y
		return true
	case StateIdle:
		return false
	}

	i := c.indexOf(c.active)
	if i < 0 {
		c.reset()
		return false
	}
	z := &c.zones[i]

	switch c.state {
	case StateDragging:
		z.X, z.Y = geometry.ClampToBounds(x-c.grabOffset.X, y-c.grabOffset.Y, z.Width, z.Height, c.workSpace())
	case StateResizing:
		center := z.Center()
		w, h := geometry.ResizeFromPointer(*z, x, y)
		z.X, z.Y = center.X-w/2, center.Y-h/2
		z.Width, z.Height = w, h
	case StateRotating:
		center := z.Center()
		z.Rotation = geometry.ComputeRotation(center.X, center.Y, x, y, c.angleOffset)
	}
	return true
}

// PointerUp applies a final move and ends the gesture. A drawn rectangle is
// committed when both sides exceed the minimum draw size. The committed or
// manipulated zone is returned, if any.
func (c *Controller) PointerUp(x, y float64) (models.Zone, bool) {
	if c.state == StateIdle {
		return models.Zone{}, false
	}
	c.PointerMove(x, y)
	state := c.state

	if state == StateDrawing {
		rx, ry, rw, rh := geometry.NormalizeRect(c.draft.X, c.draft.Y, c.draft.Width, c.draft.Height)
		c.reset()
		minSize := c.settings().MinDrawSize
		if rw <= minSize || rh <= minSize {
			c.logger.Debug(logging.EventZoneDiscarded, "key", c.key, "width", rw, "height", rh)
			return models.Zone{}, false
		}
		z := c.newZone(rx, ry, rw, rh)
		c.zones = append(c.zones, z)
		c.selected = z.ID
		c.logger.Info(logging.EventGestureCommit, "key", c.key, "state", state.String(), "zoneId", z.ID)
		return z, true
	}

	id := c.active
	c.reset()
	c.logger.Info(logging.EventGestureCommit, "key", c.key, "state", state.String(), "zoneId", id)
	if i := c.indexOf(id); i >= 0 {
		return c.zones[i], true
	}
	return models.Zone{}, false
}

// PointerLeave cancels the gesture in progress.
func (c *Controller) PointerLeave() {
	c.Cancel()
}

// Cancel restores the zones as they were when the gesture began. It reports
// whether a gesture was active.
func (c *Controller) Cancel() bool {
	if c.state == StateIdle {
		return false
	}
	state := c.state
	if c.before != nil {
		c.zones = c.before
	}
	c.reset()
	c.logger.Info(logging.EventGestureCancel, "key", c.key, "state", state.String())
	return true
}

func (c *Controller) reset() {
	c.state = StateIdle
	c.active = ""
	c.handle = geometry.HandleNone
	c.draft = models.Zone{}
	c.before = nil
}

func (c *Controller) logBegin(x, y float64) {
	c.logger.Debug(logging.EventGestureBegin,
		"key", c.key, "state", c.state.String(), "zoneId", c.active,
		"handle", c.handle.String(), "x", x, "y", y)
}

// ============================================================
// Explicit operations
// ============================================================

// AddCenteredZone appends a default-sized zone centered on the working
// space and selects it.
func (c *Controller) AddCenteredZone() models.Zone {
	c.Cancel()
	prefs := c.settings()
	w, h := prefs.DefaultZoneWidth, prefs.DefaultZoneHeight
	space := c.workSpace()
	z := c.newZone(space.Width/2-w/2, space.Height/2-h/2, w, h)
	if !space.Known() {
		z.X, z.Y = 0, 0
	}
	c.zones = append(c.zones, z)
	c.selected = z.ID
	return z
}

func (c *Controller) newZone(x, y, w, h float64) models.Zone {
	prefs := c.settings()
	space := c.workSpace()
	return models.Zone{
		ID:         c.newID(),
		X:          x,
		Y:          y,
		Width:      w,
		Height:     h,
		BlurAmount: models.ClampBlurAmount(prefs.DefaultBlurAmount),
		Metadata: models.Metadata{
			TimestampCreated: c.now().UTC(),
			EditorVersion:    prefs.EditorVersion,
			CoordinateSpace:  models.CoordinatePixels,
			ImageWidth:       space.Width,
			ImageHeight:      space.Height,
		},
	}
}

// RemoveZone deletes the zone with the given id and clears the selection.
func (c *Controller) RemoveZone(id string) bool {
	return c.RemoveZoneAt(c.indexOf(id))
}

// RemoveZoneAt deletes by position and clears the selection.
func (c *Controller) RemoveZoneAt(index int) bool {
	if index < 0 || index >= len(c.zones) {
		return false
	}
	c.Cancel()
	c.zones = append(c.zones[:index:index], c.zones[index+1:]...)
	c.selected = ""
	return true
}

// SetBlurAmount clamps v into the valid blur range. A gesture in progress is
// cancelled first so a later pointer leave cannot revert the change.
func (c *Controller) SetBlurAmount(id string, v int) bool {
	c.Cancel()
	i := c.indexOf(id)
	if i < 0 {
		return false
	}
	c.zones[i].BlurAmount = models.ClampBlurAmount(v)
	return true
}

// SetRotation stores deg normalized to [0, 360).
func (c *Controller) SetRotation(id string, deg float64) bool {
	c.Cancel()
	i := c.indexOf(id)
	if i < 0 {
		return false
	}
	c.zones[i].Rotation = models.NormalizeRotation(deg)
	return true
}

// Select marks id as selected; an empty id clears the selection.
func (c *Controller) Select(id string) bool {
	if id == "" {
		c.selected = ""
		return true
	}
	if c.indexOf(id) < 0 {
		return false
	}
	c.selected = id
	return true
}

func (c *Controller) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i := range c.zones {
		if c.zones[i].ID == id {
			return i
		}
	}
	return -1
}

// ============================================================
// Save
// ============================================================

// Save stamps every zone's metadata and persists the set in natural image
// pixels under the canonical key. When the natural size is unknown the
// surface size stands in for it. Working zones keep the working space as
// their recorded image size.
func (c *Controller) Save(ctx context.Context) ([]models.Zone, error) {
	if c.key == "" {
		return nil, fmt.Errorf("save: no image loaded")
	}
	c.Cancel()

	natural := c.natural
	if !natural.Known() {
		natural = c.surface
		c.logger.Warn(logging.EventSizeFallback,
			"key", c.key, "width", natural.Width, "height", natural.Height)
	}
	space := c.workSpace()
	sx, sy := 1.0, 1.0
	if space.Known() && natural.Known() {
		sx, sy = natural.Width/space.Width, natural.Height/space.Height
	}

	now := c.now().UTC()
	version := c.settings().EditorVersion
	out := make([]models.Zone, len(c.zones))
	for i, z := range c.zones {
		md := z.Metadata
		if md.TimestampCreated.IsZero() {
			md.TimestampCreated = now
		}
		md.TimestampUpdated = now
		md.ImageWidth, md.ImageHeight = natural.Width, natural.Height
		md.SourceImageURLOriginal = c.original
		md.SourceImageURLCanonical = c.key
		md.EditorVersion = version
		md.CoordinateSpace = models.CoordinatePixels

		z = z.Scaled(sx, sy)
		z.Metadata = md
		out[i] = z

		md.ImageWidth, md.ImageHeight = space.Width, space.Height
		c.zones[i].Metadata = md
	}

	if c.store != nil {
		if err := c.store.SaveZones(ctx, c.key, out); err != nil {
			return nil, fmt.Errorf("save zones for %s: %w", c.key, err)
		}
	}
	c.logger.Info(logging.EventSaved, "key", c.key, "zones", len(out),
		"imageWidth", natural.Width, "imageHeight", natural.Height)
	return out, nil
}

// ============================================================
// Read access
// ============================================================

func (c *Controller) Key() string              { return c.key }
func (c *Controller) State() State             { return c.state }
func (c *Controller) Selected() string         { return c.selected }
func (c *Controller) Zones() []models.Zone     { return models.CloneZones(c.zones) }
func (c *Controller) SurfaceSize() models.Size { return c.surface }
func (c *Controller) NaturalSize() models.Size { return c.natural }

// Snapshot is a render-ready view of the controller.
type Snapshot struct {
	Key      string        `json:"key"`
	Original string        `json:"original"`
	State    State         `json:"state"`
	Selected string        `json:"selected,omitempty"`
	Zones    []models.Zone `json:"zones"`
	// Draft is the rectangle being drawn, normalized to positive size.
	Draft   *models.Zone `json:"draft,omitempty"`
	Surface models.Size  `json:"surface"`
	Natural models.Size  `json:"natural"`
}

func (c *Controller) Snapshot() Snapshot {
	s := Snapshot{
		Key:      c.key,
		Original: c.original,
		State:    c.state,
		Selected: c.selected,
		Zones:    c.Zones(),
		Surface:  c.surface,
		Natural:  c.natural,
	}
	if s.Zones == nil {
		s.Zones = []models.Zone{}
	}
	if c.state == StateDrawing {
		d := c.draft
		d.X, d.Y, d.Width, d.Height = geometry.NormalizeRect(d.X, d.Y, d.Width, d.Height)
		s.Draft = &d
	}
	return s
}
