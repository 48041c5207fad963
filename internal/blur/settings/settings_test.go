package settings

import (
	"testing"

	"bodyshop-gallery/internal/common/logging"
)

func TestNormalized(t *testing.T) {
	s := Settings{DefaultBlurAmount: 999, DefaultZoneWidth: -1, MinDrawSize: -3}.Normalized()
	if s.DefaultBlurAmount != 20 {
		t.Errorf("DefaultBlurAmount = %d, want 20", s.DefaultBlurAmount)
	}
	if s.DefaultZoneWidth != DefaultZoneWidth || s.DefaultZoneHeight != DefaultZoneHeight {
		t.Errorf("zone size = %vx%v, want defaults", s.DefaultZoneWidth, s.DefaultZoneHeight)
	}
	if s.MinDrawSize != DefaultMinDraw || s.EditorVersion != EditorVersion {
		t.Errorf("unexpected %+v", s)
	}
}

func TestProviderSubscribeNotify(t *testing.T) {
	rec := logging.NewRecorder()
	p := NewProvider(Default(), rec.Logger())

	var got []Settings
	cancel := p.Subscribe(func(s Settings) { got = append(got, s) })

	p.Update(func(s *Settings) { s.DefaultBlurAmount = 12 })
	if len(got) != 1 || got[0].DefaultBlurAmount != 12 {
		t.Fatalf("listener saw %+v", got)
	}
	if p.Get().DefaultBlurAmount != 12 {
		t.Errorf("Get().DefaultBlurAmount = %d", p.Get().DefaultBlurAmount)
	}

	// No-op updates do not notify.
	p.Update(func(s *Settings) { s.DefaultBlurAmount = 12 })
	if len(got) != 1 {
		t.Errorf("listener called %d times after no-op update", len(got))
	}

	cancel()
	cancel()
	p.Update(func(s *Settings) { s.OverlaysEnabled = false })
	if len(got) != 1 {
		t.Errorf("cancelled listener still notified")
	}
	if n := len(rec.Events(logging.EventSettingsChanged)); n != 2 {
		t.Errorf("got %d settings.changed events, want 2", n)
	}
}

func TestProviderUpdateClamps(t *testing.T) {
	p := NewProvider(Settings{}, nil)
	got := p.Get()
	if got.DefaultBlurAmount != 2 || got.DefaultZoneWidth != DefaultZoneWidth || got.EditorVersion != EditorVersion {
		t.Fatalf("zero settings normalized to %+v", got)
	}
	s := p.Update(func(s *Settings) {
		s.DefaultBlurAmount = -5
		s.DefaultZoneHeight = 0
	})
	if s.DefaultBlurAmount != 2 || s.DefaultZoneHeight != DefaultZoneHeight {
		t.Errorf("Update result = %+v", s)
	}
}
