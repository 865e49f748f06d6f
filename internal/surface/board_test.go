package surface

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/chrissnell/tripcharts/pkg/config"
	"go.uber.org/zap"
)

func newBoard(t *testing.T, outputDir string) *Board {
	t.Helper()
	b, err := NewBoard(config.DefaultSurfaces(), outputDir, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("NewBoard: %v", err)
	}
	return b
}

func TestNewBoard(t *testing.T) {
	b := newBoard(t, "")

	expected := []string{config.SurfaceTripTip, config.SurfaceWeekdayWeekend, config.SurfaceTipTime}
	ids := b.IDs()
	if len(ids) != len(expected) {
		t.Fatalf("IDs() = %v, expected %v", ids, expected)
	}
	for i := range expected {
		if ids[i] != expected[i] {
			t.Errorf("IDs()[%d] = %s, expected %s", i, ids[i], expected[i])
		}
		s, err := b.Get(expected[i])
		if err != nil {
			t.Fatalf("Get(%s): %v", expected[i], err)
		}
		if !s.Empty() {
			t.Errorf("surface %s is not blank after creation", expected[i])
		}
		if s.Width != config.DefaultSurfaceWidth || s.Height != config.DefaultSurfaceHeight {
			t.Errorf("surface %s size = %dx%d, expected %dx%d", s.ID, s.Width, s.Height, config.DefaultSurfaceWidth, config.DefaultSurfaceHeight)
		}
	}

	dup := []config.SurfaceData{{ID: "a", Width: 1, Height: 1}, {ID: "a", Width: 1, Height: 1}}
	if _, err := NewBoard(dup, "", zap.NewNop().Sugar()); err == nil {
		t.Error("NewBoard with duplicate ids succeeded, expected an error")
	}
}

func TestDrawAndClear(t *testing.T) {
	b := newBoard(t, "")
	svg := []byte("<svg></svg>")

	if err := b.Draw(config.SurfaceTipTime, svg); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	s, _ := b.Get(config.SurfaceTipTime)
	if !bytes.Equal(s.Content, svg) {
		t.Errorf("Content = %q, expected %q", s.Content, svg)
	}

	// the returned copy must not alias board state
	s.Content[0] = 'X'
	again, _ := b.Get(config.SurfaceTipTime)
	if !bytes.Equal(again.Content, svg) {
		t.Errorf("Content after caller mutation = %q, expected %q", again.Content, svg)
	}

	if err := b.Clear(config.SurfaceTipTime); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	once, _ := b.Get(config.SurfaceTipTime)
	if err := b.Clear(config.SurfaceTipTime); err != nil {
		t.Fatalf("second Clear: %v", err)
	}
	twice, _ := b.Get(config.SurfaceTipTime)
	if !once.Empty() || !twice.Empty() || !once.UpdatedAt.Equal(twice.UpdatedAt) {
		t.Errorf("clearing twice differs from clearing once: %+v vs %+v", once, twice)
	}
}

func TestUnknownSurface(t *testing.T) {
	b := newBoard(t, "")

	if err := b.Draw("nope", []byte("x")); !errors.Is(err, ErrSurfaceNotFound) {
		t.Errorf("Draw error = %v, expected ErrSurfaceNotFound", err)
	}
	if err := b.Clear("nope"); !errors.Is(err, ErrSurfaceNotFound) {
		t.Errorf("Clear error = %v, expected ErrSurfaceNotFound", err)
	}
	if _, err := b.Get("nope"); !errors.Is(err, ErrSurfaceNotFound) {
		t.Errorf("Get error = %v, expected ErrSurfaceNotFound", err)
	}
}

func TestClearAllEmptiesEverySurface(t *testing.T) {
	b := newBoard(t, "")
	for _, id := range b.IDs() {
		if err := b.Draw(id, []byte("<svg/>")); err != nil {
			t.Fatal(err)
		}
	}

	b.ClearAll()
	b.ClearAll()

	for _, id := range b.IDs() {
		s, _ := b.Get(id)
		if !s.Empty() {
			t.Errorf("surface %s not empty after ClearAll", id)
		}
	}
}

func TestMirrorToOutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "charts")
	b := newBoard(t, dir)
	path := filepath.Join(dir, config.SurfaceTripTip+".svg")

	if err := b.Draw(config.SurfaceTripTip, []byte("<svg/>")); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("mirrored file: %v", err)
	}
	if string(data) != "<svg/>" {
		t.Errorf("mirrored content = %q, expected %q", data, "<svg/>")
	}

	b.ClearAll()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("mirrored file still present after ClearAll (err = %v)", err)
	}
}

func TestConcurrentWrites(t *testing.T) {
	b := newBoard(t, "")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				b.Draw(config.SurfaceTripTip, []byte{byte('a' + i)})
			} else {
				b.ClearAll()
			}
		}(i)
	}
	wg.Wait()

	s, err := b.Get(config.SurfaceTripTip)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Content) > 1 {
		t.Errorf("Content = %q, expected a single write to win", s.Content)
	}
}
