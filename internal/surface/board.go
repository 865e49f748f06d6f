// Package surface holds the named drawing surfaces charts are rendered onto.
package surface

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chrissnell/tripcharts/pkg/config"
	"go.uber.org/zap"
)

// ErrSurfaceNotFound is returned when no surface carries the requested id
var ErrSurfaceNotFound = errors.New("surface not found")

// Surface is a copy of one surface's state
type Surface struct {
	ID        string
	Width     int
	Height    int
	Content   []byte
	UpdatedAt time.Time
}

// Empty reports whether nothing is drawn on the surface
func (s Surface) Empty() bool {
	return len(s.Content) == 0
}

type entry struct {
	width, height int
	content       []byte
	updatedAt     time.Time
}

// Board is the set of surfaces known to the program.  Each write is serialized;
// callers that race on the same surface get last-writer-wins.
type Board struct {
	mu        sync.RWMutex
	order     []string
	surfaces  map[string]*entry
	outputDir string
	logger    *zap.SugaredLogger
}

// NewBoard creates a board with one blank surface per definition.  When outputDir is
// not empty every drawn surface is mirrored there as <id>.svg.
func NewBoard(defs []config.SurfaceData, outputDir string, logger *zap.SugaredLogger) (*Board, error) {
	b := &Board{
		surfaces:  make(map[string]*entry, len(defs)),
		outputDir: outputDir,
		logger:    logger,
	}

	for _, d := range defs {
		if _, ok := b.surfaces[d.ID]; ok {
			return nil, fmt.Errorf("duplicate surface id %q", d.ID)
		}
		b.surfaces[d.ID] = &entry{width: d.Width, height: d.Height}
		b.order = append(b.order, d.ID)
	}

	if outputDir != "" {
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating surface output directory: %w", err)
		}
	}

	return b, nil
}

// IDs returns the surface ids in definition order
func (b *Board) IDs() []string {
	return append([]string(nil), b.order...)
}

// Get returns a copy of the surface
func (b *Board) Get(id string) (Surface, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e, ok := b.surfaces[id]
	if !ok {
		return Surface{}, fmt.Errorf("%w: %s", ErrSurfaceNotFound, id)
	}
	return Surface{
		ID:        id,
		Width:     e.width,
		Height:    e.height,
		Content:   append([]byte(nil), e.content...),
		UpdatedAt: e.updatedAt,
	}, nil
}

// Draw replaces the surface content
func (b *Board) Draw(id string, content []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.surfaces[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSurfaceNotFound, id)
	}
	e.content = append([]byte(nil), content...)
	e.updatedAt = time.Now()

	if b.outputDir != "" {
		if err := os.WriteFile(b.mirrorPath(id), e.content, 0o644); err != nil {
			return fmt.Errorf("mirroring surface %s: %w", id, err)
		}
	}
	return nil
}

// Clear empties the surface.  Clearing an empty surface is a no-op.
func (b *Board) Clear(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.surfaces[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSurfaceNotFound, id)
	}
	b.clear(id, e)
	return nil
}

// ClearAll empties every surface on the board
func (b *Board) ClearAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, e := range b.surfaces {
		b.clear(id, e)
	}
}

func (b *Board) clear(id string, e *entry) {
	if e.content != nil {
		e.content = nil
		e.updatedAt = time.Now()
	}

	if b.outputDir != "" {
		if err := os.Remove(b.mirrorPath(id)); err != nil && !os.IsNotExist(err) {
			b.logger.Warnf("could not remove mirrored surface %s: %v", id, err)
		}
	}
}

func (b *Board) mirrorPath(id string) string {
	return filepath.Join(b.outputDir, id+".svg")
}
