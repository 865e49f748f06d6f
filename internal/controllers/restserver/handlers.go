package restserver

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/chrissnell/tripcharts/internal/pipeline"
	"github.com/chrissnell/tripcharts/internal/surface"
	"github.com/chrissnell/tripcharts/pkg/responseformat"
	"github.com/gorilla/mux"
)

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
	index      *template.Template
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) (*Handlers, error) {
	index, err := template.ParseFS(ctrl.FS, "index.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("error parsing index template: %w", err)
	}
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(),
		index:      index,
	}, nil
}

func (h *Handlers) runtime() *pipeline.Runtime {
	return h.controller.runtime
}

// ServeIndex renders the page holding the load/clear buttons and one image per surface
func (h *Handlers) ServeIndex(w http.ResponseWriter, req *http.Request) {
	data := struct {
		Table    string
		Limit    int
		Surfaces []SurfaceInfo
	}{
		Table:    h.runtime().Loader.Table(),
		Limit:    h.runtime().Limit,
		Surfaces: h.surfaces(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.index.Execute(w, data); err != nil {
		h.controller.logger.Errorf("error executing index template: %v", err)
		http.Error(w, "error rendering page", http.StatusInternalServerError)
	}
}

// Load runs the load action and returns the fresh aggregates
func (h *Handlers) Load(w http.ResponseWriter, req *http.Request) {
	agg, err := h.runtime().Load(req.Context())
	if err != nil {
		h.writeError(w, req, http.StatusInternalServerError, fmt.Errorf("load failed: %w", err))
		return
	}
	h.formatter.WriteResponse(w, req, agg, nil)
}

// Clear empties every surface
func (h *Handlers) Clear(w http.ResponseWriter, req *http.Request) {
	h.runtime().Clear()
	h.formatter.WriteResponse(w, req, ClearResponse{Cleared: h.runtime().Board.IDs(), At: time.Now()}, nil)
}

// Register re-registers the dataset from its configured sources
func (h *Handlers) Register(w http.ResponseWriter, req *http.Request) {
	result, err := h.runtime().Register(req.Context())
	if err != nil {
		h.writeError(w, req, http.StatusBadGateway, err)
		return
	}
	h.formatter.WriteResponse(w, req, RegisterResponse{
		Table:      result.Table,
		Files:      result.Files,
		DurationMS: float64(result.Duration.Microseconds()) / 1000,
	}, nil)
}

// GetAggregates returns the aggregates of the most recent successful load
func (h *Handlers) GetAggregates(w http.ResponseWriter, req *http.Request) {
	agg, err := h.runtime().Latest()
	if errors.Is(err, pipeline.ErrNoAggregates) {
		h.writeError(w, req, http.StatusNotFound, err)
		return
	}
	h.formatter.WriteResponse(w, req, agg, map[string]string{"Cache-Control": "no-store"})
}

// GetSurfaces lists the surfaces and whether each one is drawn
func (h *Handlers) GetSurfaces(w http.ResponseWriter, req *http.Request) {
	h.formatter.WriteResponse(w, req, h.surfaces(), map[string]string{"Cache-Control": "no-store"})
}

// GetSurface serves a surface as SVG.  A blank surface is served as an empty
// SVG of the surface's size.
func (h *Handlers) GetSurface(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]

	s, err := h.runtime().Board.Get(id)
	if errors.Is(err, surface.ErrSurfaceNotFound) {
		http.NotFound(w, req)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")

	if s.Empty() {
		fmt.Fprintf(w, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d"></svg>`, s.Width, s.Height)
		return
	}
	w.Write(s.Content)
}

func (h *Handlers) surfaces() []SurfaceInfo {
	board := h.runtime().Board
	ids := board.IDs()

	infos := make([]SurfaceInfo, 0, len(ids))
	for _, id := range ids {
		s, err := board.Get(id)
		if err != nil {
			continue
		}
		infos = append(infos, SurfaceInfo{
			ID:        s.ID,
			Width:     s.Width,
			Height:    s.Height,
			Drawn:     !s.Empty(),
			UpdatedAt: s.UpdatedAt,
		})
	}
	return infos
}

func (h *Handlers) writeError(w http.ResponseWriter, req *http.Request, status int, err error) {
	h.controller.logger.Errorf("%s %s: %v", req.Method, req.URL.Path, err)
	h.formatter.WriteStatus(w, req, status, ErrorResponse{Error: err.Error()}, nil)
}
