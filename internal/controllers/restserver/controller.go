package restserver

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/chrissnell/tripcharts/internal/log"
	"github.com/chrissnell/tripcharts/internal/metrics"
	"github.com/chrissnell/tripcharts/internal/pipeline"
	"github.com/chrissnell/tripcharts/pkg/config"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Controller serves the index page, the load/clear actions and the drawn surfaces
type Controller struct {
	ctx      context.Context
	wg       *sync.WaitGroup
	runtime  *pipeline.Runtime
	Server   http.Server
	FS       fs.FS
	logger   *zap.SugaredLogger
	handlers *Handlers
}

// NewController creates a new REST server controller
func NewController(ctx context.Context, wg *sync.WaitGroup, rt *pipeline.Runtime, sc config.ServerData, logger *zap.SugaredLogger) (*Controller, error) {
	ctrl := &Controller{
		ctx:     ctx,
		wg:      wg,
		runtime: rt,
		FS:      GetAssets(),
		logger:  logger,
	}

	if sc.ListenAddr == "" {
		logger.Infof("server.listen_addr not provided; defaulting to %s (all interfaces)", config.DefaultListenAddr)
		sc.ListenAddr = config.DefaultListenAddr
	}
	if sc.HTTPPort == 0 {
		logger.Infof("server.http_port not provided; defaulting to %d", config.DefaultHTTPPort)
		sc.HTTPPort = config.DefaultHTTPPort
	}

	h, err := NewHandlers(ctrl)
	if err != nil {
		return nil, err
	}
	ctrl.handlers = h

	ctrl.Server.Addr = fmt.Sprintf("%v:%v", sc.ListenAddr, sc.HTTPPort)
	ctrl.Server.Handler = ctrl.setupRouter()
	ctrl.Server.ReadHeaderTimeout = 10 * time.Second

	return ctrl, nil
}

// StartController starts the REST server
func (c *Controller) StartController() error {
	log.Infof("Starting REST server on %s...", c.Server.Addr)
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()
		if err := c.Server.ListenAndServe(); err != http.ErrServerClosed {
			log.Errorf("REST server error: %v", err)
		}
	}()

	go func() {
		<-c.ctx.Done()
		log.Info("Shutting down the REST server...")
		c.Server.Shutdown(context.Background())
	}()

	return nil
}

// setupRouter configures the HTTP router with all endpoints
func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()
	router.Use(log.HTTPMiddleware)
	router.Use(handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{c.logger})))
	router.Use(handlers.CompressHandler)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/load", c.handlers.Load).Methods(http.MethodPost)
	api.HandleFunc("/clear", c.handlers.Clear).Methods(http.MethodPost)
	api.HandleFunc("/register", c.handlers.Register).Methods(http.MethodPost)
	api.HandleFunc("/aggregates", c.handlers.GetAggregates).Methods(http.MethodGet)
	api.HandleFunc("/surfaces", c.handlers.GetSurfaces).Methods(http.MethodGet)

	router.HandleFunc("/surfaces/{id}.svg", c.handlers.GetSurface).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler())

	router.HandleFunc("/", c.handlers.ServeIndex).Methods(http.MethodGet)

	// Static file serving
	static := http.FileServer(http.FS(c.FS))
	router.PathPrefix("/js/").Handler(static)
	router.PathPrefix("/css/").Handler(static)

	return router
}

// recoveryLogger routes handler panics into the application log
type recoveryLogger struct {
	logger *zap.SugaredLogger
}

func (r recoveryLogger) Println(args ...interface{}) {
	r.logger.Error(args...)
}
