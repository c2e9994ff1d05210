// Package webd is a local HTTP and websocket front end for the trip controller.
package webd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/jellydator/ttlcache/v3"
	"github.com/olahol/melody"
	"github.com/rotblauer/cleanspeed/api"
	"github.com/rotblauer/cleanspeed/params"
	"github.com/rotblauer/cleanspeed/source"
)

type WebDaemon struct {
	Config *params.WebDaemonConfig

	app     *api.App
	push    *source.Push
	logger  *slog.Logger
	started time.Time

	melodyInstance *melody.Melody
	exports        *ttlcache.Cache[uint64, []byte]
}

// NewWebDaemon serves app. Fixes posted to /fix go to push, which may be nil
// when the trip is fed from another source.
func NewWebDaemon(config *params.WebDaemonConfig, app *api.App, push *source.Push) *WebDaemon {
	if config == nil {
		config = params.DefaultWebDaemonConfig()
	}
	return &WebDaemon{
		Config:  config,
		app:     app,
		push:    push,
		logger:  slog.With("d", "web"),
		started: time.Now(),
		exports: ttlcache.New[uint64, []byte](
			ttlcache.WithTTL[uint64, []byte](config.ExportCacheTTL)),
	}
}

// Run serves until ctx is done, then shuts the server down gracefully.
func (s *WebDaemon) Run(ctx context.Context) error {
	l, err := net.Listen(s.Config.Network, s.Config.Address)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return s.Serve(ctx, l)
}

func (s *WebDaemon) Serve(ctx context.Context, l net.Listener) error {
	router := s.NewRouter()
	server := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.exports.Start()
	defer s.exports.Stop()
	unsubscribe := s.broadcastUpdates()
	defer unsubscribe()

	errs := make(chan error, 1)
	go func() {
		s.logger.Info("Starting web daemon", "address", l.Addr().String())
		errs <- server.Serve(l)
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}
	s.logger.Info("Stopping web daemon")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.melodyInstance.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *WebDaemon) NewRouter() *mux.Router {
	s.initMelody()

	router := mux.NewRouter().StrictSlash(false)
	router.Use(s.loggingMiddleware)

	// Handle websocket.
	router.Path("/socket").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = s.melodyInstance.HandleRequest(w, r)
	})

	apiRoutes := router.NewRoute().Subrouter()

	// All API routes use permissive CORS settings.
	apiRoutes.Use(permissiveCorsMiddleware)

	// /ping is a simple server healthcheck endpoint
	apiRoutes.Path("/ping").HandlerFunc(pingPong)

	apiJSONRoutes := apiRoutes.NewRoute().Subrouter()
	apiJSONRoutes.Use(contentTypeMiddlewareFunc("application/json"))

	apiJSONRoutes.Path("/status").HandlerFunc(s.statusReport).Methods(http.MethodGet)
	apiJSONRoutes.Path("/view").HandlerFunc(s.handleView).Methods(http.MethodGet)
	apiJSONRoutes.Path("/trips").HandlerFunc(s.handleRecentTrips).Methods(http.MethodGet)
	apiJSONRoutes.Path("/trips/{id:[0-9]+}").HandlerFunc(s.handleGetTrip).Methods(http.MethodGet)
	apiJSONRoutes.Path("/trips/{id:[0-9]+}/geojson").HandlerFunc(s.handleTripGeoJSON).Methods(http.MethodGet)
	apiJSONRoutes.Path("/prefs").HandlerFunc(s.handleGetPrefs).Methods(http.MethodGet)

	authenticatedAPIRoutes := apiJSONRoutes.NewRoute().Subrouter()
	authenticatedAPIRoutes.Use(s.tokenAuthenticationMiddleware)

	authenticatedAPIRoutes.Path("/trip/start").HandlerFunc(s.handleStart).Methods(http.MethodPost)
	authenticatedAPIRoutes.Path("/trip/toggle").HandlerFunc(s.handleToggle).Methods(http.MethodPost)
	authenticatedAPIRoutes.Path("/trip/stop").HandlerFunc(s.handleStop).Methods(http.MethodPost)
	authenticatedAPIRoutes.Path("/trip/reset").HandlerFunc(s.handleReset).Methods(http.MethodPost)
	authenticatedAPIRoutes.Path("/trips/selected").HandlerFunc(s.handleClearSelected).Methods(http.MethodDelete)
	authenticatedAPIRoutes.Path("/prefs").HandlerFunc(s.handlePutPrefs).Methods(http.MethodPut)
	authenticatedAPIRoutes.Path("/permission").HandlerFunc(s.handlePermission).Methods(http.MethodPut)
	authenticatedAPIRoutes.Path("/fix").HandlerFunc(s.handleFix).Methods(http.MethodPost)

	return router
}
