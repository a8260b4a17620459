package server

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/depaudit/internal/domain/commands"
	"github.com/rios0rios0/depaudit/internal/domain/entities"
)

// Handlers serves the listing, audit, remediation and cleanup operations over HTTP.
type Handlers struct {
	settings  *entities.Settings
	discover  commands.Discover
	audit     commands.Audit
	remediate commands.Remediate
	cleanup   commands.Cleanup
}

// NewHandlers creates the HTTP handlers. settings provides the provider and
// limits; every request must carry its own bearer token.
func NewHandlers(
	settings *entities.Settings,
	discover commands.Discover,
	audit commands.Audit,
	remediate commands.Remediate,
	cleanup commands.Cleanup,
) *Handlers {
	return &Handlers{
		settings:  settings,
		discover:  discover,
		audit:     audit,
		remediate: remediate,
		cleanup:   cleanup,
	}
}

// NewRouter wires every route. metrics may be nil to leave /metrics out.
func NewRouter(handlers *Handlers, metrics http.Handler) *mux.Router {
	router := mux.NewRouter()
	router.Use(logRequests)

	router.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	if metrics != nil {
		router.Handle("/metrics", metrics).Methods(http.MethodGet)
	}

	router.HandleFunc("/api/repos", handlers.handleRepositories).Methods(http.MethodGet)
	api := router.PathPrefix("/api/repos/{owner}/{repo}").Subrouter()
	api.HandleFunc("/dependencies", handlers.handleDependencies).Methods(http.MethodGet)
	api.HandleFunc("/update-dependencies", handlers.handleUpdateDependencies).Methods(http.MethodPost)
	api.HandleFunc("/cleanup", handlers.handleCleanup).Methods(http.MethodPost)

	return router
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		logger.Infof("[server] %s %s %d %s", r.Method, r.URL.Path, recorder.status, time.Since(start))
	})
}
