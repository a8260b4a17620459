package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/depaudit/internal/domain/commands"
	"github.com/rios0rios0/depaudit/internal/domain/entities"
)

const maxBodyBytes = 1 << 20

type updateDependenciesBody struct {
	FilePath string                            `json:"file_path"`
	Updates  map[string]entities.VersionUpdate `json:"updates"`
}

type cleanupBody struct {
	Branch string `json:"branch"`
}

type errorBody struct {
	Error  entities.ErrorKind `json:"error"`
	Detail string             `json:"detail"`
	Step   string             `json:"step,omitempty"`
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) handleRepositories(w http.ResponseWriter, r *http.Request) {
	token, err := callerToken(r)
	if err != nil {
		writeError(w, err)
		return
	}

	repos, err := h.discover.Execute(r.Context(), h.settings, commands.DiscoverOptions{
		Token: token,
		Owner: r.URL.Query().Get("owner"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entities.NewRepositorySummaries(repos))
}

func (h *Handlers) handleDependencies(w http.ResponseWriter, r *http.Request) {
	token, err := callerToken(r)
	if err != nil {
		writeError(w, err)
		return
	}

	report, err := h.audit.Execute(r.Context(), h.settings, commands.AuditOptions{
		Token:      token,
		Repository: repositoryFromPath(r),
		Branch:     r.URL.Query().Get("branch"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handlers) handleUpdateDependencies(w http.ResponseWriter, r *http.Request) {
	token, err := callerToken(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var body updateDependenciesBody
	if err = decodeBody(w, r, &body); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.remediate.Execute(r.Context(), h.settings, commands.RemediateOptions{
		Token:      token,
		Repository: repositoryFromPath(r),
		Request: entities.RemediationRequest{
			FilePath: body.FilePath,
			Updates:  body.Updates,
		},
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *Handlers) handleCleanup(w http.ResponseWriter, r *http.Request) {
	token, err := callerToken(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var body cleanupBody
	if err = decodeBody(w, r, &body); err != nil {
		writeError(w, err)
		return
	}

	if err = h.cleanup.Execute(r.Context(), h.settings, commands.CleanupOptions{
		Token:      token,
		Repository: repositoryFromPath(r),
		Branch:     body.Branch,
	}); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": body.Branch})
}

func repositoryFromPath(r *http.Request) string {
	vars := mux.Vars(r)
	return vars["owner"] + "/" + vars["repo"]
}

// bearerToken returns the token of an "Authorization: Bearer <token>" header, or "".
func bearerToken(r *http.Request) string {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// callerToken requires the caller's own bearer token. The configured provider token
// is never used on behalf of an HTTP caller.
func callerToken(r *http.Request) (string, error) {
	token := bearerToken(r)
	if token == "" {
		return "", entities.NewError(entities.KindAuthorizationMissing, "missing bearer token", nil)
	}
	return token, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, target any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(target); err != nil {
		return entities.NewError(entities.KindInvalidRequest, "invalid request body", err)
	}
	return nil
}

// statusFor maps an error kind to the HTTP status returned to the caller.
func statusFor(kind entities.ErrorKind) int {
	switch kind {
	case entities.KindAuthorizationMissing:
		return http.StatusUnauthorized
	case entities.KindNoDependencyFiles:
		return http.StatusNotFound
	case entities.KindConcurrentModification:
		return http.StatusConflict
	case entities.KindManifestParseError, entities.KindInvalidRequest:
		return http.StatusUnprocessableEntity
	case entities.KindRepositoryUnavailable, entities.KindRemediationStepFailed, entities.KindRegistryLookupFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	var pipelineErr *entities.PipelineError
	if !errors.As(err, &pipelineErr) {
		logger.Errorf("[server] Unexpected error: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Detail: err.Error()})
		return
	}

	status := statusFor(pipelineErr.Kind)
	if status >= http.StatusInternalServerError {
		logger.Errorf("[server] %v", err)
	} else {
		logger.Warnf("[server] %v", err)
	}
	writeJSON(w, status, errorBody{
		Error:  pipelineErr.Kind,
		Detail: pipelineErr.Error(),
		Step:   pipelineErr.Step,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Errorf("[server] Failed to write response: %v", err)
	}
}
