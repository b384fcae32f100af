// Package rest exposes the session coordinator over HTTP.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	"github.com/hjyangBig2/lighter/pkg/session/core/application/usecase"
	"github.com/hjyangBig2/lighter/pkg/session/core/config"
	"github.com/hjyangBig2/lighter/pkg/session/core/domain/model"
	"github.com/hjyangBig2/lighter/pkg/session/core/ports"
	"github.com/hjyangBig2/lighter/pkg/session/support/util/logger"
)

const defaultPageSize = 100

// ResultReporter stores the output a session process reports for a statement.
type ResultReporter interface {
	ReportResult(ctx context.Context, sessionID, statementID string, output model.StatementOutput) (*model.Statement, error)
}

// OrphanSweeper kills live sessions without a stored record.
type OrphanSweeper interface {
	Sweep(ctx context.Context) ([]string, error)
}

// SessionArchiver exports finished sessions and serves the exported archive objects.
type SessionArchiver interface {
	Archive(ctx context.Context) (*usecase.ArchiveResult, error)
	ListArchives(ctx context.Context) ([]string, error)
	OpenArchive(ctx context.Context, objectName string) (io.ReadCloser, error)
}

// HandlerParams are the inputs of NewHandler.
type HandlerParams struct {
	fx.In
	Cfg       *config.Config
	Service   usecase.SessionService
	Results   ResultReporter
	Sweeper   OrphanSweeper
	Archiver  SessionArchiver
	Gatherer  prometheus.Gatherer
	// Simulator is only present with an in-process backend. It enables the /debug/cluster routes.
	Simulator ports.ClusterSimulator `optional:"true"`
}

// Handler routes the REST API.
type Handler struct {
	service   usecase.SessionService
	results   ResultReporter
	sweeper   OrphanSweeper
	archiver  SessionArchiver
	simulator ports.ClusterSimulator
	router    *mux.Router
}

// ApplicationList is a page of sessions.
type ApplicationList struct {
	From         int                  `json:"from"`
	Total        int                  `json:"total"`
	Applications []*model.Application `json:"applications"`
}

// SweepResponse lists the sessions killed by a sweep.
type SweepResponse struct {
	Killed []string `json:"killed"`
}

// ArchiveResponse reports an archive run.
type ArchiveResponse struct {
	Archived int      `json:"archived"`
	Deleted  int      `json:"deleted"`
	Pruned   int      `json:"pruned"`
	Objects  []string `json:"objects"`
}

// ClusterState is the state the simulated cluster reports for an application.
type ClusterState struct {
	ID    string `json:"id"`
	State string `json:"state"`
}

// ArchiveList lists the stored archive objects.
type ArchiveList struct {
	Objects []string `json:"objects"`
}

// NewHandler builds the router. API routes live below the configured base path; /metrics and /health at the root.
func NewHandler(p HandlerParams) *Handler {
	h := &Handler{
		service:   p.Service,
		results:   p.Results,
		sweeper:   p.Sweeper,
		archiver:  p.Archiver,
		simulator: p.Simulator,
		router:    mux.NewRouter(),
	}
	h.router.Use(logRequests)

	basePath := strings.TrimSuffix(p.Cfg.Lighter.Server.BasePath, "/")
	api := h.router.PathPrefix(basePath).Subrouter()

	// Fixed paths are registered before {id} so they are not taken for session ids.
	api.HandleFunc("/sessions/permanent", h.createPermanentSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/permanent", h.getPermanentSession).Methods(http.MethodGet)
	api.HandleFunc("/sessions/sweep", h.sweep).Methods(http.MethodPost)
	api.HandleFunc("/sessions/archive", h.archive).Methods(http.MethodPost)
	api.HandleFunc("/sessions/archive", h.listArchives).Methods(http.MethodGet)
	api.HandleFunc("/sessions/archive/{object:.+}", h.downloadArchive).Methods(http.MethodGet)
	api.HandleFunc("/sessions", h.createSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions", h.listSessions).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", h.getSession).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", h.deleteSession).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{id}/statements", h.createStatement).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/statements/{statementId}", h.getStatement).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/statements/{statementId}/cancel", h.cancelStatement).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/statements/{statementId}/result", h.reportResult).Methods(http.MethodPost)
	api.HandleFunc("/statements/execute", h.executeStatement).Methods(http.MethodPost)
	if h.simulator != nil {
		api.HandleFunc("/debug/cluster/{id}", h.setClusterState).Methods(http.MethodPut)
	}

	if p.Gatherer != nil {
		h.router.Handle("/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	h.router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "UP"})
	}).Methods(http.MethodGet)
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debugf("%s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

// decodeBody decodes the JSON body into v. An empty body leaves v untouched when allowEmpty is set.
func decodeBody(r *http.Request, v interface{}, allowEmpty bool) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) && allowEmpty {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: invalid request body: %v", errBadRequest, err)
	}
	return nil
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, model.ApplicationTypeSession)
}

func (h *Handler) createPermanentSession(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, model.ApplicationTypePermanentSession)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request, typ model.ApplicationType) {
	var params model.SubmitParams
	if err := decodeBody(r, &params, true); err != nil {
		writeError(w, r, err)
		return
	}
	app, err := h.service.CreateSession(r.Context(), params, typ)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

func (h *Handler) getPermanentSession(w http.ResponseWriter, r *http.Request) {
	app, err := h.service.FetchPermanent(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if app == nil {
		writeNotFound(w, "permanent session not found")
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	from, err := queryInt(r, "from", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	size, err := queryInt(r, "size", defaultPageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	apps, err := h.service.Fetch(r.Context(), from, size)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ApplicationList{From: from, Total: len(apps), Applications: apps})
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	live, err := queryBool(r, "live")
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := h.service.FetchOne(r.Context(), id, live)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if view == nil {
		writeNotFound(w, fmt.Sprintf("session %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteOne(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) createStatement(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var stmt model.Statement
	if err := decodeBody(r, &stmt, false); err != nil {
		writeError(w, r, err)
		return
	}
	view, err := h.service.FetchOne(r.Context(), id, false)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if view == nil {
		writeNotFound(w, fmt.Sprintf("session %s not found", id))
		return
	}
	created, err := h.service.CreateStatement(r.Context(), id, &stmt)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) getStatement(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	stmt, err := h.service.GetStatement(r.Context(), vars["id"], vars["statementId"])
	writeStatement(w, r, stmt, err)
}

func (h *Handler) cancelStatement(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	stmt, err := h.service.CancelStatement(r.Context(), vars["id"], vars["statementId"])
	writeStatement(w, r, stmt, err)
}

func (h *Handler) reportResult(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var output model.StatementOutput
	if err := decodeBody(r, &output, false); err != nil {
		writeError(w, r, err)
		return
	}
	stmt, err := h.results.ReportResult(r.Context(), vars["id"], vars["statementId"], output)
	writeStatement(w, r, stmt, err)
}

func writeStatement(w http.ResponseWriter, r *http.Request, stmt *model.Statement, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	if stmt == nil {
		writeNotFound(w, "statement not found")
		return
	}
	writeJSON(w, http.StatusOK, stmt)
}

func (h *Handler) executeStatement(w http.ResponseWriter, r *http.Request) {
	var stmt model.Statement
	if err := decodeBody(r, &stmt, false); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := h.service.ExecuteStatement(r.Context(), &stmt)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) sweep(w http.ResponseWriter, r *http.Request) {
	killed, err := h.sweeper.Sweep(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if killed == nil {
		killed = []string{}
	}
	writeJSON(w, http.StatusOK, SweepResponse{Killed: killed})
}

func (h *Handler) archive(w http.ResponseWriter, r *http.Request) {
	result, err := h.archiver.Archive(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	objects := result.Objects
	if objects == nil {
		objects = []string{}
	}
	writeJSON(w, http.StatusOK, ArchiveResponse{
		Archived: result.Archived,
		Deleted:  result.Deleted,
		Pruned:   result.Pruned,
		Objects:  objects,
	})
}

func (h *Handler) listArchives(w http.ResponseWriter, r *http.Request) {
	names, err := h.archiver.ListArchives(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ArchiveList{Objects: names})
}

func (h *Handler) downloadArchive(w http.ResponseWriter, r *http.Request) {
	objectName := mux.Vars(r)["object"]
	reader, err := h.archiver.OpenArchive(r.Context(), objectName)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", path.Base(objectName)))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, reader); err != nil {
		logger.Warnf("Failed to stream archive '%s': %v", objectName, err)
	}
}

// setClusterState makes the simulated cluster report the requested state, launching the application if
// the cluster does not know it yet. The id need not have a stored record, which is how orphans are made.
func (h *Handler) setClusterState(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req ClusterState
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	state, err := model.ParseApplicationState(req.State)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if !h.simulator.SetState(id, state) {
		h.simulator.Launch(&model.Application{ID: id, SubmitParams: model.SubmitParams{Name: id}})
		h.simulator.SetState(id, state)
	}
	writeJSON(w, http.StatusOK, ClusterState{ID: id, State: string(state)})
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: query parameter %s must be a non-negative integer", errBadRequest, name)
	}
	return v, nil
}

func queryBool(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: query parameter %s must be a boolean", errBadRequest, name)
	}
	return v, nil
}
