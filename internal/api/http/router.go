package http

import (
	"net/http"
	"time"

	"github.com/driftdb/driftdb/internal/observability"
	"github.com/driftdb/driftdb/internal/snapshot"
	"github.com/driftdb/driftdb/internal/table"
)

// API exposes the table engine over HTTP. All endpoints speak JSON; mutating
// endpoints read the acting user from the X-Drift-Actor header.
type API struct {
	engine       *table.Engine
	snapshots    *snapshot.Manager // nil disables the snapshot endpoint
	stats        *observability.ChangeStats
	tableName    string
	defaultActor string
}

// NewAPI creates the HTTP API over the given engine.
func NewAPI(engine *table.Engine, snapshots *snapshot.Manager, tableName, defaultActor string) *API {
	return &API{
		engine:       engine,
		snapshots:    snapshots,
		stats:        observability.NewChangeStats(24 * time.Hour),
		tableName:    tableName,
		defaultActor: defaultActor,
	}
}

// Routes returns the fully wired handler, middleware included.
func (a *API) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", a.handleHealth)

	mux.HandleFunc("GET /v1/schema", a.handleListColumns)
	mux.HandleFunc("GET /v1/schema/definition", a.handleDefinition)
	mux.HandleFunc("POST /v1/schema/columns", a.handleAddColumn)
	mux.HandleFunc("PATCH /v1/schema/columns/{name}", a.handleModifyColumn)
	mux.HandleFunc("DELETE /v1/schema/columns/{name}", a.handleDropColumn)

	mux.HandleFunc("POST /v1/records", a.handleCreateRecord)
	mux.HandleFunc("GET /v1/records", a.handleListRecords)
	mux.HandleFunc("GET /v1/records/{id}", a.handleGetRecord)
	mux.HandleFunc("PATCH /v1/records/{id}", a.handleUpdateRecord)
	mux.HandleFunc("DELETE /v1/records/{id}", a.handleDeleteRecord)

	mux.HandleFunc("GET /v1/versions", a.handleListVersions)
	mux.HandleFunc("GET /v1/versions/{id}", a.handleGetVersion)
	mux.HandleFunc("POST /v1/versions/{id}/rollback", a.handleRollback)

	mux.HandleFunc("POST /v1/snapshots", a.handleCreateSnapshot)

	mux.HandleFunc("GET /v1/stats", a.handleStats)

	return DefaultMiddleware()(mux)
}

// actor resolves the acting user for a mutating request.
func (a *API) actor(r *http.Request) string {
	if actor := r.Header.Get(actorHeader); actor != "" {
		return actor
	}
	return a.defaultActor
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "table": a.tableName})
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"top_fields": a.stats.TopFields(20),
		"top_actors": a.stats.TopActors(20),
	})
}

func (a *API) handleCreateSnapshot(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())
	if a.snapshots == nil {
		writeErrorMessage(w, http.StatusNotImplemented, "snapshots are not configured", requestID)
		return
	}

	manifest, err := a.snapshots.Create(r.Context())
	if err != nil {
		writeError(w, err, requestID)
		return
	}
	writeJSON(w, http.StatusCreated, manifest)
}
