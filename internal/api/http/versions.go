package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/driftdb/driftdb/internal/errors"
	"github.com/driftdb/driftdb/internal/table"
)

// defaultVersionLimit caps ledger listings when the client does not ask for
// a specific page size. The ledger itself refuses unbounded listings.
const defaultVersionLimit = 50

func (a *API) handleListVersions(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())
	q := r.URL.Query()

	limit := defaultVersionLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "limit must be an integer", requestID)
			return
		}
		limit = n
	}

	var recordID *int64
	if raw := q.Get("record_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "record_id must be an integer", requestID)
			return
		}
		recordID = &id
	}

	sortField := q.Get("sort")
	if sortField == "" {
		sortField = "changed_at"
	}
	order := q.Get("order")

	entries, err := a.engine.ListVersions(r.Context(), recordID, limit, sortField, order)
	if err != nil {
		writeError(w, err, requestID)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"versions": entries,
		"count":    len(entries),
	})
}

func (a *API) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	id, err := versionID(r)
	if err != nil {
		writeError(w, err, requestID)
		return
	}

	entry, err := a.engine.GetVersion(r.Context(), id)
	if err != nil {
		writeError(w, err, requestID)
		return
	}
	if entry == nil {
		writeError(w, errors.NewLedgerError(errors.CodeVersionNotFound,
			fmt.Sprintf("version %d not found", id)), requestID)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (a *API) handleRollback(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	id, err := versionID(r)
	if err != nil {
		writeError(w, err, requestID)
		return
	}

	actor := a.actor(r)
	result, err := a.engine.Rollback(r.Context(), a.tableName, id, actor)
	if err != nil {
		// The result carries the rejected state; surface both.
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusForError(err))
		writeRollbackError(w, result, err, requestID)
		return
	}
	if result.Entry != nil {
		a.stats.Record(result.Entry.FieldName, actor)
	}
	writeJSON(w, http.StatusOK, result)
}

// writeRollbackError reports a failed rollback together with the terminal
// state of the attempt.
func writeRollbackError(w http.ResponseWriter, result *table.RollbackResult, err error, requestID string) {
	resp := map[string]interface{}{
		"error":      err.Error(),
		"code":       errors.GetCode(err),
		"request_id": requestID,
	}
	if result != nil {
		resp["state"] = result.State
	}
	json.NewEncoder(w).Encode(resp)
}

func versionID(r *http.Request) (uint64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errors.NewLedgerError(errors.CodeVersionNotFound,
			fmt.Sprintf("invalid version id %q", raw))
	}
	return id, nil
}
