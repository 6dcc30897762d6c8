package http

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// AddColumnRequest is the body of POST /v1/schema/columns.
type AddColumnRequest struct {
	Name    string  `json:"name"`
	Type    string  `json:"type"`
	Default *string `json:"default,omitempty"`
}

// ModifyColumnRequest is the body of PATCH /v1/schema/columns/{name}.
// NewName is optional; an empty value keeps the current name.
type ModifyColumnRequest struct {
	NewName string  `json:"new_name,omitempty"`
	Type    string  `json:"type"`
	Default *string `json:"default,omitempty"`
}

func (a *API) handleListColumns(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	schema, err := a.engine.ListColumns(r.Context(), a.tableName)
	if err != nil {
		writeError(w, err, requestID)
		return
	}
	writeJSON(w, http.StatusOK, schema)
}

func (a *API) handleDefinition(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	ddl, err := a.engine.DefinitionSQL(r.Context(), a.tableName)
	if err != nil {
		writeError(w, err, requestID)
		return
	}
	if ddl == nil {
		writeErrorMessage(w, http.StatusNotFound, "table does not exist", requestID)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"table": a.tableName, "definition": *ddl})
}

func (a *API) handleAddColumn(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	var req AddColumnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err), requestID)
		return
	}
	if req.Name == "" {
		writeErrorMessage(w, http.StatusBadRequest, "name is required", requestID)
		return
	}

	if err := a.engine.AddColumn(r.Context(), a.tableName, req.Name, req.Type, req.Default); err != nil {
		writeError(w, err, requestID)
		return
	}

	schema, err := a.engine.ListColumns(r.Context(), a.tableName)
	if err != nil {
		writeError(w, err, requestID)
		return
	}
	writeJSON(w, http.StatusCreated, schema)
}

func (a *API) handleModifyColumn(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())
	name := r.PathValue("name")

	var req ModifyColumnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err), requestID)
		return
	}

	if err := a.engine.ModifyColumn(r.Context(), a.tableName, name, req.NewName, req.Type, req.Default); err != nil {
		writeError(w, err, requestID)
		return
	}

	schema, err := a.engine.ListColumns(r.Context(), a.tableName)
	if err != nil {
		writeError(w, err, requestID)
		return
	}
	writeJSON(w, http.StatusOK, schema)
}

func (a *API) handleDropColumn(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())
	name := r.PathValue("name")

	if err := a.engine.DropColumn(r.Context(), a.tableName, name); err != nil {
		writeError(w, err, requestID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
