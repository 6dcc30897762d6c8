package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/driftdb/driftdb/internal/errors"
	"github.com/driftdb/driftdb/internal/table"
	"github.com/driftdb/driftdb/pkg/types"
)

// defaultListLimit caps record listings when the client does not ask for a
// specific page size.
const defaultListLimit = 100

func (a *API) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	values, err := decodeValues(r)
	if err != nil {
		writeError(w, err, requestID)
		return
	}

	actor := a.actor(r)
	id, err := a.engine.CreateRecord(r.Context(), a.tableName, values, actor)
	if err != nil {
		writeError(w, err, requestID)
		return
	}
	for field := range values {
		a.stats.Record(field, actor)
	}

	record, schema, err := a.fetchRecord(r, id)
	if err != nil {
		writeError(w, err, requestID)
		return
	}
	writeJSON(w, http.StatusCreated, renderRecord(schema, record))
}

func (a *API) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	id, err := pathID(r)
	if err != nil {
		writeError(w, err, requestID)
		return
	}
	record, schema, err := a.fetchRecord(r, id)
	if err != nil {
		writeError(w, err, requestID)
		return
	}
	writeJSON(w, http.StatusOK, renderRecord(schema, record))
}

func (a *API) handleListRecords(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeErrorMessage(w, http.StatusBadRequest, "limit must be a positive integer", requestID)
			return
		}
		limit = n
	}
	filter := r.URL.Query().Get("filter")

	records, err := a.engine.ListRecords(r.Context(), a.tableName, filter, limit)
	if err != nil {
		writeError(w, err, requestID)
		return
	}
	schema, err := a.engine.ListColumns(r.Context(), a.tableName)
	if err != nil {
		writeError(w, err, requestID)
		return
	}

	rendered := make([]map[string]interface{}, 0, len(records))
	for i := range records {
		rendered = append(rendered, renderRecord(schema, &records[i]))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"records": rendered,
		"count":   len(rendered),
	})
}

func (a *API) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	id, err := pathID(r)
	if err != nil {
		writeError(w, err, requestID)
		return
	}
	values, err := decodeValues(r)
	if err != nil {
		writeError(w, err, requestID)
		return
	}

	actor := a.actor(r)
	if err := a.engine.UpdateRecord(r.Context(), a.tableName, id, values, actor); err != nil {
		writeError(w, err, requestID)
		return
	}
	for field := range values {
		a.stats.Record(field, actor)
	}

	record, schema, err := a.fetchRecord(r, id)
	if err != nil {
		writeError(w, err, requestID)
		return
	}
	writeJSON(w, http.StatusOK, renderRecord(schema, record))
}

func (a *API) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	id, err := pathID(r)
	if err != nil {
		writeError(w, err, requestID)
		return
	}
	if err := a.engine.DeleteRecord(r.Context(), a.tableName, id); err != nil {
		writeError(w, err, requestID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) fetchRecord(r *http.Request, id int64) (*types.Record, *types.TableSchema, error) {
	record, err := a.engine.GetRecord(r.Context(), a.tableName, id)
	if err != nil {
		return nil, nil, err
	}
	schema, err := a.engine.ListColumns(r.Context(), a.tableName)
	if err != nil {
		return nil, nil, err
	}
	return record, schema, nil
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.NewRecordError(errors.CodeRecordNotFound,
			fmt.Sprintf("invalid record id %q", raw))
	}
	return id, nil
}

// decodeValues reads a JSON object body into field values.
func decodeValues(r *http.Request) (map[string]types.Value, error) {
	var raw map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, errors.NewRecordError(errors.CodeTypeCoercionError,
			fmt.Sprintf("invalid request body: %v", err))
	}

	values := make(map[string]types.Value, len(raw))
	for name, v := range raw {
		value, err := valueFromJSON(name, v)
		if err != nil {
			return nil, err
		}
		values[name] = value
	}
	return values, nil
}

// valueFromJSON maps a decoded JSON value to a cell value. Type coercion
// against the column happens later in the engine; this only bridges JSON's
// type system.
func valueFromJSON(field string, v interface{}) (types.Value, error) {
	switch raw := v.(type) {
	case nil:
		return types.NullValue(), nil
	case bool:
		if raw {
			return types.IntValue(1), nil
		}
		return types.IntValue(0), nil
	case float64:
		return types.RealValue(raw), nil
	case string:
		return types.TextValue(raw), nil
	default:
		return types.Value{}, errors.NewRecordError(errors.CodeTypeCoercionError,
			fmt.Sprintf("field %s: unsupported value type", field))
	}
}

// renderRecord serializes a record against the current schema. Monetary
// cents columns render as two-decimal strings; blobs render as hex.
func renderRecord(schema *types.TableSchema, record *types.Record) map[string]interface{} {
	out := make(map[string]interface{}, len(schema.Columns))
	for _, col := range schema.Columns {
		v, ok := record.Fields[col.Name]
		if !ok || v.IsNull() {
			out[col.Name] = nil
			continue
		}

		if table.IsMoneyColumn(col.Name) {
			if _, isInt := v.Driver().(int64); isInt {
				out[col.Name] = table.RenderCents(v.Int())
				continue
			}
		}

		switch raw := v.Driver().(type) {
		case int64, float64, string:
			out[col.Name] = raw
		default:
			if c := v.Canonical(); c != nil {
				out[col.Name] = *c
			}
		}
	}
	return out
}
