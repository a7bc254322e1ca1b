package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/driftworks/sqlbridge"
	"github.com/driftworks/sqlbridge/internal/pool"
)

type queryRequest struct {
	Statement string `json:"statement"`
	Args      []any  `json:"args"`
	Limit     int    `json:"limit"`
}

type executeRequest struct {
	Statement string  `json:"statement"`
	Args      []any   `json:"args"`
	ArgSets   [][]any `json:"arg_sets"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleListConnections(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"connections": s.pool.Names()})
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	conn, ok := s.connection(w, r)
	if !ok {
		return
	}
	if err := conn.Ping(r.Context()); err != nil {
		log.Error().Err(err).Str("dsn", conn.Redacted()).Msg("Ping failed")
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// handleQuery runs a statement and returns rows. With a limit, the cursor
// stays open and an identical request pages onward instead of
// re-executing.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	conn, ok := s.connection(w, r)
	if !ok {
		return
	}

	var req queryRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var (
		rows []sqlbridge.Row
		err  error
	)
	if req.Limit > 0 {
		// The cursor must outlive this request so an identical call can
		// page onward; request cancellation would close it.
		ctx := context.WithoutCancel(r.Context())
		rows, err = conn.FetchMany(ctx, req.Statement, req.Limit, req.Args...)
	} else {
		rows, err = conn.FetchAll(r.Context(), req.Statement, req.Args...)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if rows == nil {
		rows = []sqlbridge.Row{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": rows, "count": len(rows)})
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	conn, ok := s.connection(w, r)
	if !ok {
		return
	}

	var req executeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var err error
	if len(req.ArgSets) > 0 {
		err = conn.ExecuteMany(r.Context(), req.Statement, req.ArgSets)
	} else {
		err = conn.Execute(r.Context(), req.Statement, req.Args...)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) connection(w http.ResponseWriter, r *http.Request) (*sqlbridge.Connector, bool) {
	name := chi.URLParam(r, "name")
	conn, err := s.pool.Get(name)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, pool.ErrUnknownConnection) {
			status = http.StatusNotFound
		}
		writeError(w, status, err.Error())
		return nil, false
	}
	return conn, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	if statement := statementOf(dst); statement == "" {
		writeError(w, http.StatusBadRequest, "statement is required")
		return false
	}
	return true
}

func statementOf(req any) string {
	switch v := req.(type) {
	case *queryRequest:
		return strings.TrimSpace(v.Statement)
	case *executeRequest:
		return strings.TrimSpace(v.Statement)
	default:
		return ""
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}