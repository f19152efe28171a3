package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/coder/websocket"

	"github.com/jamesainslie/roster/pkg/roster/cycle"
	"github.com/jamesainslie/roster/pkg/roster/filter"
	"github.com/jamesainslie/roster/pkg/roster/logging"
	"github.com/jamesainslie/roster/pkg/roster/store"
	"github.com/jamesainslie/roster/pkg/roster/types"
)

// Query limits for the list-shaped endpoints.
const (
	defaultSearchLimit = 200
	maxSearchLimit     = 1000
	defaultRecentLimit = 50
	defaultLogLines    = 100
	maxLogLines        = 1000
)

// writeTimeout bounds a single websocket event write.
const writeTimeout = 5 * time.Second

// routes builds the API mux. Literal segments win over the {name}
// wildcard, so search, recent, and types never shadow a record lookup.
func (s *Service) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/config", s.handleConfig)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/logs", s.handleLogs)
	mux.HandleFunc("GET /api/events", s.handleEvents)

	mux.HandleFunc("GET /api/tools", s.handleTools)
	mux.HandleFunc("GET /api/tools/search", s.handleSearch)
	mux.HandleFunc("GET /api/tools/recent", s.handleRecent)
	mux.HandleFunc("GET /api/tools/types", s.handleTypes)
	mux.HandleFunc("GET /api/tools/{name}", s.handleGetTool)
	mux.HandleFunc("PATCH /api/tools/{name}", s.handlePatchTool)
	mux.HandleFunc("POST /api/tools/batch-update", s.handleBatchUpdate)

	mux.HandleFunc("POST /api/regenerate", s.handleRegenerate)

	return mux
}

// apiError is the envelope every failing endpoint returns.
type apiError struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Get("server").Error("encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, apiError{Error: msg})
}

// parseLimit parses a limit query parameter, applying def when absent
// and clamping to max.
func parseLimit(raw string, def, max int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	if n > max {
		n = max
	}
	return n, nil
}

// toolsResponse is the shape of every record-list endpoint. Total counts
// matches before the limit was applied.
type toolsResponse struct {
	Tools []types.Record `json:"tools"`
	Total int            `json:"total"`
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.Count(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"backend": s.cfg.Store.Backend,
		"records": count,
	})
}

// handleConfig reports the effective configuration with path defaults
// resolved. Only operational settings are exposed.
func (s *Service) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"store": map[string]interface{}{
			"backend": s.cfg.Store.Backend,
			"path":    s.cfg.StorePath(),
		},
		"manifests": map[string]interface{}{
			"dir": s.cfg.Manifests.Dir,
		},
		"snapshot": map[string]interface{}{
			"path": s.cfg.SnapshotPath(),
		},
		"journal": map[string]interface{}{
			"enabled":        s.cfg.Journal.Enabled,
			"path":           s.cfg.JournalDir(),
			"retention_days": s.cfg.Journal.RetentionDays,
		},
		"describe": map[string]interface{}{
			"providers": s.cfg.Describe.Providers,
		},
		"server": map[string]interface{}{
			"addr": s.cfg.ServerAddr(),
		},
		"watch": map[string]interface{}{
			"enabled":  s.cfg.Watch.Enabled,
			"debounce": s.cfg.Watch.Debounce.String(),
		},
	})
}

func (s *Service) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.Status(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Service) handleTools(w http.ResponseWriter, r *http.Request) {
	recs, err := s.store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toolsResponse{Tools: recs, Total: len(recs)})
}

// buildFilter translates search parameters into a record filter. The q
// parameter accepts the same grammar as the CLI's --filter flag, and the
// type parameter may repeat to widen the match.
func buildFilter(q url.Values) (*filter.Filter, error) {
	f, err := filter.Parse(q.Get("q"))
	if err != nil {
		return nil, err
	}

	for _, raw := range q["type"] {
		typ, err := types.ParseType(raw)
		if err != nil {
			return nil, err
		}
		f.Types = append(f.Types, typ)
	}

	if raw := q.Get("edited"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("edited wants true or false, got %q", raw)
		}
		f.Edited = &v
	}

	return f, nil
}

func (s *Service) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	f, err := buildFilter(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit, err := parseLimit(q.Get("limit"), defaultSearchLimit, maxSearchLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	recs, err := s.store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	matched := f.Apply(recs)
	total := len(matched)
	if len(matched) > limit {
		matched = matched[:limit]
	}

	writeJSON(w, http.StatusOK, toolsResponse{Tools: matched, Total: total})
}

// handleRecent lists user-edited records, most recently edited first.
func (s *Service) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"), defaultRecentLimit, maxSearchLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	recs, err := s.store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var edited []types.Record
	for _, rec := range recs {
		if rec.UserEdited {
			edited = append(edited, rec)
		}
	}

	sort.SliceStable(edited, func(i, j int) bool {
		ti, tj := edited[i].LastEdited, edited[j].LastEdited
		switch {
		case ti == nil:
			return false
		case tj == nil:
			return true
		default:
			return ti.After(*tj)
		}
	})

	total := len(edited)
	if len(edited) > limit {
		edited = edited[:limit]
	}

	writeJSON(w, http.StatusOK, toolsResponse{Tools: edited, Total: total})
}

func (s *Service) handleTypes(w http.ResponseWriter, r *http.Request) {
	recs, err := s.store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	counts := make(map[string]int)
	for _, rec := range recs {
		counts[string(rec.Type)]++
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"types": counts,
		"total": len(recs),
	})
}

func (s *Service) handleGetTool(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	rec, err := s.store.Get(r.Context(), name)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no record named %q", name))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// editRequest is the PATCH body. An absent field stays untouched; an
// empty string is an explicit clear.
type editRequest struct {
	Description *string `json:"description"`
	Example     *string `json:"example"`
}

func (s *Service) handlePatchTool(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var req editRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid edit body: "+err.Error())
		return
	}

	rec, err := s.ApplyEdit(r.Context(), name, store.EditFields{
		Description: req.Description,
		Example:     req.Example,
	})
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, fmt.Sprintf("no record named %q", name))
	case errors.Is(err, store.ErrNoFields):
		writeError(w, http.StatusBadRequest, "edit names no fields")
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, rec)
	}
}

// batchItem is one entry in a batch-update request.
type batchItem struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Example     *string `json:"example"`
}

// batchResult reports one item's outcome.
type batchResult struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// handleBatchUpdate applies several edits in one request. Items fail
// independently; any failure turns the response into a 207 with
// per-item results.
func (s *Service) handleBatchUpdate(w http.ResponseWriter, r *http.Request) {
	var items []batchItem
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&items); err != nil {
		writeError(w, http.StatusBadRequest, "invalid batch body: "+err.Error())
		return
	}
	if len(items) == 0 {
		writeError(w, http.StatusBadRequest, "batch is empty")
		return
	}

	results := make([]batchResult, 0, len(items))
	failed := 0
	for _, item := range items {
		res := batchResult{Name: item.Name, OK: true}
		_, err := s.ApplyEdit(r.Context(), item.Name, store.EditFields{
			Description: item.Description,
			Example:     item.Example,
		})
		if err != nil {
			res.OK = false
			res.Error = err.Error()
			failed++
		}
		results = append(results, res)
	}

	status := http.StatusOK
	if failed > 0 {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, map[string]interface{}{
		"results": results,
		"applied": len(items) - failed,
		"failed":  failed,
	})
}

// cycleResponse shapes a cycle result for the wire.
type cycleResponse struct {
	Status       string   `json:"status"`
	Forced       bool     `json:"forced,omitempty"`
	DryRun       bool     `json:"dry_run,omitempty"`
	Changed      []string `json:"changed,omitempty"`
	WouldUpdate  bool     `json:"would_update,omitempty"`
	Merged       int      `json:"merged"`
	RecordErrors []string `json:"record_errors,omitempty"`
	SnapshotPath string   `json:"snapshot_path,omitempty"`
	DurationMS   int64    `json:"duration_ms"`
	Error        string   `json:"error,omitempty"`
}

func newCycleResponse(res cycle.Result) cycleResponse {
	out := cycleResponse{
		Status:       string(res.Status),
		Forced:       res.Forced,
		DryRun:       res.DryRun,
		WouldUpdate:  res.WouldUpdate,
		Merged:       res.Merged,
		SnapshotPath: res.SnapshotPath,
		DurationMS:   res.Duration.Milliseconds(),
	}
	for _, ch := range res.Changed {
		out.Changed = append(out.Changed, ch.String())
	}
	for _, re := range res.RecordErrors {
		out.RecordErrors = append(out.RecordErrors, re.String())
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	return out
}

// handleRegenerate runs an update cycle. Lock contention with another
// process maps to 409; in-process callers queue on the sync guard
// instead and never see it.
func (s *Service) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	var opts cycle.Options

	q := r.URL.Query()
	if raw := q.Get("force"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("force wants true or false, got %q", raw))
			return
		}
		opts.Force = v
	}
	if raw := q.Get("dry_run"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("dry_run wants true or false, got %q", raw))
			return
		}
		opts.DryRun = v
	}

	res, err := s.RunCycle(r.Context(), opts)
	switch {
	case errors.Is(err, cycle.ErrLockHeld):
		writeJSON(w, http.StatusConflict, newCycleResponse(res))
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, newCycleResponse(res))
	default:
		writeJSON(w, http.StatusOK, newCycleResponse(res))
	}
}

// logLine is one buffered log entry on the wire.
type logLine struct {
	Time      time.Time `json:"time"`
	Level     string    `json:"level"`
	Component string    `json:"component"`
	Message   string    `json:"message"`
}

func (s *Service) handleLogs(w http.ResponseWriter, r *http.Request) {
	n, err := parseLimit(r.URL.Query().Get("n"), defaultLogLines, maxLogLines)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	lines := []logLine{}
	if buf := logging.GetBuffer(); buf != nil {
		for _, e := range buf.Last(n) {
			lines = append(lines, logLine{
				Time:      e.Time,
				Level:     e.Level.String(),
				Component: e.Component,
				Message:   e.Message,
			})
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"lines": lines})
}

// handleEvents upgrades to a websocket and streams catalog events until
// the client disconnects or the daemon shuts down.
func (s *Service) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	sub := s.broadcaster.Subscribe()
	if sub == nil {
		_ = conn.Close(websocket.StatusGoingAway, "shutting down")
		return
	}
	defer s.broadcaster.Unsubscribe(sub.ID)

	s.log.Debug("event subscriber connected", "id", sub.ID)

	// The read loop only detects disconnects; clients send nothing.
	readCtx, cancelRead := context.WithCancel(r.Context())
	defer cancelRead()
	go func() {
		defer cancelRead()
		for {
			if _, _, err := conn.Read(readCtx); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-readCtx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return

		case event, ok := <-sub.Events:
			if !ok {
				_ = conn.Close(websocket.StatusGoingAway, "shutting down")
				return
			}

			data, err := json.Marshal(event)
			if err != nil {
				continue
			}

			writeCtx, cancel := context.WithTimeout(readCtx, writeTimeout)
			err = conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				s.log.Debug("event subscriber dropped", "id", sub.ID)
				return
			}
		}
	}
}
