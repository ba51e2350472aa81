package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"time"

	"github.com/timeforged/timeforged/internal/activity"
	"github.com/timeforged/timeforged/internal/metrics"
	"github.com/timeforged/timeforged/internal/report"
	"github.com/timeforged/timeforged/internal/store"
	"github.com/timeforged/timeforged/internal/watchlist"
)

// Version is reported by /api/v1/status.
var Version = "dev"

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// EventRequest is the body of POST /api/v1/events.
type EventRequest struct {
	Entity    string         `json:"entity"`
	Type      string         `json:"event_type"`
	Timestamp *time.Time     `json:"timestamp,omitempty"`
	Project   string         `json:"project,omitempty"`
	Language  string         `json:"language,omitempty"`
	Branch    string         `json:"branch,omitempty"`
	Activity  string         `json:"activity,omitempty"`
	Machine   string         `json:"machine,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// BatchRequest is the body of POST /api/v1/events/batch.
type BatchRequest struct {
	Events []EventRequest `json:"events"`
}

// StatusResponse is returned by /api/v1/status.
type StatusResponse struct {
	Status        string          `json:"status"`
	Version       string          `json:"version"`
	User          string          `json:"user"`
	Users         int             `json:"users"`
	Events        int64           `json:"events"`
	WatchedRoots  int             `json:"watched_roots"`
	WatchedDirs   int             `json:"watched_dirs"`
	Dropped       uint64          `json:"dropped_changes"`
	IdleTimeout   float64         `json:"idle_timeout_seconds"`
	Clients       int             `json:"clients"`
	UptimeSeconds float64         `json:"uptime_seconds"`
	LastEvent     *activity.Event `json:"last_event,omitempty"`
}

// WatchRequest is the body of POST and DELETE /api/v1/watch.
type WatchRequest struct {
	Path string `json:"path"`
}

// toEvent converts a request to an event owned by the server's user.
// Missing project and language are inferred from the entity.
func (s *Server) toEvent(req *EventRequest) *activity.Event {
	ev := &activity.Event{
		UserID:   s.cfg.UserID,
		Type:     activity.ParseEventType(req.Type),
		Entity:   req.Entity,
		Project:  req.Project,
		Language: req.Language,
		Branch:   req.Branch,
		Activity: activity.ParseActivityKind(req.Activity),
		Machine:  req.Machine,
		Metadata: req.Metadata,
	}
	if req.Type == "" {
		ev.Type = activity.EventTypeFile
	}
	if req.Timestamp != nil {
		ev.Timestamp = req.Timestamp.UTC()
	} else {
		ev.Timestamp = time.Now().UTC()
	}
	if ev.Machine == "" {
		ev.Machine = s.cfg.Machine
	}

	if ev.Type == activity.EventTypeFile {
		if ev.Project == "" {
			ev.Project = s.inferProject(ev.Entity)
		}
		if ev.Language == "" {
			if lang, ok := activity.LanguageFor(ev.Entity); ok {
				ev.Language = lang
			}
		}
	}
	return ev
}

func (s *Server) inferProject(entity string) string {
	if s.cfg.Watch != nil {
		if root, ok := s.cfg.Watch.Root(entity); ok {
			if p, ok := activity.ProjectUnderRoot(root, entity); ok {
				return p
			}
		}
	}
	if p, ok := activity.InferProject(entity); ok {
		return p
	}
	return ""
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ev := s.toEvent(&req)
	if err := ev.Validate(); err != nil {
		metrics.Rejected.Inc()
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if _, err := s.cfg.Store.InsertEvent(r.Context(), ev); err != nil {
		s.logger.Printf("Failed to insert event: %v", err)
		writeError(w, http.StatusInternalServerError, errors.New("failed to store event"))
		return
	}

	metrics.Events.WithLabelValues("api").Inc()
	s.PublishEvent(ev)
	writeJSON(w, http.StatusCreated, ev)
}

func (s *Server) handleCreateBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(req.Events) > store.MaxBatchSize {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %d events (max %d)", store.ErrBatchTooLarge, len(req.Events), store.MaxBatchSize))
		return
	}

	events := make([]*activity.Event, 0, len(req.Events))
	for i := range req.Events {
		events = append(events, s.toEvent(&req.Events[i]))
	}

	result, err := s.cfg.Store.InsertBatch(r.Context(), events)
	if err != nil {
		s.logger.Printf("Failed to insert batch: %v", err)
		writeError(w, http.StatusInternalServerError, errors.New("failed to store events"))
		return
	}

	metrics.Events.WithLabelValues("api").Add(float64(result.Accepted))
	metrics.Rejected.Add(float64(result.Rejected))
	for _, ev := range events {
		if ev.ID != 0 {
			s.PublishEvent(ev)
		}
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := StatusResponse{
		Status:        "ok",
		Version:       Version,
		User:          s.cfg.Username,
		Clients:       s.ClientCount(),
		UptimeSeconds: time.Since(s.started).Seconds(),
		IdleTimeout:   s.cfg.Reports.Engine().IdleTimeout().Seconds(),
	}
	if s.cfg.Capture != nil {
		resp.WatchedDirs = s.cfg.Capture.WatchedDirs()
		resp.Dropped = s.cfg.Capture.Dropped()
	}

	var err error
	if resp.Users, err = s.cfg.Store.CountUsers(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if resp.Events, err = s.cfg.Store.CountEvents(ctx, s.cfg.UserID); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if resp.LastEvent, err = s.cfg.Store.LatestEvent(ctx, s.cfg.UserID); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if s.cfg.Watch != nil {
		if entries, err := s.cfg.Watch.List(); err == nil {
			resp.WatchedRoots = len(entries)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	req, err := s.reportRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	summary, err := s.cfg.Reports.Summary(r.Context(), req)
	s.writeReport(w, summary, err)
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	req, err := s.reportRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sessions, err := s.cfg.Reports.Sessions(r.Context(), req)
	if sessions == nil {
		sessions = []activity.Session{}
	}
	s.writeReport(w, sessions, err)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	req, err := s.reportRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	hours, err := s.cfg.Reports.Activity(r.Context(), req)
	if hours == nil {
		hours = []activity.HourlyActivity{}
	}
	s.writeReport(w, hours, err)
}

func (s *Server) writeReport(w http.ResponseWriter, v any, err error) {
	switch {
	case errors.Is(err, report.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, err)
	case err != nil:
		s.logger.Printf("Report failed: %v", err)
		writeError(w, http.StatusInternalServerError, errors.New("failed to build report"))
	default:
		writeJSON(w, http.StatusOK, v)
	}
}

// reportRequest reads from, to and project from the query string.
func (s *Server) reportRequest(r *http.Request) (report.Request, error) {
	q := r.URL.Query()
	req := report.Request{
		UserID:  s.cfg.UserID,
		Project: q.Get("project"),
	}
	var err error
	if req.From, err = ParseTime(q.Get("from")); err != nil {
		return req, fmt.Errorf("invalid from: %w", err)
	}
	if req.To, err = ParseRangeEnd(q.Get("to")); err != nil {
		return req, fmt.Errorf("invalid to: %w", err)
	}
	return req, nil
}

// ParseTime accepts RFC3339 or a bare UTC date. Empty input yields the
// zero time.
func ParseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}

// ParseRangeEnd is ParseTime for the exclusive end of a range. A bare date
// names the whole day, so it resolves to the following midnight.
func ParseRangeEnd(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t.AddDate(0, 0, 1), nil
	}
	return ParseTime(s)
}

func (s *Server) handleListWatch(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Watch == nil {
		writeJSON(w, http.StatusOK, []watchlist.Entry{})
		return
	}
	entries, err := s.cfg.Watch.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if entries == nil {
		entries = []watchlist.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleAddWatch(w http.ResponseWriter, r *http.Request) {
	s.changeWatch(w, r, "watched", func(path string) (string, error) {
		return s.cfg.Watch.Watch(path)
	})
}

func (s *Server) handleRemoveWatch(w http.ResponseWriter, r *http.Request) {
	s.changeWatch(w, r, "unwatched", func(path string) (string, error) {
		return s.cfg.Watch.Unwatch(path)
	})
}

func (s *Server) changeWatch(w http.ResponseWriter, r *http.Request, action string, apply func(string) (string, error)) {
	if s.cfg.Watch == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("watching is not enabled"))
		return
	}

	var req WatchRequest
	if p := r.URL.Query().Get("path"); p != "" {
		req.Path = p
	} else if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, errors.New("path is required"))
		return
	}

	path, err := apply(req.Path)
	switch {
	case errors.Is(err, watchlist.ErrNotWatched):
		writeError(w, http.StatusNotFound, err)
		return
	case errors.Is(err, watchlist.ErrNotDirectory), errors.Is(err, fs.ErrNotExist):
		writeError(w, http.StatusBadRequest, err)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.PublishWatch(path, action)
	writeJSON(w, http.StatusOK, WatchChangedData{Path: path, Action: action})
}

// decodeBody decodes a bounded JSON body into v.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}
