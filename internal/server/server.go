// Package server exposes the schedule over HTTP: the transformed view, the
// raw records, and the semantic slot mutations the grid performs.
package server

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/eetulauri/dash-gantt/internal/events"
	"github.com/eetulauri/dash-gantt/internal/export"
	"github.com/eetulauri/dash-gantt/internal/predict"
	"github.com/eetulauri/dash-gantt/internal/schedule"
	"github.com/eetulauri/dash-gantt/internal/store"
	"github.com/eetulauri/dash-gantt/internal/widget"
)

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Options configures a Server.
type Options struct {
	DB     *store.DB
	Redis  *redis.Client
	Logger zerolog.Logger

	CacheTTL           time.Duration
	RateLimitPerSec    int
	RateLimitBurst     int
	StartHour          int
	EndHour            int
	CellDuration       int
	DefaultSlotMinutes int
}

// Server handles the schedule API. Each mutation loads the day's records,
// replays it through the widget core, and persists the reconciled list.
type Server struct {
	logger   zerolog.Logger
	db       *store.DB
	cache    *ViewCache
	bus      *events.EventBus
	limiters *rateLimiterStore
	model    *predict.Model

	startHour    int
	endHour      int
	cellDuration int
	slotMinutes  int
}

// New builds a server and subscribes it to schedule-change events so a
// mutation from any path busts the cached view for its date.
func New(opts Options) *Server {
	if opts.RateLimitPerSec <= 0 {
		opts.RateLimitPerSec = 20
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = 40
	}

	s := &Server{
		logger:       opts.Logger,
		db:           opts.DB,
		cache:        NewViewCache(opts.Redis, opts.CacheTTL),
		bus:          events.NewEventBus(),
		limiters:     newRateLimiterStore(opts.RateLimitPerSec, opts.RateLimitBurst),
		model:        predict.New(rand.New(rand.NewSource(time.Now().UnixNano()))),
		startHour:    opts.StartHour,
		endHour:      opts.EndHour,
		cellDuration: opts.CellDuration,
		slotMinutes:  opts.DefaultSlotMinutes,
	}

	for _, eventType := range []string{
		events.TypeSlotCreated, events.TypeSlotMoved, events.TypeSlotResized, events.TypeSlotDeleted,
	} {
		s.bus.Subscribe(eventType, func(e events.Event) error {
			s.cache.Invalidate(context.Background(), e.Date)
			return nil
		})
	}
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/schedule", s.handleSchedule)
	mux.HandleFunc("/api/v1/records", s.handleRecords)
	mux.HandleFunc("/api/v1/slots", s.handleSlots)
	mux.HandleFunc("/api/v1/slots/", s.handleSlotByID)
	mux.HandleFunc("/api/v1/probabilities", s.handleProbabilities)
	mux.HandleFunc("/api/v1/export", s.handleExport)
	mux.HandleFunc("/api/v1/import", s.handleImport)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/readyz", s.handleReadyz)
	return s.logRequests(s.rateLimit(mux))
}

// widgetForDate loads one day's records into a fresh widget instance.
func (s *Server) widgetForDate(ctx context.Context, date string) (*widget.Widget, error) {
	records, err := s.db.ListByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	w := widget.New(widget.Options{
		Date:               date,
		StartHour:          s.startHour,
		EndHour:            s.endHour,
		CellDuration:       s.cellDuration,
		DefaultSlotMinutes: s.slotMinutes,
		Bus:                s.bus,
		Logger:             &s.logger,
	})
	w.SetRecords(records)
	return w, nil
}

// mutate replays a widget mutation for one date and persists the result.
func (s *Server) mutate(ctx context.Context, date string, fn func(*widget.Widget) bool) (schedule.View, bool, error) {
	w, err := s.widgetForDate(ctx, date)
	if err != nil {
		return schedule.View{}, false, err
	}
	if !fn(w) {
		return w.View(), false, nil
	}
	if err := s.db.ReplaceDate(ctx, date, w.Records()); err != nil {
		return schedule.View{}, false, err
	}
	s.cache.Invalidate(ctx, date)
	return w.View(), true, nil
}

// GET /api/v1/schedule?date=YYYY-MM-DD
func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	date, ok := requireDate(w, r)
	if !ok {
		return
	}

	var view schedule.View
	if s.cache.Read(r.Context(), date, &view) {
		writeJSON(w, http.StatusOK, view)
		return
	}

	records, err := s.db.ListByDate(r.Context(), date)
	if err != nil {
		s.logger.Error().Err(err).Str("date", date).Msg("load records")
		writeError(w, http.StatusInternalServerError, "failed to load schedule")
		return
	}
	view = schedule.Transform(records, date)
	s.cache.Write(r.Context(), date, view)
	writeJSON(w, http.StatusOK, view)
}

// GET /api/v1/records?date=  |  PUT /api/v1/records
func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		date := r.URL.Query().Get("date")
		var (
			records []schedule.Record
			err     error
		)
		if date == "" {
			records, err = s.db.ListAll(r.Context())
		} else if !dateRe.MatchString(date) {
			writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
			return
		} else {
			records, err = s.db.ListByDate(r.Context(), date)
		}
		if err != nil {
			s.logger.Error().Err(err).Msg("list records")
			writeError(w, http.StatusInternalServerError, "failed to load records")
			return
		}
		if records == nil {
			records = []schedule.Record{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"records": records})

	case http.MethodPut:
		// Accepts a change notification as emitted by the grid.
		var notification widget.ChangeNotification
		decoder := json.NewDecoder(r.Body)
		if err := decoder.Decode(&notification); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if !dateRe.MatchString(notification.Date) {
			writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
			return
		}
		if err := s.db.ReplaceDate(r.Context(), notification.Date, notification.Records); err != nil {
			s.logger.Error().Err(err).Str("date", notification.Date).Msg("replace records")
			writeError(w, http.StatusInternalServerError, "failed to store records")
			return
		}
		s.cache.Invalidate(r.Context(), notification.Date)
		s.logger.Info().
			Str("change_id", notification.ID.String()).
			Str("date", notification.Date).
			Int("records", len(notification.Records)).
			Msg("records replaced")
		writeJSON(w, http.StatusOK, map[string]any{"success": true})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// CreateSlotRequest is the body for POST /api/v1/slots. With no end time
// the slot gets the configured default length.
type CreateSlotRequest struct {
	Date           string `json:"date"`
	ProfessionalID int    `json:"professional_id"`
	Start          string `json:"start"`
	End            string `json:"end,omitempty"`
}

// POST /api/v1/slots
func (s *Server) handleSlots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req CreateSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !dateRe.MatchString(req.Date) {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	view, applied, err := s.mutate(r.Context(), req.Date, func(wg *widget.Widget) bool {
		if req.End == "" {
			return wg.ClickCreate(req.ProfessionalID, req.Start)
		}
		return wg.CreateRange(req.ProfessionalID, req.Start, req.End)
	})
	if err != nil {
		s.logger.Error().Err(err).Str("date", req.Date).Msg("create slot")
		writeError(w, http.StatusInternalServerError, "failed to create slot")
		return
	}
	if !applied {
		writeError(w, http.StatusUnprocessableEntity, "slot rejected")
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// UpdateSlotRequest is the body for PATCH /api/v1/slots/{id}.
type UpdateSlotRequest struct {
	Date   string `json:"date"`
	Start  string `json:"start"`
	End    string `json:"end"`
	Action string `json:"action,omitempty"` // "move" (default) or "resize"
}

// PATCH or DELETE /api/v1/slots/{id}
func (s *Server) handleSlotByID(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/v1/slots/")
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid slot id")
		return
	}

	switch r.Method {
	case http.MethodPatch:
		var req UpdateSlotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if !dateRe.MatchString(req.Date) {
			writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
			return
		}

		view, applied, err := s.mutate(r.Context(), req.Date, func(wg *widget.Widget) bool {
			if req.Action == "resize" {
				return wg.ResizeSlot(id, req.Start, req.End)
			}
			return wg.MoveSlot(id, req.Start, req.End)
		})
		if err != nil {
			s.logger.Error().Err(err).Int("slot_id", id).Msg("update slot")
			writeError(w, http.StatusInternalServerError, "failed to update slot")
			return
		}
		if !applied {
			writeError(w, http.StatusUnprocessableEntity, "slot update rejected")
			return
		}
		writeJSON(w, http.StatusOK, view)

	case http.MethodDelete:
		date := r.URL.Query().Get("date")
		if !dateRe.MatchString(date) {
			writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
			return
		}

		view, applied, err := s.mutate(r.Context(), date, func(wg *widget.Widget) bool {
			return wg.DeleteSlot(id)
		})
		if err != nil {
			s.logger.Error().Err(err).Int("slot_id", id).Msg("delete slot")
			writeError(w, http.StatusInternalServerError, "failed to delete slot")
			return
		}
		if !applied {
			writeError(w, http.StatusUnprocessableEntity, "slot delete rejected")
			return
		}
		writeJSON(w, http.StatusOK, view)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// POST /api/v1/probabilities?date=
func (s *Server) handleProbabilities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	date, ok := requireDate(w, r)
	if !ok {
		return
	}

	records, err := s.db.ListByDate(r.Context(), date)
	if err != nil {
		s.logger.Error().Err(err).Str("date", date).Msg("load records for scoring")
		writeError(w, http.StatusInternalServerError, "failed to load records")
		return
	}

	view := schedule.Transform(records, date)
	view.Timeslots = s.model.Score(view)
	records = schedule.Reconcile(view.Timeslots, records, view.Professionals, date)

	if err := s.db.ReplaceDate(r.Context(), date, records); err != nil {
		s.logger.Error().Err(err).Str("date", date).Msg("store scored records")
		writeError(w, http.StatusInternalServerError, "failed to store probabilities")
		return
	}
	s.cache.Invalidate(r.Context(), date)
	writeJSON(w, http.StatusOK, view)
}

// GET /api/v1/export?date=
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	date, ok := requireDate(w, r)
	if !ok {
		return
	}

	records, err := s.db.ListByDate(r.Context(), date)
	if err != nil {
		s.logger.Error().Err(err).Str("date", date).Msg("load records for export")
		writeError(w, http.StatusInternalServerError, "failed to load records")
		return
	}
	view := schedule.Transform(records, date)

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="schedule-`+date+`.xlsx"`)
	if err := export.DaySheet(w, date, view); err != nil {
		s.logger.Error().Err(err).Str("date", date).Msg("write export")
	}
}

// POST /api/v1/import with a CSV body.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	n, err := s.db.ImportCSV(r.Context(), r.Body)
	if err != nil {
		s.logger.Error().Err(err).Msg("csv import")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.cache.InvalidateAll(r.Context())
	s.logger.Info().Int("records", n).Msg("csv imported")
	writeJSON(w, http.StatusOK, map[string]any{"imported": n})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func requireDate(w http.ResponseWriter, r *http.Request) (string, bool) {
	date := r.URL.Query().Get("date")
	if !dateRe.MatchString(date) {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return "", false
	}
	return date, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
