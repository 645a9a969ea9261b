package web

import (
	"context"
	"html/template"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/justestif/go-music-muse/internal/db"
	"github.com/justestif/go-music-muse/internal/logging"
	"github.com/justestif/go-music-muse/internal/query"
)

const userIDHeader = "X-User-ID"

// Answerer runs and renders questions. *engine.Engine implements it.
type Answerer interface {
	ExecuteQuery(ctx context.Context, text, userID string) (query.ParsedQuery, []db.Row)
	FormatResponse(q query.ParsedQuery, rows []db.Row) string
}

// EventLister lists a user's life events.
type EventLister interface {
	ListForUser(ctx context.Context, userID string) ([]db.Event, error)
}

// Pinger reports store reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

var defaultSuggestions = []string{
	"When did I first listen to Frank Ocean?",
	"What are my top songs after 8PM?",
	"What are my top 10 tracks during the summer of 2023?",
	"What percentage of my Drake plays were skipped?",
	"Which artists did I skip the most on Thursdays?",
	"What is the 50th song I listened to?",
	"What was the last album I played?",
}

// questionRequest is a question as received over HTTP.
type questionRequest struct {
	Question string `validate:"required,max=500"`
	UserID   string `validate:"omitempty,max=128"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Handlers contains HTTP handlers for the web application.
type Handlers struct {
	engine    Answerer
	events    EventLister
	health    Pinger
	templates *Templates
}

// NewHandlers creates a new Handlers instance. events and health may be nil.
func NewHandlers(engine Answerer, events EventLister, health Pinger, templates *Templates) *Handlers {
	return &Handlers{
		engine:    engine,
		events:    events,
		health:    health,
		templates: templates,
	}
}

// Home handles the home page (GET /).
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	data := HomePageData{
		PageData: PageData{
			Title:       "Music Muse",
			CurrentPath: r.URL.Path,
			UserID:      userID,
		},
		Suggestions: append([]string(nil), defaultSuggestions...),
	}

	if userID != "" && h.events != nil {
		events, err := h.events.ListForUser(r.Context(), userID)
		if err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Msg("listing events for suggestions")
		}
		for _, ev := range events {
			data.Events = append(data.Events, eventData(ev))
			data.Suggestions = append(data.Suggestions,
				"What were my top songs during my "+strings.ToLower(ev.Name)+"?")
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.Render(w, "home", data); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("rendering home")
		http.Error(w, "Failed to render template", http.StatusInternalServerError)
		return
	}
}

// Ask answers a question submitted from the form and returns an HTML fragment (POST /ask).
func (h *Handlers) Ask(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	req := questionRequest{
		Question: strings.TrimSpace(r.PostForm.Get("q")),
		UserID:   userIDFrom(r),
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, "Please ask a question of at most 500 characters", http.StatusBadRequest)
		return
	}

	q, rows := h.engine.ExecuteQuery(r.Context(), req.Question, req.UserID)
	data := AnswerData{
		Question: req.Question,
		HTML:     template.HTML(h.engine.FormatResponse(q, rows)), //nolint:gosec // values are escaped by the formatter
		Rules:    q.Fired(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.RenderPartial(w, "answer", data); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("rendering answer")
		http.Error(w, "Failed to render template", http.StatusInternalServerError)
		return
	}
}

// apiResponse is the body of GET /api/query.
type apiResponse struct {
	Parsed query.ParsedQuery `json:"parsed"`
	HTML   string            `json:"html"`
}

type apiError struct {
	Error string `json:"error"`
}

// APIQuery answers a question as JSON (GET /api/query?q=...&user_id=...).
func (h *Handlers) APIQuery(w http.ResponseWriter, r *http.Request) {
	req := questionRequest{
		Question: strings.TrimSpace(r.URL.Query().Get("q")),
		UserID:   userIDFrom(r),
	}
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "q is required and must be at most 500 characters"})
		return
	}

	q, rows := h.engine.ExecuteQuery(r.Context(), req.Question, req.UserID)
	writeJSON(w, http.StatusOK, apiResponse{
		Parsed: q,
		HTML:   h.engine.FormatResponse(q, rows),
	})
}

// Health reports whether the store is reachable (GET /healthz).
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health.Ping(r.Context()); err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Msg("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// userIDFrom reads the caller's user id from the header, then the query or form.
func userIDFrom(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(userIDHeader)); id != "" {
		return id
	}
	return strings.TrimSpace(r.FormValue("user_id"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error().Err(err).Msg("encoding JSON response")
	}
}

func eventData(ev db.Event) EventData {
	data := EventData{Name: ev.Name, StartDate: ev.StartDate}
	if ev.EndDate != nil {
		data.EndDate = *ev.EndDate
	} else {
		data.Ongoing = true
	}
	return data
}
