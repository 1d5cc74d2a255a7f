package web

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"wbs-cli/internal/docs"
	"wbs-cli/internal/engine"
	"wbs-cli/internal/model"
	"wbs-cli/internal/mutate"
	"wbs-cli/internal/outline"
	"wbs-cli/internal/store"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var assetsFS embed.FS

type ServerConfig struct {
	Engine *engine.Engine
	Logger *zap.Logger
	// AllowedOrigins for CORS; empty allows any origin without credentials.
	AllowedOrigins []string
}

// Server exposes one engine over HTTP. Requests that touch the engine are serialized in
// arrival order.
type Server struct {
	mu      sync.Mutex
	eng     *engine.Engine
	log     *zap.Logger
	origins []string
	tmpl    *template.Template
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Engine == nil {
		return nil, errors.New("web: missing engine")
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"indent": func(depth int) string { return fmt.Sprintf("%.1f", 0.5+1.25*float64(depth)) },
	}).ParseFS(assetsFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Server{eng: cfg.Engine, log: log, origins: cfg.AllowedOrigins, tmpl: tmpl}, nil
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(s.log))

	origins := s.origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	if m := s.eng.Metrics(); m != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))
	}

	r.Get("/", s.handleHome)
	r.Get("/help/{topic}", s.handleHelp)

	r.Get("/rows", s.handleRows)
	r.Get("/codes", s.handleCodes)
	r.Get("/tree", s.handleTree)

	r.Post("/drop", s.handleDrop)
	r.Post("/move", s.handleMove)
	r.Route("/drag", func(r chi.Router) {
		r.Post("/start", s.handleDragStart)
		r.Post("/over", s.handleDragOver)
		r.Post("/end", s.handleDragEnd)
		r.Post("/cancel", s.handleDragCancel)
	})
	r.Post("/collapse/{id}", s.handleCollapse)
	r.Post("/collapse-all", s.handleCollapseAll)
	r.Post("/reset", s.handleReset)
	r.Put("/policy", s.handlePolicy)
	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("requestID", chimiddleware.GetReqID(r.Context())),
			)
		})
	}
}

type dropRequest struct {
	Source string  `json:"source" validate:"required"`
	Over   string  `json:"over" validate:"required"`
	Offset float64 `json:"offset"`
	Half   string  `json:"half" validate:"omitempty,oneof=auto upper lower"`
}

type moveRequest struct {
	Source string `json:"source" validate:"required"`
	Parent string `json:"parent"`
	Index  int    `json:"index"`
}

type dragStartRequest struct {
	Source string `json:"source" validate:"required"`
}

type dragOverRequest struct {
	Over   string  `json:"over"`
	Offset float64 `json:"offset"`
	Half   string  `json:"half" validate:"omitempty,oneof=auto upper lower"`
}

type collapseRequest struct {
	Collapsed *bool `json:"collapsed"`
}

type policyRequest struct {
	Policy string `json:"policy" validate:"required,oneof=free sibling"`
}

type editResponse struct {
	Outcome engine.Outcome `json:"outcome"`
	Rows    []outline.Row  `json:"rows"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{"status": "healthy"})
}

type homeVM struct {
	Title  string
	Policy string
	Total  int
	Rows   []outline.Row
	Help   template.HTML
	Topics []string
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	var vm homeVM
	s.locked(func() {
		vm = homeVM{
			Title:  s.eng.Title(),
			Policy: s.eng.Policy().Name(),
			Total:  s.eng.Tree().Len(),
			Rows:   s.eng.Rows(),
		}
	})
	vm.Help = renderHelp("policies", docs.MustGet("policies")).Body
	vm.Topics = docs.Topics()
	if vm.Title == "" {
		vm.Title = "Work breakdown"
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, "index.html", vm); err != nil {
		s.log.Error("render home", zap.Error(err))
	}
}

func (s *Server) handleHelp(w http.ResponseWriter, r *http.Request) {
	topic := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "topic")))
	body, ok := docs.Get(topic)
	if !ok {
		s.respondError(w, http.StatusNotFound, "unknown topic")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, "help.html", renderHelp(topic, body)); err != nil {
		s.log.Error("render help", zap.String("topic", topic), zap.Error(err))
	}
}

func (s *Server) handleRows(w http.ResponseWriter, r *http.Request) {
	var rows []outline.Row
	s.locked(func() { rows = s.eng.Rows() })
	s.respondData(w, http.StatusOK, rows)
}

func (s *Server) handleCodes(w http.ResponseWriter, r *http.Request) {
	var codes map[string]string
	s.locked(func() { codes = s.eng.Codes() })
	s.respondData(w, http.StatusOK, codes)
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	var snap *model.Snapshot
	s.locked(func() { snap = s.eng.Snapshot() })
	s.respondData(w, http.StatusOK, snap)
}

func (s *Server) handleDrop(w http.ResponseWriter, r *http.Request) {
	var req dropRequest
	if !s.decode(w, r, &req) {
		return
	}
	half, _ := mutate.ParseHalf(req.Half)

	var resp editResponse
	s.locked(func() {
		src, over := s.ref(req.Source), s.ref(req.Over)
		out := s.eng.Drop(mutate.Drop{SourceID: src, OverID: over, OffsetX: req.Offset, Half: half})
		resp = editResponse{Outcome: out, Rows: s.eng.Rows()}
	})
	s.respondData(w, statusFor(resp.Outcome), resp)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if !s.decode(w, r, &req) {
		return
	}
	var resp editResponse
	s.locked(func() {
		parent, ok := s.eng.ResolveParent(req.Parent)
		if !ok {
			parent = req.Parent
		}
		out := s.eng.Move(s.ref(req.Source), parent, req.Index)
		resp = editResponse{Outcome: out, Rows: s.eng.Rows()}
	})
	s.respondData(w, statusFor(resp.Outcome), resp)
}

func (s *Server) handleDragStart(w http.ResponseWriter, r *http.Request) {
	var req dragStartRequest
	if !s.decode(w, r, &req) {
		return
	}
	var ok bool
	var state string
	s.locked(func() {
		ok = s.eng.DragStart(s.ref(req.Source))
		state = s.eng.Gesture().String()
	})
	if !ok {
		s.respondError(w, http.StatusConflict, "cannot start dragging "+req.Source)
		return
	}
	s.respondData(w, http.StatusOK, map[string]any{"state": state})
}

func (s *Server) handleDragOver(w http.ResponseWriter, r *http.Request) {
	var req dragOverRequest
	if !s.decode(w, r, &req) {
		return
	}
	half, _ := mutate.ParseHalf(req.Half)
	var over string
	var ok bool
	s.locked(func() {
		if strings.TrimSpace(req.Over) != "" {
			over = s.ref(req.Over)
		}
		ok = s.eng.DragOver(over, req.Offset, half)
	})
	if !ok {
		s.respondError(w, http.StatusConflict, "no drag in progress")
		return
	}
	s.respondData(w, http.StatusOK, map[string]any{"over": over})
}

func (s *Server) handleDragEnd(w http.ResponseWriter, r *http.Request) {
	var resp editResponse
	s.locked(func() {
		out := s.eng.DragEnd()
		resp = editResponse{Outcome: out, Rows: s.eng.Rows()}
	})
	s.respondData(w, statusFor(resp.Outcome), resp)
}

func (s *Server) handleDragCancel(w http.ResponseWriter, r *http.Request) {
	var cancelled bool
	s.locked(func() { cancelled = s.eng.DragCancel() })
	s.respondData(w, http.StatusOK, map[string]any{"cancelled": cancelled})
}

func (s *Server) handleCollapse(w http.ResponseWriter, r *http.Request) {
	var req collapseRequest
	if r.ContentLength != 0 && !s.decode(w, r, &req) {
		return
	}
	var found, changed bool
	var rows []outline.Row
	s.locked(func() {
		var id string
		if id, found = s.eng.Resolve(chi.URLParam(r, "id")); !found {
			return
		}
		if req.Collapsed == nil {
			changed = s.eng.ToggleCollapse(id)
		} else {
			changed = s.eng.SetCollapsed(id, *req.Collapsed)
		}
		rows = s.eng.Rows()
	})
	if !found {
		s.respondError(w, http.StatusNotFound, "node not found: "+chi.URLParam(r, "id"))
		return
	}
	s.respondData(w, http.StatusOK, map[string]any{"changed": changed, "rows": rows})
}

func (s *Server) handleCollapseAll(w http.ResponseWriter, r *http.Request) {
	var req collapseRequest
	if r.ContentLength != 0 && !s.decode(w, r, &req) {
		return
	}
	var collapsed bool
	var rows []outline.Row
	s.locked(func() {
		if req.Collapsed == nil {
			collapsed = s.eng.FlipCollapseAll()
		} else {
			collapsed = *req.Collapsed
			s.eng.ToggleCollapseAll(collapsed)
		}
		rows = s.eng.Rows()
	})
	s.respondData(w, http.StatusOK, map[string]any{"collapsed": collapsed, "rows": rows})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var rows []outline.Row
	s.locked(func() {
		s.eng.Reset()
		rows = s.eng.Rows()
	})
	s.respondData(w, http.StatusOK, map[string]any{"rows": rows})
}

func (s *Server) handlePolicy(w http.ResponseWriter, r *http.Request) {
	var req policyRequest
	if !s.decode(w, r, &req) {
		return
	}
	p, err := mutate.ParsePolicy(req.Policy)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.locked(func() { s.eng.SetPolicy(p) })
	s.respondData(w, http.StatusOK, map[string]any{"policy": p.Name()})
}

// locked runs fn with the engine lock held. The lock is released even when fn panics,
// so a request recovered by the middleware does not wedge later ones.
func (s *Server) locked(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

// ref resolves an id or WBS code; unknown references pass through so the engine
// reports them. Callers hold s.mu.
func (s *Server) ref(v string) string {
	if id, ok := s.eng.Resolve(v); ok {
		return id
	}
	return strings.TrimSpace(v)
}

func statusFor(o engine.Outcome) int {
	if o.Status != engine.StatusRejected {
		return http.StatusOK
	}
	if o.Reason == store.ReasonNotFound {
		return http.StatusNotFound
	}
	return http.StatusConflict
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	if err := store.ValidateStruct(v); err != nil {
		s.respondError(w, http.StatusBadRequest, "validation error: "+err.Error())
		return false
	}
	return true
}

func (s *Server) respondData(w http.ResponseWriter, status int, data any) {
	s.respondJSON(w, status, map[string]any{"data": data})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]any{
		"error":   true,
		"message": message,
		"code":    status,
	})
}
