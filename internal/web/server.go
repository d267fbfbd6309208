package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"forum-sync/internal/batch"
	"forum-sync/internal/forums"
	"forum-sync/internal/providers"
	"forum-sync/internal/report"
)

//go:embed templates/*.html
var templatesFS embed.FS

var errRunInProgress = errors.New("a run is already in progress, try again when it finishes")

// Config wires the form to the Canvas client and the payload rules.
type Config struct {
	Listen   string
	Version  string
	Debug    bool
	DryRun   bool
	Forums   providers.ForumProvider
	Selector forums.Selector

	// AfterRun, when set, receives the outcomes of every finished run (e.g. audit export).
	AfterRun func(ctx context.Context, outcomes []batch.Outcome)
}

// Server is the operator form: a textarea of course ids and a button that runs the batch.
type Server struct {
	cfg       Config
	templates *template.Template
	router    *routegroup.Bundle

	runLock    sync.Mutex // one run at a time
	lock       sync.Mutex
	httpServer *http.Server
}

type pageData struct {
	Input    string
	DryRun   bool
	Ran      bool
	Progress float64
	Messages []report.Message
	Tally    batch.Tally
	Version  string
}

// New parses templates and sets up routes.
func New(cfg Config) (*Server, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"percent": func(f float64) string { return fmt.Sprintf("%.0f%%", f*100) },
	}).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("web: parse templates: %w", err)
	}

	s := &Server{
		cfg:       cfg,
		templates: tmpl,
		router:    routegroup.New(http.NewServeMux()),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	log.Printf("[INFO] starting operator form on %s", s.cfg.Listen)

	s.lock.Lock()
	s.httpServer = &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.lock.Unlock()

	go func() {
		<-ctx.Done()
		log.Printf("[INFO] shutting down operator form")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] server shutdown error: %v", err)
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(rest.AppInfo("forumsync", "forum-sync", s.cfg.Version))
	s.router.Use(rest.Ping)
	if s.cfg.Debug {
		s.router.Use(logger.New(logger.Log(lgr.Default()), logger.Prefix("[DEBUG]")).Handler)
	}
	s.router.Use(rest.Recoverer(lgr.Default()))
	s.router.Use(rest.SizeLimit(64 * 1024))
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /{$}", s.indexHandler)
	s.router.HandleFunc("POST /run", s.runHandler)
}

func (s *Server) indexHandler(w http.ResponseWriter, _ *http.Request) {
	s.render(w, http.StatusOK, pageData{DryRun: s.cfg.DryRun, Version: s.cfg.Version})
}

func (s *Server) runHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	input := r.FormValue("course_ids")

	if !s.runLock.TryLock() {
		data := pageData{Input: input, DryRun: s.cfg.DryRun, Version: s.cfg.Version, Ran: true,
			Messages: []report.Message{{Level: batch.Warning, Text: errRunInProgress.Error()}}}
		s.render(w, http.StatusConflict, data)
		return
	}
	defer s.runLock.Unlock()

	// the run outlives a closed browser tab, as a button press would
	ctx := context.WithoutCancel(r.Context())

	rec := &report.Recorder{}
	audit := &report.Audit{}
	proc := &batch.Processor{
		Forums:   s.cfg.Forums,
		Selector: s.cfg.Selector,
		Reporter: rec,
		Recorder: audit,
		DryRun:   s.cfg.DryRun,
	}

	tally, err := proc.Run(ctx, input)
	if err != nil && !errors.Is(err, batch.ErrNoCourseIDs) {
		log.Printf("[WARN] run ended early: %v", err)
	}
	if err == nil && s.cfg.AfterRun != nil {
		s.cfg.AfterRun(ctx, audit.Outcomes())
	}

	s.render(w, http.StatusOK, pageData{
		Input:    input,
		DryRun:   s.cfg.DryRun,
		Ran:      true,
		Progress: rec.LastProgress(),
		Messages: rec.Messages(),
		Tally:    tally,
		Version:  s.cfg.Version,
	})
}

func (s *Server) render(w http.ResponseWriter, code int, data pageData) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "index.html", data); err != nil {
		log.Printf("[ERROR] render page: %v", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(buf.Bytes())
}
