package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/ritzau/vertex-graph/pkg/datasource"
	"github.com/ritzau/vertex-graph/pkg/engine"
	"github.com/ritzau/vertex-graph/pkg/layout"
	"github.com/ritzau/vertex-graph/pkg/logging"
	"github.com/ritzau/vertex-graph/pkg/metrics"
	"github.com/ritzau/vertex-graph/pkg/model"
	"github.com/ritzau/vertex-graph/pkg/pubsub"
	"github.com/ritzau/vertex-graph/pkg/radial"
	"github.com/ritzau/vertex-graph/pkg/storage"
	"github.com/ritzau/vertex-graph/pkg/watcher"
)

//go:embed static/*
var staticFiles embed.FS

// Host event types published on pubsub.TopicHost.
const (
	HostOpenVertex    = "open-vertex"
	HostSelectVertex  = "select-vertex"
	HostSelectNote    = "select-note"
	HostSelectImage   = "select-image"
	HostSelectFile    = "select-file"
	HostVertexUpdated = "vertex-updated"
)

const shutdownTimeout = 5 * time.Second

// Options configure the server and the views it hosts.
type Options struct {
	Source             datasource.Source
	Opener             datasource.Opener
	Store              storage.Store
	Metrics            *metrics.Collectors
	Viewport           layout.Viewport
	FPS                int
	CountsConcurrency  int
	CurrentVertexID    string
	CurrentWorkspaceID string
}

// Server hosts the overview and reference graph views over HTTP.
type Server struct {
	router    *mux.Router
	publisher *pubsub.SSEPublisher
	metrics   *metrics.Collectors
	views     map[string]*engine.View
	order     []string
	fps       int

	mu     sync.Mutex
	status map[string]pubsub.ViewStatus // Last published status per view
}

// NewServer creates the server and its views. Call Reload to populate them.
func NewServer(opts Options) (*Server, error) {
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Store == nil {
		opts.Store = storage.NewMemoryStore()
	}
	if opts.FPS <= 0 {
		opts.FPS = 30
	}

	// Frames are only useful while fresh: keep the latest and let slow clients skip
	ssePublisher := pubsub.NewSSEPublisher(pubsub.TopicConfig{BufferSize: 1, Conflate: true})
	ssePublisher.ConfigureTopic(pubsub.TopicStatus, pubsub.TopicConfig{
		BufferSize: 2,
		ReplayAll:  true, // One status per view
	})
	ssePublisher.ConfigureTopic(pubsub.TopicHost, pubsub.TopicConfig{})

	s := &Server{
		router:    mux.NewRouter(),
		publisher: ssePublisher,
		metrics:   opts.Metrics,
		views:     make(map[string]*engine.View),
		fps:       opts.FPS,
		status:    make(map[string]pubsub.ViewStatus),
	}

	for _, kind := range []engine.Kind{engine.KindOverview, engine.KindReference} {
		name := string(kind)
		view, err := engine.New(engine.Options{
			Name:               name,
			Kind:               kind,
			Source:             opts.Source,
			Opener:             opts.Opener,
			Store:              opts.Store,
			Viewport:           opts.Viewport,
			CurrentVertexID:    opts.CurrentVertexID,
			CurrentWorkspaceID: opts.CurrentWorkspaceID,
			CountsConcurrency:  opts.CountsConcurrency,
			Callbacks:          s.callbacks(name),
			Observer:           opts.Metrics,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create %s view: %w", name, err)
		}
		s.views[name] = view
		s.order = append(s.order, name)
	}

	s.setupRoutes()
	return s, nil
}

// callbacks forwards view requests to the host topic. Opening a vertex also makes it
// current in every view.
func (s *Server) callbacks(view string) engine.Callbacks {
	publish := func(eventType, vertexID, entry string) {
		event := pubsub.HostEvent{View: view, VertexID: vertexID, Entry: entry}
		if err := s.publisher.Publish(pubsub.TopicHost, eventType, event); err != nil {
			logging.Warn("failed to publish host event", "type", eventType, "error", err)
		}
	}
	return engine.Callbacks{
		OnOpenVertex: func(id string) {
			s.SetCurrent(id)
			publish(HostOpenVertex, id, "")
		},
		OnSelectVertex: func(id string) { publish(HostSelectVertex, id, "") },
		OnSelectNote:   func(id, note string) { publish(HostSelectNote, id, note) },
		OnSelectImage:  func(id, image string) { publish(HostSelectImage, id, image) },
		OnSelectFile:   func(id, file string) { publish(HostSelectFile, id, file) },
		OnVertexUpdated: func(v model.Vertex) {
			publish(HostVertexUpdated, v.ID, "")
		},
	}
}

// View returns a hosted view by name.
func (s *Server) View(name string) (*engine.View, bool) {
	v, ok := s.views[name]
	return v, ok
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// SetCurrent makes a vertex current in every view. Its workspace is looked up in the
// loaded graph.
func (s *Server) SetCurrent(vertexID string) {
	workspaceID := ""
	for _, name := range s.order {
		if data := s.views[name].Graph(); data != nil {
			if node := data.Node(vertexID); node != nil && node.Vertex != nil {
				workspaceID = workspaceOf(data, node)
				break
			}
		}
	}
	for _, name := range s.order {
		s.views[name].SetCurrent(vertexID, workspaceID)
	}
}

// workspaceOf walks up the parent chain to the owning workspace.
func workspaceOf(data *model.GraphData, node *model.GraphNode) string {
	seen := map[string]bool{}
	for node != nil && !seen[node.ID] {
		seen[node.ID] = true
		if node.Vertex != nil && node.Vertex.WorkspaceID != "" {
			return node.Vertex.WorkspaceID
		}
		if node.ParentID == "" {
			return node.WorkspaceID
		}
		node = data.Node(node.ParentID)
	}
	return ""
}

// Reload loads every view concurrently. Each view keeps its previous graph on failure,
// and one failing view does not cancel the others.
func (s *Server) Reload(ctx context.Context) error {
	var g errgroup.Group
	for _, name := range s.order {
		view := s.views[name]
		g.Go(func() error {
			return view.Load(ctx)
		})
	}
	return g.Wait()
}

func (s *Server) reloadOthers(ctx context.Context, except string) {
	for _, name := range s.order {
		if name == except {
			continue
		}
		if err := s.views[name].Load(ctx); err != nil {
			logging.WarnContext(ctx, "failed to reload view", "view", name, "error", err)
		}
	}
}

// Watch applies debounced data directory changes until the channel closes.
func (s *Server) Watch(ctx context.Context, changes <-chan watcher.ChangeEvent) {
	for event := range changes {
		plan := watcher.AnalyzeChanges(event)
		logging.Info("data changed", "type", event.Type.String(), "files", len(plan.ChangedFiles))

		if plan.Reload {
			if err := s.Reload(ctx); err != nil {
				logging.Error("reload after change failed", "error", err)
			}
			// A load refreshes counts only for a changed graph
		}
		if plan.RefreshCounts {
			for _, name := range s.order {
				s.views[name].RefreshCounts()
			}
		}
	}
}

// Run ticks every view at the configured rate and publishes frames and status until
// ctx is done.
func (s *Server) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second / time.Duration(s.fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.tick(now)
		}
	}
}

func (s *Server) tick(now time.Time) {
	for _, name := range s.order {
		view := s.views[name]
		frame := view.Tick(now)

		topic := pubsub.FrameTopic(name)
		if s.publisher.Subscribers(topic) > 0 {
			if err := s.publisher.Publish(topic, "frame", frame); err != nil && !errors.Is(err, pubsub.ErrClosed) {
				logging.Warn("failed to publish frame", "view", name, "error", err)
			}
		}

		status := pubsub.ViewStatus{View: name, State: "ready", Message: frame.Error, Visible: len(frame.Nodes)}
		if data := view.Graph(); data != nil {
			status.Nodes = len(data.Nodes)
		}
		switch {
		case frame.Loading:
			status.State = "loading"
		case frame.Move != nil:
			status.State = "relocating"
		case frame.Error != "":
			status.State = "error"
		}
		s.publishStatus(status)
	}
}

// publishStatus publishes a view status when it differs from the last one.
func (s *Server) publishStatus(status pubsub.ViewStatus) {
	s.mu.Lock()
	if s.status[status.View] == status {
		s.mu.Unlock()
		return
	}
	s.status[status.View] = status
	s.mu.Unlock()

	if err := s.publisher.Publish(pubsub.TopicStatus, status.State, status); err != nil && !errors.Is(err, pubsub.ErrClosed) {
		logging.Warn("failed to publish status", "view", status.View, "error", err)
	}
}

// Statuses returns the last published status of every view.
func (s *Server) Statuses() []pubsub.ViewStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	statuses := make([]pubsub.ViewStatus, 0, len(s.order))
	for _, name := range s.order {
		status, ok := s.status[name]
		if !ok {
			status = pubsub.ViewStatus{View: name, State: "loading"}
		}
		statuses = append(statuses, status)
	}
	return statuses
}

func (s *Server) setupRoutes() {
	s.router.Use(logging.RequestIDMiddleware)

	// SSE subscription endpoints; fixed topics before the per-view route
	s.router.HandleFunc("/api/subscribe/status", s.handleSubscribe(pubsub.TopicStatus)).Methods("GET")
	s.router.HandleFunc("/api/subscribe/host", s.handleSubscribe(pubsub.TopicHost)).Methods("GET")
	s.router.HandleFunc("/api/subscribe/{view}", s.handleSubscribeFrames).Methods("GET")

	s.router.HandleFunc("/api/views", s.handleViews).Methods("GET")
	s.router.HandleFunc("/api/reload", s.handleReload).Methods("POST")
	s.router.HandleFunc("/api/current/{vertex}", s.handleSetCurrent).Methods("POST")

	views := s.router.PathPrefix("/api/views/{view}").Subrouter()
	views.HandleFunc("/frame", s.withView(s.handleFrame)).Methods("GET")
	views.HandleFunc("/events", s.withView(s.handleEvent)).Methods("POST")
	views.HandleFunc("/actions/{key}", s.withView(s.handleAction)).Methods("POST")
	views.HandleFunc("/confirm", s.withView(s.handleConfirm)).Methods("POST")
	views.HandleFunc("/cancel", s.withView(s.handleCancel)).Methods("POST")
	views.HandleFunc("/recenter", s.withView(s.handleRecenter)).Methods("POST")
	views.HandleFunc("/rail", s.withView(s.handleCloseRail)).Methods("DELETE")
	views.HandleFunc("/rail/{entry}", s.withView(s.handlePickRailEntry)).Methods("POST")

	s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")

	// Serve static files
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		logging.Fatal("failed to open embedded static files", "error", err)
	}
	s.router.PathPrefix("/").Handler(http.FileServer(http.FS(staticFS)))
}

type viewHandler func(w http.ResponseWriter, r *http.Request, view *engine.View)

func (s *Server) withView(h viewHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := mux.Vars(r)["view"]
		view, ok := s.views[name]
		if !ok {
			http.Error(w, fmt.Sprintf("unknown view %q", name), http.StatusNotFound)
			return
		}
		h(w, r, view)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode response", "error", err)
	}
}

// writeError maps view errors to status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrNoSelection),
		errors.Is(err, engine.ErrActionDisabled),
		errors.Is(err, engine.ErrNothingPending),
		errors.Is(err, engine.ErrRailClosed),
		errors.Is(err, radial.ErrNotInteractive):
		status = http.StatusConflict
	case errors.Is(err, radial.ErrUnknownAction),
		errors.Is(err, engine.ErrUnknownEvent):
		status = http.StatusBadRequest
	case errors.Is(err, datasource.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, datasource.ErrUnavailable):
		status = http.StatusNotImplemented
	case errors.Is(err, datasource.ErrInvalidRelocation):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrClosed):
		status = http.StatusServiceUnavailable
	}
	http.Error(w, err.Error(), status)
}

func (s *Server) handleViews(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Statuses())
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.Reload(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Statuses())
}

func (s *Server) handleSetCurrent(w http.ResponseWriter, r *http.Request) {
	s.SetCurrent(mux.Vars(r)["vertex"])
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request, view *engine.View) {
	writeJSON(w, http.StatusOK, view.Frame())
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request, view *engine.View) {
	var ev engine.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		http.Error(w, fmt.Sprintf("invalid event: %v", err), http.StatusBadRequest)
		return
	}
	if err := view.HandleEvent(ev); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request, view *engine.View) {
	if err := view.Invoke(r.Context(), mux.Vars(r)["key"]); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view.Frame())
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request, view *engine.View) {
	if err := view.Confirm(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	// The confirming view reloads itself; the others see the change here
	s.reloadOthers(r.Context(), view.Name())
	writeJSON(w, http.StatusOK, view.Frame())
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request, view *engine.View) {
	view.Cancel()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRecenter(w http.ResponseWriter, r *http.Request, view *engine.View) {
	view.Recenter()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCloseRail(w http.ResponseWriter, r *http.Request, view *engine.View) {
	view.CloseRail()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePickRailEntry(w http.ResponseWriter, r *http.Request, view *engine.View) {
	if err := view.PickRailEntry(mux.Vars(r)["entry"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSubscribeFrames(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["view"]
	if _, ok := s.views[name]; !ok {
		http.Error(w, fmt.Sprintf("unknown view %q", name), http.StatusNotFound)
		return
	}
	s.stream(w, r, pubsub.FrameTopic(name))
}

func (s *Server) handleSubscribe(topic string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.stream(w, r, topic)
	}
}

func (s *Server) stream(w http.ResponseWriter, r *http.Request, topic string) {
	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*") // CORS support

	// Create subscription
	sub, err := s.publisher.Subscribe(r.Context(), topic)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	defer sub.Close()

	// Send initial comment to establish connection (Safari compatibility)
	fmt.Fprintf(w, ": connected\n\n")
	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	// Stream events
	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := pubsub.WriteSSE(w, event); err != nil {
				logging.DebugContext(r.Context(), "SSE client gone", "topic", topic, "error", err)
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

// Close stops every view and ends all subscriptions.
func (s *Server) Close() {
	s.publisher.Close()
	for _, name := range s.order {
		s.views[name].Close()
	}
}

// Start serves on port until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("starting web server", "url", fmt.Sprintf("http://localhost:%d", port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	// Ending the streams first lets Shutdown drain the SSE connections
	s.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down web server: %w", err)
	}
	logging.Info("web server stopped")
	return nil
}
