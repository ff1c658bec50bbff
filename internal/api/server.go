package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"inkwell/notes/internal/config"
	"inkwell/notes/internal/db"
	"inkwell/notes/internal/enrich"
	"inkwell/notes/internal/events"
	"inkwell/notes/internal/tagging"
)

const maxBodyBytes = 1 << 20

// Store is the note store operation contract served over HTTP
type Store interface {
	AllNotes(ctx context.Context) ([]db.Note, error)
	GetNote(ctx context.Context, id int64) (*db.Note, error)
	CreateNote(ctx context.Context, title string) ([]db.Note, error)
	UpdateNote(ctx context.Context, note db.Note) ([]db.Note, error)
	DeleteNote(ctx context.Context, id int64) ([]db.Note, error)
	UpdateNoteTags(ctx context.Context, noteID int64, tags []string) (*db.Note, error)
	CreateEntry(ctx context.Context, noteID int64, heading, body string) (*db.Note, error)
	UpdateEntry(ctx context.Context, entry db.Entry) (*db.Note, error)
	DeleteEntry(ctx context.Context, entryID, noteID int64) (*db.DeleteEntryResult, error)
	ReorderEntries(ctx context.Context, noteID int64, entryIDs []int64) (*db.Note, error)
}

// Server exposes a Store over JSON HTTP and streams note lists over a websocket
type Server struct {
	store    Store
	broker   *events.Broker
	enricher *enrich.Service // nil disables the enrichment endpoints
	vocab    *tagging.Vocabulary
	gateway  *config.ConfigGateway
	log      zerolog.Logger

	pubMu sync.Mutex
}

// Option configures a Server
type Option func(*Server)

// WithEnricher enables the enrichment endpoints
func WithEnricher(svc *enrich.Service) Option {
	return func(s *Server) { s.enricher = svc }
}

// WithVocabulary sets the vocabulary reported by GET /tags
func WithVocabulary(v *tagging.Vocabulary) Option {
	return func(s *Server) { s.vocab = v }
}

// WithGateway sets CORS and rate limit settings
func WithGateway(cfg *config.ConfigGateway) Option {
	return func(s *Server) { s.gateway = cfg }
}

// NewServer wires a server around store. broker may be shared with other
// publishers; the server publishes after every successful mutation.
func NewServer(store Store, broker *events.Broker, log zerolog.Logger, opts ...Option) *Server {
	s := &Server{
		store:   store,
		broker:  broker,
		vocab:   tagging.NewVocabulary(nil, 0),
		gateway: config.Default().Gateway,
		log:     log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler with middleware applied
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/notes", s.listNotes)
	mux.HandleFunc("POST /api/v1/notes", s.createNote)
	mux.HandleFunc("GET /api/v1/notes/{id}", s.getNote)
	mux.HandleFunc("PUT /api/v1/notes/{id}", s.updateNote)
	mux.HandleFunc("DELETE /api/v1/notes/{id}", s.deleteNote)
	mux.HandleFunc("PUT /api/v1/notes/{id}/tags", s.updateTags)
	mux.HandleFunc("POST /api/v1/notes/{id}/entries", s.createEntry)
	mux.HandleFunc("PUT /api/v1/notes/{id}/entries/order", s.reorderEntries)
	mux.HandleFunc("PUT /api/v1/notes/{id}/entries/{entryID}", s.updateEntry)
	mux.HandleFunc("DELETE /api/v1/notes/{id}/entries/{entryID}", s.deleteEntry)
	mux.HandleFunc("GET /api/v1/tags", s.listTags)

	mux.HandleFunc("POST /api/v1/notes/{id}/tags/suggest", s.suggestTags)
	mux.HandleFunc("POST /api/v1/notes/{id}/summary", s.summarize)
	mux.HandleFunc("POST /api/v1/notes/{id}/study-plan", s.studyPlan)
	mux.HandleFunc("POST /api/v1/enhance", s.enhance)

	mux.HandleFunc("GET /api/v1/events", s.streamEvents)

	// outermost last: CORS, request id, logging, rate limit
	var handler http.Handler = mux
	handler = RateLimit(s.log, handler, s.gateway.RateLimitRPS, s.gateway.RateLimitBurst)
	handler = Logging(s.log, handler)
	handler = RequestID(handler)
	handler = setupCORS(s.gateway).Handler(handler)
	return handler
}

// ListenAndServe serves on cfg.Addr until ctx is cancelled, then shuts down
// gracefully and closes the broker so websocket streams end.
func (s *Server) ListenAndServe(ctx context.Context, cfg *config.ConfigServer) error {
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.Addr, err)
	}
	return s.Serve(ctx, ln, cfg)
}

// Serve is ListenAndServe on an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener, cfg *config.ConfigServer) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadTimeout:       seconds(cfg.ReadTimeout),
		WriteTimeout:      seconds(cfg.WriteTimeout),
		IdleTimeout:       seconds(cfg.IdleTimeout),
		ReadHeaderTimeout: seconds(cfg.ReadHeaderTimeout),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info().Str("addr", ln.Addr().String()).Msg("http server listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.broker.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), seconds(cfg.GracefulShutdownTimeout))
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down http server: %w", err)
		}
		s.log.Info().Msg("http server stopped")
		return nil
	})
	return g.Wait()
}

// publish sends the current note list to subscribers. Reload and publish
// happen under pubMu, so lists reach the broker in commit order even when
// mutations finish concurrently. A failed reload is logged and skipped.
func (s *Server) publish(ctx context.Context) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	notes, err := s.store.AllNotes(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("loading notes for broadcast")
		return
	}
	s.broker.Publish(notes)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
