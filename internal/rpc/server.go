// Package rpc serves the command API over JSON-RPC 2.0 on a websocket,
// plus a plain HTTP invoke route, and pushes bus events to every
// connected client.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/olahol/melody"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/llehouerou/wavesd/internal/events"
)

// DefaultWorkers bounds the number of commands running at once.
const DefaultWorkers = 8

const (
	maxBodyBytes    = 1 << 20
	shutdownTimeout = 5 * time.Second
	sessionIDKey    = "session-id"
)

// Options configures a Server.
type Options struct {
	Workers        int64
	AllowedOrigins []string
}

// Server dispatches commands and broadcasts events.
type Server struct {
	env     *Env
	sem     *semaphore.Weighted
	ws      *melody.Melody
	router  chi.Router
	sub     *events.Subscription
	ctx     context.Context
	cancel  context.CancelFunc
	workers sync.WaitGroup
	closed  sync.Once
}

// NewServer creates a Server running commands against env and pushing the
// events of bus.
func NewServer(env *Env, bus *events.Bus, opts Options) *Server {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"http://*", "https://*", "tauri://*"}
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		env:    env,
		sem:    semaphore.NewWeighted(opts.Workers),
		ws:     melody.New(),
		sub:    bus.Subscribe(events.DefaultBuffer * 4),
		ctx:    ctx,
		cancel: cancel,
	}
	s.ws.Upgrader.CheckOrigin = func(*http.Request) bool { return true }
	s.ws.HandleConnect(func(ms *melody.Session) {
		id := uuid.NewString()
		ms.Set(sessionIDKey, id)
		log.Debug().Str("session", id).Str("remote", ms.Request.RemoteAddr).Msg("rpc: client connected")
	})
	s.ws.HandleDisconnect(func(ms *melody.Session) {
		log.Debug().Str("session", sessionID(ms)).Msg("rpc: client disconnected")
	})
	s.ws.HandleMessage(s.handleMessage)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.NoCache)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		if err := s.ws.HandleRequest(w, r); err != nil {
			log.Error().Err(err).Msg("handling websocket request")
		}
	})
	r.Post("/invoke/{command}", s.handleInvoke)
	s.router = r

	s.workers.Add(1)
	go s.broadcast()
	return s
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = s.ws.Close()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("rpc: shutdown")
		}
	}()
	log.Info().Str("addr", addr).Msg("rpc: listening")
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close stops the broadcaster, cancels running commands and disconnects
// every client.
func (s *Server) Close() error {
	s.closed.Do(func() {
		s.cancel()
		s.sub.Close()
		if !s.ws.IsClosed() {
			_ = s.ws.Close()
		}
		s.workers.Wait()
	})
	return nil
}

func (s *Server) broadcast() {
	defer s.workers.Done()
	for e := range s.sub.C {
		data, err := json.Marshal(Notification{JSONRPC: "2.0", Method: e.Name, Params: e.Payload})
		if err != nil {
			log.Error().Err(err).Str("event", e.Name).Msg("marshalling notification")
			continue
		}
		if s.ws.IsClosed() {
			continue
		}
		if err := s.ws.Broadcast(data); err != nil {
			log.Warn().Err(err).Str("event", e.Name).Msg("broadcasting notification")
		}
	}
}

func (s *Server) handleMessage(ms *melody.Session, msg []byte) {
	// heartbeat
	if bytes.Equal(msg, []byte("ping")) {
		if err := ms.Write([]byte("pong")); err != nil {
			log.Debug().Err(err).Msg("sending pong")
		}
		return
	}

	s.workers.Add(1)
	go func() {
		defer s.workers.Done()
		if err := s.sem.Acquire(s.ctx, 1); err != nil {
			return
		}
		defer s.sem.Release(1)

		resp, ok := s.dispatch(s.ctx, msg, sessionID(ms))
		if !ok {
			return
		}
		data, err := json.Marshal(resp)
		if err != nil {
			log.Error().Err(err).Msg("marshalling response")
			return
		}
		if err := ms.Write(data); err != nil {
			log.Debug().Err(err).Msg("writing response")
		}
	}()
}

// handleInvoke runs one command from a plain HTTP request. The body holds
// the params.
func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		body = nil
	}
	if err := s.sem.Acquire(r.Context(), 1); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	defer s.sem.Release(1)

	req := Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`"` + uuid.NewString() + `"`),
		Method:  chi.URLParam(r, "command"),
		Params:  body,
	}
	resp := s.call(r.Context(), req, "http")

	w.Header().Set("Content-Type", "application/json")
	switch {
	case resp.Error == nil:
		w.WriteHeader(http.StatusOK)
	case resp.Error.Code == CodeMethodNotFound:
		w.WriteHeader(http.StatusNotFound)
	case resp.Error.Code == CodeInvalidParams:
		w.WriteHeader(http.StatusBadRequest)
	default:
		w.WriteHeader(http.StatusUnprocessableEntity)
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Debug().Err(err).Msg("writing invoke response")
	}
}

// dispatch parses and runs one websocket message. It reports false for
// notifications, which get no response.
func (s *Server) dispatch(ctx context.Context, msg []byte, session string) (Response, bool) {
	if !json.Valid(msg) {
		return errorResponse(nil, &ErrorObject{Code: CodeParseError, Message: "parse error"}), true
	}
	var req Request
	if err := json.Unmarshal(msg, &req); err != nil || req.Method == "" {
		return errorResponse(nil, &ErrorObject{Code: CodeInvalidRequest, Message: "invalid request"}), true
	}
	if req.JSONRPC != "2.0" {
		return errorResponse(req.ID, &ErrorObject{
			Code:    CodeInvalidRequest,
			Message: "unsupported jsonrpc version",
		}), true
	}
	if len(req.ID) == 0 || string(req.ID) == "null" {
		resp := s.call(ctx, req, session)
		if resp.Error != nil {
			log.Debug().Str("method", req.Method).Str("error", resp.Error.Message).Msg("rpc: notification failed")
		}
		return Response{}, false
	}
	return s.call(ctx, req, session), true
}

func (s *Server) call(ctx context.Context, req Request, session string) Response {
	m, ok := methods[req.Method]
	if !ok {
		return errorResponse(req.ID, &ErrorObject{
			Code:    CodeMethodNotFound,
			Message: "method not found: " + req.Method,
		})
	}

	start := time.Now()
	result, err := m.fn(ctx, s.env, req.Params)
	logger := log.Debug().
		Str("session", session).
		Str("method", req.Method).
		Dur("took", time.Since(start))
	if err != nil {
		obj := errorObject(m.op, err)
		logger.Str("kind", kindOf(obj)).Err(err).Msg("rpc: request failed")
		return errorResponse(req.ID, obj)
	}
	logger.Msg("rpc: request")

	data, err := json.Marshal(result)
	if err != nil {
		return errorResponse(req.ID, &ErrorObject{
			Code:    CodeInternalError,
			Message: err.Error(),
			Data:    &ErrorData{Kind: KindInternal},
		})
	}
	return Response{JSONRPC: "2.0", ID: req.ID, Result: data}
}

func errorResponse(id json.RawMessage, obj *ErrorObject) Response {
	return Response{JSONRPC: "2.0", ID: id, Error: obj}
}

func kindOf(obj *ErrorObject) string {
	if obj.Data == nil {
		return ""
	}
	return obj.Data.Kind
}

func sessionID(ms *melody.Session) string {
	if v, ok := ms.Get(sessionIDKey); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
