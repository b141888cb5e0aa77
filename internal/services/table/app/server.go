// Package server hosts the table HTTP/WebSocket process.
//
// The websocket surface carries the whole room protocol as JSON frames; a
// second listener exposes only the standard gRPC health service so the
// table process probes like every other service.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/websocket"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/louisbranch/rolltable.space/internal/core/dice"
	apperrors "github.com/louisbranch/rolltable.space/internal/platform/errors"
	"github.com/louisbranch/rolltable.space/internal/platform/timeouts"
	"github.com/louisbranch/rolltable.space/internal/table/domain"
)

const (
	maxFramePayloadBytes   = 16 * 1024
	maxFramesPerSecond     = 40
	maxDecodeErrorsPerConn = 3

	defaultGracePeriod = 5 * time.Minute
)

// Config defines the inputs for the table transport boundary.
type Config struct {
	HTTPAddr          string
	GRPCAddr          string
	GracePeriod       time.Duration
	RollCooldown      time.Duration
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// Server hosts the websocket room protocol plus the gRPC health listener.
type Server struct {
	httpAddr        string
	shutdownTimeout time.Duration
	httpServer      *http.Server
	grpcListener    net.Listener
	grpcServer      *grpc.Server
	health          *health.Server
}

// hub owns the room registry and the live connection set.
type hub struct {
	registry    *domain.Registry
	gracePeriod time.Duration

	mu    sync.Mutex
	peers map[string]*wsPeer

	rngMu sync.Mutex
	rng   *rand.Rand

	tracer trace.Tracer
	now    func() time.Time
}

// Options tunes a handler for tests; zero values take production
// defaults.
type Options struct {
	GracePeriod  time.Duration
	RollCooldown time.Duration
	Rand         *rand.Rand
}

func newHub(opts Options) *hub {
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = defaultGracePeriod
	}
	if opts.RollCooldown <= 0 {
		opts.RollCooldown = domain.DefaultRollCooldown
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &hub{
		registry:    domain.NewRegistry(opts.RollCooldown),
		gracePeriod: opts.GracePeriod,
		peers:       make(map[string]*wsPeer),
		rng:         opts.Rand,
		tracer:      otel.Tracer("table"),
		now:         time.Now,
	}
}

type wsPeer struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

func newWSPeer(encoder *json.Encoder) *wsPeer {
	return &wsPeer{encoder: encoder}
}

func (p *wsPeer) writeFrame(frame wsFrame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.encoder.Encode(frame)
}

type wsSession struct {
	connectionID string
	peer         *wsPeer

	mu   sync.Mutex
	room *domain.Room
}

func (s *wsSession) setRoom(next *domain.Room) *domain.Room {
	s.mu.Lock()
	previous := s.room
	s.room = next
	s.mu.Unlock()
	return previous
}

func (s *wsSession) currentRoom() *domain.Room {
	s.mu.Lock()
	room := s.room
	s.mu.Unlock()
	return room
}

func (h *hub) register(connectionID string, peer *wsPeer) {
	h.mu.Lock()
	h.peers[connectionID] = peer
	h.mu.Unlock()
}

func (h *hub) unregister(connectionID string) {
	h.mu.Lock()
	delete(h.peers, connectionID)
	h.mu.Unlock()
}

func (h *hub) sendTo(connectionID string, frame wsFrame) {
	h.mu.Lock()
	peer := h.peers[connectionID]
	h.mu.Unlock()
	if peer == nil {
		return
	}
	_ = peer.writeFrame(frame)
}

func (h *hub) broadcast(connectionIDs []string, frame wsFrame) {
	for _, id := range connectionIDs {
		h.sendTo(id, frame)
	}
}

// roll resolves a selection under the shared rng lock.
func (h *hub) roll(selection dice.Selection) (dice.Result, error) {
	h.rngMu.Lock()
	defer h.rngMu.Unlock()
	return dice.Roll(h.rng, selection)
}

// NewHandler creates table routes with test-friendly options.
func NewHandler(opts Options) http.Handler {
	return newHandler(newHub(opts))
}

func newHandler(h *hub) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	wsHandler := websocket.Handler(func(conn *websocket.Conn) {
		h.handleConn(conn)
	})

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		wsHandler.ServeHTTP(w, r)
	})

	return mux
}

func (h *hub) handleConn(conn *websocket.Conn) {
	defer func() {
		_ = conn.Close()
	}()

	connectionID := uuid.NewString()
	peer := newWSPeer(json.NewEncoder(conn))
	h.register(connectionID, peer)

	session := &wsSession{connectionID: connectionID, peer: peer}
	defer func() {
		h.unregister(connectionID)
		h.handleDisconnect(session)
	}()

	ctx := context.Background()
	if request := conn.Request(); request != nil {
		ctx = request.Context()
	}

	decoder := json.NewDecoder(conn)
	limiter := rate.NewLimiter(rate.Limit(maxFramesPerSecond), maxFramesPerSecond)
	decodeErrors := 0

	for {
		var frame wsFrame
		if err := decoder.Decode(&frame); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			decodeErrors++
			_ = writeWSError(peer, "", "INVALID_ARGUMENT", "invalid frame payload")
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			continue
		}
		decodeErrors = 0

		if len(frame.Payload) > maxFramePayloadBytes {
			_ = writeWSError(peer, frame.RequestID, "INVALID_ARGUMENT", "payload too large")
			continue
		}

		if !limiter.Allow() {
			_ = writeWSError(peer, frame.RequestID, "RESOURCE_EXHAUSTED", "rate limit exceeded")
			return
		}

		h.dispatch(ctx, session, frame)
	}
}

func (h *hub) dispatch(ctx context.Context, session *wsSession, frame wsFrame) {
	_, span := h.tracer.Start(ctx, frame.Type)
	defer span.End()

	switch frame.Type {
	case "table.create":
		h.handleCreate(session, frame)
	case "table.join":
		h.handleJoin(session, frame)
	case "table.rejoin_host":
		h.handleRejoinHost(session, frame)
	case "table.lock":
		h.handleLock(session, frame)
	case "table.kick":
		h.handleKick(session, frame)
	case "table.roll.public":
		h.handleRollPublic(session, frame)
	case "table.roll.host":
		h.handleRollHost(session, frame)
	case "table.secret.request":
		h.handleSecretRequest(session, frame)
	case "table.secret.result":
		h.handleSecretResult(session, frame)
	case "table.ping":
		h.handlePing(session, frame)
	default:
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "unsupported frame type")
	}
}

func writeWSError(peer *wsPeer, requestID string, code string, message string) error {
	return peer.writeFrame(wsFrame{
		Type:      "table.error",
		RequestID: requestID,
		Payload: mustJSON(wsErrorEnvelope{
			Error: wsError{
				Code:      code,
				Message:   message,
				Retryable: code == "RESOURCE_EXHAUSTED",
			},
		}),
	})
}

// writeDomainError maps a domain error onto a table.error frame. The
// frame code follows the gRPC mapping; the raw domain code rides in the
// details.
func writeDomainError(peer *wsPeer, requestID string, err error) error {
	code := apperrors.CodeOf(err)
	grpcCode := code.GRPCCode()
	return peer.writeFrame(wsFrame{
		Type:      "table.error",
		RequestID: requestID,
		Payload: mustJSON(wsErrorEnvelope{
			Error: wsError{
				Code:      wsCodeString(grpcCode),
				Message:   err.Error(),
				Retryable: grpcCode == codes.ResourceExhausted,
				Details:   map[string]string{"code": string(code)},
			},
		}),
	})
}

func wsCodeString(code codes.Code) string {
	switch code {
	case codes.InvalidArgument:
		return "INVALID_ARGUMENT"
	case codes.NotFound:
		return "NOT_FOUND"
	case codes.Unauthenticated:
		return "UNAUTHENTICATED"
	case codes.PermissionDenied:
		return "FORBIDDEN"
	case codes.AlreadyExists:
		return "ALREADY_EXISTS"
	case codes.FailedPrecondition:
		return "FAILED_PRECONDITION"
	case codes.ResourceExhausted:
		return "RESOURCE_EXHAUSTED"
	default:
		return "UNKNOWN"
	}
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("failed to marshal websocket frame payload: %v", err)
		return nil
	}
	return b
}

// NewServer builds a configured table server listening on both addresses.
func NewServer(config Config) (*Server, error) {
	httpAddr := strings.TrimSpace(config.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	if config.ReadHeaderTimeout <= 0 {
		config.ReadHeaderTimeout = timeouts.ReadHeader
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = timeouts.Shutdown
	}

	h := newHub(Options{
		GracePeriod:  config.GracePeriod,
		RollCooldown: config.RollCooldown,
	})

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           newHandler(h),
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}

	server := &Server{
		httpAddr:        httpAddr,
		shutdownTimeout: config.ShutdownTimeout,
		httpServer:      httpServer,
	}

	grpcAddr := strings.TrimSpace(config.GRPCAddr)
	if grpcAddr != "" {
		listener, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			return nil, fmt.Errorf("listen on %s: %w", grpcAddr, err)
		}
		grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
		healthServer := health.NewServer()
		grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
		healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

		server.grpcListener = listener
		server.grpcServer = grpcServer
		server.health = healthServer
	}

	return server, nil
}

// Run creates and serves a table server until the context ends.
func Run(ctx context.Context, config Config) error {
	server, err := NewServer(config)
	if err != nil {
		return fmt.Errorf("init table server: %w", err)
	}
	defer server.Close()

	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve table: %w", err)
	}
	return nil
}

// ListenAndServe runs both listeners until the context ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("table server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 2)
	log.Printf("table server listening on %s", s.httpAddr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()
	if s.grpcServer != nil {
		log.Printf("table health listening on %s", s.grpcListener.Addr())
		go func() {
			serveErr <- s.grpcServer.Serve(s.grpcListener)
		}()
	}

	select {
	case <-ctx.Done():
		if s.health != nil {
			s.health.Shutdown()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if s.grpcServer != nil {
			s.grpcServer.GracefulStop()
		}
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}

// Close releases server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
}
