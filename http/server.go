package http

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Builder collects routes and settings for a Server. Routes can only be
// registered here; Build freezes them.
type Builder struct {
	addr           string
	router         *Router
	workers        int
	logger         *slog.Logger
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

func New(addr string) *Builder {
	return &Builder{
		addr:    addr,
		router:  NewRouter(""),
		workers: DefaultWorkerCount,
	}
}

func (b *Builder) Get(segment string, handler HandlerFunc) *Builder {
	b.router.Get(segment, handler)
	return b
}

func (b *Builder) Post(segment string, handler HandlerFunc) *Builder {
	b.router.Post(segment, handler)
	return b
}

func (b *Builder) Put(segment string, handler HandlerFunc) *Builder {
	b.router.Put(segment, handler)
	return b
}

func (b *Builder) Patch(segment string, handler HandlerFunc) *Builder {
	b.router.Patch(segment, handler)
	return b
}

func (b *Builder) Delete(segment string, handler HandlerFunc) *Builder {
	b.router.Delete(segment, handler)
	return b
}

// WithRouter merges every route of router into the server table.
func (b *Builder) WithRouter(router *Router) *Builder {
	b.router.Merge(router)
	return b
}

func (b *Builder) Workers(n int) *Builder {
	b.workers = n
	return b
}

func (b *Builder) Logger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) TracerProvider(provider trace.TracerProvider) *Builder {
	b.tracerProvider = provider
	return b
}

func (b *Builder) MeterProvider(provider metric.MeterProvider) *Builder {
	b.meterProvider = provider
	return b
}

// Build binds the listening socket and starts the worker pool.
func (b *Builder) Build() (*Server, error) {
	if b.workers < 1 {
		return nil, ErrInvalidPoolSize
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	tracerProvider := b.tracerProvider
	if tracerProvider == nil {
		tracerProvider = otel.GetTracerProvider()
	}
	meterProvider := b.meterProvider
	if meterProvider == nil {
		meterProvider = otel.GetMeterProvider()
	}

	inst, err := newInstruments(meterProvider.Meter(instrumentationName))
	if err != nil {
		return nil, fmt.Errorf("http: creating instruments: %w", err)
	}

	routes := b.router.Routes.clone()
	for _, handlers := range routes {
		for method, handler := range handlers {
			handlers[method] = Recover(handler)
		}
	}

	listener, err := net.Listen("tcp", b.addr)
	if err != nil {
		return nil, fmt.Errorf("http: listen on %s: %w", b.addr, err)
	}

	pool, err := NewWorkerPool(b.workers, logger)
	if err != nil {
		listener.Close()
		return nil, err
	}

	return &Server{
		listener:    listener,
		routes:      routes,
		pool:        pool,
		logger:      logger,
		tracer:      tracerProvider.Tracer(instrumentationName),
		instruments: inst,
		done:        make(chan struct{}),
	}, nil
}

type Server struct {
	listener    net.Listener
	routes      Routes
	pool        *WorkerPool
	logger      *slog.Logger
	tracer      trace.Tracer
	instruments instruments

	running    atomic.Bool
	inShutdown atomic.Bool
	done       chan struct{}
}

func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Run accepts connections until Shutdown is called and hands each one to the
// worker pool. It always returns a non-nil error; after Shutdown it returns
// ErrServerClosed once every queued connection has been served.
func (s *Server) Run() error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrServerStarted
	}
	defer close(s.done)
	defer s.pool.Close()

	s.logger.Info("listening",
		"addr", s.Addr().String(),
		"workers", s.pool.Size(),
		"routes", slices.Sorted(maps.Keys(s.routes)),
	)

	var tempDelay time.Duration // how long to sleep on accept failure
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.inShutdown.Load() {
				return ErrServerClosed
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}

			if tempDelay == 0 {
				tempDelay = 5 * time.Millisecond
			} else {
				tempDelay *= 2
			}
			if max := 1 * time.Second; tempDelay > max {
				tempDelay = max
			}
			s.logger.Error("accept failed", "error", err, "retry_in", tempDelay)
			time.Sleep(tempDelay)
			continue
		}
		tempDelay = 0

		if s.inShutdown.Load() {
			conn.Close()
			return ErrServerClosed
		}

		if err := s.pool.Execute(func() { s.serveConn(conn) }); err != nil {
			conn.Close()
			return err
		}
	}
}

// Shutdown stops the accept loop and waits until Run has drained the worker
// pool or ctx is done. Connections already queued are still served.
func (s *Server) Shutdown(ctx context.Context) error {
	s.inShutdown.Store(true)

	if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}

	if !s.running.Load() {
		s.pool.Close()
		return nil
	}

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// serveConn handles exactly one request on conn and closes it.
func (s *Server) serveConn(conn net.Conn) {
	start := time.Now()
	connID := uuid.NewString()
	logger := s.logger.With("conn", connID, "remote", conn.RemoteAddr().String())

	defer func() {
		if err := conn.Close(); err != nil {
			logger.Debug("closing connection", "error", err)
		}
	}()

	// Ends before conn is closed.
	ctx, span := s.tracer.Start(context.Background(), "http.conn",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("conn.id", connID)),
	)
	defer span.End()

	req, err := ReadRequest(bufio.NewReaderSize(conn, DefaultReadBufferSize))
	if err != nil {
		logger.DebugContext(ctx, "dropping malformed request", "error", err)
		s.instruments.recordDrop(ctx, span, dropReasonParse, err)
		return
	}

	span.SetAttributes(
		attribute.String("http.request.method", req.Method.String()),
		attribute.String("url.path", "/"+req.Path),
		attribute.String("http.route", req.Segment()),
	)

	res, err := s.dispatch(ctx, logger, req)
	if err != nil {
		logger.ErrorContext(ctx, "connection error", "method", req.Method.String(), "path", "/"+req.Path, "error", err)
		s.instruments.recordDrop(ctx, span, dropReasonHandler, err)
		return
	}

	span.SetAttributes(attribute.Int("http.response.status_code", res.Status.Code()))

	bw := bufio.NewWriterSize(conn, DefaultWriteBufferSize)
	_, err = res.WriteTo(bw)
	if err == nil {
		err = bw.Flush()
	}
	if err != nil {
		logger.WarnContext(ctx, "failed to write response", "error", err)
		s.instruments.recordDrop(ctx, span, dropReasonWrite, err)
		return
	}

	s.instruments.recordResponse(ctx, req, res, start)
}

// dispatch runs the handler registered for the request, falling back to
// NotFoundHandler when there is none.
func (s *Server) dispatch(ctx context.Context, logger *slog.Logger, req *Request) (*Response, error) {
	handler, err := s.routes.Resolve(req.Method, req.Segment())
	if err != nil {
		logger.DebugContext(ctx, "no route", "method", req.Method.String(), "segment", req.Segment(), "reason", err)
		handler = NotFoundHandler
	}

	res, err := handler.Handle(req, NewResponse())
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, ErrNilResponse
	}

	return res, nil
}
