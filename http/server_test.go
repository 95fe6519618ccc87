package http

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/freekieb7/corehttp/test"
)

func echoHandler(req *Request, res *Response) (*Response, error) {
	payload := strings.TrimPrefix(req.Path, "echo/")
	return res.WithContentType(ContentTypeTextPlain).Encode([]byte(payload), req.PreferredEncoding())
}

// startServer runs srv in the background and shuts it down when the test ends.
func startServer(t *testing.T, b *Builder) (*Server, <-chan error) {
	t.Helper()

	srv, err := b.Logger(discardLogger).Build()
	test.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run() }()

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			t.Errorf("shutdown: %v", err)
		}
	})

	return srv, errCh
}

// roundTrip writes raw to the server and reads until the server closes.
func roundTrip(t *testing.T, srv *Server, raw string) []byte {
	t.Helper()

	conn, err := net.Dial("tcp", srv.Addr().String())
	test.NoError(t, err)
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(5 * time.Second))
	_, err = conn.Write([]byte(raw))
	test.NoError(t, err)

	out, err := io.ReadAll(conn)
	if err != nil {
		t.Logf("read: %v", err)
	}
	return out
}

func TestServerEcho(t *testing.T) {
	srv, _ := startServer(t, New("127.0.0.1:0").Get("echo", echoHandler))

	out := roundTrip(t, srv, "GET /echo/hello HTTP/1.1\r\nAccept-Encoding: identity\r\n\r\n")

	expected := "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 5\r\nContent-Encoding: \r\n\r\nhello"
	test.EqualBytes(t, []byte(expected), out)
}

func TestServerEchoGzip(t *testing.T) {
	srv, _ := startServer(t, New("127.0.0.1:0").Get("echo", echoHandler))

	out := roundTrip(t, srv, "GET /echo/hello HTTP/1.1\r\nAccept-Encoding: gzip\r\n\r\n")

	compressed, err := EncodePayload([]byte("hello"), EncodingGzip)
	test.NoError(t, err)

	expected := NewResponse().WithBody(compressed).WithEncoding(EncodingGzip).Bytes()
	test.EqualBytes(t, expected, out)
}

func TestServerEchoGzipRefused(t *testing.T) {
	srv, _ := startServer(t, New("127.0.0.1:0").Get("echo", echoHandler))

	for _, accept := range []string{"gzip;q=0", "gzip; q=0"} {
		out := roundTrip(t, srv, "GET /echo/hello HTTP/1.1\r\nAccept-Encoding: "+accept+"\r\n\r\n")

		expected := "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 5\r\nContent-Encoding: \r\n\r\nhello"
		test.EqualBytes(t, []byte(expected), out)
	}
}

func TestServerNotFound(t *testing.T) {
	srv, _ := startServer(t, New("127.0.0.1:0").
		Get("echo", echoHandler).
		Get("/", func(req *Request, res *Response) (*Response, error) { return res, nil }))

	tests := []string{
		"GET /nonexistent HTTP/1.1\r\n\r\n",
		"POST /echo/hello HTTP/1.1\r\n\r\n",
		"DELETE / HTTP/1.1\r\n\r\n",
	}

	expected := "HTTP/1.1 404 Not Found\r\nContent-Type: text/plain\r\nContent-Length: 0\r\nContent-Encoding: \r\n\r\n"
	for _, raw := range tests {
		test.EqualBytes(t, []byte(expected), roundTrip(t, srv, raw))
	}
}

func TestServerRoot(t *testing.T) {
	srv, _ := startServer(t, New("127.0.0.1:0").
		Get("/", func(req *Request, res *Response) (*Response, error) { return res, nil }))

	out := roundTrip(t, srv, "GET / HTTP/1.1\r\nHost: localhost\r\n\r\n")
	if !bytes.HasPrefix(out, []byte("HTTP/1.1 200 OK\r\n")) {
		t.Errorf("unexpected response: %q", out)
	}
}

func TestServerDispatchesExactlyOnce(t *testing.T) {
	var echoCalls, otherCalls atomic.Int64

	router := NewRouter("files").
		Post("", func(req *Request, res *Response) (*Response, error) {
			echoCalls.Add(1)
			return res.WithStatus(StatusCreated).WithText(req.Text()), nil
		}).
		Get("", func(req *Request, res *Response) (*Response, error) {
			otherCalls.Add(1)
			return res, nil
		})

	srv, _ := startServer(t, New("127.0.0.1:0").WithRouter(router))

	out := roundTrip(t, srv, "POST /files/notes.txt HTTP/1.1\r\nContent-Length: 4\r\n\r\nnote")

	test.Equal(t, int64(1), echoCalls.Load())
	test.Equal(t, int64(0), otherCalls.Load())
	if !bytes.HasPrefix(out, []byte("HTTP/1.1 201 Created\r\n")) || !bytes.HasSuffix(out, []byte("\r\n\r\nnote")) {
		t.Errorf("unexpected response: %q", out)
	}
}

func TestServerLastRegistrationWins(t *testing.T) {
	srv, _ := startServer(t, New("127.0.0.1:0").
		Get("echo", func(req *Request, res *Response) (*Response, error) { return res.WithText("first"), nil }).
		Get("echo", func(req *Request, res *Response) (*Response, error) { return res.WithText("second"), nil }))

	out := roundTrip(t, srv, "GET /echo HTTP/1.1\r\n\r\n")
	if !bytes.HasSuffix(out, []byte("second")) {
		t.Errorf("expected second handler, got %q", out)
	}
}

func TestServerDropsWithoutResponse(t *testing.T) {
	srv, _ := startServer(t, New("127.0.0.1:0").
		Get("fail", func(req *Request, res *Response) (*Response, error) {
			return nil, errors.New("disk on fire")
		}).
		Get("panic", func(req *Request, res *Response) (*Response, error) {
			panic("boom")
		}).
		Get("nil", func(req *Request, res *Response) (*Response, error) {
			return nil, nil
		}).
		Get("echo", echoHandler))

	tests := []string{
		"BREW /coffee HTTP/1.1\r\n\r\n",
		"GET /echo\r\n\r\n",
		"GET /fail HTTP/1.1\r\n\r\n",
		"GET /panic HTTP/1.1\r\n\r\n",
		"GET /nil HTTP/1.1\r\n\r\n",
		"GET /" + strings.Repeat("a", DefaultReadBufferSize) + " HTTP/1.1\r\n\r\n",
	}

	for _, raw := range tests {
		if out := roundTrip(t, srv, raw); len(out) != 0 {
			t.Errorf("%.40q: expected no response, got %q", raw, out)
		}
	}

	// The workers survive all of the above.
	out := roundTrip(t, srv, "GET /echo/alive HTTP/1.1\r\n\r\n")
	if !bytes.HasSuffix(out, []byte("alive")) {
		t.Errorf("unexpected response: %q", out)
	}
}

func TestServerConcurrentRequests(t *testing.T) {
	srv, _ := startServer(t, New("127.0.0.1:0").Workers(3).Get("echo", echoHandler))

	const n = 20
	results := make(chan []byte, n)
	for range n {
		go func() {
			results <- roundTrip(t, srv, "GET /echo/ping HTTP/1.1\r\n\r\n")
		}()
	}

	for range n {
		if out := <-results; !bytes.HasSuffix(out, []byte("\r\n\r\nping")) {
			t.Errorf("unexpected response: %q", out)
		}
	}
}

func TestServerShutdownUnblocksRun(t *testing.T) {
	srv, err := New("127.0.0.1:0").Logger(discardLogger).Build()
	test.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	test.NoError(t, srv.Shutdown(ctx))

	select {
	case err := <-errCh:
		test.ErrorIs(t, err, ErrServerClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Shutdown")
	}

	test.ErrorIs(t, srv.Run(), ErrServerStarted)
}

func TestServerShutdownWaitsForInFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	srv, err := New("127.0.0.1:0").
		Logger(discardLogger).
		Workers(1).
		Get("slow", func(req *Request, res *Response) (*Response, error) {
			close(started)
			<-release
			return res.WithText("done"), nil
		}).
		Build()
	test.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run() }()

	outCh := make(chan []byte, 1)
	go func() {
		outCh <- roundTrip(t, srv, "GET /slow HTTP/1.1\r\n\r\n")
	}()
	<-started

	shutdownErr := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		shutdownErr <- srv.Shutdown(ctx)
	}()

	select {
	case err := <-shutdownErr:
		t.Fatalf("Shutdown returned before the in-flight request finished: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)

	test.NoError(t, <-shutdownErr)
	test.ErrorIs(t, <-errCh, ErrServerClosed)
	if out := <-outCh; !bytes.HasSuffix(out, []byte("done")) {
		t.Errorf("unexpected response: %q", out)
	}
}

func TestServerShutdownTimeout(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})

	srv, err := New("127.0.0.1:0").
		Logger(discardLogger).
		Workers(1).
		Get("slow", func(req *Request, res *Response) (*Response, error) {
			close(started)
			<-release
			return res, nil
		}).
		Build()
	test.NoError(t, err)
	go srv.Run()

	outCh := make(chan []byte, 1)
	go func() {
		outCh <- roundTrip(t, srv, "GET /slow HTTP/1.1\r\n\r\n")
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	test.ErrorIs(t, srv.Shutdown(ctx), context.DeadlineExceeded)

	close(release)
	<-outCh
}

func TestServerShutdownBeforeRun(t *testing.T) {
	srv, err := New("127.0.0.1:0").Logger(discardLogger).Build()
	test.NoError(t, err)

	test.NoError(t, srv.Shutdown(context.Background()))
	test.ErrorIs(t, srv.Run(), ErrServerClosed)
}

func TestBuildErrors(t *testing.T) {
	_, err := New("127.0.0.1:0").Workers(0).Build()
	test.ErrorIs(t, err, ErrInvalidPoolSize)

	srv, _ := startServer(t, New("127.0.0.1:0"))
	if _, err := New(srv.Addr().String()).Build(); err == nil {
		t.Error("expected bind error for an address in use")
	}
}

func TestServerStandardClient(t *testing.T) {
	srv, _ := startServer(t, New("127.0.0.1:0").Get("echo", echoHandler))

	client := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport.(*http.Transport).Clone()),
		Timeout:   5 * time.Second,
	}

	resp, err := client.Get("http://" + srv.Addr().String() + "/echo/testing")
	test.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	test.NoError(t, err)

	test.Equal(t, http.StatusOK, resp.StatusCode)
	test.Equal(t, "text/plain", resp.Header.Get("Content-Type"))
	test.Equal(t, "testing", string(body))
}

func TestServerTelemetry(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	recorder := tracetest.NewSpanRecorder()
	tracerProvider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	srv, _ := startServer(t, New("127.0.0.1:0").
		Get("echo", echoHandler).
		MeterProvider(meterProvider).
		TracerProvider(tracerProvider))

	roundTrip(t, srv, "GET /echo/hi HTTP/1.1\r\n\r\n")
	roundTrip(t, srv, "GET /missing HTTP/1.1\r\n\r\n")
	roundTrip(t, srv, "NOPE / HTTP/1.1\r\n\r\n")

	spans := recorder.Ended()
	test.Equal(t, 3, len(spans))
	for _, span := range spans {
		test.Equal(t, "http.conn", span.Name())
	}

	var rm metricdata.ResourceMetrics
	test.NoError(t, reader.Collect(context.Background(), &rm))

	requests := sumByAttr(t, rm, "http.server.requests", "http.response.status_code")
	test.Equal(t, int64(1), requests["200"])
	test.Equal(t, int64(1), requests["404"])

	dropped := sumByAttr(t, rm, "http.server.dropped", "reason")
	test.Equal(t, int64(1), dropped["parse"])
}

// sumByAttr flattens an int64 sum into attribute value -> count.
func sumByAttr(t *testing.T, rm metricdata.ResourceMetrics, name string, key attribute.Key) map[string]int64 {
	t.Helper()

	out := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s: unexpected data type %T", name, m.Data)
			}
			for _, dp := range sum.DataPoints {
				if v, found := dp.Attributes.Value(key); found {
					out[v.Emit()] += dp.Value
				}
			}
		}
	}
	return out
}
