// Package mock provides a local echo API. It reflects every request it
// receives as JSON, and offers routes for redirects, delays, status codes
// and protocol errors. The CLI serves it with `rede echo` and tests use it
// through httptest.
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/abdul-hamid-achik/rede/packages/core/logging"
	"github.com/abdul-hamid-achik/rede/packages/output"
)

// EchoResponse is what the echo routes send back.
type EchoResponse struct {
	Method         string          `json:"method"`
	URL            string          `json:"url"`
	HTTPVersion    string          `json:"http_version"`
	Headers        map[string]any  `json:"headers"`
	NumHeaders     int             `json:"num_headers"`
	QueryParams    map[string]any  `json:"query_params"`
	NumQueryParams int             `json:"num_query_params"`
	Body           json.RawMessage `json:"body"`
}

type Server struct {
	router *Router
	port   int
	delay  time.Duration
	log    logrus.FieldLogger
}

// Option is a functional option for Server
type Option func(*Server)

func WithPort(port int) Option {
	return func(s *Server) {
		s.port = port
	}
}

// WithDelay adds a delay to all responses
func WithDelay(delay time.Duration) Option {
	return func(s *Server) {
		s.delay = delay
	}
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Server) {
		if logger == nil {
			logger = logging.Discard()
		}
		s.log = logger
	}
}

func NewServer(opts ...Option) *Server {
	s := &Server{
		router: NewRouter(),
		port:   8080,
		log:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Handle("", "/", "echo", s.handleEcho)
	s.router.Handle("", "/echo", "echo", s.handleEcho)
	s.router.Handle(http.MethodGet, "/get", "hello", s.handleHello)
	s.router.Handle("", "/redirect/{{n}}", "redirect", s.handleRedirect)
	s.router.Handle("", "/redirect-to", "redirect-to", s.handleRedirectTo)
	s.router.Handle("", "/loop", "loop", s.handleLoop)
	s.router.Handle("", "/delay/{{ms}}", "delay", s.handleDelay)
	s.router.Handle("", "/status/{{code}}", "status", s.handleStatus)
	s.router.Handle("", "/bytes/{{n}}", "bytes", s.handleBytes)
	s.router.Handle("", "/bad-version", "bad-version", s.handleBadVersion)
}

// Handler serves HTTP/1.x and HTTP/2 with prior knowledge.
func (s *Server) Handler() http.Handler {
	return h2c.NewHandler(s, &http2.Server{})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-r.Context().Done():
			return
		}
	}

	route, params := s.router.Match(r.Method, r.URL.Path)
	log := s.log.WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"proto":  r.Proto,
	})
	if route == nil {
		log.WithField("elapsed", time.Since(start)).Info("no route")
		http.NotFound(w, r)
		return
	}

	route.Handler(w, r, params)
	log.WithFields(logrus.Fields{
		"route":   route.Name,
		"elapsed": time.Since(start),
	}).Info("served")
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	s.log.WithField("port", s.port).Infof("echo server listening on http://localhost:%d", s.port)
	for _, route := range s.router.Routes() {
		method := route.Method
		if method == "" {
			method = "*"
		}
		s.log.Debugf("  %s %s", method, route.PathPattern)
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleEcho(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	echo, err := Echo(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, echo)
}

func (s *Server) handleHello(w http.ResponseWriter, _ *http.Request, _ map[string]string) {
	writeJSON(w, http.StatusOK, map[string]string{"hello": "world"})
}

func (s *Server) handleRedirect(w http.ResponseWriter, r *http.Request, params map[string]string) {
	n, err := strconv.Atoi(params["n"])
	if err != nil || n < 0 {
		http.Error(w, "redirect count must be a non-negative integer", http.StatusBadRequest)
		return
	}
	target := "/get"
	if n > 1 {
		target = "/redirect/" + strconv.Itoa(n-1)
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Server) handleRedirectTo(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	target := r.URL.Query().Get("url")
	if target == "" {
		http.Error(w, "missing url query parameter", http.StatusBadRequest)
		return
	}
	status := http.StatusFound
	if raw := r.URL.Query().Get("status"); raw != "" {
		code, err := strconv.Atoi(raw)
		if err != nil || code < 300 || code > 399 {
			http.Error(w, "status must be a 3xx code", http.StatusBadRequest)
			return
		}
		status = code
	}
	w.Header().Set("Location", target)
	w.WriteHeader(status)
}

func (s *Server) handleLoop(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	http.Redirect(w, r, "/loop", http.StatusFound)
}

func (s *Server) handleDelay(w http.ResponseWriter, r *http.Request, params map[string]string) {
	ms, err := strconv.Atoi(params["ms"])
	if err != nil || ms < 0 {
		http.Error(w, "delay must be a non-negative number of milliseconds", http.StatusBadRequest)
		return
	}
	select {
	case <-time.After(time.Duration(ms) * time.Millisecond):
	case <-r.Context().Done():
		return
	}
	s.handleEcho(w, r, params)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request, params map[string]string) {
	code, err := strconv.Atoi(params["code"])
	if err != nil || code < 100 || code > 599 {
		http.Error(w, "status must be between 100 and 599", http.StatusBadRequest)
		return
	}
	w.WriteHeader(code)
}

func (s *Server) handleBytes(w http.ResponseWriter, _ *http.Request, params map[string]string) {
	n, err := strconv.Atoi(params["n"])
	if err != nil || n < 0 || n > 1<<20 {
		http.Error(w, "size must be between 0 and 1048576", http.StatusBadRequest)
		return
	}
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 256)
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(n))
	w.Write(data)
}

// handleBadVersion answers with a status line no client can parse.
func (s *Server) handleBadVersion(w http.ResponseWriter, _ *http.Request, _ map[string]string) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		http.Error(w, "connection cannot be hijacked", http.StatusInternalServerError)
		return
	}
	conn, buf, err := hj.Hijack()
	if err != nil {
		return
	}
	defer conn.Close()
	buf.WriteString("HTTP/x 200 OK\r\nContent-Length: 2\r\n\r\nok")
	buf.Flush()
}

// Echo describes r the way the echo routes report it.
func Echo(r *http.Request) (*EchoResponse, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	echo := &EchoResponse{
		Method:      r.Method,
		URL:         r.URL.RequestURI(),
		HTTPVersion: r.Proto,
		Headers:     map[string]any{},
		QueryParams: map[string]any{},
		Body:        output.EncodeBody(body, r.Header.Get("Content-Type")),
	}
	if r.ProtoMajor == 2 {
		echo.HTTPVersion = "HTTP/2"
	}

	if r.Host != "" {
		echo.Headers["host"] = r.Host
		echo.NumHeaders++
	}
	for name, values := range r.Header {
		key := strings.ToLower(name)
		for _, v := range values {
			echo.Headers[key] = group(echo.Headers[key], v)
			echo.NumHeaders++
		}
	}

	for _, pair := range strings.Split(r.URL.RawQuery, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		if k, err := url.QueryUnescape(key); err == nil {
			key = k
		}
		if v, err := url.QueryUnescape(value); err == nil {
			value = v
		}
		echo.QueryParams[key] = group(echo.QueryParams[key], value)
		echo.NumQueryParams++
	}
	return echo, nil
}

func group(existing any, value string) any {
	switch v := existing.(type) {
	case nil:
		return value
	case string:
		return []string{v, value}
	case []string:
		return append(v, value)
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}
