package sfs

import (
	"mime"
	"net"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/snapfiles/internal/logger"
	"github.com/marmos91/snapfiles/pkg/command"
)

// resultName is the synthetic file name the response type is derived from.
const resultName = "result.txt"

var resultContentType = contentTypeFor(resultName)

func contentTypeFor(name string) string {
	if t := mime.TypeByExtension(path.Ext(name)); t != "" {
		return t
	}
	return "text/plain; charset=utf-8"
}

// newRouter wires the middleware chain and the command routes.
//
// HEAD requests are routed to the GET handler; net/http drops the body but
// keeps the headers, Content-Length included.
func (s *SFSAdapter) newRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	if s.limiter != nil {
		r.Use(s.rateLimit)
	}
	r.Use(middleware.GetHead)

	// Every path is a command name, including nested or trailing-slash
	// paths, which dispatch as unknown commands.
	r.Get("/*", s.handleCommand)

	return r
}

// handleCommand decodes the request, runs it and writes the encoded result
// from a per-request buffer.
func (s *SFSAdapter) handleCommand(w http.ResponseWriter, r *http.Request) {
	s.requests.Add(1)

	req := command.NewRequest(chi.URLParam(r, "*"), r.URL.Query())
	result := s.dispatcher.Dispatch(r.Context(), req)

	body := result.Bytes()

	h := w.Header()
	h.Set("Content-Type", resultContentType)
	h.Set("Content-Length", strconv.Itoa(len(body)))
	h.Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
	h.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(body); err != nil {
		logger.Debug("SFS write response: %v", err)
	}
}

func (s *SFSAdapter) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		s.metrics.RecordRequestStart()
		defer s.metrics.RecordRequestEnd()

		logger.Debug("Request started: id=%s method=%s path=%s remote=%s",
			requestID, r.Method, r.URL.Path, r.RemoteAddr)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.metrics.RecordResponse(r.Method, ww.Status(), ww.BytesWritten())
		logger.Debug("Request completed: id=%s method=%s path=%s status=%d bytes=%d duration=%v",
			requestID, r.Method, r.URL.Path, ww.Status(), ww.BytesWritten(), time.Since(start))
	})
}

// rateLimit rejects requests from clients that exhausted their bucket.
func (s *SFSAdapter) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		if !s.limiter.Allow(key) {
			s.metrics.RecordRateLimited()
			logger.Debug("Rate limit exceeded for %s (%.2f tokens left)", key, s.limiter.Tokens(key))
			w.Header().Set("Retry-After", "1")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientKey is the client's IP without the port. RealIP has already
// replaced RemoteAddr when a proxy header was present.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
