// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package middleware provides HTTP middleware for the control API.
package middleware

import (
	"net/http"
	"time"

	"github.com/ManuGH/tetherd/internal/log"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// RequestLogger stores chi's request ID in the log context and writes one
// access line per request. It must run after chimw.RequestID.
func RequestLogger() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := r.Context()
			if id := chimw.GetReqID(ctx); id != "" {
				ctx = log.ContextWithRequestID(ctx, id)
				w.Header().Set("X-Request-ID", id)
			}
			r = r.WithContext(ctx)

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger := log.WithComponentFromContext(ctx, "api")
			ev := logger.Info()
			if status >= http.StatusInternalServerError {
				ev = logger.Error()
			}
			if traceID, _ := TraceIDs(r); traceID != "" {
				ev = ev.Str("trace_id", traceID)
			}
			ev.Str("event", "http.request").
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("remote_addr", r.RemoteAddr).
				Msg("request handled")
		})
	}
}
