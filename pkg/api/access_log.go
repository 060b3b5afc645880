// Copyright 2025 Objection Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/objectionfs/objection/pkg/gate"
	"github.com/objectionfs/objection/pkg/logger"
	"github.com/objectionfs/objection/pkg/types"
)

type accessLogKey struct{}

// accessRecord is filled in by handlers once the bucket is known; the
// middleware reads it after the response to decide whether to log.
type accessRecord struct {
	bucket *types.BucketInfo
}

// markBucket records the resolved bucket for access logging.
func markBucket(ctx context.Context, bucket *types.BucketInfo) {
	if rec, ok := ctx.Value(accessLogKey{}).(*accessRecord); ok {
		rec.bucket = bucket
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += int64(n)
	return n, err
}

// accessLog emits one structured line per request against a bucket with
// access logging enabled. Buckets with it disabled stay silent.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &accessRecord{}
		ctx := context.WithValue(r.Context(), accessLogKey{}, rec)
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		start := time.Now()
		next.ServeHTTP(sw, r.WithContext(ctx))

		if rec.bucket == nil || !rec.bucket.Settings.AccessLogging {
			return
		}
		logger.Ctx(r.Context()).Info().
			Str("bucket", rec.bucket.Name).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("client", gate.ClientIP(r)).
			Int("status", sw.status).
			Int64("bytes", sw.bytes).
			Dur("duration", time.Since(start)).
			Msg("access")
	})
}
