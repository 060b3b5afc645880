// Copyright 2025 Objection Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/objectionfs/objection/pkg/api/apierr"
	"github.com/objectionfs/objection/pkg/catalog"
	"github.com/objectionfs/objection/pkg/logger"
	"github.com/objectionfs/objection/pkg/types"
)

// Request and response headers for object metadata that has no standard
// HTTP equivalent.
const (
	headerCachePolicy = "X-Cache-Policy"
	headerObjectTags  = "X-Object-Tags"
	headerExpiresAt   = "X-Expires-At"
)

// objectKey returns the slash-preserving key matched by the route
// wildcard.
func objectKey(r *http.Request) string {
	return chi.URLParam(r, "*")
}

func (s *Server) handleListObjects(w http.ResponseWriter, r *http.Request) {
	bucketName := chi.URLParam(r, "bucket")
	objects, err := s.engine.ListObjects(r.Context(), bucketName, listParams(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	if bucket, err := s.engine.GetBucket(r.Context(), bucketName); err == nil {
		markBucket(r.Context(), bucket)
	}

	resp := make([]objectResponse, 0, len(objects))
	for _, o := range objects {
		resp = append(resp, toObjectResponse(o))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePutObject(w http.ResponseWriter, r *http.Request) {
	params, err := putParamsFromHeaders(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	obj, err := s.engine.PutObject(r.Context(), chi.URLParam(r, "bucket"), objectKey(r), r.Body, params)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if bucket, err := s.engine.GetBucket(r.Context(), chi.URLParam(r, "bucket")); err == nil {
		markBucket(r.Context(), bucket)
	}
	writeJSON(w, http.StatusCreated, toObjectResponse(obj))
}

func (s *Server) handleGetObject(w http.ResponseWriter, r *http.Request) {
	result, err := s.engine.GetObject(r.Context(), chi.URLParam(r, "bucket"), objectKey(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer result.Body.Close()

	markBucket(r.Context(), result.Bucket)
	setObjectHeaders(w, result)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, result.Body); err != nil {
		// Headers are gone; all we can do is note the broken transfer.
		logger.Ctx(r.Context()).Warn().Err(err).
			Str("bucket", result.Bucket.Name).Str("key", result.Object.Key).
			Msg("aborted object download")
	}
}

func (s *Server) handleHeadObject(w http.ResponseWriter, r *http.Request) {
	result, err := s.engine.StatObject(r.Context(), chi.URLParam(r, "bucket"), objectKey(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	markBucket(r.Context(), result.Bucket)
	setObjectHeaders(w, result)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleDeleteObject(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.DeleteObject(r.Context(), chi.URLParam(r, "bucket"), objectKey(r)); err != nil {
		writeError(w, r, err)
		return
	}

	if bucket, err := s.engine.GetBucket(r.Context(), chi.URLParam(r, "bucket")); err == nil {
		markBucket(r.Context(), bucket)
	}
	w.WriteHeader(http.StatusNoContent)
}

// putParamsFromHeaders extracts optional object metadata from the
// request headers.
func putParamsFromHeaders(r *http.Request) (catalog.PutObjectParams, error) {
	params := catalog.PutObjectParams{
		ContentType: r.Header.Get("Content-Type"),
	}

	if raw := r.Header.Get(headerCachePolicy); raw != "" {
		policy, err := types.ParseCachePolicy(raw)
		if err != nil {
			return params, apierr.ErrInvalidRequest.WithMessage(err.Error())
		}
		params.CachePolicy = &policy
	}

	if raw := r.Header.Get(headerObjectTags); raw != "" {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				params.Tags = append(params.Tags, tag)
			}
		}
	}

	if raw := r.Header.Get(headerExpiresAt); raw != "" {
		expires, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return params, apierr.ErrInvalidRequest.WithMessage(
				fmt.Sprintf("invalid %s header, want RFC 3339: %v", headerExpiresAt, err))
		}
		params.ExpiresAt = &expires
	}
	return params, nil
}

// setObjectHeaders writes the metadata headers shared by GET and HEAD,
// including the Cache-Control line derived from the resolved policy.
func setObjectHeaders(w http.ResponseWriter, result *catalog.ObjectResult) {
	obj := result.Object

	if obj.ContentType != "" {
		w.Header().Set("Content-Type", obj.ContentType)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	w.Header().Set("ETag", `"`+obj.Hash.String()+`"`)
	w.Header().Set("Last-Modified", obj.UpdatedAt.UTC().Format(http.TimeFormat))

	switch result.Policy {
	case types.CachePolicyCache:
		w.Header().Set("Cache-Control", fmt.Sprintf("max-age=%d", int(result.MaxAge.Seconds())))
	default:
		w.Header().Set("Cache-Control", "no-cache")
	}
	w.Header().Set(headerCachePolicy, result.Policy.String())

	if len(obj.Tags) > 0 {
		w.Header().Set(headerObjectTags, strings.Join(obj.Tags, ","))
	}
	if obj.ExpiresAt != nil {
		w.Header().Set(headerExpiresAt, obj.ExpiresAt.UTC().Format(time.RFC3339))
	}
}
