// Copyright 2025 Objection Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/objectionfs/objection/pkg/api/apierr"
	"github.com/objectionfs/objection/pkg/catalog"
	"github.com/objectionfs/objection/pkg/catalog/db"
	"github.com/objectionfs/objection/pkg/logger"
	"github.com/objectionfs/objection/pkg/storage/blob"
	"github.com/objectionfs/objection/pkg/types"
)

type bucketResponse struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	DefaultCachePolicy string `json:"default_cache_policy,omitempty"`
	AccessLogging      bool   `json:"access_logging"`
	CreatedAt          string `json:"created_at"`
}

type objectResponse struct {
	Key         string   `json:"key"`
	Hash        string   `json:"hash"`
	Size        int64    `json:"size"`
	ContentType string   `json:"content_type,omitempty"`
	CachePolicy string   `json:"cache_policy,omitempty"`
	ExpiresAt   string   `json:"expires_at,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

func toBucketResponse(b *types.BucketInfo) bucketResponse {
	resp := bucketResponse{
		ID:            b.ID.String(),
		Name:          b.Name,
		AccessLogging: b.Settings.AccessLogging,
		CreatedAt:     b.CreatedAt.UTC().Format(time.RFC3339),
	}
	if b.Settings.DefaultCachePolicy != nil {
		resp.DefaultCachePolicy = b.Settings.DefaultCachePolicy.String()
	}
	return resp
}

func toObjectResponse(o *types.ObjectInfo) objectResponse {
	resp := objectResponse{
		Key:         o.Key,
		Hash:        o.Hash.String(),
		Size:        o.Size,
		ContentType: o.ContentType,
		Tags:        o.Tags,
		CreatedAt:   o.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   o.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if o.CachePolicy != nil {
		resp.CachePolicy = o.CachePolicy.String()
	}
	if o.ExpiresAt != nil {
		resp.ExpiresAt = o.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error().Err(err).Msg("failed to encode response body")
	}
}

// writeError maps internal errors onto the wire-level vocabulary.
// Unknown errors are logged and reported as InternalError.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr apierr.APIError
	switch {
	case errors.As(err, &apiErr):
		// already wire-level
	case errors.Is(err, db.ErrBucketNotFound):
		apiErr = apierr.ErrBucketNotFound
	case errors.Is(err, db.ErrBucketExists):
		apiErr = apierr.ErrBucketAlreadyExists
	case errors.Is(err, db.ErrObjectNotFound):
		apiErr = apierr.ErrObjectNotFound
	case errors.Is(err, catalog.ErrExpired):
		apiErr = apierr.ErrObjectExpired
	case errors.Is(err, blob.ErrNotFound):
		apiErr = apierr.ErrObjectNotFound
	case errors.Is(err, catalog.ErrInvalidBucketName),
		errors.Is(err, catalog.ErrInvalidObjectKey):
		apiErr = apierr.ErrInvalidRequest.WithMessage(err.Error())
	default:
		logger.Ctx(r.Context()).Error().Err(err).
			Str("method", r.Method).Str("path", r.URL.Path).
			Msg("request failed")
		apiErr = apierr.ErrInternal
	}
	apierr.Write(w, apiErr)
}

// listParams reads ?page, ?limit and ?prefix from the query string.
func listParams(r *http.Request) db.ListParams {
	q := r.URL.Query()
	params := db.ListParams{Prefix: q.Get("prefix")}
	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		params.Page = page
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
		params.Limit = limit
	}
	return params.Normalize()
}
