// Copyright 2025 Objection Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/objectionfs/objection/pkg/api/apierr"
	"github.com/objectionfs/objection/pkg/types"
)

type createBucketRequest struct {
	Name               string  `json:"name"`
	DefaultCachePolicy *string `json:"default_cache_policy"`
	AccessLogging      bool    `json:"access_logging"`
}

type updateBucketRequest struct {
	DefaultCachePolicy *string `json:"default_cache_policy"`
	AccessLogging      *bool   `json:"access_logging"`
}

func (s *Server) handleListBuckets(w http.ResponseWriter, r *http.Request) {
	buckets, err := s.engine.ListBuckets(r.Context(), listParams(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]bucketResponse, 0, len(buckets))
	for _, b := range buckets {
		resp = append(resp, toBucketResponse(b))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateBucket(w http.ResponseWriter, r *http.Request) {
	var req createBucketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apierr.ErrInvalidRequest.WithMessage("malformed request body"))
		return
	}

	settings := types.BucketSettings{AccessLogging: req.AccessLogging}
	if req.DefaultCachePolicy != nil {
		policy, err := types.ParseCachePolicy(*req.DefaultCachePolicy)
		if err != nil {
			writeError(w, r, apierr.ErrInvalidRequest.WithMessage(err.Error()))
			return
		}
		settings.DefaultCachePolicy = &policy
	}

	bucket, err := s.engine.CreateBucket(r.Context(), req.Name, settings)
	if err != nil {
		writeError(w, r, err)
		return
	}
	markBucket(r.Context(), bucket)
	writeJSON(w, http.StatusCreated, toBucketResponse(bucket))
}

func (s *Server) handleGetBucket(w http.ResponseWriter, r *http.Request) {
	bucket, err := s.engine.GetBucket(r.Context(), chi.URLParam(r, "bucket"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	markBucket(r.Context(), bucket)
	writeJSON(w, http.StatusOK, toBucketResponse(bucket))
}

// handleUpdateBucket merges the provided fields into the bucket's
// current settings; omitted fields keep their value.
func (s *Server) handleUpdateBucket(w http.ResponseWriter, r *http.Request) {
	var req updateBucketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apierr.ErrInvalidRequest.WithMessage("malformed request body"))
		return
	}

	name := chi.URLParam(r, "bucket")
	current, err := s.engine.GetBucket(r.Context(), name)
	if err != nil {
		writeError(w, r, err)
		return
	}

	settings := current.Settings
	if req.DefaultCachePolicy != nil {
		if *req.DefaultCachePolicy == "" {
			settings.DefaultCachePolicy = nil
		} else {
			policy, err := types.ParseCachePolicy(*req.DefaultCachePolicy)
			if err != nil {
				writeError(w, r, apierr.ErrInvalidRequest.WithMessage(err.Error()))
				return
			}
			settings.DefaultCachePolicy = &policy
		}
	}
	if req.AccessLogging != nil {
		settings.AccessLogging = *req.AccessLogging
	}

	bucket, err := s.engine.UpdateBucketSettings(r.Context(), name, settings)
	if err != nil {
		writeError(w, r, err)
		return
	}
	markBucket(r.Context(), bucket)
	writeJSON(w, http.StatusOK, toBucketResponse(bucket))
}

func (s *Server) handleDeleteBucket(w http.ResponseWriter, r *http.Request) {
	// Fetch the settings first; the delete is the last chance to know
	// whether this bucket wanted its accesses logged.
	bucket, err := s.engine.GetBucket(r.Context(), chi.URLParam(r, "bucket"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.engine.DeleteBucket(r.Context(), bucket.Name); err != nil {
		writeError(w, r, err)
		return
	}
	markBucket(r.Context(), bucket)
	w.WriteHeader(http.StatusNoContent)
}
