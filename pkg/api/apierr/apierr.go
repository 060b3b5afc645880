// Copyright 2025 Objection Authors
// SPDX-License-Identifier: Apache-2.0

// Package apierr defines the wire-level error vocabulary of the HTTP
// API. Every rejection and catalog failure maps to exactly one APIError.
package apierr

import (
	"encoding/json"
	"net/http"
)

// APIError is an error the server intentionally returns to a caller.
type APIError struct {
	Code           string
	Description    string
	HTTPStatusCode int
}

func (e APIError) Error() string {
	return e.Description
}

// Policy rejections.
var (
	ErrForbidden = APIError{
		Code:           "Forbidden",
		Description:    "your address is not allowed to access this server",
		HTTPStatusCode: http.StatusForbidden,
	}
	ErrTooManyRequests = APIError{
		Code:           "TooManyRequests",
		Description:    "request rate limit exceeded, slow down",
		HTTPStatusCode: http.StatusTooManyRequests,
	}
	ErrUnauthorized = APIError{
		Code:           "Unauthorized",
		Description:    "a valid access token is required",
		HTTPStatusCode: http.StatusUnauthorized,
	}
	ErrUnsupportedMediaType = APIError{
		Code:           "UnsupportedMediaType",
		Description:    "the declared content type is not accepted by this server",
		HTTPStatusCode: http.StatusUnsupportedMediaType,
	}
	ErrCORSRejected = APIError{
		Code:           "CORSRejected",
		Description:    "cross-origin request not allowed",
		HTTPStatusCode: http.StatusForbidden,
	}
)

// Catalog failures.
var (
	ErrBucketNotFound = APIError{
		Code:           "BucketNotFound",
		Description:    "the specified bucket does not exist",
		HTTPStatusCode: http.StatusNotFound,
	}
	ErrBucketAlreadyExists = APIError{
		Code:           "BucketAlreadyExists",
		Description:    "a bucket with that name already exists",
		HTTPStatusCode: http.StatusConflict,
	}
	ErrObjectNotFound = APIError{
		Code:           "ObjectNotFound",
		Description:    "the specified object does not exist",
		HTTPStatusCode: http.StatusNotFound,
	}
	// Expired objects are logically deleted; callers see NotFound.
	ErrObjectExpired = APIError{
		Code:           "ObjectExpired",
		Description:    "the specified object has expired",
		HTTPStatusCode: http.StatusNotFound,
	}
)

// Request/server failures.
var (
	ErrInvalidRequest = APIError{
		Code:           "InvalidRequest",
		Description:    "the request is malformed",
		HTTPStatusCode: http.StatusBadRequest,
	}
	ErrInternal = APIError{
		Code:           "InternalError",
		Description:    "an internal error occurred, please try again",
		HTTPStatusCode: http.StatusInternalServerError,
	}
)

// WithMessage returns a copy of the error with a specific description.
func (e APIError) WithMessage(msg string) APIError {
	e.Description = msg
	return e
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Write sends the error as a JSON response body.
func Write(w http.ResponseWriter, e APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.HTTPStatusCode)
	_ = json.NewEncoder(w).Encode(errorBody{Error: e.Code, Message: e.Description})
}
