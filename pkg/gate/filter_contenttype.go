// Copyright 2025 Objection Authors
// SPDX-License-Identifier: Apache-2.0

package gate

import (
	"mime"

	"github.com/objectionfs/objection/pkg/api/apierr"
	"github.com/objectionfs/objection/pkg/types"
)

// ContentTypeFilter rejects write operations whose declared media type
// is excluded by the configured allow-list or deny-list. Reads and
// lists pass untouched.
type ContentTypeFilter struct {
	cfg *types.ContentTypesConfig
}

func NewContentTypeFilter(cfg *types.ContentTypesConfig) *ContentTypeFilter {
	return &ContentTypeFilter{cfg: cfg}
}

func (f *ContentTypeFilter) Type() string {
	return "content_type"
}

func (f *ContentTypeFilter) Run(d *Data) (Response, error) {
	if d.Op != OpWrite {
		return Next{}, nil
	}

	declared := d.Req.Header.Get("Content-Type")
	if declared == "" {
		// Nothing declared, nothing to filter on.
		return Next{}, nil
	}

	mediaType, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return nil, apierr.ErrUnsupportedMediaType
	}

	match := f.cfg.Match(mediaType)
	switch f.cfg.Mode {
	case types.FilterAllow:
		if !match {
			return nil, apierr.ErrUnsupportedMediaType
		}
	case types.FilterDeny:
		if match {
			return nil, apierr.ErrUnsupportedMediaType
		}
	}
	return Next{}, nil
}
