// Copyright 2025 Objection Authors
// SPDX-License-Identifier: Apache-2.0

package gate

import (
	"net"

	"github.com/objectionfs/objection/pkg/api/apierr"
	"github.com/objectionfs/objection/pkg/types"
)

// IPFilter rejects callers by source address against the configured
// allow-list or deny-list of CIDR blocks.
type IPFilter struct {
	cfg *types.IPFilterConfig
}

func NewIPFilter(cfg *types.IPFilterConfig) *IPFilter {
	return &IPFilter{cfg: cfg}
}

func (f *IPFilter) Type() string {
	return "ip_filter"
}

func (f *IPFilter) Run(d *Data) (Response, error) {
	// Forwarding headers are forgeable; filter on the connection peer.
	ip := net.ParseIP(RemoteIP(d.Req))
	if ip == nil {
		// An address we cannot parse cannot be matched against the
		// allow-list, so it does not get in.
		return nil, apierr.ErrForbidden
	}

	match := f.cfg.Match(ip)
	switch f.cfg.Mode {
	case types.FilterAllow:
		if !match {
			return nil, apierr.ErrForbidden
		}
	case types.FilterDeny:
		if match {
			return nil, apierr.ErrForbidden
		}
	}
	return Next{}, nil
}
