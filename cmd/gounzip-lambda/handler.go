// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"

	unzip "github.com/hashicorp/go-unzip"
)

// Event is the payload the function is invoked with.
type Event struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// Response summarizes a successful extraction.
type Response struct {
	Entries        int64 `json:"entries"`
	Files          int64 `json:"files"`
	Directories    int64 `json:"directories"`
	Symlinks       int64 `json:"symlinks"`
	ExtractionSize int64 `json:"extraction_size"`
}

type handler struct {
	logger hclog.Logger
	hook   unzip.TelemetryHook
	opts   []unzip.ConfigOption
}

// Handle extracts the archive named in the event
func (h *handler) Handle(ctx context.Context, ev Event) (Response, error) {
	var resp Response
	collect := func(ctx context.Context, td *unzip.TelemetryData) {
		resp = Response{
			Entries:        td.Entries,
			Files:          td.ExtractedFiles,
			Directories:    td.ExtractedDirs,
			Symlinks:       td.ExtractedSymlinks,
			ExtractionSize: td.ExtractionSize,
		}
		if h.hook != nil {
			h.hook(ctx, td)
		}
	}

	opts := append([]unzip.ConfigOption{
		unzip.WithCreateDestination(true),
		unzip.WithLogger(h.logger.With("source", ev.Source)),
		unzip.WithTelemetryHook(collect),
	}, h.opts...)
	cfg := unzip.NewConfig(opts...)

	req := unzip.Request{Destination: ev.Destination, Source: ev.Source}
	if err := unzip.Extract(ctx, req, cfg); err != nil {
		return Response{}, errors.Wrapf(err, "cannot extract %s", ev.Source)
	}
	return resp, nil
}
