// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package cloudwatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchevents"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchevents/types"

	unzip "github.com/hashicorp/go-unzip"
)

const (
	// DefaultSource is the event source of published entries.
	DefaultSource = "go-unzip"

	// DefaultDetailType is the detail type of published entries.
	DefaultDetailType = "Extraction Finished"

	// DefaultTimeout limits the time spent publishing one entry.
	DefaultTimeout = 10 * time.Second
)

// PutEventsAPI is the part of the CloudWatch Events client used by the hook.
// It is satisfied by *cloudwatchevents.Client.
type PutEventsAPI interface {
	PutEvents(ctx context.Context, params *cloudwatchevents.PutEventsInput, optFns ...func(*cloudwatchevents.Options)) (*cloudwatchevents.PutEventsOutput, error)
}

// Option adjusts the hook created by [NewHook].
type Option func(*hook)

// WithSource sets the event source.
func WithSource(source string) Option {
	return func(h *hook) {
		h.source = source
	}
}

// WithDetailType sets the event detail type.
func WithDetailType(detailType string) Option {
	return func(h *hook) {
		h.detailType = detailType
	}
}

// WithEventBus publishes to the named event bus instead of the default bus.
func WithEventBus(name string) Option {
	return func(h *hook) {
		h.eventBus = name
	}
}

// WithTimeout sets the timeout for publishing one entry.
func WithTimeout(timeout time.Duration) Option {
	return func(h *hook) {
		if timeout > 0 {
			h.timeout = timeout
		}
	}
}

// WithErrorHandler sets a function that is called if an entry cannot be
// published. Errors are dropped by default.
func WithErrorHandler(fn func(error)) Option {
	return func(h *hook) {
		h.onError = fn
	}
}

type hook struct {
	client     PutEventsAPI
	source     string
	detailType string
	eventBus   string
	timeout    time.Duration
	onError    func(error)
}

// now is replaced in tests
var now = time.Now

// NewHook returns a telemetry hook that publishes the telemetry data with client.
// The hook is safe for concurrent use if client is.
func NewHook(client PutEventsAPI, opts ...Option) unzip.TelemetryHook {
	h := &hook{
		client:     client,
		source:     DefaultSource,
		detailType: DefaultDetailType,
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h.publish
}

func (h *hook) publish(ctx context.Context, td *unzip.TelemetryData) {
	if err := h.put(ctx, td); err != nil && h.onError != nil {
		h.onError(err)
	}
}

func (h *hook) put(ctx context.Context, td *unzip.TelemetryData) error {
	detail, err := json.Marshal(td)
	if err != nil {
		return fmt.Errorf("cannot marshal telemetry data: %w", err)
	}

	entry := types.PutEventsRequestEntry{
		Detail:     aws.String(string(detail)),
		DetailType: aws.String(h.detailType),
		Source:     aws.String(h.source),
		Time:       aws.Time(now()),
	}
	if len(h.eventBus) > 0 {
		entry.EventBusName = aws.String(h.eventBus)
	}

	// a canceled extraction is still reported
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.timeout)
	defer cancel()

	out, err := h.client.PutEvents(ctx, &cloudwatchevents.PutEventsInput{
		Entries: []types.PutEventsRequestEntry{entry},
	})
	if err != nil {
		return fmt.Errorf("cannot put event: %w", err)
	}
	for _, e := range out.Entries {
		if e.ErrorCode != nil {
			return fmt.Errorf("event rejected: %s: %s", aws.ToString(e.ErrorCode), aws.ToString(e.ErrorMessage))
		}
	}
	return nil
}
