// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"os"
	"strconv"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchevents"
	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"

	unzip "github.com/hashicorp/go-unzip"
	"github.com/hashicorp/go-unzip/telemetry/cloudwatch"
)

// environment variables that configure the function
const (
	envEventBus          = "GOUNZIP_EVENT_BUS"
	envLogLevel          = "GOUNZIP_LOG_LEVEL"
	envMaxExtractionSize = "GOUNZIP_MAX_EXTRACTION_SIZE"
	envMaxFiles          = "GOUNZIP_MAX_FILES"
)

func main() {
	logger := hclog.New(&hclog.LoggerOptions{
		Name:       "gounzip",
		JSONFormat: true,
		Level:      hclog.LevelFromString(os.Getenv(envLogLevel)),
	})

	h, err := newHandler(context.Background(), logger, os.Getenv)
	if err != nil {
		logger.Error("cannot initialize handler", "error", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

// newHandler configures a handler from the environment. If an event bus is
// configured, telemetry data is published to CloudWatch Events.
func newHandler(ctx context.Context, logger hclog.Logger, getenv func(string) string) (*handler, error) {
	h := &handler{logger: logger}

	if v := getenv(envMaxExtractionSize); v != "" {
		size, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid %s", envMaxExtractionSize)
		}
		h.opts = append(h.opts, unzip.WithMaxExtractionSize(size))
	}
	if v := getenv(envMaxFiles); v != "" {
		files, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid %s", envMaxFiles)
		}
		h.opts = append(h.opts, unzip.WithMaxFiles(files))
	}

	bus := getenv(envEventBus)
	if bus == "" {
		return h, nil
	}

	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "cannot load aws config")
	}
	h.hook = cloudwatch.NewHook(cloudwatchevents.NewFromConfig(awsCfg),
		cloudwatch.WithEventBus(bus),
		cloudwatch.WithErrorHandler(func(err error) {
			logger.Warn("cannot publish telemetry data", "error", err)
		}),
	)
	return h, nil
}
