// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package cloudwatch provides an [unzip.TelemetryHook] that publishes the
// telemetry data of every extraction as a CloudWatch Events entry.
//
// The JSON encoding of [unzip.TelemetryData] is sent as event detail, so
// rules can match on fields like extraction_errors or source.
package cloudwatch
