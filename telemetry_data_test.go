// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unzip_test

import (
	"fmt"
	"testing"
	"time"

	unzip "github.com/hashicorp/go-unzip"
)

// TestDataString tests the String method of the data struct
func TestDataString(t *testing.T) {
	m := unzip.TelemetryData{
		Entries:             9,
		ExtractedDirs:       1,
		ExtractionDuration:  time.Duration(5 * time.Millisecond),
		ExtractionErrors:    1,
		ExtractedFiles:      5,
		ExtractionSize:      1024,
		ExtractedSymlinks:   2,
		InputSize:           2048,
		LastExtractionError: fmt.Errorf("example error"),
		Source:              "test.zip",
	}

	expected := `{"last_extraction_error":"example error","entries":9,"extracted_dirs":1,"extraction_duration":5000000,"extraction_errors":1,"extracted_files":5,"extraction_size":1024,"extracted_symlinks":2,"input_size":2048,"source":"test.zip"}`
	if m.String() != expected {
		t.Errorf("Expected '%s', but got '%s'", expected, m.String())
	}
}

// TestDataStringWithoutError checks the empty error representation
func TestDataStringWithoutError(t *testing.T) {
	m := unzip.TelemetryData{Source: "test.zip"}

	expected := `{"last_extraction_error":"","entries":0,"extracted_dirs":0,"extraction_duration":0,"extraction_errors":0,"extracted_files":0,"extraction_size":0,"extracted_symlinks":0,"input_size":0,"source":"test.zip"}`
	if m.String() != expected {
		t.Errorf("Expected '%s', but got '%s'", expected, m.String())
	}
}
