// StanceMap - Geotagged Stance Voting and Opinion Mapping
// Copyright 2026 StanceMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stancemap/stancemap

package models

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIResponseSuccessEnvelope(t *testing.T) {
	count := 3
	resp := APIResponse{
		Status: "success",
		Data:   []string{"a", "b", "c"},
		Metadata: &Metadata{
			Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			Count:     &count,
		},
	}

	out, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"metadata":`)
	assert.Contains(t, string(out), `"count":3`)
	assert.NotContains(t, string(out), `"error"`)
}

func TestAPIResponseErrorEnvelopeOmitsMetadata(t *testing.T) {
	resp := APIResponse{
		Status: "error",
		Error:  &APIError{Code: ErrCodeNotFound, Message: "topic not found"},
	}

	out, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.NotContains(t, string(out), `"metadata"`)
	assert.Contains(t, string(out), `"NOT_FOUND"`)
}
