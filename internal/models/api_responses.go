// StanceMap - Geotagged Stance Voting and Opinion Mapping
// Copyright 2026 StanceMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stancemap/stancemap

package models

import "time"

// APIResponse is the standardized envelope used by all HTTP endpoints.
//
//	{
//	  "status": "success",
//	  "data": {...},
//	  "metadata": {"timestamp": "..."},
//	  "error": null
//	}
type APIResponse struct {
	Status   string      `json:"status"` // success or error
	Data     interface{} `json:"data"`
	Metadata *Metadata   `json:"metadata,omitempty"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries response bookkeeping fields.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`

	// Count is the number of items in Data for collection responses.
	Count *int `json:"count,omitempty"`

	// Generation is the snapshot generation time for resolved-set
	// responses. Clients order snapshot-vs-stream merges with it.
	Generation *time.Time `json:"generation,omitempty"`
}

// APIError is a machine-readable error payload.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error codes used across the API surface.
const (
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeAggregation  = "AGGREGATION_ERROR"
)
