// StanceMap - Geotagged Stance Voting and Opinion Mapping
// Copyright 2026 StanceMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stancemap/stancemap

// Package models defines the shared data types of the vote engine:
//
//   - Stance: the five-value vocabulary with weights and display bands
//   - VoteEvent: one immutable entry in the append-only vote ledger
//   - Topic: a votable subject with its derived resolved vote count
//   - APIResponse / APIError: the HTTP response envelope
//
// Types here carry no behavior beyond validation and derivation; all
// mutation lives in the packages that own the respective lifecycle.
package models
