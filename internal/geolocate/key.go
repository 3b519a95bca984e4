// Locus - WiFi Geolocation Resolution Cache Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/locus

// Package geolocate implements the resolution pipeline: cache key
// derivation, the external resolver client, and the orchestrator that ties
// the cache tiers and resolver together.
package geolocate

import (
	"sort"
	"strings"
)

// Key derives the canonical cache key for a set of network identifiers.
// Identifiers are sorted lexicographically (case-sensitive) and joined with
// dots, so any ordering of the same scan maps to one key. Duplicates are
// kept; a scan listing the same identifier twice keys differently from one
// listing it once. The input slice is not modified.
func Key(ids []string) string {
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)
	return strings.Join(sorted, ".")
}
