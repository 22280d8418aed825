// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "errors"

// Error kinds shared across stages. Callers classify failures with errors.Is.
var (
	// ErrBackendUnavailable marks network, timeout, or non-2xx failures
	// talking to a model backend, the retrieval oracle, or the graph store.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrParseFailure marks model output that does not decode into the
	// expected structured form.
	ErrParseFailure = errors.New("parse failure")

	// ErrStageFailure marks a stage that could not produce its result after
	// exhausting its fallbacks.
	ErrStageFailure = errors.New("stage failure")
)
