// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: 2026 ogws contributors
package broute

import (
	"errors"
	"fmt"

	"github.com/ogws/broute/internal/echonet"
	"github.com/ogws/broute/internal/session"
)

// Public error taxonomy (see spec's "Errors" table). Internal packages raise
// their own sentinels; translateErr folds them into these at the façade
// boundary so callers never need to import internal/session or
// internal/echonet to classify a failure with errors.Is/errors.As.
var (
	// ScanFailure means no PAN was discovered after the configured maximum
	// number of scan-duration escalations. Retriable at a new location.
	ScanFailure = errors.New("broute: no PAN discovered, scan failed")
	// JoinFailure means PANA authentication was rejected or timed out.
	// Retriable with corrected credentials.
	JoinFailure = errors.New("broute: PANA authentication failed")
	// NeedToReopen means the session was lost, stalled, or a gate/response
	// wait exceeded its deadline. The Client must be closed and reopened.
	NeedToReopen = errors.New("broute: session needs to be closed and reopened")
)

// ResponseNotPossibleError is returned when the meter rejects one or more
// EPCs in a Get/SetC aggregate (ESV 0x52/0x51). errors.As-compatible.
type ResponseNotPossibleError = echonet.ResponseNotPossibleError

// translateErr folds an internal-package error into the public taxonomy,
// preserving it as the wrapped cause so errors.Is/errors.As against both the
// public sentinel and the original still work.
func translateErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, session.ErrScanFailure):
		return fmt.Errorf("%w: %v", ScanFailure, err)
	case errors.Is(err, session.ErrJoinFailure):
		return fmt.Errorf("%w: %v", JoinFailure, err)
	case errors.Is(err, session.ErrNeedToReopen), errors.Is(err, echonet.ErrNeedToReopen):
		return fmt.Errorf("%w: %v", NeedToReopen, err)
	default:
		// ResponseNotPossibleError and any other error (e.g. a malformed
		// EL frame) pass through unwrapped; the caller inspects it directly.
		return err
	}
}
