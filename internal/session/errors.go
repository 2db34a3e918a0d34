// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: 2026 ogws contributors
package session

import "errors"

// ErrScanFailure is returned when no PAN descriptor was observed after the
// scan-duration escalation ladder completed.
var ErrScanFailure = errors.New("no PAN discovered after maximum scan escalation")

// ErrJoinFailure is returned when PANA authentication was rejected or timed
// out during the initial join.
var ErrJoinFailure = errors.New("could not establish a PANA session")

// ErrNeedToReopen is returned when the session is lost (serial stall, fatal
// rejoin failure, or a gate wait exceeded its deadline) and can only be
// recovered by closing and reopening a fresh session.
var ErrNeedToReopen = errors.New("session lost, close and reopen")
