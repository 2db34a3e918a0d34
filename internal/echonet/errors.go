// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: 2026 ogws contributors
package echonet

import (
	"errors"
	"fmt"
)

// ErrNeedToReopen is returned when a request's deadline expires before a
// matching response arrives; a dropped response is indistinguishable from a
// dead radio, so the TID is reclaimed and the caller is told to reopen.
var ErrNeedToReopen = errors.New("echonet: request deadline exceeded, close and reopen")

// ResponseNotPossibleError is raised when the meter answers a Get/SetC with
// ESV 0x52/0x51 ("not possible"): at least one requested EPC was rejected,
// which fails the whole aggregate.
type ResponseNotPossibleError struct {
	EPCs []byte
}

func (e *ResponseNotPossibleError) Error() string {
	return fmt.Sprintf("echonet: meter rejected EPCs %02X", e.EPCs)
}
