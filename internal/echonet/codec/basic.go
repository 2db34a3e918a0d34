// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: 2026 ogws contributors
package codec

import (
	"encoding/binary"
	"fmt"
	"strings"
)

var operationStatusCodec = Codec{
	Decode: func(edt []byte) (any, error) {
		if len(edt) != 1 {
			return nil, errWrongLength("0x80", 1, len(edt))
		}
		switch edt[0] {
		case 0x30:
			return true, nil
		case 0x31:
			return false, nil
		default:
			return nil, fmt.Errorf("codec: 0x80 unrecognised status byte %02X", edt[0])
		}
	},
	Encode: func(value any) ([]byte, error) {
		on, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("codec: 0x80 expects bool, got %T", value)
		}
		if on {
			return []byte{0x30}, nil
		}
		return []byte{0x31}, nil
	},
}

var faultStatusCodec = Codec{
	Decode: func(edt []byte) (any, error) {
		if len(edt) != 1 {
			return nil, errWrongLength("0x88", 1, len(edt))
		}
		switch edt[0] {
		case 0x41:
			return true, nil
		case 0x42:
			return false, nil
		default:
			return nil, fmt.Errorf("codec: 0x88 unrecognised fault byte %02X", edt[0])
		}
	},
	Encode: decodeNotImplemented("0x88"),
}

var manufacturerCodeCodec = Codec{
	Decode: func(edt []byte) (any, error) {
		if len(edt) != 3 {
			return nil, errWrongLength("0x8A", 3, len(edt))
		}
		return [3]byte{edt[0], edt[1], edt[2]}, nil
	},
	Encode: decodeNotImplemented("0x8A"),
}

// installationLocationCodec decodes EPC 0x81 by reading the whole EDT as
// text, trimming trailing NUL padding; the meter's placement-code bit
// layout is not interpreted.
var installationLocationCodec = Codec{
	Decode: func(edt []byte) (any, error) {
		return strings.TrimRight(string(edt), "\x00"), nil
	},
	Encode: decodeNotImplemented("0x81"),
}

var standardVersionCodec = Codec{
	Decode: func(edt []byte) (any, error) {
		if len(edt) != 4 {
			return nil, errWrongLength("0x82", 4, len(edt))
		}
		return fmt.Sprintf("%c.%d", edt[1], edt[2]), nil
	},
	Encode: decodeNotImplemented("0x82"),
}

var serialNumberCodec = Codec{
	Decode: func(edt []byte) (any, error) {
		return strings.TrimRight(string(edt), "\x00"), nil
	},
	Encode: decodeNotImplemented("0x8D"),
}

var currentTimeCodec = Codec{
	Decode: func(edt []byte) (any, error) {
		if len(edt) != 2 {
			return nil, errWrongLength("0x97", 2, len(edt))
		}
		return fmt.Sprintf("%02d:%02d", edt[0], edt[1]), nil
	},
	Encode: decodeNotImplemented("0x97"),
}

var currentDateCodec = Codec{
	Decode: func(edt []byte) (any, error) {
		if len(edt) != 4 {
			return nil, errWrongLength("0x98", 4, len(edt))
		}
		year := binary.BigEndian.Uint16(edt[0:2])
		return fmt.Sprintf("%04d-%02d-%02d", year, edt[2], edt[3]), nil
	},
	Encode: decodeNotImplemented("0x98"),
}

var coefficientCodec = Codec{
	Decode: func(edt []byte) (any, error) {
		if len(edt) != 4 {
			return nil, errWrongLength("0xD3", 4, len(edt))
		}
		return binary.BigEndian.Uint32(edt), nil
	},
	Encode: decodeNotImplemented("0xD3"),
}

var effectiveDigitsCodec = Codec{
	Decode: func(edt []byte) (any, error) {
		if len(edt) != 1 {
			return nil, errWrongLength("0xD7", 1, len(edt))
		}
		return edt[0], nil
	},
	Encode: decodeNotImplemented("0xD7"),
}

// unitMultipliers maps EPC 0xE1's enum byte to the cumulative-energy unit
// multiplier it represents.
var unitMultipliers = map[byte]float64{
	0x00: 1,
	0x01: 0.1,
	0x02: 0.01,
	0x03: 0.001,
	0x04: 0.0001,
	0x0A: 10,
	0x0B: 100,
	0x0C: 1000,
	0x0D: 10000,
}

var unitCodec = Codec{
	Decode: func(edt []byte) (any, error) {
		if len(edt) != 1 {
			return nil, errWrongLength("0xE1", 1, len(edt))
		}
		mult, ok := unitMultipliers[edt[0]]
		if !ok {
			return nil, fmt.Errorf("codec: 0xE1 unrecognised unit byte %02X", edt[0])
		}
		return mult, nil
	},
	Encode: decodeNotImplemented("0xE1"),
}

var instantaneousPowerCodec = Codec{
	Decode: func(edt []byte) (any, error) {
		if len(edt) != 4 {
			return nil, errWrongLength("0xE7", 4, len(edt))
		}
		return int32(binary.BigEndian.Uint32(edt)), nil
	},
	Encode: decodeNotImplemented("0xE7"),
}

// Current is the pair of phase currents decoded from EPC 0xE8. TPhase is
// zero for single-phase, 2-wire meters (the meter signals this with the
// sentinel 0x7FFE rather than omitting the field).
type Current struct {
	RPhase float64
	TPhase float64
	Single bool
}

var instantaneousCurrentCodec = Codec{
	Decode: func(edt []byte) (any, error) {
		if len(edt) != 4 {
			return nil, errWrongLength("0xE8", 4, len(edt))
		}
		r := int16(binary.BigEndian.Uint16(edt[0:2]))
		t := int16(binary.BigEndian.Uint16(edt[2:4]))
		if uint16(t) == 0x7FFE {
			return Current{RPhase: float64(r) * 0.1, Single: true}, nil
		}
		return Current{RPhase: float64(r) * 0.1, TPhase: float64(t) * 0.1}, nil
	},
	Encode: decodeNotImplemented("0xE8"),
}
