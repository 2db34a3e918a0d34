// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: 2026 ogws contributors

// Package codec implements the per-EPC encode/decode pairs for the
// properties this library reads or writes on a Route-B smart meter.
package codec

import "fmt"

// EnergySentinel marks a historical or fixed-time energy slot with no data.
const EnergySentinel uint32 = 0xFFFFFFFE

// Codec pairs an EPC's decoder with its encoder (for a read-only property,
// an encoder that always returns an error).
type Codec struct {
	Decode func(edt []byte) (any, error)
	Encode func(value any) ([]byte, error)
}

// Table maps every EPC this library understands to its Codec.
var Table = map[byte]Codec{
	0x80: operationStatusCodec,
	0x81: installationLocationCodec,
	0x82: standardVersionCodec,
	0x88: faultStatusCodec,
	0x8A: manufacturerCodeCodec,
	0x8D: serialNumberCodec,
	0x97: currentTimeCodec,
	0x98: currentDateCodec,
	0xD3: coefficientCodec,
	0xD7: effectiveDigitsCodec,
	0xE0: cumulativeEnergyCodec,
	0xE1: unitCodec,
	0xE2: historical1Codec,
	0xE3: cumulativeEnergyCodec,
	0xE4: historical1Codec,
	0xE5: dayForHistorical1Codec,
	0xE7: instantaneousPowerCodec,
	0xE8: instantaneousCurrentCodec,
	0xEA: fixedTimeEnergyCodec,
	0xEB: fixedTimeEnergyCodec,
	0xEC: historical2Codec,
	0xED: timeForHistorical2Codec,
	0xEE: historical3Codec,
	0xEF: timeForHistorical3Codec,
}

func errWrongLength(epc string, want int, got int) error {
	return fmt.Errorf("codec: %s EDT expects %d bytes, got %d", epc, want, got)
}

func decodeNotImplemented(epc string) func(value any) ([]byte, error) {
	return func(value any) ([]byte, error) {
		return nil, fmt.Errorf("codec: %s has no encoder (read-only)", epc)
	}
}
