// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: 2026 ogws contributors
package codec

import (
	"encoding/binary"
	"time"
)

// decodeEnergySlot reads a raw cumulative-energy u32, mapping the sentinel
// to "no data" (nil). The façade applies coefficient × unit before handing
// a value to callers; raw integers never leak across it.
func decodeEnergySlot(raw uint32) *uint32 {
	if raw == EnergySentinel {
		return nil
	}
	v := raw
	return &v
}

var cumulativeEnergyCodec = Codec{
	Decode: func(edt []byte) (any, error) {
		if len(edt) != 4 {
			return nil, errWrongLength("0xE0/0xE3", 4, len(edt))
		}
		return decodeEnergySlot(binary.BigEndian.Uint32(edt)), nil
	},
	Encode: decodeNotImplemented("0xE0/0xE3"),
}

// FixedTimeEnergy is the decoded value of EPC 0xEA/0xEB.
type FixedTimeEnergy struct {
	Timestamp time.Time
	EnergyWh  *uint32
}

var fixedTimeEnergyCodec = Codec{
	Decode: func(edt []byte) (any, error) {
		if len(edt) != 11 {
			return nil, errWrongLength("0xEA/0xEB", 11, len(edt))
		}
		return FixedTimeEnergy{
			Timestamp: decodeTimestamp7(edt[0:7]),
			EnergyWh:  decodeEnergySlot(binary.BigEndian.Uint32(edt[7:11])),
		}, nil
	},
	Encode: decodeNotImplemented("0xEA/0xEB"),
}

// decodeTimestamp7 reads the year(2)/month(1)/day(1)/hour(1)/minute(1)/
// second(1) field that prefixes the EDTs of 0xEA/0xEB and 0xEC/0xEE.
func decodeTimestamp7(b []byte) time.Time {
	year := int(binary.BigEndian.Uint16(b[0:2]))
	return time.Date(year, time.Month(b[2]), int(b[3]), int(b[4]), int(b[5]), int(b[6]), 0, time.UTC)
}

func encodeTimestamp7(t time.Time) []byte {
	buf := make([]byte, 0, 7)
	buf = binary.BigEndian.AppendUint16(buf, uint16(t.Year()))
	buf = append(buf, byte(t.Month()), byte(t.Day()), byte(t.Hour()), byte(t.Minute()), byte(t.Second()))
	return buf
}

// decodeTimestamp6 reads the year(2)/month(1)/day(1)/hour(1)/minute(1)
// field that prefixes the 0xED/0xEF request EDTs, one byte short of
// decodeTimestamp7 because those EDTs carry no seconds field.
func decodeTimestamp6(b []byte) time.Time {
	year := int(binary.BigEndian.Uint16(b[0:2]))
	return time.Date(year, time.Month(b[2]), int(b[3]), int(b[4]), int(b[5]), 0, 0, time.UTC)
}

func encodeTimestamp6(t time.Time) []byte {
	buf := make([]byte, 0, 6)
	buf = binary.BigEndian.AppendUint16(buf, uint16(t.Year()))
	buf = append(buf, byte(t.Month()), byte(t.Day()), byte(t.Hour()), byte(t.Minute()))
	return buf
}
