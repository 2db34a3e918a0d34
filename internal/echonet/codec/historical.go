// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: 2026 ogws contributors
package codec

import (
	"encoding/binary"
	"fmt"
	"time"
)

// HistoricalEnergyDay is the decoded value of EPC 0xE2/0xE4: the 48
// half-hour cumulative-energy slots the meter recorded for one day, the day
// itself selected beforehand via a 0xE5 SetC.
type HistoricalEnergyDay struct {
	Day   uint16
	Slots []*uint32
}

const historical1SlotCount = 48

var historical1Codec = Codec{
	Decode: func(edt []byte) (any, error) {
		want := 2 + historical1SlotCount*4
		if len(edt) != want {
			return nil, errWrongLength("0xE2/0xE4", want, len(edt))
		}
		day := binary.BigEndian.Uint16(edt[0:2])
		slots := make([]*uint32, historical1SlotCount)
		for i := range slots {
			off := 2 + i*4
			slots[i] = decodeEnergySlot(binary.BigEndian.Uint32(edt[off : off+4]))
		}
		return HistoricalEnergyDay{Day: day, Slots: slots}, nil
	},
	Encode: decodeNotImplemented("0xE2/0xE4"),
}

// dayForHistorical1Codec is EPC 0xE5: the number of days before today whose
// 48-slot record 0xE2/0xE4 will return on the next Get (0x00 selects today).
var dayForHistorical1Codec = Codec{
	Decode: func(edt []byte) (any, error) {
		if len(edt) != 1 {
			return nil, errWrongLength("0xE5", 1, len(edt))
		}
		return edt[0], nil
	},
	Encode: func(value any) ([]byte, error) {
		day, ok := value.(uint8)
		if !ok {
			return nil, fmt.Errorf("codec: 0xE5 expects uint8, got %T", value)
		}
		return []byte{day}, nil
	},
}

// HistoricalEnergySlot is one 30-minute forward/reverse cumulative-energy
// reading within a 0xEC/0xEE record.
type HistoricalEnergySlot struct {
	Forward *uint32
	Reverse *uint32
}

// HistoricalPeriod is the decoded value of EPC 0xEC/0xEE: the slots recorded
// starting at Timestamp, as most recently requested via 0xED/0xEF.
type HistoricalPeriod struct {
	Timestamp time.Time
	NumPoints uint8
	Slots     []HistoricalEnergySlot
}

func historicalPeriodDecode(epc string) func(edt []byte) (any, error) {
	return func(edt []byte) (any, error) {
		if len(edt) < 8 {
			return nil, errWrongLength(epc, 8, len(edt))
		}
		num := edt[7]
		want := 8 + int(num)*8
		if len(edt) != want {
			return nil, errWrongLength(epc, want, len(edt))
		}
		slots := make([]HistoricalEnergySlot, num)
		for i := range slots {
			off := 8 + i*8
			slots[i] = HistoricalEnergySlot{
				Forward: decodeEnergySlot(binary.BigEndian.Uint32(edt[off : off+4])),
				Reverse: decodeEnergySlot(binary.BigEndian.Uint32(edt[off+4 : off+8])),
			}
		}
		return HistoricalPeriod{
			Timestamp: decodeTimestamp7(edt[0:7]),
			NumPoints: num,
			Slots:     slots,
		}, nil
	}
}

var historical2Codec = Codec{
	Decode: historicalPeriodDecode("0xEC"),
	Encode: decodeNotImplemented("0xEC"),
}

var historical3Codec = Codec{
	Decode: historicalPeriodDecode("0xEE"),
	Encode: decodeNotImplemented("0xEE"),
}

// HistoricalPeriodRequest is the argument EPC 0xED/0xEF's SetC encodes: the
// instant to start from (its minute rounded down to the meter's half-hour
// grid) and how many 30-minute slots to return.
type HistoricalPeriodRequest struct {
	Timestamp time.Time
	NumPoints uint8
}

func historicalPeriodEncode(epc string) func(value any) ([]byte, error) {
	return func(value any) ([]byte, error) {
		req, ok := value.(HistoricalPeriodRequest)
		if !ok {
			return nil, fmt.Errorf("codec: %s expects HistoricalPeriodRequest, got %T", epc, value)
		}
		minute := 0
		if req.Timestamp.Minute() >= 30 {
			minute = 30
		}
		rounded := time.Date(req.Timestamp.Year(), req.Timestamp.Month(), req.Timestamp.Day(),
			req.Timestamp.Hour(), minute, 0, 0, req.Timestamp.Location())
		buf := encodeTimestamp6(rounded)
		return append(buf, req.NumPoints), nil
	}
}

func historicalPeriodRequestDecode(epc string) func(edt []byte) (any, error) {
	return func(edt []byte) (any, error) {
		if len(edt) != 7 {
			return nil, errWrongLength(epc, 7, len(edt))
		}
		return HistoricalPeriodRequest{
			Timestamp: decodeTimestamp6(edt[0:6]),
			NumPoints: edt[6],
		}, nil
	}
}

var timeForHistorical2Codec = Codec{
	Decode: historicalPeriodRequestDecode("0xED"),
	Encode: historicalPeriodEncode("0xED"),
}

var timeForHistorical3Codec = Codec{
	Decode: historicalPeriodRequestDecode("0xEF"),
	Encode: historicalPeriodEncode("0xEF"),
}
