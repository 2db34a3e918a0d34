// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: 2026 ogws contributors

// Package echonet builds and parses ECHONET Lite frames exchanged with a
// Route-B smart meter over UDP, and matches responses to requests by
// transaction id.
package echonet

import (
	"encoding/binary"
	"fmt"
)

const (
	ehd1 = 0x10
	ehd2 = 0x81

	// SEOJClientController is the management-controller object this
	// library acts as.
	SEOJClientController = 0x05FF01
	// DEOJLowVoltageSmartMeter is the low-voltage smart meter object.
	DEOJLowVoltageSmartMeter = 0x028801
)

// Service codes (ESV).
const (
	ESVGet            byte = 0x62
	ESVSetC           byte = 0x61
	ESVGetResponse    byte = 0x72
	ESVGetNotPossible byte = 0x52
	ESVSetResponse    byte = 0x71
	ESVSetNotPossible byte = 0x51
)

// Property is one EPC/EDT pair carried in a frame.
type Property struct {
	EPC byte
	EDT []byte
}

// Frame is one ECHONET Lite frame, as sent or received.
type Frame struct {
	TID        uint16
	SEOJ       [3]byte
	DEOJ       [3]byte
	ESV        byte
	Properties []Property
}

// Encode renders f as wire bytes (EHD1 EHD2 TID SEOJ DEOJ ESV OPC {EPC PDC EDT}*).
func (f Frame) Encode() []byte {
	buf := make([]byte, 0, 12+4*len(f.Properties))
	buf = append(buf, ehd1, ehd2)
	buf = binary.BigEndian.AppendUint16(buf, f.TID)
	buf = append(buf, f.SEOJ[:]...)
	buf = append(buf, f.DEOJ[:]...)
	buf = append(buf, f.ESV, byte(len(f.Properties)))
	for _, p := range f.Properties {
		buf = append(buf, p.EPC, byte(len(p.EDT)))
		buf = append(buf, p.EDT...)
	}
	return buf
}

// Parse decodes data as an ECHONET Lite frame. It returns an error if the
// header is not EHD1/EHD2 = 0x10/0x81 or the property list is truncated.
func Parse(data []byte) (Frame, error) {
	if len(data) < 12 {
		return Frame{}, fmt.Errorf("echonet: frame too short (%d bytes)", len(data))
	}
	if data[0] != ehd1 || data[1] != ehd2 {
		return Frame{}, fmt.Errorf("echonet: unrecognised header %02X%02X", data[0], data[1])
	}

	f := Frame{
		TID:  binary.BigEndian.Uint16(data[2:4]),
		ESV:  data[10],
		SEOJ: [3]byte(data[4:7]),
		DEOJ: [3]byte(data[7:10]),
	}
	opc := int(data[11])
	rest := data[12:]
	for i := 0; i < opc; i++ {
		if len(rest) < 2 {
			return Frame{}, fmt.Errorf("echonet: truncated property list")
		}
		epc, pdc := rest[0], int(rest[1])
		if len(rest) < 2+pdc {
			return Frame{}, fmt.Errorf("echonet: truncated property data for EPC %02X", epc)
		}
		var edt []byte
		if pdc > 0 {
			edt = make([]byte, pdc)
			copy(edt, rest[2:2+pdc])
		}
		f.Properties = append(f.Properties, Property{EPC: epc, EDT: edt})
		rest = rest[2+pdc:]
	}
	return f, nil
}
