// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: 2026 ogws contributors
package codec

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperationStatusCodec_RoundTrip(t *testing.T) {
	edt, err := Table[0x80].Encode(true)
	require.NoError(t, err)
	got, err := Table[0x80].Decode(edt)
	require.NoError(t, err)
	assert.Equal(t, true, got)

	edt, err = Table[0x80].Encode(false)
	require.NoError(t, err)
	got, err = Table[0x80].Decode(edt)
	require.NoError(t, err)
	assert.Equal(t, false, got)
}

func TestUnitCodec_DecodesKnownMultipliers(t *testing.T) {
	got, err := Table[0xE1].Decode([]byte{0x0B})
	require.NoError(t, err)
	assert.Equal(t, 100.0, got)

	_, err = Table[0xE1].Decode([]byte{0xFF})
	assert.Error(t, err)
}

func TestCumulativeEnergyCodec_SentinelIsNil(t *testing.T) {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, EnergySentinel)
	got, err := Table[0xE0].Decode(buf)
	require.NoError(t, err)
	assert.Nil(t, got)

	binary.BigEndian.PutUint32(buf, 123456)
	got, err = Table[0xE3].Decode(buf)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.EqualValues(t, 123456, *(got.(*uint32)))
}

func TestInstantaneousPowerCodec_Decode500W(t *testing.T) {
	got, err := Table[0xE7].Decode([]byte{0x00, 0x00, 0x01, 0xF4})
	require.NoError(t, err)
	assert.EqualValues(t, 500, got)
}

func TestInstantaneousCurrentCodec_SinglePhaseSentinel(t *testing.T) {
	buf := []byte{0x00, 0x64, 0x7F, 0xFE}
	got, err := Table[0xE8].Decode(buf)
	require.NoError(t, err)
	cur := got.(Current)
	assert.True(t, cur.Single)
	assert.InDelta(t, 10.0, cur.RPhase, 0.0001)
	assert.Zero(t, cur.TPhase)
}

func TestFixedTimeEnergyCodec_DecodesTimestampAndEnergy(t *testing.T) {
	edt := []byte{0x07, 0xE8, 5, 1, 12, 0, 0, 0x00, 0x01, 0x86, 0xA0}
	got, err := Table[0xEA].Decode(edt)
	require.NoError(t, err)
	v := got.(FixedTimeEnergy)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), v.Timestamp)
	require.NotNil(t, v.EnergyWh)
	assert.EqualValues(t, 100000, *v.EnergyWh)
}

func TestHistorical1Codec_DecodesDayAndSlots(t *testing.T) {
	edt := make([]byte, 2+48*4)
	binary.BigEndian.PutUint16(edt[0:2], 1)
	binary.BigEndian.PutUint32(edt[2:6], 1000)
	binary.BigEndian.PutUint32(edt[6:10], EnergySentinel)
	got, err := Table[0xE2].Decode(edt)
	require.NoError(t, err)
	day := got.(HistoricalEnergyDay)
	assert.EqualValues(t, 1, day.Day)
	require.Len(t, day.Slots, 48)
	require.NotNil(t, day.Slots[0])
	assert.EqualValues(t, 1000, *day.Slots[0])
	assert.Nil(t, day.Slots[1])
}

func TestHistorical2Codec_RequestEncodeRoundsMinuteAndCount(t *testing.T) {
	req := HistoricalPeriodRequest{
		Timestamp: time.Date(2024, 5, 1, 12, 17, 0, 0, time.UTC),
		NumPoints: 6,
	}
	edt, err := Table[0xED].Encode(req)
	require.NoError(t, err)
	require.Len(t, edt, 7)

	decoded, err := Table[0xED].Decode(edt)
	require.NoError(t, err)
	got := decoded.(HistoricalPeriodRequest)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), got.Timestamp)
	assert.EqualValues(t, 6, got.NumPoints)
}

func TestHistorical2Codec_DecodesSlotsAfterTimestamp(t *testing.T) {
	edt := make([]byte, 8+2*8)
	binary.BigEndian.PutUint16(edt[0:2], 2024)
	edt[2], edt[3], edt[4], edt[5], edt[6] = 5, 1, 12, 0, 0
	edt[7] = 2
	binary.BigEndian.PutUint32(edt[8:12], 100)
	binary.BigEndian.PutUint32(edt[12:16], 5)
	binary.BigEndian.PutUint32(edt[16:20], EnergySentinel)
	binary.BigEndian.PutUint32(edt[20:24], EnergySentinel)

	got, err := Table[0xEC].Decode(edt)
	require.NoError(t, err)
	period := got.(HistoricalPeriod)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), period.Timestamp)
	assert.EqualValues(t, 2, period.NumPoints)
	require.Len(t, period.Slots, 2)
	require.NotNil(t, period.Slots[0].Forward)
	assert.EqualValues(t, 100, *period.Slots[0].Forward)
	assert.Nil(t, period.Slots[1].Forward)
}

func TestHistorical3Codec_MirrorsHistorical2Layout(t *testing.T) {
	req := HistoricalPeriodRequest{
		Timestamp: time.Date(2024, 5, 1, 8, 45, 0, 0, time.UTC),
		NumPoints: 10,
	}
	edt, err := Table[0xEF].Encode(req)
	require.NoError(t, err)
	decoded, err := Table[0xEF].Decode(edt)
	require.NoError(t, err)
	got := decoded.(HistoricalPeriodRequest)
	assert.EqualValues(t, 10, got.NumPoints)
	assert.Equal(t, 30, got.Timestamp.Minute())
}
