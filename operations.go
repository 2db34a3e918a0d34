// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: 2026 ogws contributors
package broute

import (
	"context"
	"fmt"
	"time"

	"github.com/ogws/broute/internal/echonet/codec"
)

// EPC byte constants, named for the façade methods below.
const (
	epcOperationStatus          = 0x80
	epcInstallationLocation     = 0x81
	epcStandardVersion          = 0x82
	epcFaultStatus              = 0x88
	epcManufacturerCode         = 0x8A
	epcSerialNumber             = 0x8D
	epcCurrentTime              = 0x97
	epcCurrentDate              = 0x98
	epcCoefficient              = 0xD3
	epcEffectiveDigits          = 0xD7
	epcCumulativeEnergyForward  = 0xE0
	epcUnit                     = 0xE1
	epcHistoricalEnergy1Forward = 0xE2
	epcCumulativeEnergyReverse  = 0xE3
	epcHistoricalEnergy1Reverse = 0xE4
	epcDayForHistorical1        = 0xE5
	epcInstantaneousPower       = 0xE7
	epcInstantaneousCurrent     = 0xE8
	epcFixedTimeEnergyForward   = 0xEA
	epcFixedTimeEnergyReverse   = 0xEB
	epcHistoricalEnergy2        = 0xEC
	epcTimeForHistorical2       = 0xED
	epcHistoricalEnergy3        = 0xEE
	epcTimeForHistorical3       = 0xEF
)

// GetOperationStatus reports whether the meter's relay is currently on.
func (c *Client) GetOperationStatus(ctx context.Context) (bool, error) {
	v, err := c.get(ctx, epcOperationStatus)
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// GetInstallationLocation returns the meter's free-text placement field.
func (c *Client) GetInstallationLocation(ctx context.Context) (string, error) {
	v, err := c.get(ctx, epcInstallationLocation)
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// GetStandardVersion returns the ECHONET Lite standard version the meter
// implements, formatted "<letter>.<revision>".
func (c *Client) GetStandardVersion(ctx context.Context) (string, error) {
	v, err := c.get(ctx, epcStandardVersion)
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// GetSerialNumber returns the meter's manufacturer-assigned serial number.
func (c *Client) GetSerialNumber(ctx context.Context) (string, error) {
	v, err := c.get(ctx, epcSerialNumber)
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// GetCurrentTime returns the meter's internal clock time, "HH:MM".
func (c *Client) GetCurrentTime(ctx context.Context) (string, error) {
	v, err := c.get(ctx, epcCurrentTime)
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// GetCurrentDate returns the meter's internal clock date, "YYYY-MM-DD".
func (c *Client) GetCurrentDate(ctx context.Context) (string, error) {
	v, err := c.get(ctx, epcCurrentDate)
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// GetFaultStatus reports whether the meter currently has a fault condition.
func (c *Client) GetFaultStatus(ctx context.Context) (bool, error) {
	v, err := c.get(ctx, epcFaultStatus)
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// GetManufacturerCode returns the meter's 3-byte ECHONET manufacturer code.
func (c *Client) GetManufacturerCode(ctx context.Context) ([3]byte, error) {
	v, err := c.get(ctx, epcManufacturerCode)
	if err != nil {
		return [3]byte{}, err
	}
	return v.([3]byte), nil
}

// GetEffectiveDigitsForCumulativeEnergy returns the number of significant
// digits (0xD7) the meter's cumulative-energy display uses.
func (c *Client) GetEffectiveDigitsForCumulativeEnergy(ctx context.Context) (uint8, error) {
	v, err := c.get(ctx, epcEffectiveDigits)
	if err != nil {
		return 0, err
	}
	return v.(uint8), nil
}

// GetCoefficientForCumulativeEnergy returns the raw multiplier (0xD3) the
// meter applies ahead of the unit multiplier (0xE1). Most callers want
// GetCumulativeEnergy instead, which applies both automatically.
func (c *Client) GetCoefficientForCumulativeEnergy(ctx context.Context) (uint32, error) {
	v, err := c.get(ctx, epcCoefficient)
	if err != nil {
		return 0, err
	}
	return v.(uint32), nil
}

// GetUnitForCumulativeEnergy returns the unit multiplier (e.g. 0.1, 100)
// the meter's cumulative-energy readings are expressed in.
func (c *Client) GetUnitForCumulativeEnergy(ctx context.Context) (float64, error) {
	v, err := c.get(ctx, epcUnit)
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

// GetInstantaneousPower returns the meter's current power draw in watts
// (negative on net export).
func (c *Client) GetInstantaneousPower(ctx context.Context) (int32, error) {
	v, err := c.get(ctx, epcInstantaneousPower)
	if err != nil {
		return 0, err
	}
	return v.(int32), nil
}

// GetInstantaneousCurrent returns the R/T phase currents; Current.Single is
// set for single-phase, 2-wire installations where the meter has no T
// phase to report.
func (c *Client) GetInstantaneousCurrent(ctx context.Context) (codec.Current, error) {
	v, err := c.get(ctx, epcInstantaneousCurrent)
	if err != nil {
		return codec.Current{}, err
	}
	return v.(codec.Current), nil
}

// CumulativeEnergy is a meter reading already scaled to kWh, or nil if the
// meter reported the "no data" sentinel.
type CumulativeEnergy = *float64

func scaleEnergy(raw *uint32, coefficient uint32, unit float64) CumulativeEnergy {
	if raw == nil {
		return nil
	}
	v := float64(*raw) * float64(coefficient) * unit
	return &v
}

// GetCumulativeEnergy returns the meter's running total energy in kWh,
// forward (consumption) or reverse (export) direction.
func (c *Client) GetCumulativeEnergy(ctx context.Context, reverse bool) (CumulativeEnergy, error) {
	coefficient, unit, err := c.ensureUnits(ctx)
	if err != nil {
		return nil, err
	}
	epc := byte(epcCumulativeEnergyForward)
	if reverse {
		epc = epcCumulativeEnergyReverse
	}
	v, err := c.get(ctx, epc)
	if err != nil {
		return nil, err
	}
	return scaleEnergy(v.(*uint32), coefficient, unit), nil
}

// GetCumulativeEnergyAtFixedTime returns the most recent timestamped total
// the meter recorded, forward or reverse.
func (c *Client) GetCumulativeEnergyAtFixedTime(ctx context.Context, reverse bool) (time.Time, CumulativeEnergy, error) {
	coefficient, unit, err := c.ensureUnits(ctx)
	if err != nil {
		return time.Time{}, nil, err
	}
	epc := byte(epcFixedTimeEnergyForward)
	if reverse {
		epc = epcFixedTimeEnergyReverse
	}
	v, err := c.get(ctx, epc)
	if err != nil {
		return time.Time{}, nil, err
	}
	ft := v.(codec.FixedTimeEnergy)
	return ft.Timestamp, scaleEnergy(ft.EnergyWh, coefficient, unit), nil
}

// HistoricalEnergyDaySlot is one 30-minute cumulative-energy reading within
// a day's worth of historical-1 data, with its timestamp synthesised
// client-side (see GetHistoricalCumulativeEnergy1's doc comment).
type HistoricalEnergyDaySlot struct {
	Timestamp time.Time
	EnergyKWh CumulativeEnergy
}

// GetHistoricalCumulativeEnergy1 requests the 48 half-hour slots the meter
// recorded daysAgo days in the past (0 = today), forward or reverse
// direction. It issues a SetC on EPC 0xE5 to select the day, then a Get on
// 0xE2/0xE4.
//
// The returned timestamps are synthesised on the client as
// (today − daysAgo) at 00:30, 01:00, ... in 30-minute steps: the meter's EDT
// carries only a day offset, not wall-clock times per slot. Because "today"
// is evaluated when the response arrives, a call that straddles local
// midnight can be off by one day. This is a known, undocumented-by-the-meter
// limitation and is not compensated for here.
func (c *Client) GetHistoricalCumulativeEnergy1(ctx context.Context, daysAgo uint8, reverse bool) ([]HistoricalEnergyDaySlot, error) {
	coefficient, unit, err := c.ensureUnits(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.set(ctx, epcDayForHistorical1, daysAgo); err != nil {
		return nil, err
	}

	epc := byte(epcHistoricalEnergy1Forward)
	if reverse {
		epc = epcHistoricalEnergy1Reverse
	}
	v, err := c.get(ctx, epc)
	if err != nil {
		return nil, err
	}
	day := v.(codec.HistoricalEnergyDay)

	ts := todayMidnight().AddDate(0, 0, -int(day.Day)).Add(30 * time.Minute)
	out := make([]HistoricalEnergyDaySlot, len(day.Slots))
	for i, raw := range day.Slots {
		out[i] = HistoricalEnergyDaySlot{Timestamp: ts, EnergyKWh: scaleEnergy(raw, coefficient, unit)}
		ts = ts.Add(30 * time.Minute)
	}
	return out, nil
}

func todayMidnight() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// HistoricalEnergySlot is one 30-minute forward/reverse reading within a
// historical-2 or historical-3 series, both directions already scaled.
type HistoricalEnergySlot struct {
	Timestamp time.Time
	Forward   CumulativeEnergy
	Reverse   CumulativeEnergy
}

// GetHistoricalCumulativeEnergy2 returns numPoints 30-minute slots ending at
// (or starting from, per the meter's own convention) from, counting
// backward from the given instant, which is first rounded down to the
// nearest 30-minute mark. numPoints must be in 1..12; out-of-range values
// are rejected before any I/O.
func (c *Client) GetHistoricalCumulativeEnergy2(ctx context.Context, from time.Time, numPoints uint8) ([]HistoricalEnergySlot, error) {
	return c.getHistoricalPeriod(ctx, from, numPoints, 1, 12, epcTimeForHistorical2, epcHistoricalEnergy2)
}

// GetHistoricalCumulativeEnergy3 behaves like GetHistoricalCumulativeEnergy2
// but against the 0xEE/0xEF EPC pair, with numPoints bounded to 1..10.
func (c *Client) GetHistoricalCumulativeEnergy3(ctx context.Context, from time.Time, numPoints uint8) ([]HistoricalEnergySlot, error) {
	return c.getHistoricalPeriod(ctx, from, numPoints, 1, 10, epcTimeForHistorical3, epcHistoricalEnergy3)
}

func (c *Client) getHistoricalPeriod(ctx context.Context, from time.Time, numPoints uint8, min, max uint8, timeEPC, dataEPC byte) ([]HistoricalEnergySlot, error) {
	if numPoints < min || numPoints > max {
		return nil, fmt.Errorf("broute: number of data points %d outside %d..%d", numPoints, min, max)
	}
	coefficient, unit, err := c.ensureUnits(ctx)
	if err != nil {
		return nil, err
	}
	req := codec.HistoricalPeriodRequest{Timestamp: from, NumPoints: numPoints}
	if err := c.set(ctx, timeEPC, req); err != nil {
		return nil, err
	}

	v, err := c.get(ctx, dataEPC)
	if err != nil {
		return nil, err
	}
	period := v.(codec.HistoricalPeriod)

	out := make([]HistoricalEnergySlot, len(period.Slots))
	ts := period.Timestamp
	for i, slot := range period.Slots {
		out[i] = HistoricalEnergySlot{
			Timestamp: ts,
			Forward:   scaleEnergy(slot.Forward, coefficient, unit),
			Reverse:   scaleEnergy(slot.Reverse, coefficient, unit),
		}
		ts = ts.Add(-30 * time.Minute)
	}
	return out, nil
}
