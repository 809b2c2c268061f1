package compiler

import (
	"math"
	"strconv"
)

// gainRangeDB is the swing of the volume slider in decibels. The slider maps
// linearly onto [-6dB, +6dB] so the midpoint lands exactly on unity gain and
// equal slider steps sound like equal loudness steps.
const gainRangeDB = 6.0

// Gain converts a 0-100 volume slider value to a linear amplitude multiplier.
// 0 mutes, 50 is exactly 1.0, 100 is +6dB.
func Gain(volumePercent int) float64 {
	if volumePercent <= 0 {
		return 0
	}
	if volumePercent >= 100 {
		volumePercent = 100
	}
	db := (float64(volumePercent) - 50) / 50 * gainRangeDB
	if db == 0 {
		return 1
	}
	return math.Pow(10, db/20)
}

func formatGain(g float64) string {
	return strconv.FormatFloat(g, 'f', 6, 64)
}
