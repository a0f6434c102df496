package kernel

import "errors"

// Conversion factors, in microseconds, per spec §4.1.
const (
	microsPerMilli  = 1_000
	microsPerSecond = 1_000_000
	microsPerMinute = 60 * microsPerSecond
	microsPerHour   = 60 * microsPerMinute
	microsPerDay    = 24 * microsPerHour
)

var errNegativeInput = errors.New("input must not be negative")

// toLargerUnit performs the "to larger unit" conversion: integer division,
// round toward zero. Negative inputs are rejected; zero maps to zero
// without dividing.
func toLargerUnit(micros, factor int64) (int64, error) {
	if micros < 0 {
		return 0, wrapError(CodeInvalidArg, "unit conversion", errNegativeInput)
	}
	if micros == 0 {
		return 0, nil
	}
	return micros / factor, nil
}

// toMicros performs the "from larger unit to microseconds" conversion:
// overflow-checked multiplication. Negative inputs are rejected; zero maps
// to zero without multiplying.
func toMicros(units, factor int64) (int64, error) {
	if units < 0 {
		return 0, wrapError(CodeInvalidArg, "unit conversion", errNegativeInput)
	}
	if units == 0 {
		return 0, nil
	}
	result := units * factor
	if result/factor != units {
		return -1, wrapError(CodeOverflow, "unit conversion", nil)
	}
	return result, nil
}

// MicrosToMillis converts microseconds to milliseconds (round toward zero).
func MicrosToMillis(micros int64) (int64, error) { return toLargerUnit(micros, microsPerMilli) }

// MillisToMicros converts milliseconds to microseconds, detecting overflow.
func MillisToMicros(millis int64) (int64, error) { return toMicros(millis, microsPerMilli) }

// MicrosToSeconds converts microseconds to seconds (round toward zero).
func MicrosToSeconds(micros int64) (int64, error) { return toLargerUnit(micros, microsPerSecond) }

// SecondsToMicros converts seconds to microseconds, detecting overflow.
func SecondsToMicros(seconds int64) (int64, error) { return toMicros(seconds, microsPerSecond) }

// MicrosToMinutes converts microseconds to minutes (round toward zero).
func MicrosToMinutes(micros int64) (int64, error) { return toLargerUnit(micros, microsPerMinute) }

// MinutesToMicros converts minutes to microseconds, detecting overflow.
func MinutesToMicros(minutes int64) (int64, error) { return toMicros(minutes, microsPerMinute) }

// MicrosToHours converts microseconds to hours (round toward zero).
func MicrosToHours(micros int64) (int64, error) { return toLargerUnit(micros, microsPerHour) }

// HoursToMicros converts hours to microseconds, detecting overflow.
func HoursToMicros(hours int64) (int64, error) { return toMicros(hours, microsPerHour) }

// MicrosToDays converts microseconds to days (round toward zero).
func MicrosToDays(micros int64) (int64, error) { return toLargerUnit(micros, microsPerDay) }

// DaysToMicros converts days to microseconds, detecting overflow.
func DaysToMicros(days int64) (int64, error) { return toMicros(days, microsPerDay) }
