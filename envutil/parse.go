package envutil

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
)

// ErrInvalidLogLevel is returned when a log level string is not recognized.
var ErrInvalidLogLevel = errors.New("invalid log level")

// Intish is the set of signed integer types Int can produce.
type Intish interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64
}

func parseBool(value string) (bool, error) {
	return strconv.ParseBool(value)
}

func parseInt64(value string) (int64, error) {
	return strconv.ParseInt(value, 10, 64)
}

func castInt[I Intish](value int64) (I, error) {
	out := I(value)
	if int64(out) != value {
		return out, fmt.Errorf("%w: %d overflows", strconv.ErrRange, value)
	}

	return out, nil
}

func parseSlogLevel(value string) (slog.Level, error) {
	switch value {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, value)
	}
}
