package log

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// formatValue renders a resolved attribute value for a log line.
func formatValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'g', -1, 64)
	case slog.KindTime:
		return v.Time().Format(time.RFC3339Nano)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindAny:
		x := v.Any()
		if x == nil {
			return "<nil>"
		}
		if err, ok := x.(error); ok {
			return err.Error()
		}
		if s, ok := x.(fmt.Stringer); ok {
			return s.String()
		}
		if data, err := json.Marshal(x); err == nil {
			return string(data)
		}
		return fmt.Sprintf("%v", x)
	}
	return fmt.Sprintf("%v", v.Any())
}

// quote wraps s in quotes when it would not read as a single token.
func quote(s string) string {
	if s == "" {
		return `""`
	}
	if strings.ContainsAny(s, " \t\n\r\"=") || !strconv.CanBackquote(s) {
		return strconv.Quote(s)
	}
	return s
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
