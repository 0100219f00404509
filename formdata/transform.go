// ABOUTME: Named value transforms applied during field mapping
// ABOUTME: Case conversion, trimming, and numeric/boolean/date coercion
package formdata

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Transform applies a named pure transform to a value. Unrecognized names
// are the identity function.
//
// Coercion failures are explicit sentinels, not errors: toNumber yields NaN
// for non-convertible input, toDate yields the zero time. Callers check with
// math.IsNaN and Time.IsZero.
func Transform(value any, name string) any {
	switch name {
	case "uppercase":
		return strings.ToUpper(toString(value))
	case "lowercase":
		return strings.ToLower(toString(value))
	case "trim":
		return strings.TrimSpace(toString(value))
	case "toNumber":
		return toNumber(value)
	case "toString":
		return toString(value)
	case "toBoolean":
		return toBoolean(value)
	case "toDate":
		return toDate(value)
	default:
		return value
	}
}

func toString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func toNumber(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return math.NaN()
		}
		return n
	default:
		return math.NaN()
	}
}

func toBoolean(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "1", "on":
			return true
		}
		return false
	case float64:
		return v != 0
	default:
		return false
	}
}

// toDate accepts RFC 3339 timestamps, bare dates, and epoch milliseconds.
func toDate(value any) time.Time {
	switch v := value.(type) {
	case time.Time:
		return v
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if t, err := time.Parse(layout, strings.TrimSpace(v)); err == nil {
				return t
			}
		}
		return time.Time{}
	case float64:
		return time.UnixMilli(int64(v)).UTC()
	default:
		return time.Time{}
	}
}
