package application

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// SensorPayload holds the decoded fields of a single sensor data event.
type SensorPayload map[string]any

// FormatValue renders a decoded field value the way it is published:
// integers in decimal, floats in their shortest form, strings as is.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int8, int16, int32, int64:
		return fmt.Sprintf("%d", val)
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", val)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case fmt.Stringer:
		return val.String()
	}
	return fmt.Sprint(v)
}

// isBlankValue reports values that carry no update: absent, empty, zero or
// false fields are skipped rather than published.
func isBlankValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case bool:
		return !val
	case int:
		return val == 0
	case int8:
		return val == 0
	case int16:
		return val == 0
	case int32:
		return val == 0
	case int64:
		return val == 0
	case uint:
		return val == 0
	case uint8:
		return val == 0
	case uint16:
		return val == 0
	case uint32:
		return val == 0
	case uint64:
		return val == 0
	case float32:
		return val == 0 || math.IsNaN(float64(val))
	case float64:
		return val == 0 || math.IsNaN(val)
	case json.Number:
		f, err := val.Float64()
		return val == "" || (err == nil && f == 0)
	}
	return false
}
