package bridge

import "fmt"

// Param extraction helpers. Guest params arrive as decoded JSON maps; these
// keep the handlers free of type-assertion noise.

// GetString extracts a string parameter.
func GetString(params map[string]interface{}, key string, required bool) (string, error) {
	v, ok := params[key]
	if !ok || v == nil {
		if required {
			return "", fmt.Errorf("missing required parameter: %s", key)
		}
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("parameter %s must be a string", key)
	}
	return s, nil
}

// GetNumber extracts a numeric parameter. JSON numbers decode as float64.
func GetNumber(params map[string]interface{}, key string, required bool) (float64, error) {
	v, ok := params[key]
	if !ok || v == nil {
		if required {
			return 0, fmt.Errorf("missing required parameter: %s", key)
		}
		return 0, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("parameter %s must be a number", key)
	}
}

// GetMap extracts an object parameter.
func GetMap(params map[string]interface{}, key string) map[string]interface{} {
	if v, ok := params[key]; ok {
		if m, ok := v.(map[string]interface{}); ok {
			return m
		}
	}
	return nil
}

// GetSlice extracts an array parameter.
func GetSlice(params map[string]interface{}, key string) []interface{} {
	if v, ok := params[key]; ok {
		if s, ok := v.([]interface{}); ok {
			return s
		}
	}
	return nil
}
