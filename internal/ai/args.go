package ai

import "fmt"

func argInt(name string, arg any) (int, error) {
	switch v := arg.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	}
	return 0, fmt.Errorf("%s: want integer, got %T", name, arg)
}

func argFloat(name string, arg any) (float64, error) {
	switch v := arg.(type) {
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	}
	return 0, fmt.Errorf("%s: want number, got %T", name, arg)
}

func argString(name string, arg any) (string, error) {
	s, ok := arg.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("%s: want non-empty string, got %v", name, arg)
	}
	return s, nil
}

// argFlag reads an optional boolean; a missing value means true.
func argFlag(name string, arg any) (bool, error) {
	switch v := arg.(type) {
	case nil:
		return true, nil
	case bool:
		return v, nil
	}
	return false, fmt.Errorf("%s: want bool, got %T", name, arg)
}

// argRange reads a [lo, hi] pair.
func argRange(name string, arg any) (lo, hi int, err error) {
	list, ok := arg.([]any)
	if !ok || len(list) != 2 {
		return 0, 0, fmt.Errorf("%s: want [lo, hi], got %v", name, arg)
	}
	if lo, err = argInt(name, list[0]); err != nil {
		return 0, 0, err
	}
	if hi, err = argInt(name, list[1]); err != nil {
		return 0, 0, err
	}
	if lo > hi {
		return 0, 0, fmt.Errorf("%s: lo %d > hi %d", name, lo, hi)
	}
	return lo, hi, nil
}
