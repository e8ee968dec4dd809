package config

import "strings"

// Bool is a tri-state boolean. Configuration values are loosely typed and a
// value that looks neither true-ish nor false-ish must not be silently read as
// either.
type Bool int

const (
	// Indeterminate is returned for values that cannot be interpreted.
	Indeterminate Bool = iota
	True
	False
)

// String makes Bool satisfy the fmt.Stringer interface.
func (b Bool) String() string {
	switch b {
	case True:
		return "True"
	case False:
		return "False"
	default:
		return "Indeterminate"
	}
}

// IsTrue reports whether b is True. Indeterminate is not true.
func (b Bool) IsTrue() bool { return b == True }

// FormatBool renders a boolean the way it is stored in the configuration.
func FormatBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}

// ParseBool interprets v as a boolean.
//
// Strings are matched case-insensitively: "t", "y", "true", "yes" and "1" are
// True; "f", "n", "false", "no" and "0" are False. Integers are True when
// non-zero. Everything else is Indeterminate.
func ParseBool(v interface{}) Bool {
	switch val := v.(type) {
	case Bool:
		return val
	case bool:
		if val {
			return True
		}
		return False
	case int:
		return intBool(int64(val))
	case int8:
		return intBool(int64(val))
	case int16:
		return intBool(int64(val))
	case int32:
		return intBool(int64(val))
	case int64:
		return intBool(val)
	case uint:
		return intBool(int64(val))
	case uint8:
		return intBool(int64(val))
	case uint16:
		return intBool(int64(val))
	case uint32:
		return intBool(int64(val))
	case uint64:
		if val != 0 {
			return True
		}
		return False
	case string:
		switch strings.ToLower(val) {
		case "t", "y", "true", "yes", "1":
			return True
		case "f", "n", "false", "no", "0":
			return False
		}
	}

	return Indeterminate
}

func intBool(v int64) Bool {
	if v != 0 {
		return True
	}
	return False
}
