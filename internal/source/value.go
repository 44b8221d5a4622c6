package source

import "fmt"

// toCount converts a D-Bus integer of any width into a non-negative count.
func toCount(v any) (int, error) {
	switch x := v.(type) {
	case uint32:
		return int(x), nil
	case int32:
		if x < 0 {
			return 0, fmt.Errorf("negative count %d", x)
		}
		return int(x), nil
	case uint64:
		return int(x), nil
	case int64:
		if x < 0 {
			return 0, fmt.Errorf("negative count %d", x)
		}
		return int(x), nil
	case uint16:
		return int(x), nil
	case int16:
		if x < 0 {
			return 0, fmt.Errorf("negative count %d", x)
		}
		return int(x), nil
	case byte:
		return int(x), nil
	default:
		return 0, fmt.Errorf("unexpected count type %T", v)
	}
}
