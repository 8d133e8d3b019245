package template

import (
	"fmt"
	"strconv"
	"strings"
)

// builtin is one entry in the closed function/filter surface.
type builtin struct {
	minArgs int
	maxArgs int
	fn      func(snap Snapshot, args []any) (any, error)
}

// builtins is the complete dispatch table. The surface is fixed and
// non-extensible: anything not listed here fails with ErrUnknownFunction,
// which the caller degrades to an empty render.
var builtins = map[string]builtin{
	"states": {
		minArgs: 1,
		maxArgs: 1,
		fn: func(snap Snapshot, args []any) (any, error) {
			id, ok := args[0].(string)
			if !ok {
				return nil, fmt.Errorf("%w: states() wants a string entity id", ErrBadArguments)
			}
			if e, present := snap.Get(id); present {
				return e.State, nil
			}
			return StateUnknown, nil
		},
	},
	"state_attr": {
		minArgs: 2,
		maxArgs: 2,
		fn: func(snap Snapshot, args []any) (any, error) {
			id, ok := args[0].(string)
			if !ok {
				return nil, fmt.Errorf("%w: state_attr() wants a string entity id", ErrBadArguments)
			}
			attr, ok := args[1].(string)
			if !ok {
				return nil, fmt.Errorf("%w: state_attr() wants a string attribute name", ErrBadArguments)
			}
			e, present := snap.Get(id)
			if !present {
				return nil, nil
			}
			return e.Attributes[attr], nil
		},
	},
	"is_state": {
		minArgs: 2,
		maxArgs: 2,
		fn: func(snap Snapshot, args []any) (any, error) {
			id, ok := args[0].(string)
			if !ok {
				return nil, fmt.Errorf("%w: is_state() wants a string entity id", ErrBadArguments)
			}
			state := StateUnknown
			if e, present := snap.Get(id); present {
				state = e.State
			}
			return state == stringify(args[1]), nil
		},
	},
	// int and float never fail on bad input: they degrade to the
	// caller-supplied default (or zero) so a single non-numeric sensor
	// never poisons a whole render.
	"int": {
		minArgs: 1,
		maxArgs: 2,
		fn: func(_ Snapshot, args []any) (any, error) {
			def := any(int64(0))
			if len(args) == 2 {
				def = args[1]
			}
			if n, ok := coerceInt(args[0]); ok {
				return n, nil
			}
			return def, nil
		},
	},
	"float": {
		minArgs: 1,
		maxArgs: 2,
		fn: func(_ Snapshot, args []any) (any, error) {
			def := any(float64(0))
			if len(args) == 2 {
				def = args[1]
			}
			if f, ok := coerceFloat(args[0]); ok {
				return f, nil
			}
			return def, nil
		},
	},
}

// filterNames restricts which builtins may appear after a pipe. The
// value-transforming filters make sense there; the state accessors do not.
var filterNames = map[string]bool{
	"int":   true,
	"float": true,
}

// callBuiltin dispatches a parsed call through the table.
func callBuiltin(snap Snapshot, name string, args []any) (any, error) {
	b, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	if len(args) < b.minArgs || len(args) > b.maxArgs {
		return nil, fmt.Errorf("%w: %s takes %d-%d arguments, got %d",
			ErrBadArguments, name, b.minArgs, b.maxArgs, len(args))
	}
	return b.fn(snap, args)
}

// callFilter dispatches a piped value through a filter. The piped value is
// prepended to the filter's explicit arguments, so `x | int(5)` and
// `int(x, 5)` resolve identically.
func callFilter(snap Snapshot, name string, piped any, args []any) (any, error) {
	if !filterNames[name] {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFilter, name)
	}
	return callBuiltin(snap, name, append([]any{piped}, args...))
}

// coerceInt converts a rendered value to an integer where possible.
// Strings holding floats truncate toward zero, matching the filter's
// tolerant contract.
func coerceInt(v any) (int64, bool) {
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	case float64:
		return int64(val), true
	case string:
		s := strings.TrimSpace(val)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(f), true
		}
		return 0, false
	default:
		return 0, false
	}
}

// coerceFloat converts a rendered value to a float where possible.
func coerceFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int64:
		return float64(val), true
	case int:
		return float64(val), true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return f, true
		}
		return 0, false
	default:
		return 0, false
	}
}

// stringify renders an evaluated value the way the template language would.
func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return "None"
	case string:
		return val
	case bool:
		if val {
			return "True"
		}
		return "False"
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}
