package template

import (
	"fmt"
	"strings"
)

// Evaluate renders one template-expression span against a snapshot.
//
// The span is the tokenizer's output: text containing one or more
// {{ expression }} regions (and possibly literal text around them). Each
// region is parsed, evaluated against the snapshot, and replaced with its
// stringified value; text outside the regions passes through verbatim.
//
// Evaluation is pure: it reads only the snapshot, performs no I/O, and is
// deterministic for a given snapshot and source. Statement blocks
// ({% ... %}) are outside the closed surface and fail with ErrUnsupported.
//
// Parameters:
//   - source: The template span, delimiters included
//   - snap: Immutable entity state snapshot
//
// Returns:
//   - string: The rendered text
//   - error: A *RenderError carrying source, or nil
func Evaluate(source string, snap Snapshot) (string, error) {
	var out strings.Builder
	rest := source
	for {
		exprStart := strings.Index(rest, "{{")
		stmtStart := strings.Index(rest, "{%")
		if stmtStart >= 0 && (exprStart < 0 || stmtStart < exprStart) {
			return "", &RenderError{Expr: source, Err: fmt.Errorf("%w: statement blocks", ErrUnsupported)}
		}
		if exprStart < 0 {
			out.WriteString(rest)
			return out.String(), nil
		}

		out.WriteString(rest[:exprStart])
		end := strings.Index(rest[exprStart:], "}}")
		if end < 0 {
			return "", &RenderError{Expr: source, Err: fmt.Errorf("%w: unterminated expression", ErrMalformed)}
		}
		body := rest[exprStart+2 : exprStart+end]
		rest = rest[exprStart+end+2:]

		value, err := evaluateBody(body, snap)
		if err != nil {
			return "", &RenderError{Expr: source, Err: err}
		}
		out.WriteString(stringify(value))
	}
}

// evaluateBody parses and evaluates one expression body.
func evaluateBody(body string, snap Snapshot) (any, error) {
	if strings.TrimSpace(body) == "" {
		return "", nil
	}
	n, err := parseExpression(body)
	if err != nil {
		return nil, err
	}
	return eval(n, snap)
}

// eval walks the parsed expression tree.
func eval(n node, snap Snapshot) (any, error) {
	switch v := n.(type) {
	case *literal:
		return v.val, nil

	case *call:
		args, err := evalArgs(v.args, snap)
		if err != nil {
			return nil, err
		}
		return callBuiltin(snap, v.name, args)

	case *dotted:
		return evalDotted(v, snap)

	case *filterApply:
		piped, err := eval(v.expr, snap)
		if err != nil {
			return nil, err
		}
		args, err := evalArgs(v.args, snap)
		if err != nil {
			return nil, err
		}
		return callFilter(snap, v.name, piped, args)

	case *compare:
		left, err := eval(v.left, snap)
		if err != nil {
			return nil, err
		}
		right, err := eval(v.right, snap)
		if err != nil {
			return nil, err
		}
		equal := valuesEqual(left, right)
		if v.op == "!=" {
			return !equal, nil
		}
		return equal, nil

	default:
		return nil, fmt.Errorf("%w: unknown node", ErrMalformed)
	}
}

func evalArgs(nodes []node, snap Snapshot) ([]any, error) {
	args := make([]any, 0, len(nodes))
	for _, n := range nodes {
		v, err := eval(n, snap)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return args, nil
}

// evalDotted resolves states.<domain>.<object_id>.state and
// states.<domain>.<object_id>.attributes.<attr>. Both forms resolve through
// the same snapshot lookups as the functional forms, so
// states.lock.front.state and states('lock.front') cannot diverge.
func evalDotted(d *dotted, snap Snapshot) (any, error) {
	// path[0] is always "states" (enforced by the parser).
	const (
		statePathLen = 4 // states.domain.object.state
		attrPathLen  = 5 // states.domain.object.attributes.attr
	)
	if len(d.path) != statePathLen && len(d.path) != attrPathLen {
		return nil, fmt.Errorf("%w: dotted path %s", ErrMalformed, strings.Join(d.path, "."))
	}

	id := d.path[1] + "." + d.path[2]
	switch {
	case len(d.path) == statePathLen && d.path[3] == "state":
		return callBuiltin(snap, "states", []any{id})
	case len(d.path) == attrPathLen && d.path[3] == "attributes":
		return callBuiltin(snap, "state_attr", []any{id, d.path[4]})
	default:
		return nil, fmt.Errorf("%w: dotted path %s", ErrMalformed, strings.Join(d.path, "."))
	}
}

// valuesEqual compares two evaluated values. Numbers compare numerically
// across int/float forms; everything else compares by rendered text, which
// matches how state strings meet literals in practice.
func valuesEqual(a, b any) bool {
	af, aok := numeric(a)
	bf, bok := numeric(b)
	if aok && bok {
		return af == bf
	}
	return stringify(a) == stringify(b)
}

// numeric extracts a float64 from genuinely numeric values only; strings
// are deliberately excluded so "1.0" != 1 at the equality level while the
// int/float filters still coerce strings.
func numeric(v any) (float64, bool) {
	switch val := v.(type) {
	case int64:
		return float64(val), true
	case int:
		return float64(val), true
	case float64:
		return val, true
	default:
		return 0, false
	}
}
