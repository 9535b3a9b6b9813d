// pre_processor.go implements the WGSL variant pre-processor. Shader sources select code paths
// with line directives that are resolved against a set of defines before compilation:
//
//	#if NAME      keeps the block when NAME is defined with a value other than "", "0" or "false"
//	#ifdef NAME   keeps the block when NAME is defined
//	#ifndef NAME  keeps the block when NAME is not defined
//	#else         inverts the innermost block
//	#endif        closes the innermost block
//
// Directive lines are removed from the output. Blocks nest.
package shader

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrUnbalancedDirective is returned when #else or #endif has no opening block, or a block is never closed.
	ErrUnbalancedDirective = errors.New("shader: unbalanced pre-processor directive")

	// ErrMalformedDirective is returned for a directive without its required operand.
	ErrMalformedDirective = errors.New("shader: malformed pre-processor directive")
)

// Define is a pre-processor define, also used as a shader variant macro patch.
type Define struct {
	Name  string
	Value string
}

// DefinesKey returns a canonical key for a define set, independent of order.
//
// Parameters:
//   - defines: the defines to key
//
// Returns:
//   - string: NAME=VALUE pairs sorted by name and joined with ';'
func DefinesKey(defines []Define) string {
	if len(defines) == 0 {
		return ""
	}
	sorted := slices.Clone(defines)
	slices.SortFunc(sorted, func(a, b Define) int {
		return strings.Compare(a.Name, b.Name)
	})
	var sb strings.Builder
	for i, d := range sorted {
		if i > 0 {
			sb.WriteByte(';')
		}
		sb.WriteString(d.Name)
		sb.WriteByte('=')
		sb.WriteString(d.Value)
	}
	return sb.String()
}

// conditional is one open #if/#ifdef/#ifndef block.
type conditional struct {
	// parentActive is whether the enclosing block emits lines
	parentActive bool
	// taken is whether the current branch of this block emits lines
	taken bool
	// seenElse guards against a second #else
	seenElse bool
	line     int
}

// Preprocess resolves the pre-processor directives of a WGSL source against a set of defines.
//
// Parameters:
//   - source: the WGSL source containing directives
//   - defines: the defines in effect; later entries override earlier ones with the same name
//
// Returns:
//   - string: the source with inactive blocks and all directive lines removed
//   - error: ErrUnbalancedDirective or ErrMalformedDirective wrapped with the offending line
func Preprocess(source string, defines []Define) (string, error) {
	values := make(map[string]string, len(defines))
	for _, d := range defines {
		values[d.Name] = d.Value
	}

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	var stack []conditional
	active := true

	for i, line := range lines {
		lineNo := i + 1
		directive, operand, ok := parseDirective(line)
		if !ok {
			if active {
				out = append(out, line)
			}
			continue
		}

		switch directive {
		case "if", "ifdef", "ifndef":
			if operand == "" {
				return "", fmt.Errorf("line %d: #%s: %w", lineNo, directive, ErrMalformedDirective)
			}
			value, defined := values[operand]
			var cond bool
			switch directive {
			case "if":
				cond = defined && value != "" && value != "0" && value != "false"
			case "ifdef":
				cond = defined
			case "ifndef":
				cond = !defined
			}
			stack = append(stack, conditional{parentActive: active, taken: cond, line: lineNo})
			active = active && cond
		case "else":
			if len(stack) == 0 {
				return "", fmt.Errorf("line %d: #else: %w", lineNo, ErrUnbalancedDirective)
			}
			top := &stack[len(stack)-1]
			if top.seenElse {
				return "", fmt.Errorf("line %d: second #else: %w", lineNo, ErrUnbalancedDirective)
			}
			top.seenElse = true
			top.taken = !top.taken
			active = top.parentActive && top.taken
		case "endif":
			if len(stack) == 0 {
				return "", fmt.Errorf("line %d: #endif: %w", lineNo, ErrUnbalancedDirective)
			}
			active = stack[len(stack)-1].parentActive
			stack = stack[:len(stack)-1]
		default:
			if active {
				out = append(out, line)
			}
		}
	}

	if len(stack) > 0 {
		return "", fmt.Errorf("line %d: block never closed: %w", stack[len(stack)-1].line, ErrUnbalancedDirective)
	}
	return strings.Join(out, "\n"), nil
}

// parseDirective splits a line of the form "#name operand". Lines that do not start with '#'
// after leading whitespace are not directives.
func parseDirective(line string) (name, operand string, ok bool) {
	trimmed := strings.TrimSpace(line)
	rest, found := strings.CutPrefix(trimmed, "#")
	if !found {
		return "", "", false
	}
	name, operand, _ = strings.Cut(rest, " ")
	return name, strings.TrimSpace(operand), true
}
