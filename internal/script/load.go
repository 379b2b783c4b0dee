package script

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ValidationError reports a structurally malformed script.
// Index is the offending top-level node, or -1 for script-wide problems.
type ValidationError struct {
	Index   int
	Member  int // group member index, or -1
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	switch {
	case e.Index < 0:
		return fmt.Sprintf("expected_function_calls: %s", e.Message)
	case e.Member < 0:
		return fmt.Sprintf("expected_function_calls[%d]: %s", e.Index, e.Message)
	default:
		return fmt.Sprintf("expected_function_calls[%d].any_order[%d]: %s", e.Index, e.Member, e.Message)
	}
}

func newValidationError(index, member int, format string, args ...any) *ValidationError {
	return &ValidationError{Index: index, Member: member, Message: fmt.Sprintf(format, args...)}
}

// Parse decodes a declarative script: a JSON array whose objects become a
// Group when they carry an "any_order" key and a Call otherwise.
// Unknown fields are rejected. Numbers are kept as json.Number.
func Parse(data []byte) (*Script, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, newValidationError(-1, -1, "must be an array of calls: %v", err)
	}

	nodes := make([]Node, 0, len(raw))
	for i, entry := range raw {
		node, err := parseNode(entry)
		if err != nil {
			return nil, newValidationError(i, -1, "%v", err)
		}
		nodes = append(nodes, node)
	}

	return New(nodes...)
}

func parseNode(entry json.RawMessage) (Node, error) {
	// Probe keys once; from here on the node is a typed variant
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(entry, &probe); err != nil {
		return nil, fmt.Errorf("entry must be an object: %w", err)
	}

	if _, ok := probe["any_order"]; ok {
		var group Group
		if err := decodeStrict(entry, &group); err != nil {
			return nil, fmt.Errorf("invalid any_order group: %w", err)
		}
		return &group, nil
	}

	var call Call
	if err := decodeStrict(entry, &call); err != nil {
		return nil, fmt.Errorf("invalid call: %w", err)
	}
	return &call, nil
}

func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	dec.DisallowUnknownFields() // Reject typos like "argument:"
	return dec.Decode(v)
}

func applyDefaults(c *Call) {
	if c.FinishReason == "" {
		c.FinishReason = FinishToolCalls
	}
	if c.Arguments == nil {
		c.Arguments = map[string]any{}
	}
}

// validate checks the structural invariants of a script.
// These are checked once here and never during matching.
func validate(nodes []Node) error {
	if len(nodes) == 0 {
		return newValidationError(-1, -1, "script must be non-empty")
	}

	stopIndex := -1
	for i, n := range nodes {
		switch v := n.(type) {
		case *Call:
			if v == nil {
				return newValidationError(i, -1, "call must not be nil")
			}
			if err := validateCall(i, -1, v); err != nil {
				return err
			}
			if v.IsStop() {
				if stopIndex >= 0 {
					return newValidationError(i, -1, "only one node may request finish_reason %q (first at %d)", FinishStop, stopIndex)
				}
				stopIndex = i
			}
		case *Group:
			if v == nil || len(v.AnyOrder) == 0 {
				return newValidationError(i, -1, "any_order group must be non-empty")
			}
			for j, m := range v.AnyOrder {
				if err := validateCall(i, j, m); err != nil {
					return err
				}
				if m.IsStop() {
					return newValidationError(i, j, "any_order members cannot request finish_reason %q", FinishStop)
				}
			}
		default:
			return newValidationError(i, -1, "unknown node type %T", n)
		}
	}

	if stopIndex >= 0 && stopIndex != len(nodes)-1 {
		return newValidationError(stopIndex, -1, "node requesting finish_reason %q must be the last node", FinishStop)
	}

	return nil
}

func validateCall(index, member int, c *Call) error {
	if c == nil {
		return newValidationError(index, member, "call must not be nil")
	}
	switch c.FinishReason {
	case "", FinishToolCalls, FinishStop:
	default:
		return newValidationError(index, member, "unknown finish_reason %q", c.FinishReason)
	}
	if c.Name == "" && !c.IsStop() {
		return newValidationError(index, member, "name is required")
	}
	return nil
}
