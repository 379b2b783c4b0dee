package script

// FinishReason is the generation stop signal a node expects.
type FinishReason string

const (
	// FinishToolCalls means more invocations follow. It is the default.
	FinishToolCalls FinishReason = "tool_calls"

	// FinishStop means natural completion.
	FinishStop FinishReason = "stop"
)

// Node is one entry of an expected-call script.
// Only *Call and *Group implement it.
type Node interface {
	// isNode is a private method to restrict implementers
	isNode()
}

// Call is a single expected function invocation plus the canned tool
// response injected back into the conversation when it matches.
type Call struct {
	// Name is the function name. Empty only for a stop sentinel.
	Name string `json:"name"`

	// Arguments is the expected argument object, decoded with json.Number.
	Arguments map[string]any `json:"arguments"`

	// Result is the synthetic tool-response content.
	Result string `json:"result"`

	// Optional calls may be skipped by the model.
	Optional bool `json:"optional,omitempty"`

	// FinishReason defaults to FinishToolCalls.
	FinishReason FinishReason `json:"finish_reason,omitempty"`
}

func (*Call) isNode() {}

// IsStop reports whether the node requests the terminal stop signal.
func (c *Call) IsStop() bool {
	return c.FinishReason == FinishStop
}

// IsSentinel reports whether the node is a bare stop marker that carries no call.
func (c *Call) IsSentinel() bool {
	return c.IsStop() && c.Name == ""
}

// Clone returns a deep copy of the call.
func (c *Call) Clone() *Call {
	cp := *c
	cp.Arguments = cloneObject(c.Arguments)
	return &cp
}

// Group is a set of calls the model may produce in any relative order.
// All required members must be consumed before the script advances past it.
type Group struct {
	AnyOrder []*Call `json:"any_order"`
}

func (*Group) isNode() {}

// Clone returns a deep copy of the group and its members.
func (g *Group) Clone() *Group {
	members := make([]*Call, len(g.AnyOrder))
	for i, m := range g.AnyOrder {
		members[i] = m.Clone()
	}
	return &Group{AnyOrder: members}
}

// Script is a validated, logically immutable expected-call sequence.
type Script struct {
	nodes []Node
}

// New validates the nodes and builds a Script from them.
// Missing finish reasons and argument objects are defaulted in place.
func New(nodes ...Node) (*Script, error) {
	if err := validate(nodes); err != nil {
		return nil, err
	}
	for _, n := range nodes {
		switch v := n.(type) {
		case *Call:
			applyDefaults(v)
		case *Group:
			for _, m := range v.AnyOrder {
				applyDefaults(m)
			}
		}
	}
	return &Script{nodes: nodes}, nil
}

// MustNew is like New but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustNew(nodes ...Node) *Script {
	s, err := New(nodes...)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of top-level nodes.
func (s *Script) Len() int {
	return len(s.nodes)
}

// Nodes returns a deep working copy of the nodes.
// Callers may mutate the result without affecting the script.
func (s *Script) Nodes() []Node {
	out := make([]Node, len(s.nodes))
	for i, n := range s.nodes {
		out[i] = CloneNode(n)
	}
	return out
}

// CloneNode deep-copies a single node.
func CloneNode(n Node) Node {
	switch v := n.(type) {
	case *Call:
		return v.Clone()
	case *Group:
		return v.Clone()
	default:
		panic("script: unknown node type")
	}
}

// Calls flattens the script into its atomic calls in declared order.
// Stop sentinels are skipped.
func (s *Script) Calls() []*Call {
	var calls []*Call
	for _, n := range s.nodes {
		switch v := n.(type) {
		case *Call:
			if !v.IsSentinel() {
				calls = append(calls, v.Clone())
			}
		case *Group:
			for _, m := range v.AnyOrder {
				calls = append(calls, m.Clone())
			}
		}
	}
	return calls
}

func cloneObject(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneObject(val)
	case []any:
		arr := make([]any, len(val))
		for i, elem := range val {
			arr[i] = cloneValue(elem)
		}
		return arr
	default:
		return val
	}
}
