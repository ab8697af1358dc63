package earthengine

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/goccy/go-json"
)

// Expression is the wire form of an Earth Engine computation graph: a flat
// map of value nodes keyed by id, plus the id of the result.
type Expression struct {
	Result string                `json:"result"`
	Values map[string]*ValueNode `json:"values"`
}

// ValueNode is one node of an Expression. Exactly one field is set.
type ValueNode struct {
	ConstantValue           json.RawMessage     `json:"constantValue,omitempty"`
	ArrayValue              *ArrayValue         `json:"arrayValue,omitempty"`
	FunctionDefinitionValue *FunctionDefinition `json:"functionDefinitionValue,omitempty"`
	FunctionInvocationValue *FunctionInvocation `json:"functionInvocationValue,omitempty"`
	ArgumentReference       string              `json:"argumentReference,omitempty"`
	ValueReference          string              `json:"valueReference,omitempty"`
}

// ArrayValue holds an ordered list of values.
type ArrayValue struct {
	Values []*ValueNode `json:"values"`
}

// FunctionDefinition is a lambda. Body is the id of the value node holding
// the function body.
type FunctionDefinition struct {
	ArgumentNames []string `json:"argumentNames"`
	Body          string   `json:"body"`
}

// FunctionInvocation calls a named server-side algorithm.
type FunctionInvocation struct {
	FunctionName string                `json:"functionName"`
	Arguments    map[string]*ValueNode `json:"arguments"`
}

type nodeKind int

const (
	kindConstant nodeKind = iota
	kindArray
	kindInvocation
	kindFunction
	kindArgument
)

// Node is an unevaluated expression. Nodes are immutable and may be shared
// between expressions.
type Node struct {
	kind     nodeKind
	constant any
	items    []*Node
	fields   map[string]*Node
	function string
	argNames []string
	body     *Node
	argument string
}

// Constant wraps a JSON-encodable literal.
func Constant(v any) *Node {
	return &Node{kind: kindConstant, constant: v}
}

// Array builds an array node from its elements.
func Array(items ...*Node) *Node {
	return &Node{kind: kindArray, items: items}
}

// Invoke builds a call to a server-side algorithm. Nil arguments are
// dropped.
func Invoke(function string, args map[string]*Node) *Node {
	clean := make(map[string]*Node, len(args))
	for k, v := range args {
		if v != nil {
			clean[k] = v
		}
	}
	return &Node{kind: kindInvocation, function: function, fields: clean}
}

// Lambda builds a function definition over the named arguments.
func Lambda(argNames []string, body *Node) *Node {
	return &Node{kind: kindFunction, argNames: argNames, body: body}
}

// Argument references a lambda argument by name.
func Argument(name string) *Node {
	return &Node{kind: kindArgument, argument: name}
}

// Function returns the algorithm name for invocation nodes and "" otherwise.
func (n *Node) Function() string {
	if n == nil || n.kind != kindInvocation {
		return ""
	}
	return n.function
}

// Encode serialises the graph rooted at n. Identical invocations are stored
// once and referenced by id.
func Encode(n *Node) (*Expression, error) {
	if n == nil {
		return nil, fmt.Errorf("cannot encode nil expression")
	}

	enc := &encoder{
		values: make(map[string]*ValueNode),
		seen:   make(map[string]string),
	}

	root, err := enc.encode(n)
	if err != nil {
		return nil, err
	}

	result := root.ValueReference
	if result == "" {
		result = enc.store(root)
	}

	return &Expression{Result: result, Values: enc.values}, nil
}

type encoder struct {
	values map[string]*ValueNode
	seen   map[string]string
	next   int
}

func (e *encoder) store(v *ValueNode) string {
	id := strconv.Itoa(e.next)
	e.next++
	e.values[id] = v
	return id
}

// intern stores v once per distinct encoding and returns a reference to it.
func (e *encoder) intern(v *ValueNode) (*ValueNode, error) {
	key, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode value node: %w", err)
	}
	if id, ok := e.seen[string(key)]; ok {
		return &ValueNode{ValueReference: id}, nil
	}
	id := e.store(v)
	e.seen[string(key)] = id
	return &ValueNode{ValueReference: id}, nil
}

func (e *encoder) encode(n *Node) (*ValueNode, error) {
	switch n.kind {
	case kindConstant:
		raw, err := json.Marshal(n.constant)
		if err != nil {
			return nil, fmt.Errorf("failed to encode constant %v: %w", n.constant, err)
		}
		return &ValueNode{ConstantValue: raw}, nil

	case kindArray:
		values := make([]*ValueNode, 0, len(n.items))
		for _, item := range n.items {
			v, err := e.encode(item)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		return &ValueNode{ArrayValue: &ArrayValue{Values: values}}, nil

	case kindInvocation:
		args, err := e.encodeFields(n.fields)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", n.function, err)
		}
		return e.intern(&ValueNode{FunctionInvocationValue: &FunctionInvocation{
			FunctionName: n.function,
			Arguments:    args,
		}})

	case kindFunction:
		body, err := e.encode(n.body)
		if err != nil {
			return nil, err
		}
		bodyID := body.ValueReference
		if bodyID == "" {
			bodyID = e.store(body)
		}
		return &ValueNode{FunctionDefinitionValue: &FunctionDefinition{
			ArgumentNames: n.argNames,
			Body:          bodyID,
		}}, nil

	case kindArgument:
		return &ValueNode{ArgumentReference: n.argument}, nil
	}

	return nil, fmt.Errorf("unknown node kind %d", n.kind)
}

func (e *encoder) encodeFields(fields map[string]*Node) (map[string]*ValueNode, error) {
	out := make(map[string]*ValueNode, len(fields))
	// Sorted so that value ids are stable across runs.
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, err := e.encode(fields[k])
		if err != nil {
			return nil, fmt.Errorf("argument %s: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

// Root returns the result node with references resolved.
func (x *Expression) Root() *ValueNode {
	return x.Resolve(&ValueNode{ValueReference: x.Result})
}

// Resolve follows value references until a concrete node is reached. It
// returns nil for dangling references.
func (x *Expression) Resolve(v *ValueNode) *ValueNode {
	for i := 0; v != nil && v.ValueReference != "" && i <= len(x.Values); i++ {
		v = x.Values[v.ValueReference]
	}
	return v
}

// Invocations returns every invocation of the named algorithm in the
// expression, ordered by value id.
func (x *Expression) Invocations(function string) []*FunctionInvocation {
	ids := make([]string, 0, len(x.Values))
	for id := range x.Values {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.Atoi(ids[i])
		b, errB := strconv.Atoi(ids[j])
		if errA != nil || errB != nil {
			return ids[i] < ids[j]
		}
		return a < b
	})

	var out []*FunctionInvocation
	for _, id := range ids {
		if call := x.Values[id].FunctionInvocationValue; call != nil && call.FunctionName == function {
			out = append(out, call)
		}
	}
	return out
}

// Uses reports whether the named algorithm appears anywhere in the expression.
func (x *Expression) Uses(function string) bool {
	return len(x.Invocations(function)) > 0
}

// ConstantArg decodes the named argument of call into dst. The argument must
// resolve to a constant.
func (x *Expression) ConstantArg(call *FunctionInvocation, name string, dst any) error {
	if call == nil {
		return fmt.Errorf("nil invocation")
	}
	v := x.Resolve(call.Arguments[name])
	if v == nil || v.ConstantValue == nil {
		return fmt.Errorf("%s: argument %q is not a constant", call.FunctionName, name)
	}
	return json.Unmarshal(v.ConstantValue, dst)
}
