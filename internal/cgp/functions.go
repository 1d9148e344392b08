package cgp

import "math"

// divideGuard is the divisor magnitude below which div falls back to its
// dividend.
const divideGuard = 1e-4

// Function is one arithmetic primitive a node can carry.
type Function struct {
	Name  string
	Arity int
	call  func(operands []float64) float64
}

// Call applies the primitive to exactly Arity operands.
func (f Function) Call(operands ...float64) float64 {
	if len(operands) != f.Arity {
		panic("cgp: " + f.Name + " called with wrong operand count")
	}
	return f.call(operands)
}

// FunctionTable is an order-stable catalog; nodes store indices into it.
type FunctionTable []Function

// DefaultFunctions is shared read-only by every genome.
var DefaultFunctions = FunctionTable{
	{Name: "add", Arity: 2, call: func(v []float64) float64 { return v[0] + v[1] }},
	{Name: "sub", Arity: 2, call: func(v []float64) float64 { return v[0] - v[1] }},
	{Name: "mul", Arity: 2, call: func(v []float64) float64 { return v[0] * v[1] }},
	{Name: "div", Arity: 2, call: func(v []float64) float64 { return Div(v[0], v[1]) }},
	{Name: "neg", Arity: 1, call: func(v []float64) float64 { return -v[0] }},
}

// Div returns a/b, or a unchanged when |b| is below 1e-4.
func Div(a, b float64) float64 {
	if math.Abs(b) < divideGuard {
		return a
	}
	return a / b
}

func (t FunctionTable) arity(index int) int {
	return t[index].Arity
}
