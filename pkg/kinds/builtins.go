package kinds

import "github.com/aretw0/dynamo/pkg/domain"

// Built-in kind names.
const (
	Number    = "Number"
	String    = "String"
	Boolean   = "Boolean"
	List      = domain.KindList
	Map       = domain.KindMap
	Add       = "Add"
	Subtract  = "Subtract"
	Multiply  = "Multiply"
	Divide    = "Divide"
	Identity  = "Identity"
	WatchKind = "Watch"
	Input     = "Input"
	Output    = "Output"
)

// RegisterBuiltins adds the built-in kinds and their also-known-as names.
func RegisterBuiltins(r *Registry) {
	r.Register(Number, newNumber, CurrentNamespace+"dynDouble", "Double")
	r.Register(String, newString, CurrentNamespace+"dynString")
	r.Register(Boolean, newBoolean, CurrentNamespace+"dynBool", "Bool")
	r.Register(List, newList, CurrentNamespace+"dynNewList", CurrentNamespace+"dynList")
	r.Register(Map, newMap, CurrentNamespace+"dynMap")
	r.Register(Add, arithmetic("add", add), CurrentNamespace+"dynAddition", "+")
	r.Register(Subtract, arithmetic("subtract", subtract), CurrentNamespace+"dynSubtraction", "-")
	r.Register(Multiply, arithmetic("multiply", multiply), CurrentNamespace+"dynMultiplication", "*")
	r.Register(Divide, arithmetic("divide", divide), CurrentNamespace+"dynDivision", "/")
	r.Register(Identity, func() domain.Behavior { return identity{} }, CurrentNamespace+"dynIdentity")
	r.Register(WatchKind, func() domain.Behavior { return &Watch{} }, CurrentNamespace+"dynWatch")
	r.Register(Input, newInput, CurrentNamespace+"dynSymbol")
	r.Register(Output, newOutput, CurrentNamespace+"dynOutput")
}
