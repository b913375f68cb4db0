package customnode

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/dynamo/pkg/domain"
	"github.com/google/uuid"
)

const (
	paramSymbol  = "symbol"
	paramInputs  = "inputs"
	paramOutputs = "outputs"
	nameSep      = "|"
)

// instance is a node whose behavior calls a custom node definition. Its
// signature is kept so that instances of definitions that are not loaded
// yet still expose (and persist) their ports.
type instance struct {
	reg     *Registry
	id      uuid.UUID
	node    *domain.Node
	inputs  []string
	outputs []string
}

func (i *instance) Layout() domain.Layout {
	l := domain.Layout{
		Inputs:  make([]domain.PortSpec, len(i.inputs)),
		Outputs: make([]domain.PortSpec, len(i.outputs)),
	}
	for k, name := range i.inputs {
		l.Inputs[k] = domain.PortSpec{Name: name}
	}
	for k, name := range i.outputs {
		l.Outputs[k] = domain.PortSpec{Name: name}
	}
	return l
}

func (i *instance) Evaluate(ctx context.Context, args []domain.Value) ([]domain.Value, error) {
	def, err := i.reg.Load(i.id)
	if err != nil {
		return nil, err
	}
	return def.call(ctx, i.reg.caller, args)
}

// AllowPartial holds only for compiled definitions so that unresolved
// instances keep failing with ErrUnresolvedDependency.
func (i *instance) AllowPartial() bool {
	return i.reg.resolved[i.id]
}

func (i *instance) DefinitionID() uuid.UUID {
	return i.id
}

func (i *instance) Attach(n *domain.Node) {
	i.node = n
	if i.id == uuid.Nil {
		return
	}
	if def, ok := i.reg.defs[i.id]; ok && n.NickName == n.Kind {
		n.NickName = def.Name
	}
	i.reg.track(i)
}

func (i *instance) Destroy() {
	i.reg.untrack(i)
}

func (i *instance) Params() map[string]string {
	return map[string]string{
		paramSymbol:  i.id.String(),
		paramInputs:  strings.Join(i.inputs, nameSep),
		paramOutputs: strings.Join(i.outputs, nameSep),
	}
}

// Configure binds the instance to the definition named by the symbol param.
// Documents without a usable symbol fall back on the id derived from the
// node nickname.
func (i *instance) Configure(n *domain.Node, params map[string]string) error {
	id, err := uuid.Parse(params[paramSymbol])
	if err != nil || id == uuid.Nil {
		if n == nil || n.NickName == "" {
			return fmt.Errorf("custom node instance has neither a symbol nor a nickname")
		}
		id = DeterministicID(n.NickName)
	}

	i.reg.untrack(i)
	i.id = id
	if n != nil {
		i.node = n
		n.Kind = id.String()
	}

	if def, ok := i.reg.defs[id]; ok && i.reg.resolved[id] {
		i.inputs = append([]string(nil), def.InputNames...)
		i.outputs = append([]string(nil), def.OutputNames...)
	} else {
		i.inputs = splitNames(params[paramInputs])
		i.outputs = splitNames(params[paramOutputs])
	}
	if i.node != nil {
		i.reg.track(i)
	}
	return nil
}

func splitNames(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, nameSep)
}
