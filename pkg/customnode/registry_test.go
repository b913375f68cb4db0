package customnode_test

import (
	"context"
	"testing"

	"github.com/aretw0/dynamo/internal/runtime"
	"github.com/aretw0/dynamo/pkg/customnode"
	"github.com/aretw0/dynamo/pkg/domain"
	"github.com/aretw0/dynamo/pkg/kinds"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	t      *testing.T
	kinds  *kinds.Registry
	engine *runtime.Engine
	reg    *customnode.Registry
}

func newEnv(t *testing.T) *env {
	e := &env{t: t, kinds: kinds.NewDefault(), engine: runtime.NewEngine()}
	e.reg = customnode.NewRegistry(e.engine, e.kinds)
	e.kinds.SetFallback(e.reg)
	return e
}

func (e *env) node(g *domain.Graph, kind string, params map[string]string) *domain.Node {
	e.t.Helper()
	n, err := g.AddNode(kind, uuid.Nil, 0, 0)
	require.NoError(e.t, err)
	if params != nil {
		require.NoError(e.t, n.Behavior.(domain.Configurable).Configure(n, params))
		require.NoError(e.t, g.RefreshPorts(n))
	}
	return n
}

func (e *env) wire(g *domain.Graph, src *domain.Node, out int, dst *domain.Node, in int) {
	e.t.Helper()
	_, err := g.Connect(src.Outputs[out], dst.Inputs[in])
	require.NoError(e.t, err)
}

// doubler builds "Double": y = x + x.
func (e *env) doubler() *customnode.Definition {
	g := domain.NewGraph(domain.GraphCustom, "Double", e.kinds)
	x := e.node(g, kinds.Input, map[string]string{"name": "x"})
	sum := e.node(g, kinds.Add, nil)
	y := e.node(g, kinds.Output, map[string]string{"name": "y"})
	e.wire(g, x, 0, sum, 0)
	e.wire(g, x, 0, sum, 1)
	e.wire(g, sum, 0, y, 0)
	return customnode.NewDefinition(uuid.Nil, "Double", "Math", g)
}

// caller builds a definition named name whose body forwards its input
// through an instance of callee (which may not be loaded yet).
func (e *env) caller(name string, callee uuid.UUID) *customnode.Definition {
	g := domain.NewGraph(domain.GraphCustom, name, e.kinds)
	in := e.node(g, kinds.Input, map[string]string{"name": "n"})
	inst := e.node(g, domain.KindFunction, map[string]string{
		"symbol":  callee.String(),
		"inputs":  "x",
		"outputs": "y",
	})
	out := e.node(g, kinds.Output, map[string]string{"name": "out"})
	e.wire(g, in, 0, inst, 0)
	e.wire(g, inst, 0, out, 0)
	return customnode.NewDefinition(uuid.Nil, name, "Math", g)
}

func TestDeterministicID(t *testing.T) {
	a := customnode.DeterministicID("Double")
	assert.Equal(t, a, customnode.DeterministicID("Double"))
	assert.NotEqual(t, a, customnode.DeterministicID("Triple"))
	assert.Equal(t, uuid.Version(5), a.Version())
}

func TestRegistry_OutOfOrderLoadResolvesAutomatically(t *testing.T) {
	e := newEnv(t)
	doubleID := customnode.DeterministicID("Double")

	quad := e.caller("Quad", doubleID)
	require.NoError(t, e.reg.Register(quad, []uuid.UUID{doubleID}))

	assert.False(t, e.reg.IsResolved(quad.ID))
	_, err := e.reg.Load(quad.ID)
	assert.ErrorIs(t, err, domain.ErrUnresolvedDependency)
	assert.Equal(t, map[uuid.UUID][]uuid.UUID{quad.ID: {doubleID}}, e.reg.Pending())

	require.NoError(t, e.reg.Register(e.doubler(), nil))

	assert.True(t, e.reg.IsResolved(doubleID))
	assert.True(t, e.reg.IsResolved(quad.ID), "dependents complete without a re-trigger")
	assert.Empty(t, e.reg.Pending())
	assert.Equal(t, []string{"n"}, quad.InputNames)
	assert.Equal(t, []string{"out"}, quad.OutputNames)

	home := domain.NewGraph(domain.GraphHome, "Home", e.kinds)
	num, err := home.AddNode(kinds.Number, uuid.Nil, 0, 0)
	require.NoError(t, err)
	require.NoError(t, num.SetValue(21.0))
	inst, err := home.AddNode(quad.ID.String(), uuid.Nil, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "Quad", inst.NickName)
	_, err = home.Connect(num.Outputs[0], inst.Inputs[0])
	require.NoError(t, err)

	res, err := e.engine.Run(context.Background(), home, runtime.RunOptions{})
	require.NoError(t, err)
	require.True(t, res.Completed(), "errors: %v", res.Err())
	got, _ := inst.Output(0)
	assert.Equal(t, 42.0, got)
}

func TestRegistry_TransitiveChain(t *testing.T) {
	e := newEnv(t)
	doubleID := customnode.DeterministicID("Double")
	quadID := customnode.DeterministicID("Quad")

	oct := e.caller("Oct", quadID)
	require.NoError(t, e.reg.Register(oct, []uuid.UUID{quadID}))
	quad := e.caller("Quad", doubleID)
	require.NoError(t, e.reg.Register(quad, []uuid.UUID{doubleID}))
	require.False(t, e.reg.IsResolved(oct.ID))

	require.NoError(t, e.reg.Register(e.doubler(), nil))
	assert.True(t, e.reg.IsResolved(quad.ID))
	assert.True(t, e.reg.IsResolved(oct.ID))

	out, err := e.engine.Call(context.Background(), oct.Graph, map[uuid.UUID]domain.Value{oct.Graph.Nodes()[0].ID: 1.0}, []uuid.UUID{oct.Graph.Nodes()[2].ID})
	require.NoError(t, err)
	assert.Equal(t, []domain.Value{2.0}, out)
}

func TestRegistry_OnResolvedOrder(t *testing.T) {
	e := newEnv(t)
	var order []string
	e.reg = customnode.NewRegistry(e.engine, e.kinds, customnode.WithOnResolved(func(d *customnode.Definition) {
		order = append(order, d.Name)
	}))
	e.kinds.SetFallback(e.reg)

	require.NoError(t, e.reg.Register(e.caller("Quad", customnode.DeterministicID("Double")), []uuid.UUID{customnode.DeterministicID("Double")}))
	assert.Empty(t, order)
	require.NoError(t, e.reg.Register(e.doubler(), nil))
	assert.Equal(t, []string{"Double", "Quad"}, order)
}

func TestRegistry_DuplicatesAreRejected(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.reg.Register(e.doubler(), nil))

	err := e.reg.Register(e.doubler(), nil)
	assert.ErrorIs(t, err, domain.ErrDuplicateDefinition)

	g := domain.NewGraph(domain.GraphCustom, "Double", e.kinds)
	other := customnode.NewDefinition(uuid.New(), "Double", "", g)
	assert.ErrorIs(t, e.reg.Register(other, nil), domain.ErrDuplicateDefinition)
}

func TestRegistry_Resolve(t *testing.T) {
	e := newEnv(t)
	def := e.doubler()
	require.NoError(t, e.reg.Register(def, nil))

	kind, b, err := e.reg.Resolve("Double")
	require.NoError(t, err)
	assert.Equal(t, def.ID.String(), kind)
	assert.Len(t, b.Layout().Inputs, 1)

	kind, _, err = e.reg.Resolve("Dynamo.Elements.dynFunction")
	require.NoError(t, err)
	assert.Equal(t, domain.KindFunction, kind)

	_, _, err = e.reg.Resolve(uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrUnknownNodeKind)
	_, _, err = e.reg.Resolve("Nope")
	assert.ErrorIs(t, err, domain.ErrUnknownNodeKind)
}

func TestRegistry_LegacyInstanceUsesNicknameID(t *testing.T) {
	e := newEnv(t)
	home := domain.NewGraph(domain.GraphHome, "Home", e.kinds)
	n, err := home.AddNode(domain.KindFunction, uuid.Nil, 0, 0)
	require.NoError(t, err)
	n.NickName = "Double"
	require.NoError(t, n.Behavior.(domain.Configurable).Configure(n, map[string]string{}))

	assert.Equal(t, customnode.DeterministicID("Double").String(), n.Kind)
	assert.Equal(t, customnode.DeterministicID("Double"), n.Behavior.(domain.FunctionInstance).DefinitionID())
}

func TestRegistry_UnresolvedInstanceFailsEvaluation(t *testing.T) {
	e := newEnv(t)
	home := domain.NewGraph(domain.GraphHome, "Home", e.kinds)
	e.node(home, domain.KindFunction, map[string]string{"symbol": uuid.NewString(), "outputs": "y"})

	res, err := e.engine.Run(context.Background(), home, runtime.RunOptions{})
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	assert.ErrorIs(t, res.Errors[0], domain.ErrUnresolvedDependency)
}

func TestRegistry_RecompilePropagatesSignature(t *testing.T) {
	e := newEnv(t)
	def := e.doubler()
	require.NoError(t, e.reg.Register(def, nil))

	home := domain.NewGraph(domain.GraphHome, "Home", e.kinds)
	inst, err := home.AddNode(def.ID.String(), uuid.Nil, 0, 0)
	require.NoError(t, err)
	require.Len(t, inst.Inputs, 1)

	e.node(def.Graph, kinds.Input, map[string]string{"name": "bias"})
	_, err = e.reg.Compile(def.ID)
	require.NoError(t, err)

	require.Len(t, inst.Inputs, 2)
	assert.Equal(t, "x", inst.Inputs[0].Name)
	assert.Equal(t, "bias", inst.Inputs[1].Name)
	assert.True(t, inst.IsDirty())
	assert.Equal(t, []*domain.Node{inst}, e.reg.Instances(def.ID))

	require.NoError(t, home.RemoveNode(inst))
	assert.Empty(t, e.reg.Instances(def.ID))
}

func TestRegistry_Refactor(t *testing.T) {
	e := newEnv(t)
	def := e.doubler()
	require.NoError(t, e.reg.Register(def, nil))

	home := domain.NewGraph(domain.GraphHome, "Home", e.kinds)
	kept, err := home.AddNode(def.ID.String(), uuid.Nil, 0, 0)
	require.NoError(t, err)
	renamed, err := home.AddNode(def.ID.String(), uuid.Nil, 0, 0)
	require.NoError(t, err)
	renamed.NickName = "my doubler"

	_, err = e.reg.Refactor(def.ID, "Twice", "Arithmetic")
	require.NoError(t, err)

	assert.Equal(t, "Twice", kept.NickName, "default nicknames follow the rename")
	assert.Equal(t, "my doubler", renamed.NickName, "diverged nicknames are preserved")
	assert.Equal(t, "Twice", def.Name)
	assert.Equal(t, "Arithmetic", def.Category)
	assert.Equal(t, def.ID, customnode.DeterministicID("Double"), "identity survives renames")

	_, ok := e.reg.Lookup("Double")
	assert.False(t, ok)
	got, ok := e.reg.Lookup("Twice")
	require.True(t, ok)
	assert.Equal(t, def, got)

	other, err := e.reg.New("Other", "")
	require.NoError(t, err)
	_, err = e.reg.Refactor(other.ID, "Twice", "")
	assert.ErrorIs(t, err, domain.ErrDuplicateDefinition)
}

func TestRegistry_New(t *testing.T) {
	e := newEnv(t)
	def, err := e.reg.New("Empty", "Misc")
	require.NoError(t, err)
	assert.Equal(t, customnode.DeterministicID("Empty"), def.ID)
	assert.Equal(t, domain.GraphCustom, def.Graph.Kind)
	assert.True(t, e.reg.IsResolved(def.ID))
	assert.Empty(t, def.InputNames)
	assert.Len(t, e.reg.Definitions(), 1)
}
