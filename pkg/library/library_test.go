package library_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/dynamo/internal/runtime"
	"github.com/aretw0/dynamo/pkg/adapters/memory"
	"github.com/aretw0/dynamo/pkg/customnode"
	"github.com/aretw0/dynamo/pkg/domain"
	"github.com/aretw0/dynamo/pkg/format"
	"github.com/aretw0/dynamo/pkg/kinds"
	"github.com/aretw0/dynamo/pkg/library"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	kinds  *kinds.Registry
	engine *runtime.Engine
	reg    *customnode.Registry
}

func newEnv() *env {
	e := &env{kinds: kinds.NewDefault(), engine: runtime.NewEngine()}
	e.reg = customnode.NewRegistry(e.engine, e.kinds)
	e.kinds.SetFallback(e.reg)
	return e
}

func addNode(t *testing.T, g *domain.Graph, kind string, params map[string]string) *domain.Node {
	t.Helper()
	n, err := g.AddNode(kind, uuid.Nil, 0, 0)
	require.NoError(t, err)
	if params != nil {
		require.NoError(t, n.Behavior.(domain.Configurable).Configure(n, params))
		require.NoError(t, g.RefreshPorts(n))
	}
	return n
}

func wire(t *testing.T, g *domain.Graph, src, dst *domain.Node, in int) {
	t.Helper()
	_, err := g.ConnectDirect(src.Outputs[0], dst.Inputs[in])
	require.NoError(t, err)
}

func encode(t *testing.T, g *domain.Graph) string {
	t.Helper()
	data, err := format.Marshal(format.Snapshot(g))
	require.NoError(t, err)
	return string(data)
}

// doubleDoc encodes "Double": y = x + x.
func doubleDoc(t *testing.T) string {
	e := newEnv()
	g := domain.NewGraph(domain.GraphCustom, "Double", e.kinds)
	x := addNode(t, g, kinds.Input, map[string]string{"name": "x"})
	sum := addNode(t, g, kinds.Add, nil)
	y := addNode(t, g, kinds.Output, map[string]string{"name": "y"})
	wire(t, g, x, sum, 0)
	wire(t, g, x, sum, 1)
	wire(t, g, sum, y, 0)
	return encode(t, g)
}

// quadDoc encodes "Quad", which forwards its input through Double.
func quadDoc(t *testing.T) string {
	e := newEnv()
	g := domain.NewGraph(domain.GraphCustom, "Quad", e.kinds)
	n := addNode(t, g, kinds.Input, map[string]string{"name": "n"})
	inst := addNode(t, g, domain.KindFunction, map[string]string{
		"symbol":  customnode.DeterministicID("Double").String(),
		"inputs":  "x",
		"outputs": "y",
	})
	out := addNode(t, g, kinds.Output, map[string]string{"name": "out"})
	wire(t, g, n, inst, 0)
	wire(t, g, inst, out, 0)
	return encode(t, g)
}

func TestLibrary_LoadOutOfOrder(t *testing.T) {
	e := newEnv()
	store := memory.NewFromDocuments(map[string]string{
		"a_quad.dyf":   quadDoc(t),
		"b_double.dyf": doubleDoc(t),
		"broken.dyf":   "<dynWorkspace",
		"plain.dyf":    `<dynWorkspace X="0" Y="0"></dynWorkspace>`,
		"home.dyn":     `<dynWorkspace X="0" Y="0"></dynWorkspace>`,
	})
	lib := library.New(store, e.reg, e.kinds, library.WithConcurrency(2))

	sum, err := lib.Load(context.Background())
	require.NoError(t, err)

	assert.Len(t, sum.Loaded, 2)
	assert.Len(t, sum.Failed, 2)
	assert.Contains(t, sum.Failed, "broken.dyf")
	assert.Contains(t, sum.Failed, "plain.dyf")
	assert.Empty(t, sum.Pending)

	quad, ok := e.reg.Lookup("Quad")
	require.True(t, ok)
	assert.True(t, e.reg.IsResolved(quad.ID))
	assert.Equal(t, "a_quad.dyf", quad.Graph.FilePath)
	name, ok := lib.DefinitionName(quad.ID)
	assert.True(t, ok)
	assert.Equal(t, "a_quad.dyf", name)

	out, err := e.engine.Call(context.Background(), quad.Graph,
		map[uuid.UUID]domain.Value{quad.Graph.Nodes()[0].ID: 4.0},
		[]uuid.UUID{quad.Graph.Nodes()[2].ID})
	require.NoError(t, err)
	assert.Equal(t, []domain.Value{8.0}, out)
}

func TestLibrary_MissingDependencyStaysPending(t *testing.T) {
	e := newEnv()
	store := memory.NewFromDocuments(map[string]string{"quad.dyf": quadDoc(t)})
	lib := library.New(store, e.reg, e.kinds)

	sum, err := lib.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, sum.Loaded, 1)
	quadID := customnode.DeterministicID("Quad")
	assert.Equal(t, []uuid.UUID{customnode.DeterministicID("Double")}, sum.Pending[quadID])

	_, err = e.reg.Load(quadID)
	assert.ErrorIs(t, err, domain.ErrUnresolvedDependency)
}

func TestLibrary_WatchHandsEntriesToOwner(t *testing.T) {
	e := newEnv()
	store := memory.NewStore()
	lib := library.New(store, e.reg, e.kinds)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	owner := make(chan func(), 4)
	done := make(chan error, 1)
	go func() {
		done <- lib.Watch(ctx, func(fn func()) {
			select {
			case owner <- fn:
			case <-ctx.Done():
			}
		})
	}()

	// give the watcher time to subscribe
	require.Eventually(t, func() bool {
		_ = store.Save(ctx, "double.dyf", []byte(doubleDoc(t)))
		select {
		case fn := <-owner:
			fn()
			return true
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	_, ok := e.reg.Lookup("Double")
	assert.True(t, ok)

	// a changed document replaces the definition
	require.NoError(t, store.Save(ctx, "double.dyf", []byte(doubleDoc(t))))
	select {
	case fn := <-owner:
		fn()
	case <-time.After(2 * time.Second):
		t.Fatal("no reload")
	}
	assert.Len(t, e.reg.Definitions(), 1)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestLibrary_WatchRequiresWatchableStore(t *testing.T) {
	e := newEnv()
	lib := library.New(nonWatchable{memory.NewStore()}, e.reg, e.kinds)
	assert.Error(t, lib.Watch(context.Background(), func(fn func()) { fn() }))
}

type nonWatchable struct {
	*memory.Store
}

func (nonWatchable) Watch() {}
