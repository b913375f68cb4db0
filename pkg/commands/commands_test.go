package commands_test

import (
	"context"
	"sync"
	"testing"

	"github.com/aretw0/dynamo"
	"github.com/aretw0/dynamo/pkg/adapters/memory"
	"github.com/aretw0/dynamo/pkg/commands"
	"github.com/aretw0/dynamo/pkg/customnode"
	"github.com/aretw0/dynamo/pkg/domain"
	"github.com/aretw0/dynamo/pkg/kinds"
	"github.com/aretw0/dynamo/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exec(t *testing.T, s *commands.Set, name string, params commands.Params) any {
	t.Helper()
	res, err := s.Execute(context.Background(), name, params)
	require.NoError(t, err)
	return res
}

func createNode(t *testing.T, s *commands.Set, kind string, x, y float64) *domain.Node {
	t.Helper()
	return exec(t, s, commands.CreateNode, commands.Params{"kind": kind, "x": x, "y": y}).(*domain.Node)
}

func connect(t *testing.T, s *commands.Set, src *domain.Node, dst *domain.Node, in int) *domain.Connector {
	t.Helper()
	return exec(t, s, commands.CreateConnection, commands.Params{
		"start": src.ID.String(), "start_index": 0,
		"end": dst.ID.String(), "end_index": in,
	}).(*domain.Connector)
}

func TestCommands_BuildAndRun(t *testing.T) {
	s := commands.New(dynamo.New())

	a := exec(t, s, commands.CreateNode, commands.Params{"kind": "Number", "x": "10", "y": "20"}).(*domain.Node)
	assert.Equal(t, 10.0, a.X, "numbers may arrive as strings")
	b := createNode(t, s, kinds.Number, 10, 80)
	sum := createNode(t, s, kinds.Add, 200, 50)
	exec(t, s, commands.SetValue, commands.Params{"node": a.ID.String(), "value": 4.0})
	exec(t, s, commands.SetValue, commands.Params{"node": b.ID.String(), "value": 6.0})
	connect(t, s, a, sum, 0)
	connect(t, s, b, sum, 1)

	res := exec(t, s, commands.RunExpression, commands.Params{"debug": true}).(*dynamo.RunResult)
	assert.True(t, res.Completed())
	assert.NotEmpty(t, res.Trace)
	v, _ := sum.Output(0)
	assert.Equal(t, 10.0, v)
}

func TestCommands_CreateNodeWithParams(t *testing.T) {
	s := commands.New(dynamo.New())
	list := exec(t, s, commands.CreateNode, commands.Params{
		"kind":     kinds.List,
		"nickname": "items",
		"params":   map[string]string{"inputs": "3"},
	}).(*domain.Node)
	assert.Equal(t, "items", list.NickName)
	assert.Len(t, list.Inputs, 3)

	_, err := s.Execute(context.Background(), commands.CreateNode, commands.Params{"kind": kinds.Add, "params": map[string]string{"x": "1"}})
	assert.Error(t, err)
	assert.Empty(t, s.Workbench().Home().Nodes()[1:], "a rejected node is removed")
}

func TestCommands_CreateConnectionReplacesExisting(t *testing.T) {
	s := commands.New(dynamo.New())
	a := createNode(t, s, kinds.Number, 0, 0)
	b := createNode(t, s, kinds.Number, 0, 50)
	id := createNode(t, s, kinds.Identity, 100, 0)

	connect(t, s, a, id, 0)
	c := connect(t, s, b, id, 0)

	require.Len(t, s.Workbench().Home().Connectors(), 1)
	assert.Same(t, c, id.Inputs[0].Incoming())
	assert.Same(t, b, c.Source.Owner())
}

func TestCommands_RefusedConnectionKeepsExisting(t *testing.T) {
	s := commands.New(dynamo.New())
	a := createNode(t, s, kinds.Number, 0, 0)
	id := createNode(t, s, kinds.Identity, 100, 0)
	existing := connect(t, s, a, id, 0)

	_, err := s.Execute(context.Background(), commands.CreateConnection, commands.Params{
		"start": id.ID.String(), "start_index": 0,
		"end": id.ID.String(), "end_index": 0,
	})
	require.ErrorIs(t, err, domain.ErrInvalidConnection)

	require.Len(t, s.Workbench().Home().Connectors(), 1)
	assert.Same(t, existing, id.Inputs[0].Incoming())
}

func TestCommands_ConnectFromListInsertsMap(t *testing.T) {
	s := commands.New(dynamo.New())
	list := createNode(t, s, kinds.List, 0, 0)
	id := createNode(t, s, kinds.Identity, 100, 0)
	connect(t, s, list, id, 0)

	var maps int
	for _, n := range s.Workbench().Home().Nodes() {
		if n.Kind == kinds.Map {
			maps++
		}
	}
	assert.Equal(t, 1, maps)
}

func TestCommands_Delete(t *testing.T) {
	s := commands.New(dynamo.New())
	a := createNode(t, s, kinds.Number, 0, 0)
	b := createNode(t, s, kinds.Identity, 100, 0)
	c := connect(t, s, a, b, 0)
	note := exec(t, s, commands.AddNote, commands.Params{"x": 5, "y": 5}).(*domain.Note)
	assert.Equal(t, domain.DefaultNoteText, note.Text)

	removed := exec(t, s, commands.Delete, commands.Params{
		"connectors": []string{c.ID.String()},
		"notes":      []string{note.ID.String()},
	})
	assert.Equal(t, 2, removed)
	assert.Empty(t, s.Workbench().Home().Connectors())
	assert.Empty(t, s.Workbench().Home().Notes())

	_, err := s.Execute(context.Background(), commands.Delete, commands.Params{"nodes": []string{a.ID.String(), b.ID.String(), a.ID.String()}})
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)
	assert.Empty(t, s.Workbench().Home().Nodes())

	assert.False(t, s.CanExecute(commands.Delete, commands.Params{}))
}

func TestCommands_CanExecute(t *testing.T) {
	s := commands.New(dynamo.New())

	assert.True(t, s.CanExecute(commands.CreateNode, commands.Params{"kind": "Number"}))
	assert.False(t, s.CanExecute(commands.CreateNode, commands.Params{}))
	assert.False(t, s.CanExecute(commands.CreateNode, commands.Params{"kind": "Number", "colour": "red"}), "unknown keys are rejected")
	assert.False(t, s.CanExecute(commands.CancelRun, nil), "nothing is running")
	assert.False(t, s.CanExecute(commands.Paste, nil), "clipboard is empty")
	assert.False(t, s.CanExecute(commands.SetValue, commands.Params{"node": "not-a-uuid", "value": 1}))
	assert.False(t, s.CanExecute("Nope", nil))

	add := createNode(t, s, kinds.Add, 0, 0)
	assert.False(t, s.CanExecute(commands.SetValue, commands.Params{"node": add.ID.String(), "value": 1}),
		"Add holds no literal")

	_, err := s.Execute(context.Background(), commands.CreateNode, commands.Params{})
	assert.ErrorIs(t, err, commands.ErrCannotExecute)
	_, err = s.Execute(context.Background(), "Nope", nil)
	assert.ErrorIs(t, err, commands.ErrUnknownCommand)

	assert.Contains(t, s.Names(), commands.GoToWorkspace)
	assert.Len(t, s.Names(), 17)
}

// gatedStore blocks Load until released.
type gatedStore struct {
	ports.DocumentStore
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) Load(ctx context.Context, name string) ([]byte, error) {
	close(g.entered)
	<-g.release
	return g.DocumentStore.Load(ctx, name)
}

func TestCommands_MutationsDisabledWhileUILocked(t *testing.T) {
	wb := dynamo.New()
	s := commands.New(wb)
	n := createNode(t, s, kinds.Number, 0, 0)

	store := &gatedStore{
		DocumentStore: memory.NewFromDocuments(map[string]string{"a.dyn": "<dynWorkspace/>"}),
		entered:       make(chan struct{}),
		release:       make(chan struct{}),
	}
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := wb.OpenDocument(context.Background(), store, "a.dyn")
		assert.NoError(t, err)
	}()
	<-store.entered

	for name, params := range map[string]commands.Params{
		commands.CreateNode:    {"kind": "Number"},
		commands.RunExpression: nil,
		commands.Clear:         nil,
		commands.Open:          {"path": "x.dyn"},
		commands.Save:          nil,
		commands.SetValue:      {"node": n.ID.String(), "value": 2},
	} {
		assert.False(t, s.CanExecute(name, params), name)
	}
	_, err := s.Execute(context.Background(), commands.CreateNode, commands.Params{"kind": "Number"})
	assert.ErrorIs(t, err, domain.ErrUILocked)
	assert.True(t, s.CanExecute(commands.GoHome, nil))
	assert.True(t, s.CanExecute(commands.Copy, commands.Params{"nodes": []string{n.ID.String()}}))

	close(store.release)
	wg.Wait()
	assert.True(t, s.CanExecute(commands.CreateNode, commands.Params{"kind": "Number"}))
}

func TestCommands_CopyPaste(t *testing.T) {
	s := commands.New(dynamo.New())
	num := createNode(t, s, kinds.Number, 10, 20)
	id := createNode(t, s, kinds.Identity, 110, 20)
	outside := createNode(t, s, kinds.Number, 10, 200)
	exec(t, s, commands.SetValue, commands.Params{"node": num.ID.String(), "value": 5.0})
	connect(t, s, num, id, 0)
	exec(t, s, commands.SetValue, commands.Params{"node": outside.ID.String(), "value": 1.0})

	copied := exec(t, s, commands.Copy, commands.Params{"nodes": []string{num.ID.String(), id.ID.String()}})
	assert.Equal(t, 2, copied)

	// Edits after copying do not leak into the clipboard.
	exec(t, s, commands.SetValue, commands.Params{"node": num.ID.String(), "value": 9.0})

	pasted := exec(t, s, commands.Paste, nil).([]*domain.Node)
	require.Len(t, pasted, 2)
	home := s.Workbench().Home()
	assert.Len(t, home.Nodes(), 5)
	assert.Len(t, home.Connectors(), 2)

	pNum, pID := pasted[0], pasted[1]
	assert.NotEqual(t, num.ID, pNum.ID)
	assert.NotEqual(t, id.ID, pID.ID)
	assert.Equal(t, 10.0, pNum.X)
	assert.Equal(t, 120.0, pNum.Y)
	assert.Equal(t, 5.0, pNum.Behavior.(domain.SettableValue).Value())
	require.NotNil(t, pID.Inputs[0].Incoming())
	assert.Same(t, pNum, pID.Inputs[0].Incoming().Source.Owner())
	assert.True(t, pNum.IsDirty())

	// Pasting twice yields another independent copy.
	again := exec(t, s, commands.Paste, nil).([]*domain.Node)
	assert.NotEqual(t, pNum.ID, again[0].ID)
	assert.Len(t, home.Nodes(), 7)
}

func TestCommands_CustomNodes(t *testing.T) {
	store := memory.NewStore()
	wb := dynamo.New(dynamo.WithDefinitionStore(store))
	s := commands.New(wb)

	def := exec(t, s, commands.NewCustomNode, commands.Params{"name": "Inc", "category": "Math"}).(*customnode.Definition)
	assert.Same(t, def.Graph, wb.CurrentSpace())
	assert.False(t, s.CanExecute(commands.NewCustomNode, commands.Params{"name": "Inc"}), "name taken")

	in := exec(t, s, commands.CreateNode, commands.Params{"kind": kinds.Input, "params": map[string]string{"name": "n"}}).(*domain.Node)
	one := createNode(t, s, kinds.Number, 0, 50)
	exec(t, s, commands.SetValue, commands.Params{"node": one.ID.String(), "value": 1})
	add := createNode(t, s, kinds.Add, 100, 0)
	out := exec(t, s, commands.CreateNode, commands.Params{"kind": kinds.Output, "params": map[string]string{"name": "n+1"}}).(*domain.Node)
	connect(t, s, in, add, 0)
	connect(t, s, one, add, 1)
	connect(t, s, add, out, 0)

	exec(t, s, commands.SaveFunction, commands.Params{"id": def.ID.String()})
	assert.Equal(t, []string{"n"}, def.InputNames)
	names, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Inc.dyf"}, names)

	exec(t, s, commands.GoHome, nil)
	assert.Same(t, wb.Home(), wb.CurrentSpace())
	seed := createNode(t, s, kinds.Number, 0, 0)
	exec(t, s, commands.SetValue, commands.Params{"node": seed.ID.String(), "value": 41})
	inst := createNode(t, s, def.ID.String(), 100, 0)
	connect(t, s, seed, inst, 0)
	exec(t, s, commands.RunExpression, nil)
	v, _ := inst.Output(0)
	assert.Equal(t, 42.0, v)

	exec(t, s, commands.RefactorCustomNode, commands.Params{"id": def.ID.String(), "name": "Increment", "category": "Math"})
	assert.Equal(t, "Increment", inst.NickName)

	exec(t, s, commands.GoToWorkspace, commands.Params{"id": def.ID.String()})
	assert.Same(t, def.Graph, wb.CurrentSpace())
	assert.False(t, s.CanExecute(commands.GoToWorkspace, commands.Params{"id": "00000000-0000-0000-0000-000000000001"}))
}

func TestCommands_SaveAndOpenFiles(t *testing.T) {
	dir := t.TempDir()
	s := commands.New(dynamo.New())
	n := createNode(t, s, kinds.Number, 0, 0)
	exec(t, s, commands.SetValue, commands.Params{"node": n.ID.String(), "value": 3})

	_, err := s.Execute(context.Background(), commands.Save, nil)
	assert.ErrorIs(t, err, dynamo.ErrNoLocation)

	exec(t, s, commands.Save, commands.Params{"path": dir + "/three.dyn"})
	exec(t, s, commands.Clear, nil)
	assert.Empty(t, s.Workbench().Home().Nodes())

	exec(t, s, commands.Open, commands.Params{"path": dir + "/three.dyn"})
	got, ok := s.Workbench().Home().Node(n.ID)
	require.True(t, ok)
	assert.Equal(t, 3.0, got.Behavior.(domain.SettableValue).Value())
}
