package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/aretw0/dynamo"
	"github.com/aretw0/dynamo/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// Command names.
const (
	CreateNode         = "CreateNode"
	CreateConnection   = "CreateConnection"
	Delete             = "Delete"
	AddNote            = "AddNote"
	RunExpression      = "RunExpression"
	CancelRun          = "CancelRun"
	Copy               = "Copy"
	Paste              = "Paste"
	Clear              = "Clear"
	SetValue           = "SetValue"
	NewCustomNode      = "NewCustomNode"
	RefactorCustomNode = "RefactorCustomNode"
	SaveFunction       = "SaveFunction"
	Open               = "Open"
	Save               = "Save"
	GoHome             = "GoHome"
	GoToWorkspace      = "GoToWorkspace"
)

// ErrCannotExecute is returned when a command runs while CanExecute is false.
var ErrCannotExecute = errors.New("command cannot execute")

// ErrUnknownCommand is returned for names no command is registered under.
var ErrUnknownCommand = errors.New("unknown command")

// Params carries the arguments of a command.
type Params = map[string]any

// Command is one workbench operation.
type Command struct {
	Name string
	// Mutating commands are disabled while the workbench UI is locked.
	Mutating bool

	wb    *dynamo.Workbench
	check func(Params) bool
	run   func(context.Context, Params) (any, error)
}

// CanExecute reports whether Execute would run with params.
func (c *Command) CanExecute(params Params) bool {
	if c.Mutating && c.wb.IsUILocked() {
		return false
	}
	return c.check == nil || c.check(params)
}

// Execute runs the command.
func (c *Command) Execute(ctx context.Context, params Params) (any, error) {
	if c.Mutating && c.wb.IsUILocked() {
		return nil, fmt.Errorf("%s: %w", c.Name, domain.ErrUILocked)
	}
	if c.check != nil && !c.check(params) {
		return nil, fmt.Errorf("%s: %w", c.Name, ErrCannotExecute)
	}
	return c.run(ctx, params)
}

// Set holds the commands bound to one workbench.
type Set struct {
	wb        *dynamo.Workbench
	logger    *slog.Logger
	commands  map[string]*Command
	clipboard *clipboard
}

// New binds the command set to wb.
func New(wb *dynamo.Workbench) *Set {
	s := &Set{
		wb:       wb,
		logger:   wb.Logger(),
		commands: make(map[string]*Command),
	}
	s.registerWorkspace()
	s.registerRun()
	s.registerClipboard()
	s.registerCustomNodes()
	s.registerFiles()
	return s
}

func (s *Set) add(name string, mutating bool, check func(Params) bool, run func(context.Context, Params) (any, error)) {
	s.commands[name] = &Command{Name: name, Mutating: mutating, wb: s.wb, check: check, run: run}
}

// Workbench returns the workbench the set is bound to.
func (s *Set) Workbench() *dynamo.Workbench {
	return s.wb
}

// Get returns the command registered under name.
func (s *Set) Get(name string) (*Command, bool) {
	c, ok := s.commands[name]
	return c, ok
}

// Names lists the registered commands, sorted.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.commands))
	for name := range s.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CanExecute reports whether the named command can run with params.
func (s *Set) CanExecute(name string, params Params) bool {
	c, ok := s.commands[name]
	return ok && c.CanExecute(params)
}

// Execute runs the named command on the calling goroutine.
func (s *Set) Execute(ctx context.Context, name string, params Params) (any, error) {
	c, ok := s.commands[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	res, err := c.Execute(ctx, params)
	if err != nil {
		s.logger.Warn("command failed", "command", name, "err", err)
		return nil, err
	}
	s.logger.Debug("command executed", "command", name)
	return res, nil
}

// decode maps params onto out. String values are accepted for numbers and
// booleans; unknown keys are rejected.
func decode(params Params, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(params); err != nil {
		return fmt.Errorf("invalid command parameters: %w", err)
	}
	return nil
}

// decodes adapts a predicate over typed params into a CanExecute check.
func decodes[T any](pred func(T) bool) func(Params) bool {
	return func(p Params) bool {
		var v T
		if decode(p, &v) != nil {
			return false
		}
		return pred == nil || pred(v)
	}
}

// typed adapts a handler over typed params into a command body.
func typed[T any](fn func(context.Context, T) (any, error)) func(context.Context, Params) (any, error) {
	return func(ctx context.Context, p Params) (any, error) {
		var v T
		if err := decode(p, &v); err != nil {
			return nil, err
		}
		return fn(ctx, v)
	}
}
