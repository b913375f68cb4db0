package commands

import (
	"context"

	"github.com/google/uuid"
)

type newCustomNodeParams struct {
	Name     string `mapstructure:"name"`
	Category string `mapstructure:"category"`
}

type refactorParams struct {
	ID       string `mapstructure:"id"`
	Name     string `mapstructure:"name"`
	Category string `mapstructure:"category"`
}

type saveFunctionParams struct {
	ID string `mapstructure:"id"`
}

func (s *Set) registerCustomNodes() {
	s.add(NewCustomNode, true,
		decodes(func(p newCustomNodeParams) bool {
			if p.Name == "" {
				return false
			}
			_, taken := s.wb.Registry().Lookup(p.Name)
			return !taken
		}),
		typed(func(_ context.Context, p newCustomNodeParams) (any, error) {
			return s.wb.NewCustomNode(p.Name, p.Category)
		}))

	s.add(RefactorCustomNode, true,
		decodes(func(p refactorParams) bool { return p.Name != "" && s.isDefinition(p.ID) }),
		typed(func(_ context.Context, p refactorParams) (any, error) {
			return s.wb.RefactorCustomNode(uuid.MustParse(p.ID), p.Name, p.Category)
		}))

	s.add(SaveFunction, true,
		decodes(func(p saveFunctionParams) bool { return s.isDefinition(p.ID) }),
		typed(func(ctx context.Context, p saveFunctionParams) (any, error) {
			return s.wb.SaveFunction(ctx, uuid.MustParse(p.ID))
		}))
}

func (s *Set) isDefinition(id string) bool {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return false
	}
	_, ok := s.wb.Registry().Get(parsed)
	return ok
}
