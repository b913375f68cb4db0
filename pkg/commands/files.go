package commands

import (
	"context"
	"path/filepath"

	"github.com/aretw0/dynamo/pkg/adapters/file"
)

type openParams struct {
	Path string `mapstructure:"path"`
}

type saveParams struct {
	// Path saves to a new location; empty saves in place.
	Path string `mapstructure:"path"`
}

func (s *Set) registerFiles() {
	s.add(Open, true,
		decodes(func(p openParams) bool { return p.Path != "" }),
		typed(func(ctx context.Context, p openParams) (any, error) {
			return s.wb.Open(ctx, p.Path)
		}))

	s.add(Save, true, decodes[saveParams](nil), typed(func(ctx context.Context, p saveParams) (any, error) {
		if p.Path == "" {
			return nil, s.wb.Save(ctx)
		}
		dir, name := filepath.Split(p.Path)
		if dir == "" {
			dir = "."
		}
		return nil, s.wb.SaveAs(ctx, file.New(dir), name)
	}))
}
