package commands

import "context"

type runParams struct {
	Debug bool `mapstructure:"debug"`
}

func (s *Set) registerRun() {
	s.add(RunExpression, true,
		decodes(func(runParams) bool { return !s.wb.IsRunning() }),
		typed(func(ctx context.Context, p runParams) (any, error) {
			return s.wb.RunExpression(ctx, p.Debug)
		}))

	s.add(CancelRun, false,
		func(Params) bool { return s.wb.IsRunning() },
		func(context.Context, Params) (any, error) {
			s.wb.CancelRun()
			return nil, nil
		})
}
