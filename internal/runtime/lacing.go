package runtime

import "github.com/aretw0/dynamo/pkg/domain"

// laceArgs expands list arguments into argument sets according to strategy.
// It returns ok=false when lacing does not apply: the strategy is Disabled or
// no argument is a list. scalar reports that the result should not be
// wrapped in a list (First lacing).
func laceArgs(strategy domain.Lacing, args []domain.Value) (sets [][]domain.Value, scalar, ok bool) {
	if strategy == domain.LacingDisabled || strategy == "" {
		return nil, false, false
	}
	lists := make(map[int][]any)
	for i, a := range args {
		if l, isList := a.([]any); isList {
			lists[i] = l
		}
	}
	if len(lists) == 0 {
		return nil, false, false
	}

	switch strategy {
	case domain.LacingFirst:
		set := make([]domain.Value, len(args))
		for i, a := range args {
			if l, isList := lists[i]; isList {
				if len(l) > 0 {
					set[i] = l[0]
				}
				continue
			}
			set[i] = a
		}
		return [][]domain.Value{set}, true, true

	case domain.LacingShortest, domain.LacingLongest:
		n := -1
		for _, l := range lists {
			switch {
			case n < 0:
				n = len(l)
			case strategy == domain.LacingShortest && len(l) < n:
				n = len(l)
			case strategy == domain.LacingLongest && len(l) > n:
				n = len(l)
			}
		}
		sets = make([][]domain.Value, n)
		for k := 0; k < n; k++ {
			set := make([]domain.Value, len(args))
			for i, a := range args {
				l, isList := lists[i]
				switch {
				case !isList:
					set[i] = a
				case k < len(l):
					set[i] = l[k]
				case len(l) > 0:
					set[i] = l[len(l)-1]
				}
			}
			sets[k] = set
		}
		return sets, false, true

	case domain.LacingCrossProduct:
		sets = [][]domain.Value{make([]domain.Value, len(args))}
		for i, a := range args {
			l, isList := lists[i]
			if !isList {
				for _, set := range sets {
					set[i] = a
				}
				continue
			}
			next := make([][]domain.Value, 0, len(sets)*len(l))
			for _, set := range sets {
				for _, item := range l {
					cp := append([]domain.Value(nil), set...)
					cp[i] = item
					next = append(next, cp)
				}
			}
			sets = next
		}
		return sets, false, true
	}
	return nil, false, false
}
