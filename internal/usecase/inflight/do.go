package inflight

import (
	"context"

	"github.com/kailas-cloud/vecdemo/internal/domain"
)

// Do runs call under a new ticket of g and hands its result to apply only if no newer
// operation of the same kind began meanwhile. A dropped result yields domain.ErrSuperseded.
func Do[T any](
	ctx context.Context,
	g *Guard,
	call func(context.Context) (T, error),
	apply func(T) error,
) error {
	t := g.Begin(ctx)
	defer t.Done()

	v, err := call(t.Context())
	if err != nil {
		if !t.Current() {
			return domain.ErrSuperseded
		}
		return err
	}

	var applyErr error
	if !t.Commit(func() { applyErr = apply(v) }) {
		return domain.ErrSuperseded
	}
	return applyErr
}
