package featurizer

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/ZanzyTHEbar/chemtok/chemtok/chem"
	"github.com/ZanzyTHEbar/chemtok/chemtok/tokenizer"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
)

// Result holds the encodings of one Featurize call, index-aligned with its input.
type Result struct {
	RunID    uuid.UUID
	Features []Encoding
	// Errors[i] is non-nil when molecule i failed; Features[i] is then empty.
	Errors []error
}

// Failed lists the indices of molecules that could not be featurized.
func (r *Result) Failed() []int {
	var idx []int
	for i, err := range r.Errors {
		if err != nil {
			idx = append(idx, i)
		}
	}
	return idx
}

// Featurize runs FeaturizeOne over mols on a bounded worker pool. A molecule
// that fails is logged and left empty in the result. A missing renderer
// dependency, call options the tokenizer rejects or a cancelled context abort
// the whole batch instead.
func (f *RobertaFeaturizer) Featurize(ctx context.Context, mols []chem.Molecule, opts tokenizer.CallOptions) (*Result, error) {
	res := &Result{
		RunID:    uuid.New(),
		Features: make([]Encoding, len(mols)),
		Errors:   make([]error, len(mols)),
	}
	log := f.logger.With().Str("run_id", res.RunID.String()).Logger()
	if len(mols) == 0 {
		return res, nil
	}

	// Every molecule needs the renderer; fail once instead of per item.
	if _, err := f.resolveRenderer(); err != nil {
		return nil, err
	}

	start := time.Now()
	var done atomic.Int64
	p := pool.New().WithMaxGoroutines(f.workers).WithContext(ctx).WithCancelOnError()
	for i, mol := range mols {
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}

			t0 := time.Now()
			enc, err := f.FeaturizeOne(mol, opts)
			f.metrics.observe(time.Since(t0), enc.Len(), err)
			if err != nil {
				if errors.Is(err, chem.ErrDependencyMissing) || errors.Is(err, tokenizer.ErrInvalidOptions) {
					return err
				}
				log.Warn().Err(err).Int("index", i).Msg("failed to featurize datapoint, appending empty encoding")
				res.Errors[i] = err
			} else {
				res.Features[i] = enc
			}

			if n := done.Add(1); f.logEvery > 0 && n%int64(f.logEvery) == 0 {
				log.Info().Int64("done", n).Int("total", len(mols)).Msg("featurizing datapoints")
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	log.Debug().
		Int("total", len(mols)).
		Int("failed", len(res.Failed())).
		Dur("elapsed", time.Since(start)).
		Msg("featurization complete")
	return res, nil
}
