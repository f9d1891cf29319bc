package featurizer

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrRaggedBatch is returned by Matrix when encodings differ in length; pad them first.
	ErrRaggedBatch = errors.New("encodings have different lengths")
	// ErrEmptyBatch is returned by Matrix when no molecule was featurized.
	ErrEmptyBatch = errors.New("no encodings to stack")
)

// Matrix stacks the encodings into dense ids and mask matrices, one row per
// molecule. Rows of failed molecules are all zero, so their mask hides them.
func (r *Result) Matrix() (ids, mask *mat.Dense, err error) {
	width, seen := 0, false
	for i, e := range r.Features {
		if r.failed(i) {
			continue
		}
		if !seen {
			width, seen = e.Len(), true
			continue
		}
		if e.Len() != width {
			return nil, nil, fmt.Errorf("%w: row %d has %d tokens, expected %d", ErrRaggedBatch, i, e.Len(), width)
		}
	}
	switch {
	case !seen:
		return nil, nil, ErrEmptyBatch
	case width == 0:
		return nil, nil, fmt.Errorf("%w: every encoding has zero tokens", ErrEmptyBatch)
	}

	rows := len(r.Features)
	ids = mat.NewDense(rows, width, nil)
	mask = mat.NewDense(rows, width, nil)
	for i, e := range r.Features {
		if r.failed(i) {
			continue
		}
		for j := 0; j < width; j++ {
			ids.Set(i, j, float64(e.InputIDs[j]))
			mask.Set(i, j, float64(e.AttentionMask[j]))
		}
	}
	return ids, mask, nil
}

func (r *Result) failed(i int) bool {
	return i < len(r.Errors) && r.Errors[i] != nil
}
