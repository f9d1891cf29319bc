// Package featurizer turns molecules into token encodings by pairing a
// structure-to-text renderer with a pretrained tokenizer.
package featurizer

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/ZanzyTHEbar/chemtok/chemtok/chem"
	"github.com/ZanzyTHEbar/chemtok/chemtok/tokenizer"

	"github.com/rs/zerolog"
)

var (
	// ErrMissingSequence is returned when the tokenizer result lacks input ids or the attention mask.
	ErrMissingSequence = errors.New("tokenizer result is missing a required sequence")
	// ErrMisaligned is returned when input ids and attention mask differ in length.
	ErrMisaligned = errors.New("input ids and attention mask are not aligned")
)

// Encoding is the featurized form of one molecule: token ids and the
// attention mask, always of equal length.
type Encoding struct {
	InputIDs      []int
	AttentionMask []int
}

// Len is the number of token positions.
func (e Encoding) Len() int { return len(e.InputIDs) }

// Pair returns the encoding as the ordered pair [input_ids, attention_mask].
func (e Encoding) Pair() [2][]int { return [2][]int{e.InputIDs, e.AttentionMask} }

// MolecularFeaturizer converts one molecule into an Encoding.
type MolecularFeaturizer interface {
	FeaturizeOne(mol chem.Molecule, opts tokenizer.CallOptions) (Encoding, error)
}

// RobertaFeaturizer exposes a pretrained tokenizer as a molecular featurizer.
// It also satisfies tokenizer.Tokenizer by delegating Call unchanged, so it
// can stand in wherever a plain tokenizer is expected.
type RobertaFeaturizer struct {
	tok tokenizer.Tokenizer

	rendererName string
	rendererMu   sync.Mutex
	renderer     chem.Renderer

	workers  int
	logEvery int
	logger   zerolog.Logger
	metrics  *Metrics
}

var (
	_ MolecularFeaturizer = (*RobertaFeaturizer)(nil)
	_ tokenizer.Tokenizer = (*RobertaFeaturizer)(nil)
)

// Option configures a RobertaFeaturizer.
type Option func(*RobertaFeaturizer)

// WithRenderer sets the structure-to-text renderer directly.
func WithRenderer(r chem.Renderer) Option { return func(f *RobertaFeaturizer) { f.renderer = r } }

// WithRendererName selects a renderer from the chem registry. It is looked up
// on first use, not at construction.
func WithRendererName(name string) Option {
	return func(f *RobertaFeaturizer) { f.rendererName = name }
}

// WithWorkers bounds the goroutines used by Featurize.
func WithWorkers(n int) Option {
	return func(f *RobertaFeaturizer) {
		if n > 0 {
			f.workers = n
		}
	}
}

// WithLogEvery logs batch progress every n molecules. Zero disables it.
func WithLogEvery(n int) Option { return func(f *RobertaFeaturizer) { f.logEvery = n } }

// WithLogger sets the logger for batch progress and per-molecule failures.
func WithLogger(l zerolog.Logger) Option { return func(f *RobertaFeaturizer) { f.logger = l } }

// WithMetrics records every molecule featurized by Featurize.
func WithMetrics(m *Metrics) Option { return func(f *RobertaFeaturizer) { f.metrics = m } }

// New wraps tok. Molecules are rendered with RDKit unless another renderer
// is configured.
func New(tok tokenizer.Tokenizer, opts ...Option) *RobertaFeaturizer {
	f := &RobertaFeaturizer{
		tok:          tok,
		rendererName: chem.RDKitRendererName,
		workers:      min(max(runtime.NumCPU(), 1), 32),
		logEvery:     1000,
		logger:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FromPretrained loads a pretrained tokenizer, forwarding opts unchanged, and
// wraps it in a featurizer with default settings.
func FromPretrained(nameOrPath string, opts ...tokenizer.Option) (*RobertaFeaturizer, error) {
	tok, err := tokenizer.FromPretrained(nameOrPath, opts...)
	if err != nil {
		return nil, err
	}
	return New(tok), nil
}

// Tokenizer returns the wrapped tokenizer.
func (f *RobertaFeaturizer) Tokenizer() tokenizer.Tokenizer { return f.tok }

// FeaturizeOne renders mol to canonical SMILES and tokenizes it. It fails
// with a *chem.DependencyMissingError before tokenizing when the renderer's
// toolkit is unavailable. Tokenizer errors are returned unchanged.
func (f *RobertaFeaturizer) FeaturizeOne(mol chem.Molecule, opts tokenizer.CallOptions) (Encoding, error) {
	r, err := f.resolveRenderer()
	if err != nil {
		return Encoding{}, err
	}
	smiles, err := r.ToSMILES(mol)
	if err != nil {
		return Encoding{}, err
	}
	enc, err := f.tok.Call(smiles, opts)
	if err != nil {
		return Encoding{}, err
	}
	return encodingFrom(enc)
}

// Call passes text straight to the wrapped tokenizer.
func (f *RobertaFeaturizer) Call(text string, opts tokenizer.CallOptions) (tokenizer.BatchEncoding, error) {
	return f.tok.Call(text, opts)
}

// CallBatch passes texts straight to the wrapped tokenizer, calling it once
// per text when it has no batch form.
func (f *RobertaFeaturizer) CallBatch(texts []string, opts tokenizer.CallOptions) ([]tokenizer.BatchEncoding, error) {
	if b, ok := f.tok.(interface {
		CallBatch([]string, tokenizer.CallOptions) ([]tokenizer.BatchEncoding, error)
	}); ok {
		return b.CallBatch(texts, opts)
	}
	out := make([]tokenizer.BatchEncoding, len(texts))
	for i, text := range texts {
		enc, err := f.tok.Call(text, opts)
		if err != nil {
			return nil, err
		}
		out[i] = enc
	}
	return out, nil
}

// resolveRenderer looks the renderer up on first use. A failed lookup is not
// cached, so registering the renderer later makes it available.
func (f *RobertaFeaturizer) resolveRenderer() (chem.Renderer, error) {
	f.rendererMu.Lock()
	defer f.rendererMu.Unlock()
	if f.renderer != nil {
		return f.renderer, nil
	}
	r, err := chem.Lookup(f.rendererName)
	if err != nil {
		return nil, err
	}
	f.renderer = r
	return r, nil
}

// encodingFrom picks the two sequences by key name; extra keys are ignored.
func encodingFrom(enc tokenizer.BatchEncoding) (Encoding, error) {
	ids, ok := enc[tokenizer.InputIDsKey]
	if !ok {
		return Encoding{}, fmt.Errorf("%w: %s", ErrMissingSequence, tokenizer.InputIDsKey)
	}
	mask, ok := enc[tokenizer.AttentionMaskKey]
	if !ok {
		return Encoding{}, fmt.Errorf("%w: %s", ErrMissingSequence, tokenizer.AttentionMaskKey)
	}
	if len(ids) != len(mask) {
		return Encoding{}, fmt.Errorf("%w: %d ids, %d mask entries", ErrMisaligned, len(ids), len(mask))
	}
	return Encoding{InputIDs: ids, AttentionMask: mask}, nil
}
