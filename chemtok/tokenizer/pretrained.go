package tokenizer

import (
	"context"
	"fmt"
	"sync"

	internal "github.com/ZanzyTHEbar/chemtok/chemtok"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	tk "github.com/sugarme/tokenizer"
)

const defaultVariantCacheSize = 8

// Pretrained is a tokenizer loaded from a pretrained configuration. Its
// vocabulary and rules never change after load, so it is safe for concurrent
// use.
//
// sugarme keeps truncation on the tokenizer itself, so every distinct
// truncation length is served by its own tokenizer instance built from the
// same files. Those variants live in a small LRU cache.
type Pretrained struct {
	source         string
	files          modelFiles
	base           *encoder
	modelMaxLength int
	// numSpecial is how many tokens the post-processor adds to one sequence.
	numSpecial int

	padID    int
	padToken string
	hasPad   bool

	variantMu sync.Mutex
	variants  *lru.Cache[int, *encoder]

	logger zerolog.Logger
}

// FromPretrained loads a tokenizer from a local tokenizer.json, a directory of
// pretrained files, a vocab.txt, or a model hub repository id.
func FromPretrained(nameOrPath string, opts ...Option) (*Pretrained, error) {
	return FromPretrainedContext(context.Background(), nameOrPath, opts...)
}

// FromPretrainedContext is FromPretrained with a context bounding any hub download.
func FromPretrainedContext(ctx context.Context, nameOrPath string, opts ...Option) (*Pretrained, error) {
	cfg := Config{
		CacheDir:         internal.DefaultTokenizerDir,
		HubURL:           internal.DefaultHubURL,
		Revision:         internal.DefaultRevision,
		VariantCacheSize: defaultVariantCacheSize,
		Logger:           zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if nameOrPath == "" {
		return nil, fmt.Errorf("%w: empty name or path", ErrNotFound)
	}
	if cfg.VariantCacheSize <= 0 {
		cfg.VariantCacheSize = defaultVariantCacheSize
	}

	files, ok, err := localFiles(nameOrPath)
	if err != nil {
		return nil, err
	}
	if !ok {
		files, err = newHub(cfg).resolve(ctx, nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	pcfg, err := readPretrainedConfig(files.config)
	if err != nil {
		return nil, err
	}
	files.lowerCase = pcfg.lowerCase

	base, err := files.build()
	if err != nil {
		return nil, err
	}
	numSpecial, err := countSpecialTokens(base)
	if err != nil {
		return nil, err
	}

	maxLen := cfg.MaxSeqLen
	if maxLen <= 0 {
		maxLen = pcfg.modelMaxLength
	}

	variants, err := lru.New[int, *encoder](cfg.VariantCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create variant cache: %w", err)
	}

	p := &Pretrained{
		source:         nameOrPath,
		files:          files,
		base:           base,
		modelMaxLength: maxLen,
		numSpecial:     numSpecial,
		variants:       variants,
		logger:         cfg.Logger,
	}
	for _, pad := range []string{"<pad>", "[PAD]"} {
		if id, ok := base.TokenToId(pad); ok {
			p.padID, p.padToken, p.hasPad = id, pad, true
			break
		}
	}

	p.logger.Debug().
		Str("source", nameOrPath).
		Stringer("kind", files.kind).
		Int("vocab_size", base.GetVocabSize(true)).
		Int("model_max_length", maxLen).
		Msg("loaded pretrained tokenizer")
	return p, nil
}

// Source is the name or path the tokenizer was loaded from.
func (p *Pretrained) Source() string { return p.source }

// ModelMaxLength is the default length for truncation and max_length padding.
// Zero means unbounded.
func (p *Pretrained) ModelMaxLength() int { return p.modelMaxLength }

// PadToken returns the padding token, if the vocabulary has one.
func (p *Pretrained) PadToken() (string, bool) { return p.padToken, p.hasPad }

// VocabSize reports the size of the model vocabulary.
func (p *Pretrained) VocabSize() int { return p.base.GetVocabSize(false) }

// TokenToID looks up a single token.
func (p *Pretrained) TokenToID(token string) (int, bool) { return p.base.TokenToId(token) }

// Decode maps ids back to text, dropping special tokens when
// skipSpecialTokens is set.
func (p *Pretrained) Decode(ids []int, skipSpecialTokens bool) string {
	return p.base.Decode(ids, skipSpecialTokens)
}

// Call encodes one text.
func (p *Pretrained) Call(text string, opts CallOptions) (BatchEncoding, error) {
	encs, err := p.CallBatch([]string{text}, opts)
	if err != nil {
		return nil, err
	}
	return encs[0], nil
}

// CallBatch encodes several texts with the same options. PaddingLongest pads
// to the longest encoding of this batch.
func (p *Pretrained) CallBatch(texts []string, opts CallOptions) ([]BatchEncoding, error) {
	truncLen, padLen, err := p.lengths(opts)
	if err != nil {
		return nil, err
	}
	t, err := p.variant(truncLen)
	if err != nil {
		return nil, err
	}

	out := make([]BatchEncoding, len(texts))
	longest := 0
	for i, text := range texts {
		enc, err := t.encode(text, opts.addSpecialTokens())
		if err != nil {
			return nil, err
		}
		out[i] = toBatchEncoding(enc, opts)
		longest = max(longest, out[i].Len())
	}

	if opts.Padding == PaddingLongest {
		padLen = longest
	}
	if padLen > 0 {
		for _, e := range out {
			p.pad(e, padLen)
		}
	}
	return out, nil
}

// Tokenize produces fixed-length rows of model_max_length, truncating and
// padding as needed.
func (p *Pretrained) Tokenize(texts []string) ([][]int64, [][]int64, error) {
	if p.modelMaxLength <= 0 {
		return nil, nil, fmt.Errorf("%w: fixed-length tokenization needs a max sequence length", ErrInvalidOptions)
	}
	encs, err := p.CallBatch(texts, CallOptions{Truncation: true, Padding: PaddingMaxLength})
	if err != nil {
		return nil, nil, err
	}
	ids := make([][]int64, len(encs))
	masks := make([][]int64, len(encs))
	for i, e := range encs {
		ids[i] = toInt64(e.InputIDs())
		masks[i] = toInt64(e.AttentionMask())
	}
	return ids, masks, nil
}

// lengths resolves the truncation and padding targets of opts. Zero means none.
func (p *Pretrained) lengths(opts CallOptions) (truncLen, padLen int, err error) {
	if opts.MaxLength < 0 {
		return 0, 0, fmt.Errorf("%w: negative max_length %d", ErrInvalidOptions, opts.MaxLength)
	}
	limit := opts.MaxLength
	if limit == 0 {
		limit = p.modelMaxLength
	}

	if opts.Truncation {
		truncLen = limit
	}
	// sugarme subtracts the special tokens from the truncation length and
	// cannot truncate to nothing.
	if truncLen > 0 && opts.addSpecialTokens() && truncLen <= p.numSpecial {
		return 0, 0, fmt.Errorf("%w: max_length %d leaves no room next to %d special tokens",
			ErrInvalidOptions, truncLen, p.numSpecial)
	}

	switch opts.Padding {
	case DoNotPad, PaddingLongest:
	case PaddingMaxLength:
		if limit == 0 {
			return 0, 0, fmt.Errorf("%w: max_length padding without a max length", ErrInvalidOptions)
		}
		padLen = limit
	default:
		return 0, 0, fmt.Errorf("%w: padding %q", ErrInvalidOptions, opts.Padding)
	}
	if opts.Padding != DoNotPad && !p.hasPad {
		return 0, 0, fmt.Errorf("%w: tokenizer has no padding token", ErrInvalidOptions)
	}
	return truncLen, padLen, nil
}

// variant returns the tokenizer truncating at truncLen, building it on first use.
func (p *Pretrained) variant(truncLen int) (*encoder, error) {
	if truncLen == 0 {
		return p.base, nil
	}
	if t, ok := p.variants.Get(truncLen); ok {
		return t, nil
	}

	p.variantMu.Lock()
	defer p.variantMu.Unlock()
	if t, ok := p.variants.Get(truncLen); ok {
		return t, nil
	}
	t, err := p.files.build()
	if err != nil {
		return nil, err
	}
	t.WithTruncation(&tk.TruncationParams{MaxLength: truncLen, Strategy: tk.OnlyFirst})
	p.variants.Add(truncLen, t)
	p.logger.Debug().Int("max_length", truncLen).Msg("built truncation variant")
	return t, nil
}

// pad right-pads every sequence of e to length n.
func (p *Pretrained) pad(e BatchEncoding, n int) {
	fill := map[string]int{
		InputIDsKey:          p.padID,
		AttentionMaskKey:     0,
		TokenTypeIDsKey:      0,
		SpecialTokensMaskKey: 1,
	}
	for key, seq := range e {
		for len(seq) < n {
			seq = append(seq, fill[key])
		}
		e[key] = seq
	}
}

// countSpecialTokens measures how many tokens the post-processor adds to a
// single sequence.
func countSpecialTokens(e *encoder) (int, error) {
	with, err := e.encode("C", true)
	if err != nil {
		return 0, fmt.Errorf("count special tokens: %w", err)
	}
	without, err := e.encode("C", false)
	if err != nil {
		return 0, fmt.Errorf("count special tokens: %w", err)
	}
	return max(len(with.GetIds())-len(without.GetIds()), 0), nil
}

func toBatchEncoding(enc *tk.Encoding, opts CallOptions) BatchEncoding {
	ids := append([]int(nil), enc.GetIds()...)
	mask := append([]int(nil), enc.GetAttentionMask()...)
	if len(mask) != len(ids) {
		mask = make([]int, len(ids))
		for i := range mask {
			mask[i] = 1
		}
	}
	e := BatchEncoding{
		InputIDsKey:      ids,
		AttentionMaskKey: mask,
	}
	if opts.ReturnTokenTypeIDs {
		e[TokenTypeIDsKey] = alignedCopy(enc.TypeIds, len(ids), 0)
	}
	if opts.ReturnSpecialTokensMask {
		e[SpecialTokensMaskKey] = alignedCopy(enc.SpecialTokenMask, len(ids), 0)
	}
	return e
}

func alignedCopy(src []int, n, fill int) []int {
	out := make([]int, n)
	for i := range out {
		if i < len(src) {
			out[i] = src[i]
		} else {
			out[i] = fill
		}
	}
	return out
}

func toInt64(src []int) []int64 {
	out := make([]int64, len(src))
	for i, v := range src {
		out[i] = int64(v)
	}
	return out
}

var (
	_ Tokenizer      = (*Pretrained)(nil)
	_ BatchTokenizer = (*Pretrained)(nil)
)
