// Package tokenizer loads pretrained subword tokenizers and exposes them
// through a HuggingFace-style call contract: text in, a mapping of named
// integer sequences out.
package tokenizer

import (
	"errors"
)

// Keys of a BatchEncoding.
const (
	InputIDsKey          = "input_ids"
	AttentionMaskKey     = "attention_mask"
	TokenTypeIDsKey      = "token_type_ids"
	SpecialTokensMaskKey = "special_tokens_mask"
)

// Tokenizer converts text into a BatchEncoding.
type Tokenizer interface {
	Call(text string, opts CallOptions) (BatchEncoding, error)
}

// BatchTokenizer converts raw text to model-ready token IDs and attention masks
type BatchTokenizer interface {
	Tokenize(texts []string) (inputIDs [][]int64, attentionMasks [][]int64, err error)
}

// BatchEncoding maps sequence names to aligned integer sequences. It always
// holds InputIDsKey and AttentionMaskKey; other keys depend on CallOptions.
type BatchEncoding map[string][]int

// InputIDs returns the token id sequence.
func (e BatchEncoding) InputIDs() []int { return e[InputIDsKey] }

// AttentionMask returns the binary mask aligned with InputIDs.
func (e BatchEncoding) AttentionMask() []int { return e[AttentionMaskKey] }

// Len is the number of positions in the encoding.
func (e BatchEncoding) Len() int { return len(e[InputIDsKey]) }

var (
	// ErrUnsupported indicates the tokenizer could not be initialized
	ErrUnsupported = errors.New("unsupported tokenizer configuration")
	// ErrInvalidOptions is returned for call options the tokenizer cannot honour.
	ErrInvalidOptions = errors.New("invalid tokenizer call options")
	// ErrNotFound is returned when no pretrained files exist for a name or path.
	ErrNotFound = errors.New("pretrained tokenizer not found")
	// ErrInvalidRepoID is returned for hub repository ids or revisions that
	// cannot name a cache directory.
	ErrInvalidRepoID = errors.New("invalid model repository id")
)
