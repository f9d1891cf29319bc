package featurizer

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ZanzyTHEbar/chemtok/chemtok/tokenizer"

	"github.com/stretchr/testify/require"
)

var errTokenizerFailed = errors.New("tokenizer failed")

// runeTokenizer maps each rune to its code point and brackets the sequence
// with 1 and 2 when special tokens are requested. "boom" fails.
type runeTokenizer struct {
	calls atomic.Int64
}

func (r *runeTokenizer) Call(text string, opts tokenizer.CallOptions) (tokenizer.BatchEncoding, error) {
	r.calls.Add(1)
	if text == "boom" {
		return nil, errTokenizerFailed
	}
	var ids []int
	special := opts.AddSpecialTokens == nil || *opts.AddSpecialTokens
	if special {
		ids = append(ids, 1)
	}
	for _, c := range text {
		ids = append(ids, int(c))
	}
	if special {
		ids = append(ids, 2)
	}
	if opts.Truncation && opts.MaxLength > 0 && len(ids) > opts.MaxLength {
		ids = ids[:opts.MaxLength]
	}
	mask := make([]int, len(ids))
	types := make([]int, len(ids))
	for i := range mask {
		mask[i] = 1
	}
	// token_type_ids comes first on purpose; the featurizer must pick by key.
	return tokenizer.BatchEncoding{
		tokenizer.TokenTypeIDsKey:  types,
		tokenizer.InputIDsKey:      ids,
		tokenizer.AttentionMaskKey: mask,
	}, nil
}

// staticTokenizer returns the same encoding for every call.
type staticTokenizer struct{ enc tokenizer.BatchEncoding }

func (s staticTokenizer) Call(string, tokenizer.CallOptions) (tokenizer.BatchEncoding, error) {
	return s.enc, nil
}

// Ids of the WordPiece test vocabulary.
const (
	clsID = 2
	sepID = 3
)

var testVocab = []string{
	"[PAD]", "[UNK]", "[CLS]", "[SEP]", "[MASK]",
	"c", "n", "o", "1", "2", "(", ")", "=",
	"##c", "##n", "##o", "##1", "##2",
}

func loadWordPiece(t *testing.T) *tokenizer.Pretrained {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vocab.txt"),
		[]byte(strings.Join(testVocab, "\n")+"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tokenizer_config.json"),
		[]byte(`{"model_max_length": 512}`), 0o644))
	p, err := tokenizer.FromPretrained(dir)
	require.NoError(t, err)
	return p
}

// loadByteLevelBPE loads a RoBERTa-style vocab.json + merges.txt tokenizer.
func loadByteLevelBPE(t *testing.T) *tokenizer.Pretrained {
	t.Helper()
	dir := t.TempDir()
	vocab, err := json.Marshal(map[string]int{
		"<s>": 0, "<pad>": 1, "</s>": 2, "<unk>": 3,
		"C": 4, "O": 5, "N": 6, "c": 7, "n": 8, "o": 9,
		"(": 10, ")": 11, "=": 12, "1": 13, "2": 14,
		"CC": 15, "CO": 16, "cc": 17, "(=": 18,
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vocab.json"), vocab, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "merges.txt"), []byte("C C\nC O\nc c\n( =\n"), 0o644))
	p, err := tokenizer.FromPretrained(dir)
	require.NoError(t, err)
	return p
}
