package tokenizer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// Ids of the test vocabulary.
const (
	padID = 0
	unkID = 1
	clsID = 2
	sepID = 3
)

// testVocab is a tiny WordPiece vocabulary covering lower-cased SMILES
// characters. The ids are the line numbers.
var testVocab = []string{
	"[PAD]", "[UNK]", "[CLS]", "[SEP]", "[MASK]",
	"c", "n", "o", "1", "2", "(", ")", "=",
	"##c", "##n", "##o", "##1", "##2",
}

// writeModelDir writes a WordPiece model directory with the given
// model_max_length and returns its path.
func writeModelDir(t *testing.T, modelMaxLength int) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, vocabTxtFile),
		[]byte(strings.Join(testVocab, "\n")+"\n"), 0o644))
	if modelMaxLength > 0 {
		cfg := []byte(`{"model_max_length": ` + strconv.Itoa(modelMaxLength) + `, "tokenizer_class": "BertTokenizer"}`)
		require.NoError(t, os.WriteFile(filepath.Join(dir, tokenizerConfigFile), cfg, 0o644))
	}
	return dir
}

func loadTestTokenizer(t *testing.T, modelMaxLength int) *Pretrained {
	t.Helper()
	p, err := FromPretrained(writeModelDir(t, modelMaxLength))
	require.NoError(t, err)
	return p
}

// Ids of the byte-level BPE test vocabulary.
const (
	bosID    = 0
	bpePadID = 1
	eosID    = 2
)

// testBPEVocab is a RoBERTa-style vocabulary; its merges join CC, CO, cc and (=.
var testBPEVocab = map[string]int{
	"<s>": 0, "<pad>": 1, "</s>": 2, "<unk>": 3,
	"C": 4, "O": 5, "N": 6, "c": 7, "n": 8, "o": 9,
	"(": 10, ")": 11, "=": 12, "1": 13, "2": 14,
	"CC": 15, "CO": 16, "cc": 17, "(=": 18, "<mask>": 19,
}

var testBPEMerges = []string{"C C", "C O", "c c", "( ="}

// writeBPEDir writes a vocab.json + merges.txt model directory.
func writeBPEDir(t *testing.T, modelMaxLength int) string {
	t.Helper()
	dir := t.TempDir()
	vocab, err := json.Marshal(testBPEVocab)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, vocabJSONFile), vocab, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, mergesFile),
		[]byte(strings.Join(testBPEMerges, "\n")+"\n"), 0o644))
	if modelMaxLength > 0 {
		cfg := []byte(`{"model_max_length": ` + strconv.Itoa(modelMaxLength) + `, "tokenizer_class": "RobertaTokenizer"}`)
		require.NoError(t, os.WriteFile(filepath.Join(dir, tokenizerConfigFile), cfg, 0o644))
	}
	return dir
}

// writeTokenizerJSON writes the BPE test model as a tokenizers tokenizer.json.
func writeTokenizerJSON(t *testing.T) string {
	t.Helper()
	var added []map[string]any
	for _, tok := range []string{"<s>", "<pad>", "</s>", "<unk>", "<mask>"} {
		added = append(added, map[string]any{
			"id": testBPEVocab[tok], "content": tok, "special": true,
			"single_word": false, "lstrip": false, "rstrip": false, "normalized": false,
		})
	}
	doc := map[string]any{
		"version":      "1.0",
		"truncation":   nil,
		"padding":      nil,
		"added_tokens": added,
		"normalizer":   nil,
		"pre_tokenizer": map[string]any{
			"type": "ByteLevel", "add_prefix_space": false, "trim_offsets": true,
		},
		"post_processor": map[string]any{
			"type":             "RobertaProcessing",
			"sep":              []any{"</s>", eosID},
			"cls":              []any{"<s>", bosID},
			"trim_offsets":     true,
			"add_prefix_space": false,
		},
		"decoder": map[string]any{
			"type": "ByteLevel", "add_prefix_space": false, "trim_offsets": true,
		},
		"model": map[string]any{
			"type":                      "BPE",
			"dropout":                   nil,
			"unk_token":                 nil,
			"continuing_subword_prefix": "",
			"end_of_word_suffix":        "",
			"fuse_unk":                  false,
			"vocab":                     testBPEVocab,
			"merges":                    testBPEMerges,
		},
	}
	b, err := json.Marshal(doc)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), tokenizerJSONFile)
	require.NoError(t, os.WriteFile(path, b, 0o644))
	return path
}

// testCasedVocab keeps upper-case atoms apart from aromatic ones.
var testCasedVocab = []string{
	"[PAD]", "[UNK]", "[CLS]", "[SEP]", "[MASK]",
	"C", "c", "O", "##C", "##O", "##c",
}

func writeCasedDir(t *testing.T, config string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, vocabTxtFile),
		[]byte(strings.Join(testCasedVocab, "\n")+"\n"), 0o644))
	if config != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, tokenizerConfigFile), []byte(config), 0o644))
	}
	return dir
}
