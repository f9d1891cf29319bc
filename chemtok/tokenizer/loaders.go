package tokenizer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	tk "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/decoder"
	"github.com/sugarme/tokenizer/model/bpe"
	"github.com/sugarme/tokenizer/model/wordpiece"
	"github.com/sugarme/tokenizer/normalizer"
	"github.com/sugarme/tokenizer/pretokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	"github.com/sugarme/tokenizer/processor"
)

// File names of a pretrained tokenizer directory.
const (
	tokenizerJSONFile   = "tokenizer.json"
	vocabJSONFile       = "vocab.json"
	mergesFile          = "merges.txt"
	vocabTxtFile        = "vocab.txt"
	tokenizerConfigFile = "tokenizer_config.json"
)

// modelKind is the on-disk format a tokenizer is loaded from.
type modelKind int

const (
	kindTokenizerJSON modelKind = iota
	kindByteLevelBPE
	kindWordPiece
)

func (k modelKind) String() string {
	switch k {
	case kindTokenizerJSON:
		return "tokenizer.json"
	case kindByteLevelBPE:
		return "bpe"
	case kindWordPiece:
		return "wordpiece"
	default:
		return "unknown"
	}
}

// modelFiles locates everything needed to (re)build one tokenizer.
type modelFiles struct {
	kind   modelKind
	main   string // tokenizer.json, vocab.json or vocab.txt
	merges string
	config string // optional tokenizer_config.json

	// lowerCase applies to WordPiece vocabularies only.
	lowerCase bool
}

// encoder is one configured sugarme tokenizer. sugarme's BPE model fills its
// word cache without holding a lock while reading, so encodes on BPE models
// are serialised per instance.
type encoder struct {
	*tk.Tokenizer
	mu *sync.Mutex
}

func (e *encoder) encode(text string, addSpecialTokens bool) (*tk.Encoding, error) {
	if e.mu != nil {
		e.mu.Lock()
		defer e.mu.Unlock()
	}
	return e.EncodeSingle(text, addSpecialTokens)
}

// localFiles inspects a file or directory on disk. ok is false when path does
// not exist; an existing path without a usable layout is an error.
func localFiles(path string) (modelFiles, bool, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return modelFiles{}, false, nil
		}
		return modelFiles{}, false, fmt.Errorf("stat %s: %w", path, err)
	}

	if !fi.IsDir() {
		dir := filepath.Dir(path)
		f := modelFiles{main: path, config: optionalFile(dir, tokenizerConfigFile)}
		switch {
		case strings.HasSuffix(path, ".txt"):
			f.kind = kindWordPiece
		case filepath.Base(path) == vocabJSONFile:
			f.kind = kindByteLevelBPE
			f.merges = filepath.Join(dir, mergesFile)
			if !fileExists(f.merges) {
				return modelFiles{}, true, fmt.Errorf("%w: %s has no %s next to it", ErrUnsupported, path, mergesFile)
			}
		case strings.HasSuffix(path, ".json"):
			f.kind = kindTokenizerJSON
		default:
			return modelFiles{}, true, fmt.Errorf("%w: unrecognised tokenizer file %s", ErrUnsupported, path)
		}
		return f, true, nil
	}

	f, ok := dirFiles(path)
	if !ok {
		return modelFiles{}, true, fmt.Errorf("%w: %s holds no %s, %s+%s or %s", ErrUnsupported, path,
			tokenizerJSONFile, vocabJSONFile, mergesFile, vocabTxtFile)
	}
	return f, true, nil
}

// dirFiles picks the richest layout present in dir: a full tokenizer.json
// wins over a BPE vocab/merges pair, which wins over a WordPiece vocab.
func dirFiles(dir string) (modelFiles, bool) {
	cfg := optionalFile(dir, tokenizerConfigFile)
	if p := filepath.Join(dir, tokenizerJSONFile); fileExists(p) {
		return modelFiles{kind: kindTokenizerJSON, main: p, config: cfg}, true
	}
	vocab, merges := filepath.Join(dir, vocabJSONFile), filepath.Join(dir, mergesFile)
	if fileExists(vocab) && fileExists(merges) {
		return modelFiles{kind: kindByteLevelBPE, main: vocab, merges: merges, config: cfg}, true
	}
	if p := filepath.Join(dir, vocabTxtFile); fileExists(p) {
		return modelFiles{kind: kindWordPiece, main: p, config: cfg}, true
	}
	return modelFiles{}, false
}

// build constructs a fresh, unconfigured tokenizer from the files. Every call
// returns an independent instance.
func (f modelFiles) build() (*encoder, error) {
	var (
		t      *tk.Tokenizer
		err    error
		serial bool
	)
	switch f.kind {
	case kindTokenizerJSON:
		t, err = pretrained.FromFile(f.main)
		if err != nil {
			return nil, fmt.Errorf("failed to load tokenizer: %w", err)
		}
		typ, err := jsonModelType(f.main)
		if err != nil {
			return nil, err
		}
		serial = typ != "WordPiece"
	case kindByteLevelBPE:
		t, err = newByteLevelBPE(f.main, f.merges)
		serial = true
	case kindWordPiece:
		t, err = newWordPiece(f.main, f.lowerCase)
	default:
		return nil, ErrUnsupported
	}
	if err != nil {
		return nil, err
	}
	// Truncation is set per variant and padding is applied per call.
	t.WithTruncation(nil)
	t.WithPadding(nil)

	e := &encoder{Tokenizer: t}
	if serial {
		e.mu = &sync.Mutex{}
	}
	return e, nil
}

// jsonModelType reads model.type from a tokenizer.json. Older files omit it.
func jsonModelType(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	var doc struct {
		Model struct {
			Type string `json:"type"`
		} `json:"model"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return "", fmt.Errorf("parse %s: %w", path, err)
	}
	return doc.Model.Type, nil
}

// newByteLevelBPE builds a RoBERTa-style tokenizer from vocab.json and merges.txt.
func newByteLevelBPE(vocabPath, mergesPath string) (*tk.Tokenizer, error) {
	model, err := bpe.NewBpeFromFiles(vocabPath, mergesPath)
	if err != nil {
		return nil, fmt.Errorf("load bpe %s: %w", vocabPath, err)
	}
	t := tk.NewTokenizer(model)

	pretok := pretokenizer.NewByteLevel()
	pretok.SetAddPrefixSpace(false)
	pretok.SetTrimOffsets(true)
	t.WithPreTokenizer(pretok)
	t.WithDecoder(pretok)

	cls := lookupID(t, 0, "<s>", "<cls>")
	sep := lookupID(t, 2, "</s>", "<sep>")
	t.WithPostProcessor(processor.NewRobertaProcessing(
		processor.PostToken{Value: "</s>", Id: sep},
		processor.PostToken{Value: "<s>", Id: cls},
		true, false,
	))
	addSpecialTokens(t, "<s>", "</s>", "<pad>", "<unk>", "<mask>")
	return t, nil
}

// newWordPiece loads vocab.txt and builds a BERT WordPiece tokenizer
func newWordPiece(vocabPath string, lowerCase bool) (*tk.Tokenizer, error) {
	wp, err := wordpiece.NewWordPieceFromFile(vocabPath, "[UNK]")
	if err != nil {
		return nil, fmt.Errorf("load wordpiece %s: %w", vocabPath, err)
	}
	t := tk.NewTokenizer(wp)

	// Basic normalizer and pre-tokenizer similar to BERT. Everything but
	// text cleaning follows do_lower_case; SMILES carry no accents or CJK.
	t.WithNormalizer(normalizer.NewBertNormalizer(true, lowerCase, lowerCase, lowerCase))
	t.WithPreTokenizer(pretokenizer.NewBertPreTokenizer())
	t.WithDecoder(decoder.NewWordPieceDecoder("##", true))

	clsID := lookupID(t, 101, "[CLS]")
	sepID := lookupID(t, 102, "[SEP]")
	t.WithPostProcessor(processor.NewBertProcessing(
		processor.PostToken{Value: "[SEP]", Id: sepID},
		processor.PostToken{Value: "[CLS]", Id: clsID},
	))
	addSpecialTokens(t, "[CLS]", "[SEP]", "[PAD]", "[UNK]", "[MASK]")
	return t, nil
}

// addSpecialTokens registers the candidates present in the vocabulary as
// special, so Decode can skip them.
func addSpecialTokens(t *tk.Tokenizer, candidates ...string) {
	var special []tk.AddedToken
	for _, c := range candidates {
		if _, ok := t.TokenToId(c); ok {
			special = append(special, tk.NewAddedToken(c, true))
		}
	}
	if len(special) > 0 {
		t.AddSpecialTokens(special)
	}
}

// lookupID returns the id of the first candidate token present in the
// vocabulary, or fallback.
func lookupID(t *tk.Tokenizer, fallback int, candidates ...string) int {
	for _, c := range candidates {
		if id, ok := t.TokenToId(c); ok {
			return id
		}
	}
	return fallback
}

// HF stores "no limit" as a huge float in tokenizer_config.json.
const unboundedModelLength = 1 << 24

// pretrainedConfig is the part of tokenizer_config.json this package reads.
type pretrainedConfig struct {
	// modelMaxLength is zero when missing or unbounded.
	modelMaxLength int
	lowerCase      bool
}

// readPretrainedConfig parses tokenizer_config.json. A missing file yields
// the BertTokenizer defaults.
func readPretrainedConfig(path string) (pretrainedConfig, error) {
	cfg := pretrainedConfig{lowerCase: true}
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	var raw struct {
		ModelMaxLength *float64 `json:"model_max_length"`
		DoLowerCase    *bool    `json:"do_lower_case"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if m := raw.ModelMaxLength; m != nil && *m > 0 && *m < unboundedModelLength {
		cfg.modelMaxLength = int(*m)
	}
	if raw.DoLowerCase != nil {
		cfg.lowerCase = *raw.DoLowerCase
	}
	return cfg, nil
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}

func optionalFile(dir, name string) string {
	p := filepath.Join(dir, name)
	if fileExists(p) {
		return p
	}
	return ""
}
