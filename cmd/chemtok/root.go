package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	internal "github.com/ZanzyTHEbar/chemtok/chemtok"
	"github.com/ZanzyTHEbar/chemtok/chemtok/chem"
	"github.com/ZanzyTHEbar/chemtok/chemtok/config"
	"github.com/ZanzyTHEbar/chemtok/chemtok/featurizer"
	"github.com/ZanzyTHEbar/chemtok/chemtok/tokenizer"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath      string
	model           string
	input           string
	maxLength       int
	truncation      bool
	padding         string
	noSpecialTokens bool
	workers         int
	canonicalize    bool
	verbose         bool
}

// record is one line of output.
type record struct {
	SMILES        string `json:"smiles"`
	InputIDs      []int  `json:"input_ids,omitempty"`
	AttentionMask []int  `json:"attention_mask,omitempty"`
	Error         string `json:"error,omitempty"`
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}
	cmd := &cobra.Command{
		Use:   internal.DefaultAppCMDShortCut + " [flags]",
		Short: "Tokenize SMILES strings with a pretrained subword tokenizer",
		Long: `Reads one SMILES string per line from --input (or stdin) and writes one JSON
object per line holding the token ids and attention mask of each molecule.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, o)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&o.configPath, "config", "", "config file (default searches ./config.yaml and "+internal.DefaultConfigPath+")")
	flags.StringVar(&o.model, "model", "", "pretrained tokenizer: hub repo id, directory, tokenizer.json or vocab.txt")
	flags.StringVarP(&o.input, "input", "i", "", "file with one SMILES per line (default stdin)")
	flags.IntVar(&o.maxLength, "max-length", 0, "truncation and max_length padding length")
	flags.BoolVar(&o.truncation, "truncation", false, "truncate to --max-length")
	flags.StringVar(&o.padding, "padding", "", `padding mode: "", "longest" or "max_length"`)
	flags.BoolVar(&o.noSpecialTokens, "no-special-tokens", false, "do not add special tokens")
	flags.IntVar(&o.workers, "workers", 0, "featurization workers (0 selects a default)")
	flags.BoolVar(&o.canonicalize, "canonicalize", false, "canonicalize input with RDKit before tokenizing")
	flags.BoolVarP(&o.verbose, "verbose", "v", false, "debug logging")
	return cmd
}

func run(cmd *cobra.Command, o *rootOptions) error {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return err
	}
	applyFlags(cmd, o, cfg)

	level := zerolog.InfoLevel
	if o.verbose {
		level = zerolog.DebugLevel
	}
	logger := internal.GetLogger().Level(level)

	opts, err := tokenizer.ParseCallOptions(map[string]any{
		"add_special_tokens": cfg.Call.AddSpecialTokens,
		"truncation":         cfg.Call.Truncation,
		"max_length":         cfg.Call.MaxLength,
		"padding":            cfg.Call.Padding,
	})
	if err != nil {
		return err
	}

	tok, err := tokenizer.FromPretrainedContext(cmd.Context(), cfg.Tokenizer.Model,
		tokenizer.WithCacheDir(cfg.Tokenizer.CacheDir),
		tokenizer.WithHubURL(cfg.Tokenizer.HubURL),
		tokenizer.WithRevision(cfg.Tokenizer.Revision),
		tokenizer.WithVariantCacheSize(cfg.Tokenizer.VariantCacheSize),
		tokenizer.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("load tokenizer %q: %w", cfg.Tokenizer.Model, err)
	}

	f := featurizer.New(tok,
		featurizer.WithRendererName(cfg.Featurizer.Renderer),
		featurizer.WithWorkers(cfg.Featurizer.Workers),
		featurizer.WithLogEvery(cfg.Featurizer.LogEvery),
		featurizer.WithLogger(logger),
	)

	in := cmd.InOrStdin()
	if o.input != "" {
		file, err := os.Open(o.input)
		if err != nil {
			return err
		}
		defer file.Close()
		in = file
	}
	smiles, err := readLines(in)
	if err != nil {
		return err
	}

	mols := make([]chem.Molecule, len(smiles))
	for i, s := range smiles {
		mols[i] = chem.SMILES(s)
	}

	res, err := f.Featurize(cmd.Context(), mols, opts)
	if err != nil {
		return err
	}
	return writeRecords(cmd.OutOrStdout(), smiles, res)
}

// applyFlags lets explicitly set flags override the loaded config.
func applyFlags(cmd *cobra.Command, o *rootOptions, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("model") {
		cfg.Tokenizer.Model = o.model
	}
	if flags.Changed("max-length") {
		cfg.Call.MaxLength = o.maxLength
	}
	if flags.Changed("truncation") {
		cfg.Call.Truncation = o.truncation
	}
	if flags.Changed("padding") {
		cfg.Call.Padding = o.padding
	}
	if flags.Changed("no-special-tokens") {
		cfg.Call.AddSpecialTokens = !o.noSpecialTokens
	}
	if flags.Changed("workers") {
		cfg.Featurizer.Workers = o.workers
	}
	if flags.Changed("canonicalize") {
		cfg.Featurizer.Renderer = chem.IdentityRendererName
		if o.canonicalize {
			cfg.Featurizer.Renderer = chem.RDKitRendererName
		}
	}
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, sc.Err()
}

func writeRecords(w io.Writer, smiles []string, res *featurizer.Result) error {
	enc := json.NewEncoder(w)
	for i, s := range smiles {
		rec := record{SMILES: s}
		if err := res.Errors[i]; err != nil {
			rec.Error = err.Error()
		} else {
			rec.InputIDs = res.Features[i].InputIDs
			rec.AttentionMask = res.Features[i].AttentionMask
		}
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}
