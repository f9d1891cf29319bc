package tokenizer

import (
	"fmt"
	"math"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

// PaddingMode selects how encodings are padded.
type PaddingMode string

const (
	DoNotPad         PaddingMode = ""
	PaddingLongest   PaddingMode = "longest"
	PaddingMaxLength PaddingMode = "max_length"
)

// CallOptions are per-call settings with the same meaning as the keyword
// arguments of a HuggingFace tokenizer call.
type CallOptions struct {
	// AddSpecialTokens defaults to true when nil.
	AddSpecialTokens *bool
	Truncation       bool
	// MaxLength bounds truncation and max_length padding. Zero falls back to
	// the model_max_length of the pretrained configuration.
	MaxLength               int
	Padding                 PaddingMode
	ReturnTokenTypeIDs      bool
	ReturnSpecialTokensMask bool
}

// Bool returns a pointer to b, for CallOptions.AddSpecialTokens.
func Bool(b bool) *bool { return &b }

func (o CallOptions) addSpecialTokens() bool {
	return o.AddSpecialTokens == nil || *o.AddSpecialTokens
}

// ParseCallOptions builds CallOptions from the open-ended keyword form, e.g.
// {"add_special_tokens": true, "truncation": true, "max_length": 128}.
func ParseCallOptions(kv map[string]any) (CallOptions, error) {
	var opts CallOptions
	for k, v := range kv {
		switch k {
		case "add_special_tokens":
			b, err := asBool(k, v)
			if err != nil {
				return CallOptions{}, err
			}
			opts.AddSpecialTokens = Bool(b)
		case "truncation":
			b, err := asBool(k, v)
			if err != nil {
				return CallOptions{}, err
			}
			opts.Truncation = b
		case "max_length":
			n, err := asInt(k, v)
			if err != nil {
				return CallOptions{}, err
			}
			opts.MaxLength = n
		case "padding":
			switch p := v.(type) {
			case bool:
				if p {
					opts.Padding = PaddingLongest
				}
			case string:
				switch PaddingMode(p) {
				case DoNotPad, "do_not_pad":
					opts.Padding = DoNotPad
				case PaddingLongest, PaddingMaxLength:
					opts.Padding = PaddingMode(p)
				default:
					return CallOptions{}, fmt.Errorf("%w: padding %q", ErrInvalidOptions, p)
				}
			default:
				return CallOptions{}, fmt.Errorf("%w: padding must be bool or string, got %T", ErrInvalidOptions, v)
			}
		case "return_token_type_ids":
			b, err := asBool(k, v)
			if err != nil {
				return CallOptions{}, err
			}
			opts.ReturnTokenTypeIDs = b
		case "return_special_tokens_mask":
			b, err := asBool(k, v)
			if err != nil {
				return CallOptions{}, err
			}
			opts.ReturnSpecialTokensMask = b
		default:
			return CallOptions{}, fmt.Errorf("%w: unknown key %q", ErrInvalidOptions, k)
		}
	}
	return opts, nil
}

func asBool(key string, v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s must be bool, got %T", ErrInvalidOptions, key, v)
	}
	return b, nil
}

func asInt(key string, v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%w: %s must be integral, got %v", ErrInvalidOptions, key, n)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("%w: %s must be int, got %T", ErrInvalidOptions, key, v)
	}
}

// Config holds load-time tokenizer settings
type Config struct {
	// MaxSeqLen overrides model_max_length from tokenizer_config.json.
	MaxSeqLen        int
	CacheDir         string
	HubURL           string
	Revision         string
	VariantCacheSize int
	HTTPClient       *retryablehttp.Client
	Logger           zerolog.Logger
}

// Option configures FromPretrained.
type Option func(*Config)

// WithMaxSeqLen overrides model_max_length.
func WithMaxSeqLen(n int) Option { return func(c *Config) { c.MaxSeqLen = n } }

// WithCacheDir sets where hub downloads are kept.
func WithCacheDir(dir string) Option { return func(c *Config) { c.CacheDir = dir } }

// WithHubURL points hub downloads at another HuggingFace-compatible server.
func WithHubURL(url string) Option { return func(c *Config) { c.HubURL = url } }

// WithRevision selects the branch, tag or commit to download.
func WithRevision(rev string) Option { return func(c *Config) { c.Revision = rev } }

// WithVariantCacheSize bounds how many truncation variants stay loaded.
func WithVariantCacheSize(n int) Option { return func(c *Config) { c.VariantCacheSize = n } }

// WithHTTPClient replaces the retrying client used for hub downloads.
func WithHTTPClient(client *retryablehttp.Client) Option {
	return func(c *Config) { c.HTTPClient = client }
}

// WithLogger sets the logger for load and variant events.
func WithLogger(l zerolog.Logger) Option { return func(c *Config) { c.Logger = l } }
