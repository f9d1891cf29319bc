package tokenizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

// hub fetches pretrained files from a HuggingFace-compatible model hub and
// keeps them under cacheDir/<repo>/<revision>/.
type hub struct {
	baseURL  string
	revision string
	cacheDir string
	client   *retryablehttp.Client
	logger   zerolog.Logger
}

func newHub(cfg Config) *hub {
	client := cfg.HTTPClient
	if client == nil {
		client = retryablehttp.NewClient()
		client.RetryMax = 3
		client.Logger = nil
	}
	return &hub{
		baseURL:  strings.TrimRight(cfg.HubURL, "/"),
		revision: cfg.Revision,
		cacheDir: cfg.CacheDir,
		client:   client,
		logger:   cfg.Logger,
	}
}

// resolve downloads the files of repo, trying the same layouts as dirFiles
// in the same order of preference.
func (h *hub) resolve(ctx context.Context, repo string) (modelFiles, error) {
	if err := checkRepoID(repo, h.revision); err != nil {
		return modelFiles{}, err
	}
	dir := filepath.Join(h.cacheDir, strings.ReplaceAll(repo, "/", "--"), h.revision)

	// tokenizer_config.json is optional; it only carries model_max_length.
	if _, err := h.fetch(ctx, repo, dir, tokenizerConfigFile); err != nil && !isNotFound(err) {
		return modelFiles{}, err
	}

	layouts := [][]string{
		{tokenizerJSONFile},
		{vocabJSONFile, mergesFile},
		{vocabTxtFile},
	}
	for _, files := range layouts {
		complete := true
		for _, name := range files {
			if _, err := h.fetch(ctx, repo, dir, name); err != nil {
				if isNotFound(err) {
					complete = false
					break
				}
				return modelFiles{}, err
			}
		}
		if complete {
			if f, ok := dirFiles(dir); ok {
				return f, nil
			}
		}
	}
	return modelFiles{}, fmt.Errorf("%w: %s (revision %s)", ErrNotFound, repo, h.revision)
}

// fetch returns the cached path of name, downloading it on first use.
func (h *hub) fetch(ctx context.Context, repo, dir, name string) (string, error) {
	dst := filepath.Join(dir, name)
	if fileExists(dst) {
		return dst, nil
	}

	url := fmt.Sprintf("%s/%s/resolve/%s/%s", h.baseURL, repo, h.revision, name)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request for %s: %w", url, err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("%w: %s", ErrNotFound, url)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("download %s: unexpected status %s", url, resp.Status)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create cache dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, name+".*.part")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("write %s: %w", dst, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("move %s into cache: %w", name, err)
	}

	h.logger.Debug().Str("repo", repo).Str("file", name).Int64("bytes", n).Msg("downloaded pretrained file")
	return dst, nil
}

// checkRepoID keeps repo and revision inside the cache directory.
func checkRepoID(repo, revision string) error {
	for _, part := range []string{repo, revision} {
		switch {
		case part == "",
			strings.HasPrefix(part, "/"),
			strings.Contains(part, `\`),
			strings.Contains(part, ".."):
			return fmt.Errorf("%w: %q (revision %q)", ErrInvalidRepoID, repo, revision)
		}
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
