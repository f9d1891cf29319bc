package tokenizer

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByteLevelBPE(t *testing.T) {
	tests := []struct {
		name string
		load func(t *testing.T) *Pretrained
	}{
		{"VocabAndMerges", func(t *testing.T) *Pretrained {
			p, err := FromPretrained(writeBPEDir(t, 16))
			require.NoError(t, err)
			return p
		}},
		{"VocabJSONFile", func(t *testing.T) *Pretrained {
			p, err := FromPretrained(filepath.Join(writeBPEDir(t, 0), vocabJSONFile))
			require.NoError(t, err)
			return p
		}},
		{"TokenizerJSON", func(t *testing.T) *Pretrained {
			p, err := FromPretrained(writeTokenizerJSON(t))
			require.NoError(t, err)
			return p
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.load(t)

			pad, ok := p.PadToken()
			require.True(t, ok)
			assert.Equal(t, "<pad>", pad)
			assert.NotNil(t, p.base.mu, "BPE encodes are serialised")

			enc, err := p.Call("CCO", CallOptions{})
			require.NoError(t, err)
			assert.Equal(t, []int{bosID, 15, 5, eosID}, enc.InputIDs())
			assert.Equal(t, []int{1, 1, 1, 1}, enc.AttentionMask())

			enc, err = p.Call("C(=O)", CallOptions{})
			require.NoError(t, err)
			assert.Equal(t, []int{bosID, 4, 18, 5, 11, eosID}, enc.InputIDs())

			enc, err = p.Call("CCO", CallOptions{AddSpecialTokens: Bool(false)})
			require.NoError(t, err)
			assert.Equal(t, []int{15, 5}, enc.InputIDs())

			padded, err := p.Call("CCO", CallOptions{Padding: PaddingMaxLength, MaxLength: 8})
			require.NoError(t, err)
			assert.Equal(t, []int{bosID, 15, 5, eosID, bpePadID, bpePadID, bpePadID, bpePadID}, padded.InputIDs())
			assert.Equal(t, []int{1, 1, 1, 1, 0, 0, 0, 0}, padded.AttentionMask())

			// c 1 cc cc c 1 framed by <s> and </s>
			full, err := p.Call("c1ccccc1", CallOptions{Truncation: true, MaxLength: 8})
			require.NoError(t, err)
			assert.Equal(t, []int{bosID, 7, 13, 17, 17, 7, 13, eosID}, full.InputIDs())

			cut, err := p.Call("c1ccccc1", CallOptions{Truncation: true, MaxLength: 6})
			require.NoError(t, err)
			assert.Equal(t, []int{bosID, 7, 13, 17, 17, eosID}, cut.InputIDs())

			_, err = p.Call("c1ccccc1", CallOptions{Truncation: true, MaxLength: 2})
			assert.ErrorIs(t, err, ErrInvalidOptions)

			assert.Equal(t, "CCO", p.Decode(padded.InputIDs(), true))
			assert.Contains(t, p.Decode(padded.InputIDs(), false), "<s>")
		})
	}
}

func TestByteLevelBPEConcurrent(t *testing.T) {
	dir := writeBPEDir(t, 32)
	alphabet := []rune("CNOcno12()=")

	// Distinct words keep the BPE word cache growing while encoding.
	var inputs []string
	for i := 0; i < 600; i++ {
		var s []rune
		for n := i; ; n /= len(alphabet) {
			s = append(s, alphabet[n%len(alphabet)])
			if n < len(alphabet) {
				break
			}
		}
		inputs = append(inputs, string(s)+fmt.Sprint(i%3))
	}

	serial, err := FromPretrained(dir)
	require.NoError(t, err)
	opts := []CallOptions{{}, {Truncation: true, MaxLength: 5}}
	want := make([][]BatchEncoding, len(opts))
	for o, opt := range opts {
		want[o], err = serial.CallBatch(inputs, opt)
		require.NoError(t, err)
	}

	shared, err := FromPretrained(dir)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o := g % len(opts)
			for i, s := range inputs {
				enc, err := shared.Call(s, opts[o])
				if err != nil {
					errs <- err
					return
				}
				if !assert.Equal(t, want[o][i], enc, "input %q", s) {
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
}
