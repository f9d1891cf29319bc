package featurizer

import (
	"context"
	"testing"

	"github.com/ZanzyTHEbar/chemtok/chemtok/chem"
	"github.com/ZanzyTHEbar/chemtok/chemtok/tokenizer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFeaturizeSMILESBaseline pins the encodings of two reference molecules
// under the WordPiece test vocabulary.
func TestFeaturizeSMILESBaseline(t *testing.T) {
	f := New(loadWordPiece(t), WithRenderer(chem.IdentityRenderer{}))
	opts, err := tokenizer.ParseCallOptions(map[string]any{
		"add_special_tokens": true,
		"truncation":         true,
	})
	require.NoError(t, err)

	tests := []struct {
		smiles string
		length int
		head   []int
		tail   []int
	}{
		{
			smiles: "Cn1c(=O)c2c(ncn2C)n(C)c1=O",
			length: 28,
			head:   []int{clsID, 5, 14, 16, 13},
			tail:   []int{5, 16, 12, 7, sepID},
		},
		{
			smiles: "CC(=O)N1CN(C(C)=O)C(O)C1O",
			length: 27,
			head:   []int{clsID, 5, 13, 10, 12},
			tail:   []int{5, 16, 15, sepID},
		},
	}

	mols := make([]chem.Molecule, len(tests))
	for i, tt := range tests {
		mols[i] = chem.SMILES(tt.smiles)

		enc, err := f.FeaturizeOne(mols[i], opts)
		require.NoError(t, err)
		require.Len(t, enc.InputIDs, tt.length, tt.smiles)
		require.Len(t, enc.AttentionMask, tt.length, tt.smiles)
		assert.Equal(t, tt.head, enc.InputIDs[:len(tt.head)], tt.smiles)
		assert.Equal(t, tt.tail, enc.InputIDs[tt.length-len(tt.tail):], tt.smiles)
		for _, m := range enc.AttentionMask {
			assert.Equal(t, 1, m)
		}
	}

	// Padded to a fixed length, the batch stacks into a matrix
	res, err := f.Featurize(context.Background(), mols, tokenizer.CallOptions{
		Truncation: true,
		MaxLength:  28,
		Padding:    tokenizer.PaddingMaxLength,
	})
	require.NoError(t, err)
	ids, mask, err := res.Matrix()
	require.NoError(t, err)
	r, c := ids.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 28, c)
	assert.Equal(t, 0.0, mask.At(1, 27), "second molecule is padded by one position")
	assert.Equal(t, 1.0, mask.At(0, 27))
}
