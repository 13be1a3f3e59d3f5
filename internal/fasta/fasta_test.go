package fasta

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const multiFASTA = `>1 dna:chromosome chromosome:GRCm38:1:1:195471971:1 REF
NNNNACGT
ACGTAC
>2 dna:chromosome chromosome:GRCm38:2:1:182113224:1 REF
GGGGCCCC
>MT
ACGT
`

func TestGetSequence(t *testing.T) {
	tests := []struct {
		name   string
		want   string
		wantOK bool
	}{
		{"1", "NNNNACGTACGTAC", true},
		{"2", "GGGGCCCC", true},
		{"MT", "ACGT", true},
		{"3", "", false},
		{"dna:chromosome", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq, ok, err := GetSequence(strings.NewReader(multiFASTA), tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, seq)
		})
	}
}

func TestGetSequence_Gzip(t *testing.T) {
	var buf bytes.Buffer
	zw := pgzip.NewWriter(&buf)
	_, err := zw.Write([]byte(multiFASTA))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	seq, ok, err := GetSequence(&buf, "2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "GGGGCCCC", seq)
}

func TestWrite_Wraps(t *testing.T) {
	seq := strings.Repeat("A", 60) + strings.Repeat("C", 60) + "GT"

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "chrT", seq))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, ">chrT", lines[0])
	assert.Equal(t, strings.Repeat("A", 60), lines[1])
	assert.Equal(t, strings.Repeat("C", 60), lines[2])
	assert.Equal(t, "GT", lines[3])

	back, ok, err := GetSequence(&buf, "chrT")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, seq, back)
}

func TestWrite_ExactMultiple(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "x", strings.Repeat("G", 120)))
	assert.Equal(t, 3, strings.Count(buf.String(), "\n"), "no trailing empty line")
}

func TestRewrite(t *testing.T) {
	var out bytes.Buffer
	err := Rewrite(strings.NewReader(multiFASTA), &out, "1", "TTTT")
	require.NoError(t, err)

	expected := `>1 dna:chromosome chromosome:GRCm38:1:1:195471971:1 REF
TTTT
>2 dna:chromosome chromosome:GRCm38:2:1:182113224:1 REF
GGGGCCCC
>MT
ACGT
`
	assert.Equal(t, expected, out.String())
}

func TestRewrite_NotFound(t *testing.T) {
	var out bytes.Buffer
	err := Rewrite(strings.NewReader(multiFASTA), &out, "9", "TTTT")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, multiFASTA, out.String(), "input is copied unchanged")
}

func TestLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.fa")
	require.NoError(t, os.WriteFile(path, []byte(multiFASTA), 0644))

	loader := NewLoader(path)
	require.NoError(t, loader.Load())
	assert.Equal(t, 3, loader.SequenceCount())

	seq, ok := loader.GetSequence("1")
	assert.True(t, ok)
	assert.Equal(t, "NNNNACGTACGTAC", seq)

	_, ok = loader.GetSequence("X")
	assert.False(t, ok)
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.fa")
	require.NoError(t, WriteFile(path, "seq1", "ACGT"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, ">seq1\nACGT\n", string(data))

	assert.Error(t, NewLoader(filepath.Join(t.TempDir(), "missing.fa")).Load())
}
