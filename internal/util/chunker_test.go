package util

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkText(t *testing.T) {
	text := "abcdefghijklmnopqrstuvwxyz"
	chunks, err := ChunkText(text, 10, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"abcdefghij", "ijklmnopqr", "qrstuvwxyz"}, chunks)
}

func TestChunkTextCountAndCoverage(t *testing.T) {
	cases := []struct {
		n, size, overlap int
	}{
		{n: 1, size: 1000, overlap: 200},
		{n: 1000, size: 1000, overlap: 200},
		{n: 1001, size: 1000, overlap: 200},
		{n: 2500, size: 1000, overlap: 200},
		{n: 4321, size: 1000, overlap: 200},
		{n: 57, size: 7, overlap: 0},
		{n: 57, size: 7, overlap: 6},
	}
	for _, tc := range cases {
		text := strings.Repeat("x", tc.n)
		chunks, err := ChunkText(text, tc.size, tc.overlap)
		require.NoError(t, err)
		assert.Len(t, chunks, ChunkCount(tc.n, tc.size, tc.overlap), "n=%d size=%d overlap=%d", tc.n, tc.size, tc.overlap)

		step := tc.size - tc.overlap
		covered := 0
		for i, c := range chunks {
			start := i * step
			require.LessOrEqual(t, start, covered, "gap before chunk %d", i)
			covered = start + len([]rune(c))
		}
		assert.Equal(t, tc.n, covered)
	}
}

func TestChunkTextMultibyte(t *testing.T) {
	text := strings.Repeat("é", 15)
	chunks, err := ChunkText(text, 10, 5)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, strings.Repeat("é", 10), chunks[0])
	assert.Equal(t, strings.Repeat("é", 10), chunks[1])
}

func TestChunkTextEmpty(t *testing.T) {
	chunks, err := ChunkText("", 1000, 200)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunkTextRejectsBadConfiguration(t *testing.T) {
	for _, tc := range [][2]int{{10, 10}, {10, 11}, {0, 0}, {10, -1}} {
		_, err := ChunkText("abc", tc[0], tc[1])
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrConfiguration))
	}
}
