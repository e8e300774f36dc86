package main

import (
	"bytes"
	"strings"
	"testing"

	"coursekb/internal/workflows"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackfillInput(t *testing.T) {
	f := &backfillFlags{kinds: []string{" Document", "question"}, batch: 50, maxConcurrent: 2}
	in, err := f.input()
	require.NoError(t, err)
	assert.Equal(t, workflows.BackfillInput{Kinds: []string{"document", "question"}, BatchSize: 50, MaxConcurrent: 2}, in)

	_, err = (&backfillFlags{kinds: []string{"paper"}, batch: 1, maxConcurrent: 1}).input()
	assert.ErrorContains(t, err, "unknown kind")

	_, err = (&backfillFlags{batch: 0, maxConcurrent: 1}).input()
	assert.Error(t, err)
}

func TestMigrateDryRunPrintsSchema(t *testing.T) {
	t.Setenv("COURSEKB_EMBED_DIM", "768")
	root := newRootCmd()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetArgs([]string{"migrate", "--dry-run", "--env-file", "does-not-exist.env"})
	require.NoError(t, root.Execute())
	assert.True(t, strings.Contains(out.String(), "vector(768)"))
	assert.False(t, strings.Contains(out.String(), "{{embed_dim}}"))
}
