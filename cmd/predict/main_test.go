package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestPredictFromFlag(t *testing.T) {
	out, _, err := execute(t, "", "--sentence", "the quick brown fox")
	require.NoError(t, err)
	assert.Contains(t, out, "Predicted next word: ")
	assert.NotContains(t, out, "Enter a sentence")
}

func TestPredictFromStdin(t *testing.T) {
	fromStdin, _, err := execute(t, "the quick brown fox\n")
	require.NoError(t, err)
	assert.Contains(t, fromStdin, "Enter a sentence: ")

	fromFlag, _, err := execute(t, "", "-s", "the quick brown fox")
	require.NoError(t, err)

	word := func(out string) string {
		_, after, found := strings.Cut(out, "Predicted next word: ")
		require.True(t, found)
		return strings.TrimSpace(after)
	}
	assert.Equal(t, word(fromFlag), word(fromStdin))
}

func TestPredictEmptySentence(t *testing.T) {
	out, _, err := execute(t, "", "--sentence", "")
	require.NoError(t, err)
	assert.Contains(t, out, "No input")
}

func TestPredictUnknownWordLogsWarning(t *testing.T) {
	_, logs, err := execute(t, "", "--sentence", "the zebra")
	require.NoError(t, err)
	assert.Contains(t, logs, "word=zebra")
}

func TestPredictTopAndGenerate(t *testing.T) {
	out, _, err := execute(t, "", "-s", "the dog", "--top", "3", "--generate", "2",
		"--embedding-dim", "16", "--num-heads", "2", "--hidden-dim", "32", "--num-layers", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Top 3:")
	assert.Contains(t, out, "Generated: ")
}

func TestPredictInvalidConfig(t *testing.T) {
	_, _, err := execute(t, "", "-s", "the dog", "--embedding-dim", "10", "--num-heads", "4")
	require.ErrorContains(t, err, "invalid config")
}

func TestPredictConfigAndCorpusFiles(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.json")
	corpusPath := filepath.Join(dir, "corpus.txt")
	require.NoError(t, os.WriteFile(configPath, []byte(`{"embedding_dim": 8, "num_heads": 2, "encoder_only": true}`), 0o600))
	require.NoError(t, os.WriteFile(corpusPath, []byte("alpha beta\n\ngamma delta\n"), 0o600))

	out, logs, err := execute(t, "", "--config", configPath, "--corpus", corpusPath, "-s", "alpha", "-v")
	require.NoError(t, err)
	assert.Contains(t, logs, "embedding_dim=8")
	assert.Contains(t, logs, "encoder_only=true")
	assert.Contains(t, logs, "words=4")

	_, after, _ := strings.Cut(out, "Predicted next word: ")
	assert.Contains(t, []string{"alpha", "beta", "gamma", "delta"}, strings.TrimSpace(after))
}

func TestPredictEmptyCorpus(t *testing.T) {
	corpusPath := filepath.Join(t.TempDir(), "corpus.txt")
	require.NoError(t, os.WriteFile(corpusPath, []byte("\n  \n"), 0o600))

	_, _, err := execute(t, "", "--corpus", corpusPath, "-s", "alpha")
	require.ErrorContains(t, err, "no sentences")
}
