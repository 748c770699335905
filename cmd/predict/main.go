// Command predict builds a word vocabulary from a small corpus, initializes a
// randomly weighted encoder-decoder transformer over it and prints the
// predicted next word for a sentence.
package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"gotransformer/pkg/model"
	"gotransformer/pkg/tokenizer"
)

// defaultCorpus is used when no --corpus file is given.
var defaultCorpus = []string{
	"the quick brown fox jumps over the lazy dog",
	"the dog barks loudly",
	"fox is a clever animal",
}

type options struct {
	configPath string
	corpusPath string
	sentence   string
	generate   int
	top        int
	verbose    bool

	embeddingDim int
	numHeads     int
	hiddenDim    int
	numLayers    int
	maxSeqLen    int
	seed         uint64
	encoderOnly  bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	defaults := model.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict the next word of a sentence with an untrained transformer",
		Long: `predict builds a vocabulary from a corpus, initializes an encoder-decoder
transformer with seeded random weights and prints the most probable next word.

The sentence is read from --sentence, or from the first line of stdin.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "JSON model config file")
	f.StringVar(&opts.corpusPath, "corpus", "", "corpus file, one sentence per line (default: built-in sentences)")
	f.StringVarP(&opts.sentence, "sentence", "s", "", "input sentence (default: read a line from stdin)")
	f.IntVarP(&opts.generate, "generate", "n", 0, "also generate this many words greedily")
	f.IntVar(&opts.top, "top", 0, "print the k most probable next words")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	f.IntVar(&opts.embeddingDim, "embedding-dim", defaults.EmbeddingDim, "embedding dimension")
	f.IntVar(&opts.numHeads, "num-heads", defaults.NumHeads, "number of attention heads")
	f.IntVar(&opts.hiddenDim, "hidden-dim", defaults.HiddenDim, "feed-forward hidden dimension")
	f.IntVar(&opts.numLayers, "num-layers", defaults.NumLayers, "number of encoder and decoder layers")
	f.IntVar(&opts.maxSeqLen, "max-seq-len", defaults.MaxSeqLen, "maximum sequence length")
	f.Uint64Var(&opts.seed, "seed", defaults.Seed, "weight initialization seed")
	f.BoolVar(&opts.encoderOnly, "encoder-only", defaults.EncoderOnly, "predict from the encoder output, skipping the decoder")

	return cmd
}

func run(cmd *cobra.Command, opts *options) error {
	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	config, err := buildConfig(cmd, opts)
	if err != nil {
		return err
	}
	logger.Debug("model configuration",
		"embedding_dim", config.EmbeddingDim,
		"num_heads", config.NumHeads,
		"hidden_dim", config.HiddenDim,
		"num_layers", config.NumLayers,
		"max_seq_len", config.MaxSeqLen,
		"seed", config.Seed,
		"encoder_only", config.EncoderOnly)

	corpus := defaultCorpus
	if opts.corpusPath != "" {
		corpus, err = readCorpus(opts.corpusPath)
		if err != nil {
			return err
		}
	}
	vocab := tokenizer.NewVocabulary(corpus)
	logger.Debug("vocabulary built", "sentences", len(corpus), "words", vocab.VocabularySize())

	transformer, err := model.NewTransformer(config, vocab)
	if err != nil {
		return fmt.Errorf("failed to build model: %w", err)
	}
	transformer.Logger = logger

	sentence := opts.sentence
	if !cmd.Flags().Changed("sentence") {
		fmt.Fprint(cmd.OutOrStdout(), "Enter a sentence: ")
		sentence, err = readLine(cmd.InOrStdin())
		if err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	word, err := transformer.Predict(sentence)
	if err != nil {
		return err
	}
	if word == "" {
		fmt.Fprintln(out, "No input, nothing to predict.")
		return nil
	}
	fmt.Fprintf(out, "Predicted next word: %s\n", word)

	if opts.top > 0 {
		candidates, err := transformer.TopK(sentence, opts.top)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Top %d:\n", len(candidates))
		for i, c := range candidates {
			fmt.Fprintf(out, "  %2d. %-12s %.4f\n", i+1, c.Word, c.Probability)
		}
	}

	if opts.generate > 0 {
		words, err := transformer.Generate(sentence, opts.generate)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Generated: %s\n", strings.Join(words, " "))
	}

	return nil
}

// buildConfig starts from the defaults or the --config file and applies the
// flags that were set explicitly.
func buildConfig(cmd *cobra.Command, opts *options) (model.Config, error) {
	config := model.DefaultConfig()
	if opts.configPath != "" {
		var err error
		config, err = model.LoadConfig(opts.configPath)
		if err != nil {
			return config, err
		}
	}

	f := cmd.Flags()
	if f.Changed("embedding-dim") {
		config.EmbeddingDim = opts.embeddingDim
	}
	if f.Changed("num-heads") {
		config.NumHeads = opts.numHeads
	}
	if f.Changed("hidden-dim") {
		config.HiddenDim = opts.hiddenDim
	}
	if f.Changed("num-layers") {
		config.NumLayers = opts.numLayers
	}
	if f.Changed("max-seq-len") {
		config.MaxSeqLen = opts.maxSeqLen
	}
	if f.Changed("seed") {
		config.Seed = opts.seed
	}
	if f.Changed("encoder-only") {
		config.EncoderOnly = opts.encoderOnly
	}

	if err := config.Validate(); err != nil {
		return config, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

// readCorpus reads one sentence per line, skipping blank lines.
func readCorpus(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus: %w", err)
	}
	defer file.Close()

	var corpus []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			corpus = append(corpus, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}
	if len(corpus) == 0 {
		return nil, fmt.Errorf("corpus %s has no sentences", path)
	}
	return corpus, nil
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read sentence: %w", err)
	}
	return strings.TrimSpace(line), nil
}
