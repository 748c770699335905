// Package tokenizer implements the word-level vocabulary used by the model.
//
// Sentences are split on whitespace and lowercased. Indices are assigned in
// order of first occurrence across the corpus, so the word↔index table is a
// bijection over the corpus vocabulary.
package tokenizer

import (
	"strings"

	"github.com/samber/lo"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// NotFound is returned by Encode for words outside the vocabulary
	NotFound = -1

	// UnknownWord is returned by Decode for indices outside the vocabulary
	UnknownWord = "<unk>"
)

// Tokenizer is the contract the model needs from a tokenizer.
type Tokenizer interface {
	// Tokenize splits a sentence into normalized words
	Tokenize(sentence string) []string
	// Encode maps a word to its index, or NotFound
	Encode(word string) int
	// Decode maps an index to its word, or UnknownWord
	Decode(index int) string
	// VocabularySize returns the number of known words
	VocabularySize() int
}

// Vocabulary is a case-insensitive whitespace tokenizer with a fixed word table.
type Vocabulary struct {
	wordToIndex map[string]int
	indexToWord []string
}

var _ Tokenizer = (*Vocabulary)(nil)

// NewVocabulary builds a vocabulary from a corpus of sentences.
func NewVocabulary(corpus []string) *Vocabulary {
	words := lo.Uniq(lo.FlatMap(corpus, func(sentence string, _ int) []string {
		return tokenize(sentence)
	}))

	v := &Vocabulary{
		wordToIndex: make(map[string]int, len(words)),
		indexToWord: words,
	}
	for i, w := range words {
		v.wordToIndex[w] = i
	}
	return v
}

// Tokenize splits sentence on whitespace and lowercases every word.
func (v *Vocabulary) Tokenize(sentence string) []string {
	return tokenize(sentence)
}

// Encode returns the index of word, or NotFound. Lookup is case-insensitive.
func (v *Vocabulary) Encode(word string) int {
	if id, ok := v.wordToIndex[normalize(word)]; ok {
		return id
	}
	return NotFound
}

// EncodeSentence tokenizes and encodes a sentence. Unknown words map to NotFound.
func (v *Vocabulary) EncodeSentence(sentence string) []int {
	return lo.Map(v.Tokenize(sentence), func(w string, _ int) int {
		return v.Encode(w)
	})
}

// Decode returns the word at index, or UnknownWord.
func (v *Vocabulary) Decode(index int) string {
	if index < 0 || index >= len(v.indexToWord) {
		return UnknownWord
	}
	return v.indexToWord[index]
}

// VocabularySize returns the number of distinct words.
func (v *Vocabulary) VocabularySize() int {
	return len(v.indexToWord)
}

// Words returns the vocabulary in index order.
func (v *Vocabulary) Words() []string {
	out := make([]string, len(v.indexToWord))
	copy(out, v.indexToWord)
	return out
}

func tokenize(sentence string) []string {
	return lo.Map(strings.Fields(sentence), func(w string, _ int) string {
		return normalize(w)
	})
}

// normalize lowercases w. A Caser keeps state between calls, so one is
// created per call.
func normalize(w string) string {
	return cases.Lower(language.Und).String(w)
}
