package service

import (
	"strings"
	"unicode"

	pgvector "github.com/pgvector/pgvector-go"
)

const vowels = "aeiouyаеёиоуыэюя"

// GenerateEmbedding returns a small deterministic embedding of a recipe name:
// its length in letters, its vowel count and its consonant count.
func GenerateEmbedding(text string) pgvector.Vector {
	var length, vowelCount, consonants float32
	for _, r := range strings.ToLower(text) {
		if !unicode.IsLetter(r) {
			continue
		}
		length++
		if strings.ContainsRune(vowels, r) {
			vowelCount++
		} else {
			consonants++
		}
	}
	return pgvector.NewVector([]float32{length, vowelCount, consonants})
}
