package main

import (
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sortedLetters(word string) string {
	letters := strings.Split(word, "")
	slices.Sort(letters)
	return strings.Join(letters, "")
}

func TestWordBankRounds(t *testing.T) {
	bank := newWordBank()

	require.Equal(t, 10, bank.roundCount())

	for i := 0; i < bank.roundCount(); i++ {
		w, err := bank.wordForRound(i)
		require.NoError(t, err, "round %d", i)

		assert.NotEmpty(t, w.Word, "round %d", i)
		assert.Contains(t, w.List, w.Answer, "round %d answer missing from list", i)
		assert.Equal(t, sortedLetters(w.Word), sortedLetters(w.Answer),
			"round %d answer is not an anagram of the word", i)

		// Exactly one candidate may solve the round.
		anagrams := 0
		for _, candidate := range w.List {
			if sortedLetters(candidate) == sortedLetters(w.Word) {
				anagrams++
			}
		}
		assert.Equal(t, 1, anagrams, "round %d has %d valid candidates", i, anagrams)
	}
}

func TestWordBankOutOfRange(t *testing.T) {
	bank := newWordBank()

	tests := []struct {
		name  string
		index int
	}{
		{name: "negative index", index: -1},
		{name: "index at round count", index: bank.roundCount()},
		{name: "index far past round count", index: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := bank.wordForRound(tt.index)
			assert.ErrorIs(t, err, errRoundOutOfRange)
		})
	}
}
