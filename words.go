package main

// roundWord is one round's puzzle: the word shown on the host screen, the
// candidate list shown to players, and the single correct anagram.
type roundWord struct {
	Word   string
	List   []string
	Answer string
}

// wordBank serves round data to every room. It is never mutated after
// construction, so concurrent reads across rooms are safe.
type wordBank struct {
	rounds []roundWord
}

func newWordBank() *wordBank {
	return &wordBank{
		rounds: []roundWord{
			{Word: "listen", List: []string{"lintel", "tingle", "silent", "signet", "simple"}, Answer: "silent"},
			{Word: "dusty", List: []string{"sturdy", "gusty", "dusts", "study", "musty"}, Answer: "study"},
			{Word: "night", List: []string{"thine", "tight", "thing", "sight", "think"}, Answer: "thing"},
			{Word: "arc", List: []string{"cab", "car", "rat", "arch", "cart"}, Answer: "car"},
			{Word: "cider", List: []string{"crier", "dried", "cried", "cedar", "rider"}, Answer: "cried"},
			{Word: "stone", List: []string{"stern", "nests", "notes", "noses", "newts"}, Answer: "notes"},
			{Word: "canoe", List: []string{"acorn", "canon", "ocean", "cocoa", "ozone"}, Answer: "ocean"},
			{Word: "spare", List: []string{"purse", "press", "pears", "peers", "paves"}, Answer: "pears"},
			{Word: "leaf", List: []string{"flee", "leap", "flea", "feel", "loaf"}, Answer: "flea"},
			{Word: "angel", List: []string{"gland", "gleam", "glean", "green", "along"}, Answer: "glean"},
		},
	}
}

func (b *wordBank) roundCount() int {
	return len(b.rounds)
}

func (b *wordBank) wordForRound(index int) (roundWord, error) {
	if index < 0 || index >= len(b.rounds) {
		return roundWord{}, errRoundOutOfRange
	}
	return b.rounds[index], nil
}
