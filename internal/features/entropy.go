package features

import "math"

// Entropy computes the Shannon entropy of the character-frequency
// distribution of s, rounded to 4 decimal places. An empty string (or a
// string of one repeated character) has entropy 0.
func Entropy(s string) float64 {
	if s == "" {
		return 0.0
	}

	runes := []rune(s)
	freq := make(map[rune]int, len(runes))
	for _, r := range runes {
		freq[r]++
	}

	n := float64(len(runes))
	ent := 0.0
	for _, count := range freq {
		p := float64(count) / n
		ent -= p * math.Log2(p)
	}

	return math.Round(ent*1e4) / 1e4
}
