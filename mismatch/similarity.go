package mismatch

import (
	"sort"
	"strings"

	"docverify/extract"
)

// exactFields are structured numeric/date fields where similarity is binary:
// 1.0 on equality after normalization, 0.0 otherwise.
var exactFields = map[string]bool{
	extract.FieldPostcode:    true,
	extract.FieldABN:         true,
	extract.FieldACN:         true,
	extract.FieldDateOfBirth: true,
}

// Similarity returns the normalized [0,1] similarity between two field
// values. Symmetric for all inputs: Similarity(f,a,b) == Similarity(f,b,a).
func Similarity(field, a, b string) float64 {
	if exactFields[field] {
		if normalizeExact(field, a) == normalizeExact(field, b) {
			return 1
		}
		return 0
	}
	na, nb := normalizeText(a), normalizeText(b)
	if na == nb {
		return 1
	}
	if na == "" || nb == "" {
		return 0
	}
	if strings.ContainsRune(na, ' ') || strings.ContainsRune(nb, ' ') {
		return tokenSetOverlap(na, nb)
	}
	return levenshteinSimilarity(na, nb)
}

// normalizeExact strips whitespace and punctuation; dates additionally pass
// through calendar normalization so "02/03/1990" equals "1990-03-02".
func normalizeExact(field, v string) string {
	if field == extract.FieldDateOfBirth {
		norm, ok := extract.NormalizeDate(strings.TrimSpace(v))
		if ok {
			return norm
		}
	}
	var b strings.Builder
	for _, c := range v {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'z':
			b.WriteRune(c)
		case c >= 'A' && c <= 'Z':
			b.WriteRune(c + ('a' - 'A'))
		}
	}
	return b.String()
}

func normalizeText(v string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(v))), " ")
}

// tokenSetOverlap is the Jaccard index over the word sets, tolerant of word
// reordering in multi-word fields such as addresses.
func tokenSetOverlap(a, b string) float64 {
	setA := make(map[string]bool)
	for _, w := range strings.Fields(a) {
		setA[w] = true
	}
	setB := make(map[string]bool)
	for _, w := range strings.Fields(b) {
		setB[w] = true
	}
	inter := 0
	for w := range setA {
		if setB[w] {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	// Near-equal leftover words (single transcription slips) count as
	// partial hits so a one-letter typo in one word does not zero out the
	// pair. Pairing is greedy over a symmetric ordering, keeping
	// Similarity(a,b) == Similarity(b,a).
	score := float64(inter) + partialMatches(setA, setB)
	return score / float64(union)
}

type wordPair struct {
	key  string
	a, b string
	sim  float64
}

func partialMatches(setA, setB map[string]bool) float64 {
	var pairs []wordPair
	for w := range setA {
		if setB[w] {
			continue
		}
		for v := range setB {
			if setA[v] {
				continue
			}
			if s := levenshteinSimilarity(w, v); s >= 0.5 {
				lo, hi := w, v
				if hi < lo {
					lo, hi = hi, lo
				}
				pairs = append(pairs, wordPair{key: lo + "\x00" + hi, a: w, b: v, sim: s})
			}
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].sim != pairs[j].sim {
			return pairs[i].sim > pairs[j].sim
		}
		return pairs[i].key < pairs[j].key
	})
	usedA := make(map[string]bool)
	usedB := make(map[string]bool)
	var total float64
	for _, p := range pairs {
		if usedA[p.a] || usedB[p.b] {
			continue
		}
		usedA[p.a] = true
		usedB[p.b] = true
		total += p.sim
	}
	return total
}

// levenshteinSimilarity is 1 minus the edit distance normalized by the
// longer length.
func levenshteinSimilarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 && lb == 0 {
		return 1
	}
	longer := la
	if lb > longer {
		longer = lb
	}
	return 1 - float64(levenshtein(ra, rb))/float64(longer)
}

func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = minInt(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

func minInt(vals ...int) int {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
