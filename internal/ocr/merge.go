package ocr

import "github.com/jackzampolin/reportcheck/internal/geometry"

// IntersectBias is the pixel slack used when merging overlapping fragments.
const IntersectBias = 2.0

// Predicate decides whether candidate should be folded into accepted.
type Predicate func(candidate, accepted Token) bool

// MergeBy repeatedly folds tokens together until no pair satisfies pred.
//
// Each pass walks the tokens in their current order. A token merges into the
// first already-accepted token for which pred holds; otherwise it becomes
// accepted itself. Passes repeat until one makes no merge. The result is
// re-indexed from zero. The outcome depends on input order. tokens is not
// modified.
func MergeBy(tokens []Token, pred Predicate) []Token {
	arena := make([]Token, len(tokens))
	copy(arena, tokens)

	order := make([]int, len(arena))
	for i := range order {
		order[i] = i
	}

	for {
		accepted := make([]int, 0, len(order))
		merged := false
		for _, i := range order {
			target := -1
			for _, j := range accepted {
				if pred(arena[i], arena[j]) {
					target = j
					break
				}
			}
			if target < 0 {
				accepted = append(accepted, i)
				continue
			}
			arena[target].absorb(arena[i])
			merged = true
		}
		order = accepted
		if !merged {
			break
		}
	}

	out := make([]Token, len(order))
	for n, i := range order {
		out[n] = arena[i]
		out[n].ID = n
	}
	return out
}

// MergeSentences joins fragments that read as one horizontal line. The
// tolerances scale with the fragments so the result does not depend on
// screenshot resolution.
func MergeSentences(tokens []Token) []Token {
	return MergeBy(tokens, func(c, a Token) bool {
		justify := 0.2 * min(c.Height(), a.Height())
		gap := 2 * max(c.WordWidth(), a.WordWidth())
		return geometry.SameLine(c.Box, a.Box, geometry.Horizontal, justify, gap)
	})
}

// MergeIntersected joins fragments whose boxes overlap within IntersectBias.
func MergeIntersected(tokens []Token) []Token {
	return MergeBy(tokens, func(c, a Token) bool {
		return geometry.Intersects(c.Box, a.Box, IntersectBias)
	})
}
