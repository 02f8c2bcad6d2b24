package sheetwatch

import (
	"iter"
	"slices"
	"strings"
)

func IterMap[E, F any](seq iter.Seq[E], fn func(E) F) iter.Seq[F] {
	return func(yield func(F) bool) {
		for v := range seq {
			if !yield(fn(v)) {
				break
			}
		}
	}
}

func IterFilter[E any](seq iter.Seq[E], fn func(E) bool) iter.Seq[E] {
	return func(yield func(E) bool) {
		for v := range seq {
			if fn(v) && !yield(v) {
				break
			}
		}
	}
}

func Map[E, F any](s []E, fn func(E) F) []F {
	return slices.Collect(IterMap(slices.Values(s), fn))
}

func Filter[E any](s []E, fn func(E) bool) []E {
	return slices.Collect(IterFilter(slices.Values(s), fn))
}

// SplitList splits a comma separated list, trimming entries and dropping empty ones.
func SplitList(s string) []string {
	trimmed := Map(strings.Split(s, ","), strings.TrimSpace)
	return Filter(trimmed, func(v string) bool { return v != "" })
}
