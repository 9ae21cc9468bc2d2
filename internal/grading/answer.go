package grading

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
)

type QuestionType string

const (
	TypeMCQ QuestionType = "MCQ" // exactly one correct option
	TypeMSQ QuestionType = "MSQ" // a set of correct options
)

type AnswerKind uint8

const (
	KindNone AnswerKind = iota
	KindSingle
	KindMulti
)

// Answer is either nothing, one option index or a set of option indexes.
// On the wire it is null, an integer or an array of integers.
type Answer struct {
	Kind    AnswerKind
	Index   int
	Indices []int
}

func None() Answer            { return Answer{} }
func Single(i int) Answer     { return Answer{Kind: KindSingle, Index: i} }
func Multi(idx ...int) Answer { return Answer{Kind: KindMulti, Indices: idx} }

func (a Answer) IsNone() bool { return a.Kind == KindNone }

// All returns every option index referenced by the answer.
func (a Answer) All() []int {
	switch a.Kind {
	case KindSingle:
		return []int{a.Index}
	case KindMulti:
		return a.Indices
	}
	return nil
}

// SameSet reports whether both answers name exactly the same set of options.
// Duplicates and order are ignored.
func (a Answer) SameSet(b Answer) bool {
	x, y := toSet(a.All()), toSet(b.All())
	if len(x) != len(y) {
		return false
	}
	for k := range x {
		if _, ok := y[k]; !ok {
			return false
		}
	}
	return true
}

func (a Answer) MarshalJSON() ([]byte, error) {
	switch a.Kind {
	case KindSingle:
		return json.Marshal(a.Index)
	case KindMulti:
		idx := a.Indices
		if idx == nil {
			idx = []int{}
		}
		return json.Marshal(idx)
	}
	return []byte("null"), nil
}

// UnmarshalJSON never fails on an unexpected shape: anything that is not an
// integer or a list of integers decodes as no answer.
func (a *Answer) UnmarshalJSON(b []byte) error {
	*a = Answer{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '[' {
		var raw []float64
		if err := json.Unmarshal(b, &raw); err != nil {
			return nil
		}
		var out []int
		for _, f := range raw {
			i, ok := asIndex(f)
			if !ok {
				return nil
			}
			out = append(out, i)
		}
		*a = Multi(out...)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return nil
	}
	if i, ok := asIndex(f); ok {
		*a = Single(i)
	}
	return nil
}

func asIndex(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func toSet(arr []int) map[int]struct{} {
	m := make(map[int]struct{}, len(arr))
	for _, i := range arr {
		m[i] = struct{}{}
	}
	return m
}

// sortedSet is used for stable storage of multi answers.
func sortedSet(arr []int) []int {
	m := toSet(arr)
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

// Normalize sorts and de-duplicates a multi answer. Other kinds are returned
// unchanged.
func (a Answer) Normalize() Answer {
	if a.Kind != KindMulti {
		return a
	}
	return Multi(sortedSet(a.Indices)...)
}
