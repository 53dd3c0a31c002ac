package ml

import "sort"

// Encoder maps a categorical value to an integer code. The vocabulary is
// fitted once at training time and immutable afterwards; unseen values
// resolve to code 0 rather than failing, since long-tail categories are
// expected at serving time.
type Encoder struct {
	Classes []string       `json:"classes"`
	index   map[string]int `json:"-"`
}

// FitEncoder builds an encoder from the distinct values in vals, with
// classes stored in sorted order.
func FitEncoder(vals []string) *Encoder {
	seen := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		seen[v] = struct{}{}
	}
	classes := make([]string, 0, len(seen))
	for v := range seen {
		classes = append(classes, v)
	}
	sort.Strings(classes)

	e := &Encoder{Classes: classes}
	e.buildIndex()
	return e
}

func (e *Encoder) buildIndex() {
	e.index = make(map[string]int, len(e.Classes))
	for i, c := range e.Classes {
		e.index[c] = i
	}
}

// Encode returns the code for v, or 0 when v was never seen in training.
func (e *Encoder) Encode(v string) int {
	if e == nil {
		return 0
	}
	if e.index == nil {
		e.buildIndex()
	}
	if code, ok := e.index[v]; ok {
		return code
	}
	return 0
}

// Knows reports whether v was part of the fitted vocabulary.
func (e *Encoder) Knows(v string) bool {
	if e == nil {
		return false
	}
	if e.index == nil {
		e.buildIndex()
	}
	_, ok := e.index[v]
	return ok
}

// EncoderSet groups the categorical encoders that must travel with the
// models they were fitted alongside.
type EncoderSet struct {
	Stage       *Encoder `json:"stage"`
	District    *Encoder `json:"district"`
	Mandal      *Encoder `json:"mandal"`
	ServiceCode *Encoder `json:"service_code"`
	Category    *Encoder `json:"category"`
}
