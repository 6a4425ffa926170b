// Package erlterm reads and writes the subset of Erlang term syntax used by
// rebar.config, rebar.lock and .app.src files, i.e. what file:consult/1 accepts.
package erlterm

// Term is a single Erlang term
type Term interface {
	isTerm()
}

// Atom is an Erlang atom, e.g. plugins or 'Quoted atom'
type Atom string

// String is a double-quoted Erlang string (a charlist)
type String string

// Binary is a binary written as <<"...">>. Only string-literal segments are supported.
type Binary string

// Number is an integer or float kept in its source notation, e.g. 42, -1.5e3, 16#ff or $a
type Number string

// Tuple is a fixed-size term {A, B, ...}
type Tuple []Term

// List is a proper list [A, B, ...]
type List []Term

// Map is an Erlang map #{K => V}. Pairs keep their source order.
type Map []MapPair

// MapPair is a single association of a Map
type MapPair struct {
	Key   Term
	Value Term
}

func (Atom) isTerm()   {}
func (String) isTerm() {}
func (Binary) isTerm() {}
func (Number) isTerm() {}
func (Tuple) isTerm()  {}
func (List) isTerm()   {}
func (Map) isTerm()    {}

// Key returns the first element of a tuple if it is an atom. This is the key
// lists:keyfind/3 and friends look at when called with position 1.
func Key(t Term) (Atom, bool) {
	tpl, ok := t.(Tuple)
	if !ok || len(tpl) == 0 {
		return "", false
	}
	a, ok := tpl[0].(Atom)
	return a, ok
}

// KeyFind returns the index of the first tuple in terms keyed by key, or -1.
func KeyFind(terms []Term, key Atom) int {
	for i, t := range terms {
		if k, ok := Key(t); ok && k == key {
			return i
		}
	}
	return -1
}

// KeyStore replaces the first tuple keyed by key with repl, or appends repl if there is none.
// The input slice is not modified.
func KeyStore(terms []Term, key Atom, repl Term) []Term {
	res := make([]Term, len(terms), len(terms)+1)
	copy(res, terms)
	if idx := KeyFind(res, key); idx >= 0 {
		res[idx] = repl
		return res
	}
	return append(res, repl)
}

// KeyDeleteAll removes every tuple keyed by key. The input slice is not modified.
func KeyDeleteAll(terms []Term, key Atom) []Term {
	res := make([]Term, 0, len(terms))
	for _, t := range terms {
		if k, ok := Key(t); ok && k == key {
			continue
		}
		res = append(res, t)
	}
	return res
}
