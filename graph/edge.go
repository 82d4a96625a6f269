package graph

// Edge is a transition between two nodes. A nil Predicate always passes.
type Edge struct {
	From      string
	To        string
	Predicate Predicate
}

// Predicate decides whether an edge may be taken from the given state.
type Predicate func(state State) bool

func Always() Predicate {
	return func(State) bool { return true }
}

func KeyExists(key string) Predicate {
	return func(state State) bool {
		_, exists := state.Get(key)
		return exists
	}
}

func KeyEquals(key string, value any) Predicate {
	return func(state State) bool {
		val, exists := state.Get(key)
		return exists && val == value
	}
}

// Goto routes on the conventional "next" key that supervisor-style nodes
// set to name their successor.
func Goto(node string) Predicate {
	return KeyEquals(NextKey, node)
}

func Not(p Predicate) Predicate {
	return func(state State) bool { return !p(state) }
}

func And(predicates ...Predicate) Predicate {
	return func(state State) bool {
		for _, p := range predicates {
			if !p(state) {
				return false
			}
		}
		return true
	}
}

func Or(predicates ...Predicate) Predicate {
	return func(state State) bool {
		for _, p := range predicates {
			if p(state) {
				return true
			}
		}
		return false
	}
}
