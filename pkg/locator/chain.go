package locator

import (
	"fmt"
	"strings"
)

// Chain is a non-empty, ordered sequence of locators. Each locator is looked
// up inside the element found by the previous one.
//
// Chains are persistent: Append copies, so a derived chain never shares
// storage with the chain it came from.
type Chain struct {
	locs []Locator
}

// NewChain builds a chain from at least one locator.
func NewChain(first Locator, rest ...Locator) Chain {
	locs := make([]Locator, 0, 1+len(rest))
	locs = append(locs, first)
	locs = append(locs, rest...)
	return Chain{locs: locs}
}

// Append returns a new chain with l added after the receiver's locators.
func (c Chain) Append(l Locator) Chain {
	locs := make([]Locator, len(c.locs)+1)
	copy(locs, c.locs)
	locs[len(c.locs)] = l
	return Chain{locs: locs}
}

// Len returns the number of locators.
func (c Chain) Len() int { return len(c.locs) }

// IsZero reports whether the chain was never built.
func (c Chain) IsZero() bool { return len(c.locs) == 0 }

// At returns the i-th locator.
func (c Chain) At(i int) Locator { return c.locs[i] }

// Last returns the chain's own locator, the one used when another chain is
// rebased onto it.
func (c Chain) Last() Locator {
	if len(c.locs) == 0 {
		return Locator{}
	}
	return c.locs[len(c.locs)-1]
}

// Prefix returns the chain of the first n locators.
func (c Chain) Prefix(n int) Chain {
	if n > len(c.locs) {
		n = len(c.locs)
	}
	locs := make([]Locator, n)
	copy(locs, c.locs[:n])
	return Chain{locs: locs}
}

// Locators returns a copy of the locators.
func (c Chain) Locators() []Locator {
	out := make([]Locator, len(c.locs))
	copy(out, c.locs)
	return out
}

// Equal reports whether both chains hold the same locators in order.
func (c Chain) Equal(other Chain) bool {
	if len(c.locs) != len(other.locs) {
		return false
	}
	for i := range c.locs {
		if c.locs[i] != other.locs[i] {
			return false
		}
	}
	return true
}

func (c Chain) String() string {
	parts := make([]string, len(c.locs))
	for i, l := range c.locs {
		parts[i] = l.String()
	}
	return strings.Join(parts, " > ")
}

// ChainError attaches a locator chain to a failure. When resolution fails,
// Chain holds the locators consumed up to and including the failing one;
// when an action fails, it is the element's whole chain.
type ChainError struct {
	Chain Chain
	Err   error
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("%v (locator chain: %s)", e.Err, e.Chain)
}

func (e *ChainError) Unwrap() error { return e.Err }

// Annotated marks the error as already carrying its locator context.
func (e *ChainError) Annotated() bool { return true }
