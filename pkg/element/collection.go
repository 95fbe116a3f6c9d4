package element

import (
	"context"
	"fmt"
	"sort"

	"github.com/entrhq/steady/pkg/driver"
	"github.com/entrhq/steady/pkg/locator"
	"github.com/entrhq/steady/pkg/retry"
)

// Collection is a lazily resolved handle on every element matching a
// locator, either below a parent element or from the document root.
type Collection struct {
	root   Root
	parent *Element
	loc    locator.Locator
}

// NewCollection returns a document-scoped collection.
func NewCollection(root Root, loc locator.Locator) *Collection {
	return &Collection{root: root, loc: loc}
}

// Chain returns the parent chain followed by the collection's locator.
func (c *Collection) Chain() locator.Chain {
	if c.parent == nil {
		return locator.NewChain(c.loc)
	}
	return c.parent.chain.Append(c.loc)
}

func (c *Collection) String() string { return c.Chain().String() }

// find resolves the scope and lists the matches once.
func (c *Collection) find() ([]driver.Element, error) {
	sess, err := c.root.Driver()
	if err != nil {
		return nil, retry.Fatal(fmt.Errorf("browser session unavailable: %w", err))
	}
	var scope driver.SearchContext = sess
	if c.parent != nil {
		el, err := resolveChain(c.parent.chain, sess)
		if err != nil {
			return nil, err
		}
		scope = el
	}
	found, err := scope.FindElements(c.loc)
	if err != nil {
		return nil, &locator.ChainError{Chain: c.Chain(), Err: err}
	}
	return found, nil
}

func (c *Collection) options(op string, opts []retry.Option) []retry.Option {
	return callOptions(c.root, op, c.String(), opts)
}

// FindElements lists the matches, retrying while the scope cannot be found.
func (c *Collection) FindElements(ctx context.Context, opts ...retry.Option) ([]driver.Element, error) {
	return retry.Do(ctx, func(context.Context) ([]driver.Element, error) {
		return c.find()
	}, c.options("find elements", opts)...)
}

// Count returns the number of matches without retrying.
func (c *Collection) Count(context.Context) (int, error) {
	found, err := c.find()
	return len(found), err
}

// SortedElementsTexts reads the text of every match once and sorts them.
// The result is never nil.
func (c *Collection) SortedElementsTexts(context.Context) ([]string, error) {
	found, err := c.find()
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(found))
	for _, el := range found {
		t, err := el.Text()
		if err != nil {
			return nil, &locator.ChainError{Chain: c.Chain(), Err: fmt.Errorf("text: %w", err)}
		}
		texts = append(texts, t)
	}
	sort.Strings(texts)
	return texts, nil
}

// RetrySortedElementsTexts is SortedElementsTexts retried until it succeeds.
func (c *Collection) RetrySortedElementsTexts(ctx context.Context, opts ...retry.Option) ([]string, error) {
	return retry.Do(ctx, c.SortedElementsTexts, c.options("sorted texts", opts)...)
}

// ExpectSortedListToEqual waits until the texts of the matches equal want,
// ignoring order on both sides.
func (c *Collection) ExpectSortedListToEqual(ctx context.Context, want []string, opts ...retry.Option) error {
	sorted := append([]string{}, want...)
	sort.Strings(sorted)
	return retry.Expect(ctx, c.SortedElementsTexts, sorted, c.options("expect sorted texts", opts)...)
}

// ExpectElementsCountToBe waits until exactly n elements match.
func (c *Collection) ExpectElementsCountToBe(ctx context.Context, n int, opts ...retry.Option) error {
	return retry.Expect(ctx, c.Count, n, c.options("expect count", opts)...)
}
