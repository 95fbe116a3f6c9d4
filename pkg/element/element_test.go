package element

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/entrhq/steady/pkg/driver"
	"github.com/entrhq/steady/pkg/driver/htmldriver"
	"github.com/entrhq/steady/pkg/locator"
	"github.com/entrhq/steady/pkg/logging"
	"github.com/entrhq/steady/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<html><body>
<form id="signup">
  <input id="email" name="email" value="">
  <input id="terms" type="checkbox">
  <button id="send" disabled>Send</button>
</form>
<ul class="fruits"><li>Zebra</li><li>Apple</li><li>Mango</li></ul>
<div id="panel"><span class="title">Panel</span><input id="toggle" type="button" value=""></div>
<p id="hidden" style="display:none">hidden</p>
</body></html>`

// testRoot serves one htmldriver session and counts lookups. onDriver runs
// before the n-th lookup returns.
type testRoot struct {
	sess     *htmldriver.Session
	err      error
	calls    int
	onDriver func(n int, s *htmldriver.Session)
}

func (r *testRoot) Driver() (driver.Session, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	if r.onDriver != nil {
		r.onDriver(r.calls, r.sess)
	}
	return r.sess, nil
}

func (r *testRoot) Logger() *logging.Logger { return logging.Discard("element-test") }

func (r *testRoot) RetryOptions() []retry.Option {
	return []retry.Option{retry.WithTimeout(time.Second), retry.WithInterval(5 * time.Millisecond)}
}

func newRoot(t *testing.T) *testRoot {
	t.Helper()
	s, err := htmldriver.New(page)
	require.NoError(t, err)
	return &testRoot{sess: s}
}

func css(root Root, sel string) *Element {
	return New(root, locator.NewChain(locator.ByCSS(sel)))
}

func TestChainDerivationDoesNotMutateParent(t *testing.T) {
	root := newRoot(t)
	parent := css(root, "#panel")

	child := parent.CSS(".title")
	other := parent.XPath("//span")

	assert.Equal(t, 1, parent.Chain().Len())
	assert.Equal(t, "css=#panel > css=.title", child.String())
	assert.Equal(t, "css=#panel > xpath=//span", other.String())

	direct := New(root, locator.NewChain(locator.ByCSS("#panel"), locator.ByCSS(".title"), locator.ByCSS("b")))
	assert.True(t, parent.CSS(".title").CSS("b").Chain().Equal(direct.Chain()))
}

func TestElementAcceptsLocatorOrHandle(t *testing.T) {
	root := newRoot(t)
	panel := css(root, "#panel")
	title := css(root, "ul").CSS(".title")

	fromHandle := panel.Element(title)
	fromLocator := panel.Element(locator.ByCSS(".title"))

	assert.True(t, fromHandle.Chain().Equal(fromLocator.Chain()))
	assert.Equal(t, locator.ByCSS(".title"), fromHandle.Locator())
}

func TestClickWaitsUntilEnabled(t *testing.T) {
	root := newRoot(t)
	clicks := 0
	root.sess.On(htmldriver.EventClick, "#send", func(*goquery.Document, *goquery.Selection) { clicks++ })
	root.onDriver = func(n int, s *htmldriver.Session) {
		if n == 4 {
			s.Mutate(func(doc *goquery.Document) { doc.Find("#send").RemoveAttr("disabled") })
		}
	}

	err := css(root, "#send").Click(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, clicks)
	assert.Equal(t, 4, root.calls)
}

func TestClickTimesOutWhileDisabled(t *testing.T) {
	root := newRoot(t)

	err := css(root, "#send").Click(context.Background(), retry.WithTimeout(50*time.Millisecond))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotEnabled)

	var re *retry.Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "locator chain: css=#send", re.Context)
	assert.Greater(t, re.Attempts, 1)
}

func TestSimpleClickActsOnce(t *testing.T) {
	root := newRoot(t)

	err := css(root, "#send").SimpleClick(context.Background())
	require.ErrorIs(t, err, driver.ErrNotInteractable)
	assert.Equal(t, 1, root.calls)

	var ce *locator.ChainError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "css=#send", ce.Chain.String())
}

func TestClickTillAttributeEqual(t *testing.T) {
	root := newRoot(t)
	clicks := 0
	root.sess.On(htmldriver.EventClick, "#toggle", func(_ *goquery.Document, sel *goquery.Selection) {
		clicks++
		sel.SetAttr("value", "done")
	})

	err := css(root, "#toggle").ClickTillAttributeEqual(context.Background(), "value", "done")
	require.NoError(t, err)
	assert.Equal(t, 1, clicks)
	assert.Equal(t, 1, root.calls)
}

func TestClickTillAttributeEqualMatchesSubstring(t *testing.T) {
	root := newRoot(t)
	root.sess.On(htmldriver.EventClick, "#toggle", func(_ *goquery.Document, sel *goquery.Selection) {
		sel.SetAttr("value", sel.AttrOr("value", "")+"x")
	})

	err := css(root, "#toggle").ClickTillAttributeEqual(context.Background(), "value", "xxx")
	require.NoError(t, err)
	assert.Equal(t, 3, root.calls)
}

func TestClickTillElementPresent(t *testing.T) {
	root := newRoot(t)
	clicks := 0
	root.sess.On(htmldriver.EventClick, "#toggle", func(doc *goquery.Document, _ *goquery.Selection) {
		clicks++
		if clicks == 2 {
			doc.Find("#panel").AppendHtml(`<div id="menu">menu</div>`)
		}
	})

	err := css(root, "#toggle").ClickTillElementPresent(context.Background(), css(root, "#menu"))
	require.NoError(t, err)
	assert.Equal(t, 2, clicks)
}

func TestClickSendKeys(t *testing.T) {
	root := newRoot(t)
	email := css(root, "#email")

	require.NoError(t, email.ClickSendKeys(context.Background(), "me@example.com"))
	require.NoError(t, email.ExpectInputValueToBe(context.Background(), "me@example.com"))

	require.NoError(t, email.Clear(context.Background()))
	require.NoError(t, email.SendKeys(context.Background(), "x"))
	v, err := email.Attribute(context.Background(), "value")
	require.NoError(t, err)
	assert.Equal(t, "x", v)
}

func TestSingleShotReads(t *testing.T) {
	root := newRoot(t)
	title := css(root, "#panel").CSS(".title")

	txt, err := title.Text(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Panel", txt)

	size, err := title.Size(context.Background())
	require.NoError(t, err)
	assert.Equal(t, driver.Size{}, size)

	shot, err := title.TakeScreenshot(context.Background())
	require.NoError(t, err)
	assert.Contains(t, string(shot), "Panel")

	selected, err := css(root, "#terms").IsSelected(context.Background())
	require.NoError(t, err)
	assert.False(t, selected)
}

func TestResolveFailureCarriesPartialChain(t *testing.T) {
	root := newRoot(t)
	missing := css(root, "#panel").CSS("#nope").CSS("b")

	_, err := missing.Text(context.Background(), retry.WithTimeout(20*time.Millisecond))
	require.Error(t, err)
	assert.ErrorIs(t, err, driver.ErrNoSuchElement)

	var ce *locator.ChainError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "css=#panel > css=#nope", ce.Chain.String())

	var re *retry.Error
	require.ErrorAs(t, err, &re)
	assert.Empty(t, re.Context)
}

func TestInvalidSelectorIsNotRetried(t *testing.T) {
	root := newRoot(t)

	err := css(root, "div[").Click(context.Background())
	require.ErrorIs(t, err, driver.ErrInvalidSelector)
	assert.Equal(t, 1, root.calls)
}

func TestSessionFailureIsNotRetried(t *testing.T) {
	root := newRoot(t)
	root.err = errors.New("no browser")

	err := css(root, "#send").Click(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no browser")
	assert.Equal(t, 1, root.calls)
}

func TestWaitForVisible(t *testing.T) {
	root := newRoot(t)
	root.onDriver = func(n int, s *htmldriver.Session) {
		if n == 3 {
			s.Mutate(func(doc *goquery.Document) { doc.Find("#hidden").RemoveAttr("style") })
		}
	}

	require.NoError(t, css(root, "#hidden").WaitForVisible(context.Background()))
	assert.Equal(t, 3, root.calls)
}

func TestWaitForNotPresent(t *testing.T) {
	root := newRoot(t)
	root.onDriver = func(n int, s *htmldriver.Session) {
		if n == 2 {
			s.Mutate(func(doc *goquery.Document) { doc.Find("#panel").Remove() })
		}
	}

	require.NoError(t, css(root, "#panel").WaitForNotPresent(context.Background()))
	assert.Equal(t, 2, root.calls)

	err := css(root, "li").WaitForNotPresent(context.Background(), retry.WithTimeout(20*time.Millisecond))
	assert.ErrorIs(t, err, ErrStillPresent)

	root.calls = 0
	err = css(root, "li[").WaitForNotPresent(context.Background())
	assert.ErrorIs(t, err, driver.ErrInvalidSelector)
	assert.Equal(t, 1, root.calls)
}

func TestExpectToBePresentNeverResolves(t *testing.T) {
	root := newRoot(t)

	start := time.Now()
	err := css(root, "#never").ExpectToBePresent(context.Background(),
		retry.WithTimeout(250*time.Millisecond), retry.WithMessage("x"))
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Expected element to be present")
	assert.Contains(t, err.Error(), ": x")
	assert.GreaterOrEqual(t, elapsed, 250*time.Millisecond)
	assert.Less(t, elapsed, 600*time.Millisecond)

	var ae *retry.AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, true, ae.Expected)
	assert.Equal(t, false, ae.Actual)
}

func TestExpectPresence(t *testing.T) {
	root := newRoot(t)

	tests := []struct {
		name    string
		run     func(*Element) error
		sel     string
		wantErr string
	}{
		{name: "present", sel: "#panel", run: func(e *Element) error { return e.ExpectToBePresent(context.Background()) }},
		{name: "not present", sel: "#nope", run: func(e *Element) error { return e.ExpectToBeNotPresent(context.Background()) }},
		{name: "still present", sel: "#panel", wantErr: "Expected element to be not present", run: func(e *Element) error {
			return e.ExpectToBeNotPresent(context.Background(), retry.WithTimeout(20*time.Millisecond))
		}},
		{name: "invalid selector", sel: "#[", wantErr: "invalid selector", run: func(e *Element) error {
			return e.ExpectToBePresent(context.Background())
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run(css(root, tt.sel))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// staleSession reports every lookup as a reference that left the document.
type staleSession struct {
	*htmldriver.Session
}

func (staleSession) FindElement(locator.Locator) (driver.Element, error) {
	return nil, driver.NewError(driver.KindStaleElement, "find element", nil)
}

type staleRoot struct {
	testRoot
}

func (r *staleRoot) Driver() (driver.Session, error) {
	r.calls++
	return staleSession{r.sess}, nil
}

func TestStaleCountsAsAbsent(t *testing.T) {
	short := retry.WithTimeout(20 * time.Millisecond)

	tests := []struct {
		name    string
		run     func(*Element) error
		wantErr string
	}{
		{name: "wait for not present", run: func(e *Element) error { return e.WaitForNotPresent(context.Background()) }},
		{name: "expect not present", run: func(e *Element) error { return e.ExpectToBeNotPresent(context.Background()) }},
		{name: "expect not displayed", run: func(e *Element) error { return e.ExpectToBeNotDisplayed(context.Background()) }},
		{name: "expect present", wantErr: "Expected element to be present", run: func(e *Element) error {
			return e.ExpectToBePresent(context.Background(), short)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := &staleRoot{testRoot: *newRoot(t)}
			err := tt.run(css(root, "#panel"))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				assert.Equal(t, 1, root.calls)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Greater(t, root.calls, 1)
		})
	}
}

func TestExpectStateChecks(t *testing.T) {
	root := newRoot(t)
	short := retry.WithTimeout(20 * time.Millisecond)

	assert.NoError(t, css(root, "#terms").ExpectToBeUnSelected(context.Background()))
	assert.Error(t, css(root, "#terms").ExpectToBeSelected(context.Background(), short))

	require.NoError(t, css(root, "#terms").Click(context.Background()))
	assert.NoError(t, css(root, "#terms").ExpectToBeSelected(context.Background()))

	assert.NoError(t, css(root, "#hidden").ExpectToBeNotDisplayed(context.Background()))
	assert.NoError(t, css(root, "#gone").ExpectToBeNotDisplayed(context.Background()))
	assert.NoError(t, css(root, "#panel").ExpectToBeDisplayed(context.Background()))

	assert.NoError(t, css(root, "#email").ExpectToBeEnabled(context.Background()))
	assert.Error(t, css(root, "#send").ExpectToBeEnabled(context.Background(), short))
}

func TestExpectTextToBe(t *testing.T) {
	root := newRoot(t)
	title := css(root, "#panel").CSS(".title")
	root.onDriver = func(n int, s *htmldriver.Session) {
		if n == 3 {
			s.Mutate(func(doc *goquery.Document) { doc.Find(".title").SetText("Ready") })
		}
	}

	require.NoError(t, title.ExpectTextToBe(context.Background(), "Ready"))

	err := title.ExpectTextToBe(context.Background(), "Other", retry.WithTimeout(20*time.Millisecond))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `expected: "Other"`)
	assert.Contains(t, err.Error(), "locator chain: css=#panel > css=.title")
}

func TestAll(t *testing.T) {
	root := newRoot(t)

	items, err := css(root, "ul.fruits").All(context.Background(), locator.ByCSS("li"))
	require.NoError(t, err)
	assert.Len(t, items, 3)

	items, err = css(root, "ul.fruits").All(context.Background(), css(root, "#panel").CSS("span"))
	require.NoError(t, err)
	assert.Empty(t, items)
}
