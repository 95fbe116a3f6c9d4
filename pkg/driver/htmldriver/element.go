package htmldriver

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/entrhq/steady/pkg/driver"
	"github.com/entrhq/steady/pkg/locator"
	"golang.org/x/net/html"
)

type element struct {
	s   *Session
	sel *goquery.Selection
	gen int
}

func compile(op string, loc locator.Locator) (cascadia.Selector, error) {
	if loc.Strategy != locator.CSS {
		return nil, driver.Errorf(driver.KindInvalidSelector, op, "%s locators are not supported", loc.Strategy)
	}
	m, err := cascadia.Compile(loc.Value)
	if err != nil {
		return nil, driver.NewError(driver.KindInvalidSelector, op, err)
	}
	return m, nil
}

// findFirst and findAll are called with s.mu held.
func (s *Session) findFirst(scope *goquery.Selection, loc locator.Locator) (driver.Element, error) {
	m, err := compile("find element", loc)
	if err != nil {
		return nil, err
	}
	found := scope.FindMatcher(m).First()
	if found.Length() == 0 {
		return nil, driver.Errorf(driver.KindNoSuchElement, "find element", "%s", loc)
	}
	return &element{s: s, sel: found, gen: s.gen}, nil
}

func (s *Session) findAll(scope *goquery.Selection, loc locator.Locator) ([]driver.Element, error) {
	m, err := compile("find elements", loc)
	if err != nil {
		return nil, err
	}
	found := scope.FindMatcher(m)
	out := make([]driver.Element, 0, found.Length())
	found.Each(func(_ int, sel *goquery.Selection) {
		out = append(out, &element{s: s, sel: sel, gen: s.gen})
	})
	return out, nil
}

// handlersFor binds the handlers registered for event on sel to the current
// document. Called with s.mu held; the result runs after it is released.
func (s *Session) handlersFor(event string, sel *goquery.Selection) func() {
	doc := s.root()
	var fns []Handler
	for _, h := range s.handlers {
		if h.event == event && sel.Is(h.selector) {
			fns = append(fns, h.fn)
		}
	}
	return func() {
		for _, fn := range fns {
			fn(doc, sel)
		}
	}
}

// lock acquires the session and checks the reference is still current.
func (e *element) lock(op string) error {
	e.s.mu.Lock()
	if err := e.s.checkOpen(op); err != nil {
		e.s.mu.Unlock()
		return err
	}
	if e.gen != e.s.gen {
		e.s.mu.Unlock()
		return driver.NewError(driver.KindStaleElement, op, nil)
	}
	return nil
}

func (e *element) unlock() { e.s.mu.Unlock() }

func (e *element) FindElement(loc locator.Locator) (driver.Element, error) {
	if err := e.lock("find element"); err != nil {
		return nil, err
	}
	defer e.unlock()
	return e.s.findFirst(e.sel, loc)
}

func (e *element) FindElements(loc locator.Locator) ([]driver.Element, error) {
	if err := e.lock("find elements"); err != nil {
		return nil, err
	}
	defer e.unlock()
	return e.s.findAll(e.sel, loc)
}

func (e *element) interactable(op string) error {
	if !isEnabled(e.sel) {
		return driver.Errorf(driver.KindNotInteractable, op, "element is disabled")
	}
	if !isDisplayed(e.sel) {
		return driver.Errorf(driver.KindNotInteractable, op, "element is not visible")
	}
	return nil
}

func (e *element) Click() error {
	if err := e.lock("click"); err != nil {
		return err
	}
	if err := e.interactable("click"); err != nil {
		e.unlock()
		return err
	}

	if goquery.NodeName(e.sel) == "input" {
		switch strings.ToLower(e.sel.AttrOr("type", "")) {
		case "checkbox":
			if _, checked := e.sel.Attr("checked"); checked {
				e.sel.RemoveAttr("checked")
			} else {
				e.sel.SetAttr("checked", "")
			}
		case "radio":
			if name := e.sel.AttrOr("name", ""); name != "" {
				e.s.root().Find(`input[type="radio"]`).FilterFunction(func(_ int, r *goquery.Selection) bool {
					return r.AttrOr("name", "") == name
				}).RemoveAttr("checked")
			}
			e.sel.SetAttr("checked", "")
		}
	}

	fire := e.s.handlersFor(EventClick, e.sel)
	e.unlock()
	fire()
	return nil
}

func (e *element) SendKeys(keys ...string) error {
	if err := e.lock("send keys"); err != nil {
		return err
	}
	defer e.unlock()
	if err := e.interactable("send keys"); err != nil {
		return err
	}
	e.sel.SetAttr("value", e.sel.AttrOr("value", "")+strings.Join(keys, ""))
	return nil
}

func (e *element) Clear() error {
	if err := e.lock("clear"); err != nil {
		return err
	}
	defer e.unlock()
	if err := e.interactable("clear"); err != nil {
		return err
	}
	e.sel.SetAttr("value", "")
	return nil
}

func (e *element) Submit() error {
	if err := e.lock("submit"); err != nil {
		return err
	}

	form := e.sel.Closest("form")
	if form.Length() == 0 {
		e.unlock()
		return driver.Errorf(driver.KindNotInteractable, "submit", "element is not in a form")
	}
	fire := e.s.handlersFor(EventSubmit, form)
	e.unlock()
	fire()
	return nil
}

func (e *element) Text() (string, error) {
	if err := e.lock("text"); err != nil {
		return "", err
	}
	defer e.unlock()
	if !isDisplayed(e.sel) {
		return "", nil
	}
	return strings.Join(strings.Fields(e.sel.Text()), " "), nil
}

func (e *element) Attribute(name string) (string, error) {
	if err := e.lock("attribute"); err != nil {
		return "", err
	}
	defer e.unlock()
	if v, ok := e.sel.Attr(name); ok {
		return v, nil
	}
	if name == "value" && goquery.NodeName(e.sel) == "textarea" {
		return e.sel.Text(), nil
	}
	return "", nil
}

// Rect is always zero: static documents have no layout.
func (e *element) Rect() (driver.Rect, error) {
	if err := e.lock("rect"); err != nil {
		return driver.Rect{}, err
	}
	defer e.unlock()
	return driver.Rect{}, nil
}

func (e *element) TakeScreenshot() ([]byte, error) {
	if err := e.lock("screenshot"); err != nil {
		return nil, err
	}
	defer e.unlock()
	var buf bytes.Buffer
	if err := html.Render(&buf, e.sel.Get(0)); err != nil {
		return nil, driver.NewError(driver.KindUnknown, "screenshot", err)
	}
	return buf.Bytes(), nil
}

func (e *element) IsDisplayed() (bool, error) {
	if err := e.lock("is displayed"); err != nil {
		return false, err
	}
	defer e.unlock()
	return isDisplayed(e.sel), nil
}

func (e *element) IsSelected() (bool, error) {
	if err := e.lock("is selected"); err != nil {
		return false, err
	}
	defer e.unlock()
	_, checked := e.sel.Attr("checked")
	_, selected := e.sel.Attr("selected")
	return checked || selected, nil
}

func (e *element) IsEnabled() (bool, error) {
	if err := e.lock("is enabled"); err != nil {
		return false, err
	}
	defer e.unlock()
	return isEnabled(e.sel), nil
}

func isEnabled(sel *goquery.Selection) bool {
	if _, disabled := sel.Attr("disabled"); disabled {
		return false
	}
	return sel.ParentsFiltered("fieldset[disabled]").Length() == 0
}

var invisibleTags = map[string]bool{
	"head":     true,
	"script":   true,
	"style":    true,
	"template": true,
	"title":    true,
}

func isDisplayed(sel *goquery.Selection) bool {
	if goquery.NodeName(sel) == "input" && strings.EqualFold(sel.AttrOr("type", ""), "hidden") {
		return false
	}
	for n := sel.Get(0); n != nil; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		if invisibleTags[n.Data] {
			return false
		}
		for _, a := range n.Attr {
			switch a.Key {
			case "hidden":
				return false
			case "style":
				style := strings.ReplaceAll(strings.ToLower(a.Val), " ", "")
				if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
					return false
				}
			}
		}
	}
	return true
}
