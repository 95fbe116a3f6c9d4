package pwdriver

import (
	"strings"

	"github.com/entrhq/steady/pkg/driver"
	"github.com/entrhq/steady/pkg/locator"
	"github.com/playwright-community/playwright-go"
)

type element struct {
	h playwright.ElementHandle
}

func wrapAll(hs []playwright.ElementHandle) []driver.Element {
	out := make([]driver.Element, len(hs))
	for i, h := range hs {
		out[i] = &element{h: h}
	}
	return out
}

func (e *element) FindElement(loc locator.Locator) (driver.Element, error) {
	h, err := e.h.QuerySelector(selector(loc))
	if err != nil {
		return nil, classify("find element", err)
	}
	if h == nil {
		return nil, driver.Errorf(driver.KindNoSuchElement, "find element", "%s", loc)
	}
	return &element{h: h}, nil
}

func (e *element) FindElements(loc locator.Locator) ([]driver.Element, error) {
	hs, err := e.h.QuerySelectorAll(selector(loc))
	if err != nil {
		return nil, classify("find elements", err)
	}
	return wrapAll(hs), nil
}

func (e *element) Click() error {
	return classify("click", e.h.Click())
}

func (e *element) SendKeys(keys ...string) error {
	return classify("send keys", e.h.Type(strings.Join(keys, "")))
}

func (e *element) Clear() error {
	return classify("clear", e.h.Fill(""))
}

const submitScript = `e => {
	const form = e.form || e.closest('form');
	if (!form) throw new Error('element is not in a form');
	if (form.requestSubmit) form.requestSubmit(); else form.submit();
}`

func (e *element) Submit() error {
	_, err := e.h.Evaluate(submitScript)
	return classify("submit", err)
}

func (e *element) Text() (string, error) {
	s, err := e.h.InnerText()
	if err != nil {
		return "", classify("text", err)
	}
	return strings.TrimSpace(s), nil
}

// Attribute reads the live value property for "value" so form input typed
// after page load is visible, and the markup attribute otherwise.
func (e *element) Attribute(name string) (string, error) {
	if name == "value" {
		if v, err := e.h.InputValue(); err == nil {
			return v, nil
		}
	}
	v, err := e.h.GetAttribute(name)
	if err != nil {
		return "", classify("attribute", err)
	}
	return v, nil
}

func (e *element) Rect() (driver.Rect, error) {
	box, err := e.h.BoundingBox()
	if err != nil {
		return driver.Rect{}, classify("rect", err)
	}
	if box == nil {
		return driver.Rect{}, nil
	}
	return driver.Rect{X: box.X, Y: box.Y, Width: box.Width, Height: box.Height}, nil
}

func (e *element) TakeScreenshot() ([]byte, error) {
	b, err := e.h.Screenshot()
	if err != nil {
		return nil, classify("screenshot", err)
	}
	return b, nil
}

func (e *element) IsDisplayed() (bool, error) {
	v, err := e.h.IsVisible()
	return v, classify("is displayed", err)
}

func (e *element) IsSelected() (bool, error) {
	v, err := e.h.Evaluate(`e => !!(e.checked || e.selected)`)
	if err != nil {
		return false, classify("is selected", err)
	}
	b, _ := v.(bool)
	return b, nil
}

func (e *element) IsEnabled() (bool, error) {
	v, err := e.h.IsEnabled()
	return v, classify("is enabled", err)
}
