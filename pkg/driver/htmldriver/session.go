// Package htmldriver implements driver.Session over static HTML documents.
//
// Documents are parsed with golang.org/x/net/html and queried with goquery,
// so only CSS locators are supported; XPath locators fail as invalid
// selectors. There is no layout engine and no JavaScript: element rects are
// zero, screenshots are the serialized markup, and behaviour on click or
// submit comes from handlers registered with On.
//
// Every call to Mutate or Get starts a new document generation. Elements found
// in an earlier generation report driver.ErrStaleElement, the way a
// re-rendered page invalidates references. Handlers that edit nodes in place
// keep existing references valid; a handler may call Mutate to re-render.
package htmldriver

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/entrhq/steady/pkg/driver"
	"github.com/entrhq/steady/pkg/locator"
	"golang.org/x/net/html"
)

// Event names accepted by On.
const (
	EventClick  = "click"
	EventSubmit = "submit"
)

// Handler mutates the document in response to an event on sel. Handlers run
// after the session lock is released: edits through doc keep references
// valid, while calling Session.Mutate simulates a re-render.
type Handler func(doc *goquery.Document, sel *goquery.Selection)

// ScriptFunc stands in for script execution.
type ScriptFunc func(doc *goquery.Document, args ...any) (any, error)

type handler struct {
	event    string
	selector string
	fn       Handler
}

// Session is an in-memory browser over one HTML document at a time.
type Session struct {
	mu       sync.Mutex
	pages    map[string]string
	doc      *goquery.Document
	frame    *goquery.Document
	url      string
	gen      int
	handlers []handler
	scripts  map[string]ScriptFunc
	caps     driver.Capabilities
	closed   bool
}

// New returns a session showing markup at "about:blank".
func New(markup string) (*Session, error) {
	s := &Session{
		pages:   make(map[string]string),
		scripts: make(map[string]ScriptFunc),
		caps:    driver.Capabilities{"browserName": "htmldriver"},
	}
	if err := s.load("about:blank", markup); err != nil {
		return nil, err
	}
	return s, nil
}

// Factory returns a driver.Factory whose sessions serve pages keyed by URL.
func Factory(pages map[string]string) driver.Factory {
	return func(opts driver.Options) (driver.Session, error) {
		s, err := New("")
		if err != nil {
			return nil, err
		}
		for url, markup := range pages {
			s.AddPage(url, markup)
		}
		for k, v := range opts.Capabilities {
			s.caps[k] = v
		}
		if opts.Browser != "" {
			s.caps["alias"] = opts.Browser
		}
		return s, nil
	}
}

// AddPage registers markup served by Get(url).
func (s *Session) AddPage(url, markup string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[url] = markup
}

// On registers fn to run when event fires on an element matching selector.
func (s *Session) On(event, selector string, fn Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, handler{event: event, selector: selector, fn: fn})
}

// Script registers the result of ExecuteScript(src).
func (s *Session) Script(src string, fn ScriptFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[src] = fn
}

// Mutate changes the current document and invalidates existing elements.
func (s *Session) Mutate(fn func(doc *goquery.Document)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.doc)
	s.gen++
}

// Generation returns the current document generation.
func (s *Session) Generation() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

func (s *Session) load(url, markup string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return driver.NewError(driver.KindUnknown, "get", fmt.Errorf("parse %s: %w", url, err))
	}
	s.doc = doc
	s.frame = nil
	s.url = url
	s.gen++
	return nil
}

func (s *Session) checkOpen(op string) error {
	if s.closed {
		return driver.Errorf(driver.KindUnknown, op, "session is closed")
	}
	return nil
}

// root returns the document lookups run against. Callers hold s.mu.
func (s *Session) root() *goquery.Document {
	if s.frame != nil {
		return s.frame
	}
	return s.doc
}

// Get loads a registered page or a file:// URL.
func (s *Session) Get(url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen("get"); err != nil {
		return err
	}

	if markup, ok := s.pages[url]; ok {
		return s.load(url, markup)
	}
	if path, ok := strings.CutPrefix(url, "file://"); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return driver.NewError(driver.KindUnknown, "get", err)
		}
		return s.load(url, string(data))
	}
	return driver.Errorf(driver.KindUnknown, "get", "no page registered for %s", url)
}

// CurrentURL returns the URL of the loaded page.
func (s *Session) CurrentURL() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen("current url"); err != nil {
		return "", err
	}
	return s.url, nil
}

// FindElement returns the first match in the current document.
func (s *Session) FindElement(loc locator.Locator) (driver.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen("find element"); err != nil {
		return nil, err
	}
	return s.findFirst(s.root().Selection, loc)
}

// FindElements returns every match in the current document.
func (s *Session) FindElements(loc locator.Locator) ([]driver.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen("find elements"); err != nil {
		return nil, err
	}
	return s.findAll(s.root().Selection, loc)
}

// ExecuteScript runs the function registered for script.
func (s *Session) ExecuteScript(script string, args ...any) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen("execute script"); err != nil {
		return nil, err
	}
	fn, ok := s.scripts[script]
	if !ok {
		return nil, driver.Errorf(driver.KindUnknown, "execute script", "no script registered for %q", script)
	}
	return fn(s.doc, args...)
}

// SwitchTo returns the frame switcher.
func (s *Session) SwitchTo() driver.TargetLocator {
	return targetLocator{s: s}
}

// Capabilities returns the capabilities the session was created with.
func (s *Session) Capabilities() (driver.Capabilities, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.caps.Clone(), nil
}

// TakeScreenshot returns the serialized current document.
func (s *Session) TakeScreenshot() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen("screenshot"); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	for _, n := range s.root().Nodes {
		if err := html.Render(&buf, n); err != nil {
			return nil, driver.NewError(driver.KindUnknown, "screenshot", err)
		}
	}
	return buf.Bytes(), nil
}

// MaximizeWindow does nothing; there is no window.
func (s *Session) MaximizeWindow() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkOpen("maximize")
}

// Quit closes the session. Later calls fail.
func (s *Session) Quit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type targetLocator struct {
	s *Session
}

// Frame switches to an iframe's srcdoc document.
func (t targetLocator) Frame(nameOrID string) error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	sel := s.doc.Find("iframe, frame").FilterFunction(func(_ int, f *goquery.Selection) bool {
		name, _ := f.Attr("name")
		id, _ := f.Attr("id")
		return name == nameOrID || id == nameOrID
	}).First()
	if sel.Length() == 0 {
		return driver.Errorf(driver.KindNoSuchElement, "switch to frame", "no frame %q", nameOrID)
	}
	srcdoc, _ := sel.Attr("srcdoc")
	frame, err := goquery.NewDocumentFromReader(strings.NewReader(srcdoc))
	if err != nil {
		return driver.NewError(driver.KindUnknown, "switch to frame", err)
	}
	s.frame = frame
	s.gen++
	return nil
}

// DefaultContent switches back to the top-level document.
func (t targetLocator) DefaultContent() error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frame != nil {
		s.frame = nil
		s.gen++
	}
	return nil
}
