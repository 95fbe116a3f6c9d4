// Package pwdriver implements driver.Session on top of playwright-go.
//
// A session either launches a local browser or, when a hub URL is configured,
// connects to a remote Playwright server. Element handles are used rather than
// Playwright locators: a handle is a reference into the current document, so
// it can go stale, and lookups do not auto-wait. Waiting is left to the retry
// engine above this package.
package pwdriver

import (
	"fmt"
	"io"
	"sync"

	"github.com/entrhq/steady/pkg/driver"
	"github.com/entrhq/steady/pkg/locator"
	"github.com/playwright-community/playwright-go"
)

// DefaultActionTimeout bounds a single Playwright action, in milliseconds.
// Actions should fail fast and be retried rather than wait inside Playwright.
const DefaultActionTimeout = 2000.0

// Capability keys understood by New.
const (
	CapBrowserName   = "browserName"
	CapChannel       = "channel"
	CapHeadless      = "headless"
	CapArgs          = "args"
	CapActionTimeout = "actionTimeout"
	CapInstall       = "install"
)

// Session is a playwright-backed driver.Session.
type Session struct {
	mu      sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
	frame   playwright.Frame
	caps    driver.Capabilities
	closed  bool
}

// Factory is a driver.Factory creating playwright sessions.
func Factory(opts driver.Options) (driver.Session, error) {
	return New(opts)
}

// New starts Playwright and opens one page according to opts.
func New(opts driver.Options) (*Session, error) {
	caps := opts.Capabilities.Clone()
	if caps == nil {
		caps = driver.Capabilities{}
	}

	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if install, _ := caps.Bool(CapInstall); install {
		if err := playwright.Install(runOpts); err != nil {
			return nil, fmt.Errorf("failed to install playwright: %w", err)
		}
	}
	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	bt, err := browserType(pw, caps.String(CapBrowserName))
	if err != nil {
		_ = pw.Stop()
		return nil, err
	}

	var proxy *playwright.Proxy
	if opts.Proxy != "" {
		proxy = &playwright.Proxy{Server: opts.Proxy}
	}

	var browser playwright.Browser
	if opts.HubURL != "" {
		browser, err = bt.Connect(opts.HubURL)
		if err != nil {
			_ = pw.Stop()
			return nil, fmt.Errorf("failed to connect to hub %s: %w", opts.HubURL, err)
		}
	} else {
		launchOpts := playwright.BrowserTypeLaunchOptions{
			Proxy: proxy,
			Args:  stringSlice(caps[CapArgs]),
		}
		if headless, ok := caps.Bool(CapHeadless); ok {
			launchOpts.Headless = &headless
		}
		if channel := caps.String(CapChannel); channel != "" {
			launchOpts.Channel = &channel
		}
		browser, err = bt.Launch(launchOpts)
		if err != nil {
			_ = pw.Stop()
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
	}

	contextOpts := playwright.BrowserNewContextOptions{}
	if opts.HubURL != "" && proxy != nil {
		contextOpts.Proxy = proxy
	}
	bctx, err := browser.NewContext(contextOpts)
	if err != nil {
		_ = browser.Close() // Ignore errors, continue cleanup
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()    // Ignore errors, continue cleanup
		_ = browser.Close() // Ignore errors, continue cleanup
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(actionTimeout(caps))

	caps[CapBrowserName] = browser.BrowserType().Name()
	caps["browserVersion"] = browser.Version()
	caps["alias"] = opts.Browser

	return &Session{
		pw:      pw,
		browser: browser,
		context: bctx,
		page:    page,
		frame:   page.MainFrame(),
		caps:    caps,
	}, nil
}

func browserType(pw *playwright.Playwright, name string) (playwright.BrowserType, error) {
	switch name {
	case "", "chromium", "chrome":
		return pw.Chromium, nil
	case "firefox":
		return pw.Firefox, nil
	case "webkit", "safari":
		return pw.WebKit, nil
	default:
		return nil, fmt.Errorf("unsupported browser %q", name)
	}
}

func actionTimeout(caps driver.Capabilities) float64 {
	switch v := caps[CapActionTimeout].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return DefaultActionTimeout
	}
}

func stringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// selector renders a locator in Playwright's selector syntax.
func selector(loc locator.Locator) string {
	return loc.String()
}

func (s *Session) currentFrame() (playwright.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, driver.Errorf(driver.KindUnknown, "session", "session is closed")
	}
	return s.frame, nil
}

// FindElement returns the first match in the current frame.
func (s *Session) FindElement(loc locator.Locator) (driver.Element, error) {
	frame, err := s.currentFrame()
	if err != nil {
		return nil, err
	}
	h, err := frame.QuerySelector(selector(loc))
	if err != nil {
		return nil, classify("find element", err)
	}
	if h == nil {
		return nil, driver.Errorf(driver.KindNoSuchElement, "find element", "%s", loc)
	}
	return &element{h: h}, nil
}

// FindElements returns every match in the current frame.
func (s *Session) FindElements(loc locator.Locator) ([]driver.Element, error) {
	frame, err := s.currentFrame()
	if err != nil {
		return nil, err
	}
	hs, err := frame.QuerySelectorAll(selector(loc))
	if err != nil {
		return nil, classify("find elements", err)
	}
	return wrapAll(hs), nil
}

// Get navigates the page and resets the frame to the main frame.
func (s *Session) Get(url string) error {
	if _, err := s.currentFrame(); err != nil {
		return err
	}
	if _, err := s.page.Goto(url); err != nil {
		return classify("get", err)
	}
	s.mu.Lock()
	s.frame = s.page.MainFrame()
	s.mu.Unlock()
	return nil
}

// CurrentURL returns the page URL.
func (s *Session) CurrentURL() (string, error) {
	if _, err := s.currentFrame(); err != nil {
		return "", err
	}
	return s.page.URL(), nil
}

// ExecuteScript evaluates script in the current frame. The page function
// receives one argument: a lone arg as is, several args as one array.
func (s *Session) ExecuteScript(script string, args ...any) (any, error) {
	frame, err := s.currentFrame()
	if err != nil {
		return nil, err
	}
	v, err := frame.Evaluate(script, scriptArgs(args)...)
	if err != nil {
		return nil, classify("execute script", err)
	}
	return v, nil
}

// scriptArgs shapes args for Evaluate, which forwards at most one value.
func scriptArgs(args []any) []any {
	switch len(args) {
	case 0:
		return nil
	case 1:
		return args
	default:
		return []any{args}
	}
}

// SwitchTo returns the frame switcher.
func (s *Session) SwitchTo() driver.TargetLocator {
	return targetLocator{s: s}
}

// Capabilities returns what the session was created with, plus the browser
// name and version it reported.
func (s *Session) Capabilities() (driver.Capabilities, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.caps.Clone(), nil
}

// TakeScreenshot captures the viewport as PNG.
func (s *Session) TakeScreenshot() ([]byte, error) {
	if _, err := s.currentFrame(); err != nil {
		return nil, err
	}
	b, err := s.page.Screenshot()
	if err != nil {
		return nil, classify("screenshot", err)
	}
	return b, nil
}

// MaximizeWindow sizes the viewport to the available screen.
func (s *Session) MaximizeWindow() error {
	if _, err := s.currentFrame(); err != nil {
		return err
	}
	v, err := s.page.Evaluate(`() => [window.screen.availWidth, window.screen.availHeight]`)
	if err != nil {
		return classify("maximize", err)
	}
	dims, ok := v.([]any)
	if !ok || len(dims) != 2 {
		return driver.Errorf(driver.KindUnknown, "maximize", "unexpected screen size %v", v)
	}
	w, h := toInt(dims[0]), toInt(dims[1])
	if w <= 0 || h <= 0 {
		return nil
	}
	if err := s.page.SetViewportSize(w, h); err != nil {
		return classify("maximize", err)
	}
	return nil
}

// Quit closes the page, context and browser and stops Playwright. Safe to
// call more than once.
func (s *Session) Quit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	_ = s.page.Close()    // Ignore errors, continue cleanup
	_ = s.context.Close() // Ignore errors, continue cleanup
	_ = s.browser.Close() // Ignore errors, continue cleanup
	if err := s.pw.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}

func toInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}

type targetLocator struct {
	s *Session
}

// Frame switches to the child frame named nameOrID, falling back to an
// iframe element with that id.
func (t targetLocator) Frame(nameOrID string) error {
	s := t.s
	if _, err := s.currentFrame(); err != nil {
		return err
	}

	frame := s.page.Frame(playwright.PageFrameOptions{Name: &nameOrID})
	if frame == nil {
		h, err := s.page.MainFrame().QuerySelector(fmt.Sprintf("iframe[id=%q], frame[id=%q]", nameOrID, nameOrID))
		if err != nil {
			return classify("switch to frame", err)
		}
		if h == nil {
			return driver.Errorf(driver.KindNoSuchElement, "switch to frame", "no frame %q", nameOrID)
		}
		frame, err = h.ContentFrame()
		if err != nil {
			return classify("switch to frame", err)
		}
	}

	s.mu.Lock()
	s.frame = frame
	s.mu.Unlock()
	return nil
}

// DefaultContent switches back to the main frame.
func (t targetLocator) DefaultContent() error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame = s.page.MainFrame()
	return nil
}
