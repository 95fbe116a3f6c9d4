// Package browser owns the one live driver session a test run talks to and
// hands out element handles bound to it.
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/steady/pkg/config"
	"github.com/entrhq/steady/pkg/driver"
	"github.com/entrhq/steady/pkg/driver/htmldriver"
	"github.com/entrhq/steady/pkg/driver/pwdriver"
	"github.com/entrhq/steady/pkg/element"
	"github.com/entrhq/steady/pkg/logging"
	"github.com/entrhq/steady/pkg/retry"
	"github.com/gobwas/glob"
)

// State is the lifecycle stage of a Session.
type State int

const (
	// StateUninitialized means no driver has been created yet.
	StateUninitialized State = iota
	// StateActive means a driver is live.
	StateActive
	// StateClosed means Quit ran; the session cannot be reused.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var (
	// ErrClosed is returned by every operation after Quit.
	ErrClosed = errors.New("browser session is closed")

	// ErrConditionFalse is the retried failure of Wait.
	ErrConditionFalse = errors.New("condition not met")

	// ErrURLMismatch is the retried failure of ExpectURLToMatch.
	ErrURLMismatch = errors.New("url does not match")
)

// Session lazily creates exactly one driver session from settings and tears
// it down on Quit. The lifecycle is uninitialized, active, closed; a closed
// Session is never reopened.
//
// The mutex only guards the lifecycle. Driver calls are not serialized: one
// test drives one session from one goroutine.
type Session struct {
	mu        sync.Mutex
	settings  *config.Settings
	factory   driver.Factory
	logger    *logging.Logger
	state     State
	drv       driver.Session
	caps      driver.Capabilities
	createdAt time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithFactory replaces DefaultFactory.
func WithFactory(f driver.Factory) Option {
	return func(s *Session) { s.factory = f }
}

// WithLogger replaces the session-file logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// New returns an uninitialized Session for the primary browser of settings.
// Nothing is started until the first operation needs the driver.
func New(settings *config.Settings, opts ...Option) *Session {
	s := &Session{settings: settings, factory: DefaultFactory}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		// NewLogger falls back to stderr on error
		s.logger, _ = logging.NewLogger("browser")
	}
	return s
}

// DefaultFactory picks the driver from the capability payload: the static
// document driver for browserName "htmldriver", Playwright otherwise.
func DefaultFactory(opts driver.Options) (driver.Session, error) {
	if opts.Capabilities.String(pwdriver.CapBrowserName) == "htmldriver" {
		return htmldriver.Factory(nil)(opts)
	}
	return pwdriver.Factory(opts)
}

// Driver returns the live driver session, creating it and maximizing its
// window on first use.
func (s *Session) Driver() (driver.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateActive:
		return s.drv, nil
	case StateClosed:
		return nil, ErrClosed
	}

	alias := s.settings.Browser()
	opts, err := s.settings.DriverOptions(alias)
	if err != nil {
		return nil, err
	}

	s.logger.Infof("starting %s session (hub=%q, proxy=%q)", alias, opts.HubURL, opts.Proxy)
	drv, err := s.factory(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to start %s session: %w", alias, err)
	}
	if err := drv.MaximizeWindow(); err != nil {
		_ = drv.Quit() // Ignore errors, the maximize failure is reported
		return nil, fmt.Errorf("failed to maximize window: %w", err)
	}

	s.drv = drv
	s.state = StateActive
	s.createdAt = time.Now()
	return drv, nil
}

// Logger returns the session's logger.
func (s *Session) Logger() *logging.Logger { return s.logger }

// RetryOptions applies the configured default timeout, if any.
func (s *Session) RetryOptions() []retry.Option {
	if s.settings.Timeout > 0 {
		return []retry.Option{retry.WithTimeout(s.settings.Timeout)}
	}
	return nil
}

// Settings returns the settings the session was created with.
func (s *Session) Settings() *config.Settings { return s.settings }

// State returns the lifecycle stage.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CreatedAt returns when the driver session was started, or the zero time.
func (s *Session) CreatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createdAt
}

// Get navigates to url.
func (s *Session) Get(url string) error {
	drv, err := s.Driver()
	if err != nil {
		return err
	}
	if err := drv.Get(url); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

// CurrentURL returns the URL of the current page.
func (s *Session) CurrentURL() (string, error) {
	drv, err := s.Driver()
	if err != nil {
		return "", err
	}
	return drv.CurrentURL()
}

// ExecuteScript runs script in the page once.
func (s *Session) ExecuteScript(script string, args ...any) (any, error) {
	drv, err := s.Driver()
	if err != nil {
		return nil, err
	}
	return drv.ExecuteScript(script, args...)
}

// RetryExecuteScript runs script until it does not fail.
func (s *Session) RetryExecuteScript(ctx context.Context, script string, args []any, opts ...retry.Option) (any, error) {
	return retry.Do(ctx, func(context.Context) (any, error) {
		return s.ExecuteScript(script, args...)
	}, s.options("execute script", opts)...)
}

// Wait polls cond until it reports true or timeout elapses. Errors from cond
// are retried unless fatal.
func (s *Session) Wait(ctx context.Context, cond func(driver.Session) (bool, error), timeout time.Duration) error {
	_, err := retry.Do(ctx, func(context.Context) (struct{}, error) {
		drv, err := s.Driver()
		if err != nil {
			return struct{}{}, retry.Fatal(err)
		}
		ok, err := cond(drv)
		if err != nil {
			return struct{}{}, err
		}
		if !ok {
			return struct{}{}, ErrConditionFalse
		}
		return struct{}{}, nil
	}, s.options("wait", []retry.Option{retry.WithTimeout(timeout)})...)
	return err
}

// ExpectURLToMatch waits until the current URL matches the glob pattern.
// Separators are not special: "*" matches across "/".
func (s *Session) ExpectURLToMatch(ctx context.Context, pattern string, opts ...retry.Option) error {
	g, err := glob.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid url pattern %q: %w", pattern, err)
	}
	_, err = retry.Do(ctx, func(context.Context) (string, error) {
		drv, err := s.Driver()
		if err != nil {
			return "", retry.Fatal(err)
		}
		url, err := drv.CurrentURL()
		if err != nil {
			return "", err
		}
		if !g.Match(url) {
			return url, fmt.Errorf("%w: %q is not %q", ErrURLMismatch, url, pattern)
		}
		return url, nil
	}, s.options("expect url", opts)...)
	return err
}

// FindElements runs one lookup from the document root.
func (s *Session) FindElements(target element.Target) ([]driver.Element, error) {
	drv, err := s.Driver()
	if err != nil {
		return nil, err
	}
	return drv.FindElements(target.Locator())
}

// SwitchTo returns the frame switcher of the live session.
func (s *Session) SwitchTo() (driver.TargetLocator, error) {
	drv, err := s.Driver()
	if err != nil {
		return nil, err
	}
	return drv.SwitchTo(), nil
}

// Capabilities returns what the driver reports. The first successful answer
// is cached for the life of the session.
func (s *Session) Capabilities() (driver.Capabilities, error) {
	drv, err := s.Driver()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.caps == nil {
		caps, err := drv.Capabilities()
		if err != nil {
			return nil, err
		}
		s.caps = caps
	}
	return s.caps.Clone(), nil
}

// TakeScreenshot captures the page.
func (s *Session) TakeScreenshot() ([]byte, error) {
	drv, err := s.Driver()
	if err != nil {
		return nil, err
	}
	return drv.TakeScreenshot()
}

// Quit tears the driver session down. It is safe to call more than once and
// on a session that was never started; the Session is closed either way.
func (s *Session) Quit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state
	s.state = StateClosed
	if prev != StateActive {
		return nil
	}

	s.logger.Infof("closing %s session after %s", s.settings.Browser(), time.Since(s.createdAt).Round(time.Millisecond))
	drv := s.drv
	s.drv, s.caps = nil, nil
	if err := drv.Quit(); err != nil {
		return fmt.Errorf("failed to quit session: %w", err)
	}
	return nil
}

func (s *Session) options(op string, opts []retry.Option) []retry.Option {
	all := append(s.RetryOptions(), retry.OnRetry(func(attempt int, err error) {
		s.logger.Debugf("%s: attempt %d failed: %v", op, attempt, err)
	}))
	return append(all, opts...)
}
