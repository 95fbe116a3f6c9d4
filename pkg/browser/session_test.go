package browser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/entrhq/steady/pkg/config"
	"github.com/entrhq/steady/pkg/driver"
	"github.com/entrhq/steady/pkg/locator"
	"github.com/entrhq/steady/pkg/logging"
	"github.com/entrhq/steady/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockDriver is a testify mock of driver.Session.
type MockDriver struct {
	mock.Mock
}

func (m *MockDriver) FindElement(loc locator.Locator) (driver.Element, error) {
	args := m.Called(loc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(driver.Element), args.Error(1)
}

func (m *MockDriver) FindElements(loc locator.Locator) ([]driver.Element, error) {
	args := m.Called(loc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]driver.Element), args.Error(1)
}

func (m *MockDriver) Get(url string) error {
	return m.Called(url).Error(0)
}

func (m *MockDriver) CurrentURL() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func (m *MockDriver) ExecuteScript(script string, args ...any) (any, error) {
	ret := m.Called(script, args)
	return ret.Get(0), ret.Error(1)
}

func (m *MockDriver) SwitchTo() driver.TargetLocator {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(driver.TargetLocator)
}

func (m *MockDriver) Capabilities() (driver.Capabilities, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(driver.Capabilities), args.Error(1)
}

func (m *MockDriver) TakeScreenshot() ([]byte, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockDriver) MaximizeWindow() error { return m.Called().Error(0) }

func (m *MockDriver) Quit() error { return m.Called().Error(0) }

// countingFactory hands out drv and records every call.
type countingFactory struct {
	drv   driver.Session
	err   error
	calls int
	opts  []driver.Options
}

func (f *countingFactory) New(opts driver.Options) (driver.Session, error) {
	f.calls++
	f.opts = append(f.opts, opts)
	if f.err != nil {
		return nil, f.err
	}
	return f.drv, nil
}

func testSettings() *config.Settings {
	return &config.Settings{
		Browsers: config.BrowserList{"chrome"},
		HubURL:   "ws://hub:4444",
		Proxy:    "proxy:3128",
		Timeout:  time.Second,
	}
}

func newTestSession(t *testing.T, settings *config.Settings, f *countingFactory) *Session {
	t.Helper()
	return New(settings, WithFactory(f.New), WithLogger(logging.Discard("browser-test")))
}

func TestDriverCreatedOnce(t *testing.T) {
	m := new(MockDriver)
	m.On("MaximizeWindow").Return(nil).Once()
	m.On("Get", "https://example.com").Return(nil).Twice()
	f := &countingFactory{drv: m}
	s := newTestSession(t, testSettings(), f)

	assert.Equal(t, StateUninitialized, s.State())
	require.NoError(t, s.Get("https://example.com"))
	require.NoError(t, s.Get("https://example.com"))

	assert.Equal(t, 1, f.calls)
	assert.Equal(t, StateActive, s.State())
	assert.False(t, s.CreatedAt().IsZero())
	m.AssertExpectations(t)
}

func TestDriverOptionsFromSettings(t *testing.T) {
	tests := []struct {
		name    string
		direct  bool
		wantHub string
	}{
		{name: "hub", wantHub: "ws://hub:4444"},
		{name: "direct connect", direct: true, wantHub: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(MockDriver)
			m.On("MaximizeWindow").Return(nil)
			f := &countingFactory{drv: m}
			settings := testSettings()
			settings.DirectConnect = tt.direct

			_, err := newTestSession(t, settings, f).Driver()
			require.NoError(t, err)
			require.Len(t, f.opts, 1)
			assert.Equal(t, "chrome", f.opts[0].Browser)
			assert.Equal(t, tt.wantHub, f.opts[0].HubURL)
			assert.Equal(t, "proxy:3128", f.opts[0].Proxy)
			assert.Equal(t, "chromium", f.opts[0].Capabilities.String("browserName"))
		})
	}
}

func TestDriverStartFailure(t *testing.T) {
	f := &countingFactory{err: errors.New("hub unreachable")}
	s := newTestSession(t, testSettings(), f)

	_, err := s.Driver()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hub unreachable")
	assert.Equal(t, StateUninitialized, s.State())

	_, err = s.Driver()
	require.Error(t, err)
	assert.Equal(t, 2, f.calls)
}

func TestMaximizeFailureQuitsDriver(t *testing.T) {
	m := new(MockDriver)
	m.On("MaximizeWindow").Return(errors.New("no window"))
	m.On("Quit").Return(nil).Once()
	s := newTestSession(t, testSettings(), &countingFactory{drv: m})

	_, err := s.Driver()
	require.ErrorContains(t, err, "no window")
	m.AssertExpectations(t)
}

func TestCapabilitiesCached(t *testing.T) {
	m := new(MockDriver)
	m.On("MaximizeWindow").Return(nil)
	m.On("Capabilities").Return(driver.Capabilities{"browserName": "chromium", "browserVersion": "120"}, nil).Once()
	s := newTestSession(t, testSettings(), &countingFactory{drv: m})

	first, err := s.Capabilities()
	require.NoError(t, err)
	first["browserName"] = "changed"

	second, err := s.Capabilities()
	require.NoError(t, err)
	assert.Equal(t, "chromium", second.String("browserName"))
	m.AssertNumberOfCalls(t, "Capabilities", 1)
}

func TestQuit(t *testing.T) {
	t.Run("never started", func(t *testing.T) {
		f := &countingFactory{}
		s := newTestSession(t, testSettings(), f)

		assert.NoError(t, s.Quit())
		assert.NoError(t, s.Quit())
		assert.Equal(t, 0, f.calls)

		_, err := s.Driver()
		assert.ErrorIs(t, err, ErrClosed)
	})

	t.Run("started", func(t *testing.T) {
		m := new(MockDriver)
		m.On("MaximizeWindow").Return(nil)
		m.On("Quit").Return(nil).Once()
		f := &countingFactory{drv: m}
		s := newTestSession(t, testSettings(), f)
		_, err := s.Driver()
		require.NoError(t, err)

		assert.NoError(t, s.Quit())
		assert.NoError(t, s.Quit())
		assert.Equal(t, StateClosed, s.State())
		assert.ErrorIs(t, s.Get("https://example.com"), ErrClosed)
		assert.Equal(t, 1, f.calls)
		m.AssertExpectations(t)
	})
}

func TestRetryExecuteScript(t *testing.T) {
	m := new(MockDriver)
	m.On("MaximizeWindow").Return(nil)
	m.On("ExecuteScript", "return ready()", []any{1}).Return(nil, errors.New("not ready")).Twice()
	m.On("ExecuteScript", "return ready()", []any{1}).Return(true, nil).Once()
	s := newTestSession(t, testSettings(), &countingFactory{drv: m})

	got, err := s.RetryExecuteScript(context.Background(), "return ready()", []any{1}, retry.WithInterval(time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, true, got)
	m.AssertNumberOfCalls(t, "ExecuteScript", 3)
}

func TestWait(t *testing.T) {
	m := new(MockDriver)
	m.On("MaximizeWindow").Return(nil)
	s := newTestSession(t, testSettings(), &countingFactory{drv: m})

	calls := 0
	err := s.Wait(context.Background(), func(driver.Session) (bool, error) {
		calls++
		return calls == 3, nil
	}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	err = s.Wait(context.Background(), func(driver.Session) (bool, error) { return false, nil }, 30*time.Millisecond)
	assert.ErrorIs(t, err, ErrConditionFalse)
}

func TestExpectURLToMatch(t *testing.T) {
	m := new(MockDriver)
	m.On("MaximizeWindow").Return(nil)
	m.On("CurrentURL").Return("https://example.com/login", nil).Once()
	m.On("CurrentURL").Return("https://example.com/app/home?tab=1", nil)
	s := newTestSession(t, testSettings(), &countingFactory{drv: m})

	require.NoError(t, s.ExpectURLToMatch(context.Background(), "https://example.com/app/*"))

	err := s.ExpectURLToMatch(context.Background(), "*/settings", retry.WithTimeout(30*time.Millisecond))
	assert.ErrorIs(t, err, ErrURLMismatch)

	err = s.ExpectURLToMatch(context.Background(), "[")
	assert.ErrorContains(t, err, "invalid url pattern")
}

func TestStaticBrowserEndToEnd(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.html")
	require.NoError(t, os.WriteFile(path, []byte(`<html><body>
<h1 id="title">Welcome</h1>
<ul><li>b</li><li>a</li></ul>
</body></html>`), 0600))

	s := New(&config.Settings{Browsers: config.BrowserList{"static"}}, WithLogger(logging.Discard("browser-test")))
	defer s.Quit()
	ctx := context.Background()

	require.NoError(t, s.Get("file://"+path))
	require.NoError(t, s.CSS("#title").ExpectTextToBe(ctx, "Welcome"))
	require.NoError(t, s.CSSAll("li").ExpectSortedListToEqual(ctx, []string{"a", "b"}))

	items, err := s.FindElements(locator.ByCSS("li"))
	require.NoError(t, err)
	assert.Len(t, items, 2)

	caps, err := s.Capabilities()
	require.NoError(t, err)
	assert.Equal(t, "htmldriver", caps.String("browserName"))
	assert.Equal(t, "static", caps.String("alias"))

	url, err := s.CurrentURL()
	require.NoError(t, err)
	assert.Equal(t, "file://"+path, url)
}

func TestDefaultSession(t *testing.T) {
	s := New(&config.Settings{Browsers: config.BrowserList{"static"}}, WithLogger(logging.Discard("browser-test")))
	prev := SetDefault(s)
	defer SetDefault(prev)

	assert.Same(t, s, Default())
	assert.Equal(t, "css=#a", CSS("#a").String())
	assert.Equal(t, "xpath=//a", XPath("//a").String())
	assert.Equal(t, "css=li", CSSAll("li").String())
	assert.Equal(t, "xpath=//li", XPathAll("//li").String())
	assert.Equal(t, "css=#b", Locate(locator.ByCSS("#b")).String())
}
