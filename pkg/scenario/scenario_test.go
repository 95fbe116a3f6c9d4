package scenario

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/entrhq/steady/pkg/locator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	sc, err := Parse([]byte(`
name: login
url: https://app.test/login
timeout: 2s
steps:
  - action: type
    target: "#user"
    text: alice
  - action: click
    within: ["form#login"]
    target: xpath=.//button
  - action: expect_count
    target: li
    count: 0
  - action: expect_sorted_texts
    target: li
    texts: []
`))
	require.NoError(t, err)
	assert.Equal(t, "login", sc.Name)
	assert.Equal(t, 2*time.Second, sc.Timeout)
	require.Len(t, sc.Steps, 4)

	chain, err := sc.Steps[1].Chain()
	require.NoError(t, err)
	assert.True(t, chain.Equal(locator.NewChain(locator.ByCSS("form#login"), locator.ByXPath(".//button"))))
	assert.Equal(t, 0, *sc.Steps[2].Count)
	assert.NotNil(t, sc.Steps[3].Texts)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{name: "empty", yaml: "", wantErr: "scenario is empty"},
		{name: "unknown key", yaml: "url: x\nbogus: 1\nsteps: [{action: click, target: a}]", wantErr: "bogus"},
		{name: "no url", yaml: "steps: [{action: click, target: a}]", wantErr: "url is required"},
		{name: "no steps", yaml: "url: x", wantErr: "at least one step"},
		{name: "unknown action", yaml: "url: x\nsteps: [{action: hover, target: a}]", wantErr: `unknown action "hover"`},
		{name: "missing target", yaml: "url: x\nsteps: [{action: click}]", wantErr: "step 1 (click): target is required"},
		{name: "bad locator", yaml: "url: x\nsteps: [{action: click, target: 'css='}]", wantErr: "invalid locator"},
		{name: "type without text", yaml: "url: x\nsteps: [{action: type, target: a}]", wantErr: "text is required"},
		{name: "count missing", yaml: "url: x\nsteps: [{action: expect_count, target: a}]", wantErr: "count must be set"},
		{name: "texts missing", yaml: "url: x\nsteps: [{action: expect_sorted_texts, target: a}]", wantErr: "texts is required"},
		{name: "url pattern missing", yaml: "url: x\nsteps: [{action: expect_url}]", wantErr: "pattern is required"},
		{name: "script missing", yaml: "url: x\nsteps: [{action: script}]", wantErr: "script is required"},
		{name: "negative timeout", yaml: "url: x\nsteps: [{action: click, target: a, timeout: -1s}]", wantErr: "timeout cannot be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "smoke.yaml")
	require.NoError(t, os.WriteFile(path, []byte("url: x\nsteps: [{action: screenshot}]"), 0600))

	sc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ActionScreenshot, sc.Steps[0].Action)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read scenario")
}
