package pwdriver

import (
	"errors"
	"strings"

	"github.com/entrhq/steady/pkg/driver"
	"github.com/playwright-community/playwright-go"
)

var (
	staleMarkers = []string{
		"not attached to the dom",
		"element is not attached",
		"jshandle is disposed",
		"element handle is disposed",
		"execution context was destroyed",
		"cannot find context with specified id",
	}
	invalidSelectorMarkers = []string{
		"is not a valid selector",
		"unexpected token",
		"unknown engine",
		"failed to parse selector",
		"syntaxerror",
	}
	notInteractableMarkers = []string{
		"element is not visible",
		"element is not enabled",
		"element is disabled",
		"intercepts pointer events",
		"element is outside of the viewport",
		"not an <input>",
	}
)

// classify turns a Playwright error into a *driver.Error. nil stays nil.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *driver.Error
	if errors.As(err, &de) {
		return err
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, invalidSelectorMarkers):
		return driver.NewError(driver.KindInvalidSelector, op, err)
	case containsAny(msg, staleMarkers):
		return driver.NewError(driver.KindStaleElement, op, err)
	case containsAny(msg, notInteractableMarkers), errors.Is(err, playwright.ErrTimeout):
		return driver.NewError(driver.KindNotInteractable, op, err)
	default:
		return driver.NewError(driver.KindUnknown, op, err)
	}
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
