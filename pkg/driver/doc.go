// Package driver defines the black-box browser capabilities the rest of the
// module consumes.
//
// A Session is one live connection to a browser. Elements returned by it are
// references into the current document and may go stale as soon as the page
// changes, which is why callers never keep them between operations.
//
// Implementations live in sub-packages:
//
//   - pwdriver: drives Chromium, Firefox or WebKit through playwright-go,
//     either launched locally or connected to a remote hub.
//   - htmldriver: evaluates CSS selectors against a static HTML document,
//     useful offline and in tests.
//
// Every implementation reports failures as *Error values so that callers can
// tell transient conditions (element missing, stale reference) from permanent
// ones (invalid selector).
package driver
