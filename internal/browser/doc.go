// Package browser runs page extractions inside a single headless Chrome session
// with bounded retries.
//
// Run opens one Session per call, then for every attempt navigates to the
// target URL, waits for the network to go idle plus a fixed settle delay, and
// hands the rendered page to an extraction function. Failed attempts are
// logged and retried from a fresh navigation; once the retry budget is spent
// the caller gets the zero value instead of a crash. The session is closed
// exactly once whatever the outcome.
//
// RodOpener is the go-rod backed Opener used in production. Tests substitute
// their own Opener and Page implementations.
package browser
