// Package retry runs fallible, context-aware operations a bounded number of
// times with a constant pause between attempts.
//
// It is the single retry discipline shared by link collection, detail scraping
// and poster downloads. An operation can opt out of further attempts by
// returning an error wrapped with Permanent.
package retry
