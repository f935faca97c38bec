// Package detail scrapes one event-detail page and persists it to a directory.
//
// Each field is located independently through Selectors and may come back
// empty without failing the page. The date and time live inside a fragment
// addressed by an XPath from the document root; that fragment is parsed on
// its own with goquery. Extraction and the details-file write form one retried
// unit. The poster image is downloaded afterwards under its own retry budget,
// and a failed download never removes the details file already written.
package detail
