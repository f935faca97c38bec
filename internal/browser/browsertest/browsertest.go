// Package browsertest provides an in-memory browser.Opener for tests.
package browsertest

import (
	"context"
	"errors"
	"sync"

	"github.com/pfrederiksen/promoter-events/internal/browser"
)

// ErrNotNavigated is returned by page reads before any successful navigation.
var ErrNotNavigated = errors.New("page not navigated")

// Response is what one navigation to a URL yields.
type Response struct {
	HTML string
	// Fragments maps an xpath to the inner HTML of its first match.
	Fragments map[string]string
	// URL is the location after navigation. Defaults to the requested URL.
	URL     string
	NavErr  error
	HTMLErr error
	// Panic makes HTML panic with this value, mimicking Must* helpers.
	Panic interface{}
}

// Opener serves canned responses. Pages maps a URL to the responses returned
// on successive navigations; the last response repeats.
type Opener struct {
	Pages   map[string][]Response
	OpenErr error

	mu          sync.Mutex
	opened      int
	closed      int
	navigations map[string]int
}

// NewOpener creates an Opener serving pages.
func NewOpener(pages map[string][]Response) *Opener {
	return &Opener{Pages: pages}
}

// Open implements browser.Opener.
func (o *Opener) Open(ctx context.Context) (browser.Session, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.OpenErr != nil {
		return nil, o.OpenErr
	}
	o.opened++
	return &session{opener: o}, nil
}

// Opened returns how many sessions were opened.
func (o *Opener) Opened() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opened
}

// Closed returns how many Close calls were made across all sessions.
func (o *Opener) Closed() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}

// Navigations returns how many times url was navigated to.
func (o *Opener) Navigations(url string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.navigations[url]
}

func (o *Opener) next(url string) (Response, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.navigations == nil {
		o.navigations = make(map[string]int)
	}
	n := o.navigations[url]
	o.navigations[url]++

	responses, ok := o.Pages[url]
	if !ok || len(responses) == 0 {
		return Response{}, false
	}
	if n >= len(responses) {
		n = len(responses) - 1
	}
	return responses[n], true
}

type session struct {
	opener  *Opener
	current *Response
	url     string
}

func (s *session) Navigate(ctx context.Context, url string) error {
	s.current = nil
	if err := ctx.Err(); err != nil {
		return err
	}
	resp, ok := s.opener.next(url)
	if !ok {
		return errors.New("net::ERR_NAME_NOT_RESOLVED")
	}
	if resp.NavErr != nil {
		return resp.NavErr
	}
	s.current = &resp
	s.url = url
	if resp.URL != "" {
		s.url = resp.URL
	}
	return nil
}

func (s *session) HTML() (string, error) {
	if s.current == nil {
		return "", ErrNotNavigated
	}
	if s.current.Panic != nil {
		panic(s.current.Panic)
	}
	if s.current.HTMLErr != nil {
		return "", s.current.HTMLErr
	}
	return s.current.HTML, nil
}

func (s *session) InnerHTMLX(xpath string) (string, error) {
	if s.current == nil {
		return "", ErrNotNavigated
	}
	return s.current.Fragments[xpath], nil
}

func (s *session) URL() string {
	return s.url
}

func (s *session) Close() error {
	s.opener.mu.Lock()
	defer s.opener.mu.Unlock()
	s.opener.closed++
	return nil
}
