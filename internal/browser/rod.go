package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

const (
	DefaultUserAgent         = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36"
	DefaultViewportWidth     = 1366
	DefaultViewportHeight    = 768
	DefaultNavigationTimeout = 60 * time.Second
	DefaultIdleWindow        = 500 * time.Millisecond
)

// RodOptions configures how Chrome is started and how navigation settles.
type RodOptions struct {
	Headless bool `json:"headless"`
	// Bin overrides the Chrome binary. Empty lets the launcher find or download one.
	Bin string `json:"bin,omitempty"`
	// BrowserURL attaches to an already running Chrome (DevTools websocket URL)
	// instead of launching one. Each session then gets its own incognito context.
	BrowserURL     string `json:"browser_url,omitempty"`
	UserAgent      string `json:"user_agent"`
	ViewportWidth  int    `json:"viewport_width"`
	ViewportHeight int    `json:"viewport_height"`
	// NavigationTimeout caps navigation plus the network-idle wait. Zero waits forever.
	NavigationTimeout time.Duration `json:"navigation_timeout"`
	// IdleWindow is how long the network must stay quiet to count as idle.
	IdleWindow time.Duration `json:"idle_window"`
}

// DefaultRodOptions returns headless Chrome with a desktop user agent and viewport.
func DefaultRodOptions() RodOptions {
	return RodOptions{
		Headless:          true,
		UserAgent:         DefaultUserAgent,
		ViewportWidth:     DefaultViewportWidth,
		ViewportHeight:    DefaultViewportHeight,
		NavigationTimeout: DefaultNavigationTimeout,
		IdleWindow:        DefaultIdleWindow,
	}
}

// RodOpener opens go-rod backed sessions.
type RodOpener struct {
	opts RodOptions
}

// NewRodOpener creates an Opener from opts.
func NewRodOpener(opts RodOptions) *RodOpener {
	return &RodOpener{opts: opts}
}

// Open launches Chrome (or attaches to BrowserURL) and creates one page.
func (o *RodOpener) Open(ctx context.Context) (Session, error) {
	s := &rodSession{opts: o.opts}

	controlURL := o.opts.BrowserURL
	if controlURL == "" {
		l := launcher.New().Context(ctx).Headless(o.opts.Headless)
		if o.opts.Bin != "" {
			l = l.Bin(o.opts.Bin)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launching chrome: %w", err)
		}
		s.launcher = l
		controlURL = u
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		s.cleanupLauncher()
		return nil, fmt.Errorf("connecting to chrome: %w", err)
	}

	if o.opts.BrowserURL != "" {
		incognito, err := b.Incognito()
		if err != nil {
			return nil, fmt.Errorf("creating incognito context: %w", err)
		}
		s.browser = incognito
	} else {
		s.browser = b
	}

	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("creating page: %w", err)
	}
	s.page = page

	if o.opts.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: o.opts.UserAgent}); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("setting user agent: %w", err)
		}
	}

	if o.opts.ViewportWidth > 0 && o.opts.ViewportHeight > 0 {
		if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             o.opts.ViewportWidth,
			Height:            o.opts.ViewportHeight,
			DeviceScaleFactor: 1.0,
			Mobile:            false,
		}); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("setting viewport: %w", err)
		}
	}

	return s, nil
}

type rodSession struct {
	opts     RodOptions
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page

	closeOnce sync.Once
	closeErr  error
}

func (s *rodSession) Navigate(ctx context.Context, url string) error {
	navCtx := ctx
	if s.opts.NavigationTimeout > 0 {
		var cancel context.CancelFunc
		navCtx, cancel = context.WithTimeout(ctx, s.opts.NavigationTimeout)
		defer cancel()
	}

	p := s.page.Context(navCtx)
	waitIdle := p.WaitRequestIdle(s.opts.IdleWindow, nil, nil, nil)
	if err := p.Navigate(url); err != nil {
		return err
	}
	waitIdle()

	// WaitRequestIdle returns silently when its context ends.
	if err := navCtx.Err(); err != nil {
		return fmt.Errorf("waiting for network idle: %w", err)
	}
	return nil
}

func (s *rodSession) HTML() (string, error) {
	return s.page.HTML()
}

func (s *rodSession) InnerHTMLX(xpath string) (string, error) {
	els, err := s.page.ElementsX(xpath)
	if err != nil {
		return "", fmt.Errorf("evaluating xpath: %w", err)
	}
	if len(els) == 0 {
		return "", nil
	}
	v, err := els[0].Property("innerHTML")
	if err != nil {
		return "", fmt.Errorf("reading innerHTML: %w", err)
	}
	return v.Str(), nil
}

func (s *rodSession) URL() string {
	info, err := s.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// Close releases the page, the browser (or incognito context) and the
// launched process. Safe to call more than once.
func (s *rodSession) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.page != nil {
			if err := s.page.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing page: %w", err))
			}
		}
		if s.browser != nil {
			if err := s.browser.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing browser: %w", err))
			}
		}
		s.cleanupLauncher()
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

func (s *rodSession) cleanupLauncher() {
	if s.launcher != nil {
		s.launcher.Kill()
		s.launcher.Cleanup()
	}
}
