// Package headless implements the headless-browser pool (§4.F): a
// bounded set of long-lived rendered-browser sessions with
// acquire/release, health checks, and idle retirement.
//
// Generalizes the teacher's engine.AdaptivePool (generic handle pool with
// health-scored retirement and memory-pressure-driven scaling) from
// per-page rod.Page handles to whole *rod.Browser sessions, and reuses
// scraper.NewScraper's launcher flag set for stealth/sandbox options.
package headless

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/metabench/hubcrawl/config"
)

// Session wraps one long-lived *rod.Browser with health-tracking
// metadata mirroring the teacher's PageHandle.
type Session struct {
	ID       int64
	browser  *rod.Browser
	pages    atomic.Int32
	created  time.Time
	lastUsed atomic.Int64 // unix nanos of the last Page call; the pool's LRU order comes from its idle list
}

func newSession(id int64, b *rod.Browser) *Session {
	s := &Session{ID: id, browser: b, created: time.Now()}
	s.lastUsed.Store(time.Now().UnixNano())
	return s
}

// Page opens a new tab on this session. Stealth-wraps it when stealth is
// true, matching the teacher's rod-stealth engine tier.
func (s *Session) Page(stealthMode bool) (*rod.Page, error) {
	s.pages.Add(1)
	s.lastUsed.Store(time.Now().UnixNano())
	if stealthMode {
		return stealth.Page(s.browser)
	}
	return s.browser.Page(proto.TargetCreateTarget{})
}

// PageCount reports how many pages have been opened on this session
// across its lifetime, the input to the maxPagesPerSession retirement
// rule.
func (s *Session) PageCount() int32 { return s.pages.Load() }

// Age reports how long the session has been alive, the input to the
// maxSessionAgeMs retirement rule.
func (s *Session) Age() time.Duration { return time.Since(s.created) }

// Healthy pings the underlying browser connection.
func (s *Session) Healthy() bool {
	_, err := s.browser.Version()
	return err == nil
}

func (s *Session) close() {
	_ = s.browser.Close()
}

// launchBrowser starts one Chromium instance per scraper.NewScraper's
// flag set, returning the connected rod.Browser.
func launchBrowser(cfg config.BrowserConfig) (*rod.Browser, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.DefaultProxy != "" {
		l = l.Proxy(cfg.DefaultProxy)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-ipc-flooding-protection"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-prompt-on-repost"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("headless: launch: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("headless: connect: %w", err)
	}
	return browser, nil
}
