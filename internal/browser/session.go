// Package browser manages Chrome sessions and provides the page level
// operations that flows are built from.
package browser

import (
	"context"

	"github.com/chromedp/chromedp"

	"github.com/cfranzen/webgrit/internal/interact"
)

// Config defines the browser related settings. Values can be set via a
// config yml file or environment variables or both.
type Config struct {
	Headless       bool   `yaml:"headless" env:"BROWSER_HEADLESS" env-default:"true"`
	WindowWidth    int    `yaml:"window_width" env:"BROWSER_WINDOW_WIDTH" env-default:"1920"`
	WindowHeight   int    `yaml:"window_height" env:"BROWSER_WINDOW_HEIGHT" env-default:"1080"`
	UserAgent      string `yaml:"user_agent" env:"BROWSER_USER_AGENT"`
	PageLoadWaitMS int    `yaml:"page_load_wait_ms" env:"BROWSER_PAGE_LOAD_WAIT_MS" env-default:"2000"`
	ScreenshotDir  string `yaml:"screenshot_dir" env:"BROWSER_SCREENSHOT_DIR" env-default:"screenshots"`
}

// A Session owns one Chrome process allocator. Every flow gets its own tab
// context from the session so concurrently running flows never share page
// state.
type Session struct {
	*Config
	interactCfg  *interact.Config
	allocContext context.Context
	cancelAlloc  context.CancelFunc
}

func NewSession(cfg *Config, interactCfg *interact.Config) *Session {
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		// init with a desktop view (sometimes pages look different on mobile, eg buttons are missing)
		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
	)
	if !cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	allocContext, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	return &Session{
		Config:       cfg,
		interactCfg:  interactCfg,
		allocContext: allocContext,
		cancelAlloc:  cancelAlloc,
	}
}

func (s *Session) Cancel() {
	s.cancelAlloc()
}

// NewPage opens a fresh tab. The given context carries the flow's logger;
// the returned cancel func closes the tab.
func (s *Session) NewPage(ctx context.Context) (*Page, context.CancelFunc) {
	tabCtx, cancel := chromedp.NewContext(s.allocContext)
	return &Page{
		session: s,
		logCtx:  ctx,
		tabCtx:  tabCtx,
	}, cancel
}
