package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"time"

	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"

	"github.com/cfranzen/webgrit/internal/interact"
	"github.com/cfranzen/webgrit/internal/log"
)

// A Page wraps one browser tab. It is owned by a single flow for the
// duration of its run and must not be shared.
type Page struct {
	session *Session
	// logCtx carries the flow's logger, tabCtx the chromedp target
	logCtx context.Context
	tabCtx context.Context
}

func (p *Page) logger() *slog.Logger {
	return log.LoggerFromContext(p.logCtx)
}

func (p *Page) Navigate(url string) error {
	p.logger().Debug("navigating", slog.String("url", url))
	sleepTime := time.Duration(p.session.PageLoadWaitMS) * time.Millisecond
	return chromedp.Run(p.tabCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(sleepTime),
	)
}

// Click performs a resilient click on the element matched by sel. If expect
// is non-empty it is treated as the caller's post-condition: a selector that
// must be visible for the click to count as successful. A selector that does
// not resolve at all yields a PreconditionError, enriched with candidate
// selectors taken from the current page.
func (p *Page) Click(sel, expect string) (*interact.ActionResult, error) {
	opts := p.session.interactCfg.Options().WithDefaults()
	strategies, err := interact.ClickStrategies(sel, p.session.interactCfg.StrategyNames())
	if err != nil {
		return nil, err
	}

	resolveCtx, cancel := context.WithTimeout(p.tabCtx, opts.AttemptTimeout)
	defer cancel()
	if err := interact.ResolveTarget(resolveCtx, sel, func() string {
		html, err := p.HTML()
		if err != nil {
			return ""
		}
		return html
	}); err != nil {
		return nil, err
	}

	if expect != "" {
		opts.Check = func(ctx context.Context) error {
			return chromedp.Run(ctx, chromedp.WaitVisible(expect))
		}
	}

	return interact.Run(log.ContextWithLogger(p.tabCtx, p.logger()), strategies, opts)
}

func (p *Page) TypeText(sel, text string) error {
	return chromedp.Run(p.tabCtx,
		chromedp.WaitVisible(sel),
		chromedp.Clear(sel),
		chromedp.SendKeys(sel, text),
	)
}

// SelectOption sets the value of a select element and fires a change event,
// since SetValue alone does not notify page scripts.
func (p *Page) SelectOption(sel, value string) error {
	return chromedp.Run(p.tabCtx,
		chromedp.WaitVisible(sel),
		chromedp.SetValue(sel, value),
		chromedp.Evaluate(fmt.Sprintf("document.querySelector(%q).dispatchEvent(new Event('change', {bubbles: true}))", sel), nil),
	)
}

func (p *Page) Hover(sel string) error {
	return chromedp.Run(p.tabCtx,
		chromedp.WaitVisible(sel),
		chromedp.ActionFunc(func(ctx context.Context) error {
			x, y, err := interact.ContentCenter(ctx, sel)
			if err != nil {
				return err
			}
			return chromedp.MouseEvent(input.MouseMoved, x, y).Do(ctx)
		}),
	)
}

func (p *Page) WaitVisible(sel string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(p.tabCtx, timeout)
	defer cancel()
	return chromedp.Run(ctx, chromedp.WaitVisible(sel))
}

func (p *Page) WaitHidden(sel string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(p.tabCtx, timeout)
	defer cancel()
	return chromedp.Run(ctx, chromedp.WaitNotVisible(sel))
}

func (p *Page) Text(sel string) (string, error) {
	var text string
	err := chromedp.Run(p.tabCtx, chromedp.Text(sel, &text, chromedp.NodeVisible))
	return text, err
}

func (p *Page) Title() (string, error) {
	var title string
	err := chromedp.Run(p.tabCtx, chromedp.Title(&title))
	return title, err
}

func (p *Page) HTML() (string, error) {
	var body string
	err := chromedp.Run(p.tabCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		node, err := dom.GetDocument().Do(ctx)
		if err != nil {
			return err
		}
		body, err = dom.GetOuterHTML().WithNodeID(node.NodeID).Do(ctx)
		return err
	}))
	return body, err
}

// Screenshot captures the viewport and writes it below the configured
// screenshot directory.
func (p *Page) Screenshot(name string) error {
	dir := p.session.ScreenshotDir
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create screenshot directory: %v", err)
	}
	var buf []byte
	if err := chromedp.Run(p.tabCtx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return err
	}
	filename := path.Join(dir, fmt.Sprintf("%s.png", name))
	p.logger().Debug(fmt.Sprintf("writing screenshot to file %s", filename))
	return os.WriteFile(filename, buf, 0644)
}

func (p *Page) Sleep(d time.Duration) error {
	return chromedp.Run(p.tabCtx, chromedp.Sleep(d))
}
