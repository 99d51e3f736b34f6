package interact

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

// DefaultClickOrder is the default priority order of click strategies.
var DefaultClickOrder = []string{
	"native-click",
	"scroll-click",
	"dismiss-overlay-click",
	"script-click",
	"coordinate-click",
}

// ClickStrategies builds the ordered strategy list for clicking the element
// matched by sel. An empty names slice selects DefaultClickOrder. The context
// passed to each strategy must be a chromedp context. Every strategy
// re-resolves the selector so a node that went stale between attempts is
// looked up again.
func ClickStrategies(sel string, names []string) ([]Strategy, error) {
	if len(names) == 0 {
		names = DefaultClickOrder
	}
	strategies := make([]Strategy, 0, len(names))
	for _, name := range names {
		s, err := clickStrategy(name, sel)
		if err != nil {
			return nil, err
		}
		strategies = append(strategies, s)
	}
	return strategies, nil
}

func clickStrategy(name, sel string) (Strategy, error) {
	switch name {
	case "native-click":
		return NewStrategy(name, func(ctx context.Context) error {
			return chromedp.Run(ctx, chromedp.Click(sel, chromedp.NodeVisible))
		}), nil
	case "scroll-click":
		return NewStrategy(name, func(ctx context.Context) error {
			return chromedp.Run(ctx,
				chromedp.ScrollIntoView(sel),
				chromedp.Click(sel, chromedp.NodeVisible),
			)
		}), nil
	case "dismiss-overlay-click":
		// an open dropdown or modal may intercept the click, Escape usually closes it
		return NewStrategy(name, func(ctx context.Context) error {
			return chromedp.Run(ctx,
				chromedp.KeyEvent(kb.Escape),
				chromedp.Click(sel, chromedp.NodeVisible),
			)
		}), nil
	case "script-click":
		// bypasses hit-testing entirely
		return NewStrategy(name, func(ctx context.Context) error {
			return chromedp.Run(ctx, chromedp.Evaluate(fmt.Sprintf("document.querySelector(%q).click()", sel), nil))
		}), nil
	case "coordinate-click":
		return NewStrategy(name, func(ctx context.Context) error {
			return chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
				x, y, err := ContentCenter(ctx, sel)
				if err != nil {
					return err
				}
				return chromedp.MouseClickXY(x, y).Do(ctx)
			}))
		}), nil
	default:
		return nil, fmt.Errorf("unknown click strategy %q", name)
	}
}

// ContentCenter computes the on-screen center of the element's content box.
// The context must be a chromedp executor context.
func ContentCenter(ctx context.Context, sel string) (float64, float64, error) {
	var nodes []*cdp.Node
	if err := chromedp.Nodes(sel, &nodes, chromedp.AtLeast(0)).Do(ctx); err != nil {
		return 0, 0, err
	}
	if len(nodes) == 0 {
		return 0, 0, fmt.Errorf("no node found for selector %q", sel)
	}
	box, err := dom.GetBoxModel().WithNodeID(nodes[0].NodeID).Do(ctx)
	if err != nil {
		return 0, 0, err
	}
	if len(box.Content) < 8 {
		return 0, 0, fmt.Errorf("degenerate box model for selector %q", sel)
	}
	x := (box.Content[0] + box.Content[2] + box.Content[4] + box.Content[6]) / 4
	y := (box.Content[1] + box.Content[3] + box.Content[5] + box.Content[7]) / 4
	return x, y, nil
}

// ResolveTarget checks that sel matches at least one node. A selector that
// matches nothing at all is a precondition violation, not a retryable
// failure.
func ResolveTarget(ctx context.Context, sel string, pageHTML func() string) error {
	var nodes []*cdp.Node
	if err := chromedp.Run(ctx, chromedp.Nodes(sel, &nodes, chromedp.AtLeast(0))); err != nil {
		return fmt.Errorf("failed to resolve selector %q: %w", sel, err)
	}
	if len(nodes) > 0 {
		return nil
	}
	perr := &PreconditionError{Target: sel}
	if pageHTML != nil {
		perr.Suggestions = SuggestSelectors(pageHTML(), sel, 3)
	}
	return perr
}
