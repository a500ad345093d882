// Package cdp implements the approval surface on top of a Chrome DevTools
// session driven by chromedp. Every approval request gets its own tab so the
// page under automation stays intact while the user decides.
package cdp

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/starks-and-wolves/ai-browser-secure/service/provider/surface"
)

// Surface holds one tab per live approval exchange. It is safe for
// concurrent use, though the broker serializes approvals anyway.
type Surface struct {
	parent context.Context

	mu       sync.Mutex
	tabs     map[string]*tab
	original target.ID
}

type tab struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// New wraps an existing chromedp browser context. The currently focused
// target, if any, is remembered so focus can be restored after an approval.
func New(parent context.Context) *Surface {
	s := &Surface{parent: parent, tabs: map[string]*tab{}}
	if c := chromedp.FromContext(parent); c != nil && c.Target != nil {
		s.original = c.Target.TargetID
	}
	return s
}

// Create opens a new blank tab, activates it so the user can see it, and
// returns its target identifier.
func (s *Surface) Create(ctx context.Context) (string, error) {
	tabCtx, cancel := chromedp.NewContext(s.parent)
	if err := chromedp.Run(tabCtx, chromedp.Navigate("about:blank")); err != nil {
		cancel()
		return "", fmt.Errorf("failed to create approval tab: %w", err)
	}
	targetID := chromedp.FromContext(tabCtx).Target.TargetID

	// Bring the approval tab to the foreground; failure here is not fatal,
	// the tab still exists and can be polled.
	_ = chromedp.Run(tabCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		return target.ActivateTarget(targetID).Do(ctx)
	}))

	id := string(targetID)
	s.mu.Lock()
	s.tabs[id] = &tab{ctx: tabCtx, cancel: cancel}
	s.mu.Unlock()
	return id, nil
}

// SetContent replaces the tab's document with the supplied HTML.
func (s *Surface) SetContent(ctx context.Context, id, html string) error {
	t, err := s.lookup(id)
	if err != nil {
		return err
	}
	return chromedp.Run(t.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		tree, err := page.GetFrameTree().Do(ctx)
		if err != nil {
			return err
		}
		return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
	}))
}

// Evaluate runs expression in the tab and returns its string value.
func (s *Surface) Evaluate(ctx context.Context, id, expression string) (string, error) {
	t, err := s.lookup(id)
	if err != nil {
		return "", err
	}
	var result string
	if err := chromedp.Run(t.ctx, chromedp.Evaluate(expression, &result)); err != nil {
		return "", err
	}
	return result, nil
}

// Destroy closes the tab.
func (s *Surface) Destroy(ctx context.Context, id string) error {
	s.mu.Lock()
	t, ok := s.tabs[id]
	delete(s.tabs, id)
	s.mu.Unlock()
	if !ok {
		return nil
	}
	// Cancelling the tab context closes the target chromedp created for it.
	t.cancel()
	return nil
}

// RestoreFocus re-activates the target that was focused when the Surface was
// created.
func (s *Surface) RestoreFocus(ctx context.Context) error {
	if s.original == "" {
		return nil
	}
	return chromedp.Run(s.parent, chromedp.ActionFunc(func(ctx context.Context) error {
		return target.ActivateTarget(s.original).Do(ctx)
	}))
}

func (s *Surface) lookup(id string) (*tab, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tabs[id]
	if !ok {
		return nil, fmt.Errorf("unknown approval surface %s", id)
	}
	return t, nil
}

var _ surface.Surface = (*Surface)(nil)
