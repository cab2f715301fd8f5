package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

const (
	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

	readyPollInterval = 100 * time.Millisecond
	readyTimeout      = 10 * time.Second

	// DefaultSettle is the pause after scrolls and clicks when none is configured.
	DefaultSettle = 3 * time.Second
)

// ChromeOptions configures the Chrome process backing a page.
type ChromeOptions struct {
	Headless  bool
	ExecPath  string        // CHROME_PATH override, empty = autodetect
	Settle    time.Duration // minimum pause after a state-changing action, 0 = DefaultSettle
	UserAgent string
}

// Chrome is a Page backed by its own headless Chrome process.
type Chrome struct {
	ctx    context.Context
	cancel context.CancelFunc
	settle time.Duration
}

// NewChrome launches a browser and opens one tab.
func NewChrome(parent context.Context, opts ChromeOptions) (*Chrome, error) {
	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("lang", "en-US"),
		chromedp.UserAgent(ua),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	settle := opts.Settle
	if settle <= 0 {
		settle = DefaultSettle
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, allocOpts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	// The first Run starts the browser, so launch failures surface here.
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("starting chrome: %w", err)
	}

	return &Chrome{
		ctx: ctx,
		cancel: func() {
			cancel()
			allocCancel()
		},
		settle: settle,
	}, nil
}

// ChromeOpener returns an Opener that launches a new browser per session.
func ChromeOpener(opts ChromeOptions) Opener {
	return func(ctx context.Context) (Page, error) {
		return NewChrome(ctx, opts)
	}
}

// run executes actions on the tab while honoring the caller's deadline and cancellation.
func (c *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(c.ctx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	return c.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func (c *Chrome) Fill(ctx context.Context, locator, value string) error {
	return c.run(ctx,
		chromedp.WaitVisible(locator, chromedp.ByQuery),
		chromedp.SetValue(locator, "", chromedp.ByQuery),
		chromedp.SendKeys(locator, value, chromedp.ByQuery),
	)
}

func (c *Chrome) PressEnter(ctx context.Context) error {
	return c.run(ctx, chromedp.KeyEvent(kb.Enter))
}

func (c *Chrome) FindAll(ctx context.Context, locator string) ([]Element, error) {
	var nodes []*cdp.Node
	if err := c.run(ctx, chromedp.Nodes(locator, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return nil, fmt.Errorf("querying %q: %w", locator, err)
	}
	elems := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		elems = append(elems, &chromeElement{page: c, node: n})
	}
	return elems, nil
}

const scrollScript = `(function(sel, delta) {
  const el = document.querySelector(sel);
  if (el) {
    el.scrollBy(0, delta);
    return true;
  }
  window.scrollBy(0, delta);
  return false;
})(%q, %d)`

// WaitFor blocks until an element matching locator is visible. It reports
// false, without error, when timeout passes first.
func (c *Chrome) WaitFor(ctx context.Context, locator string, timeout time.Duration) (bool, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	err := c.run(waitCtx, chromedp.WaitVisible(locator, chromedp.ByQuery))
	switch {
	case err == nil:
		return true, nil
	case ctx.Err() != nil:
		return false, ctx.Err()
	case errors.Is(waitCtx.Err(), context.DeadlineExceeded):
		return false, nil
	}
	return false, fmt.Errorf("waiting for %q: %w", locator, err)
}

func (c *Chrome) Scroll(ctx context.Context, locator string, delta int) error {
	var found bool
	return c.run(ctx, chromedp.Evaluate(fmt.Sprintf(scrollScript, locator, delta), &found))
}

// Settle waits the configured pause, then polls until the document reports complete.
func (c *Chrome) Settle(ctx context.Context) error {
	if c.settle > 0 {
		select {
		case <-time.After(c.settle):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	deadline := time.Now().Add(readyTimeout)
	for {
		var state string
		if err := c.run(ctx, chromedp.Evaluate(`document.readyState`, &state)); err != nil {
			return fmt.Errorf("reading ready state: %w", err)
		}
		if state == "complete" || time.Now().After(deadline) {
			return nil
		}
		select {
		case <-time.After(readyPollInterval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Chrome) Title(ctx context.Context) (string, error) {
	var title string
	err := c.run(ctx, chromedp.Title(&title))
	return title, err
}

func (c *Chrome) URL(ctx context.Context) (string, error) {
	var loc string
	err := c.run(ctx, chromedp.Location(&loc))
	return loc, err
}

func (c *Chrome) HTML(ctx context.Context) (string, error) {
	var html string
	err := c.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (c *Chrome) Close() error {
	c.cancel()
	return nil
}

type chromeElement struct {
	page *Chrome
	node *cdp.Node
}

func (e *chromeElement) Text(ctx context.Context) (string, error) {
	var text string
	err := e.page.run(ctx, chromedp.TextContent([]cdp.NodeID{e.node.NodeID}, &text, chromedp.ByNodeID))
	return text, err
}

func (e *chromeElement) Click(ctx context.Context) error {
	return e.page.run(ctx, chromedp.MouseClickNode(e.node))
}
