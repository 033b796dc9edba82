// Package browser renders panels with lightweight-charts inside headless
// Chrome driven over the DevTools protocol
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/raykavin/chartshot/pkg/layout"
	"github.com/raykavin/chartshot/pkg/logger"
	"github.com/raykavin/chartshot/pkg/render"
)

const readySelector = `body[data-ready="1"]`

var errClosed = errors.New("surface already closed")

// Provider owns one browser process. Each Acquire opens a new tab.
type Provider struct {
	remoteURL  string
	execPath   string
	libraryURL string
	settle     time.Duration
	timeout    time.Duration
	debug      bool
	log        logger.Logger

	document    *panelPage
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// Option configures a Provider
type Option func(*Provider)

// WithRemoteURL attaches to an already running browser instead of launching one
func WithRemoteURL(url string) Option {
	return func(p *Provider) {
		p.remoteURL = url
	}
}

// WithExecPath sets the Chrome binary to launch
func WithExecPath(path string) Option {
	return func(p *Provider) {
		p.execPath = path
	}
}

// WithLibraryURL overrides where the page loads lightweight-charts from
func WithLibraryURL(url string) Option {
	return func(p *Provider) {
		p.libraryURL = url
	}
}

// WithSettle waits the given time after the page reports ready
func WithSettle(d time.Duration) Option {
	return func(p *Provider) {
		p.settle = d
	}
}

// WithTimeout bounds a single capture
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.timeout = d
	}
}

// WithDebug keeps the page script unminified
func WithDebug(debug bool) Option {
	return func(p *Provider) {
		p.debug = debug
	}
}

// WithLogger sets the provider logger
func WithLogger(log logger.Logger) Option {
	return func(p *Provider) {
		p.log = log
	}
}

// New prepares a provider. The browser starts lazily on the first capture.
func New(options ...Option) (*Provider, error) {
	provider := &Provider{
		libraryURL: DefaultLibraryURL,
		settle:     250 * time.Millisecond,
		timeout:    30 * time.Second,
		log:        logger.Nop(),
	}

	for _, option := range options {
		option(provider)
	}

	var err error
	provider.document, err = newPanelPage(provider.debug)
	if err != nil {
		return nil, err
	}

	if provider.remoteURL != "" {
		provider.allocCtx, provider.allocCancel = chromedp.NewRemoteAllocator(context.Background(), provider.remoteURL)
		return provider, nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Headless,
		chromedp.Flag("hide-scrollbars", true),
	)
	if provider.execPath != "" {
		opts = append(opts, chromedp.ExecPath(provider.execPath))
	}

	provider.allocCtx, provider.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	return provider, nil
}

// Name implements render.Provider
func (p *Provider) Name() string {
	return "browser"
}

// Close stops the browser
func (p *Provider) Close() error {
	p.allocCancel()
	return nil
}

// Acquire implements render.Provider by opening a tab sized to the panel
func (p *Provider) Acquire(ctx context.Context, geometry layout.PanelGeometry) (render.Surface, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tabCtx, tabCancel := chromedp.NewContext(p.allocCtx)
	stop := context.AfterFunc(ctx, tabCancel)

	err := chromedp.Run(tabCtx, chromedp.EmulateViewport(int64(geometry.Width), int64(geometry.Height)))
	if err != nil {
		stop()
		tabCancel()
		return nil, fmt.Errorf("open tab: %w", err)
	}

	p.log.WithField("panel", geometry.Kind).Debug("browser tab opened")

	return &surface{
		provider: p,
		ctx:      tabCtx,
		cancel: func() {
			stop()
			tabCancel()
		},
	}, nil
}

type surface struct {
	provider *Provider
	ctx      context.Context
	cancel   context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// Capture loads the panel document into the tab and screenshots the panel element
func (s *surface) Capture(ctx context.Context, panel render.Panel) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errClosed
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	html, err := s.provider.document.build(panel, s.provider.libraryURL)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(s.ctx, s.provider.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var buf []byte
	err = chromedp.Run(runCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitVisible(readySelector, chromedp.ByQuery),
		chromedp.Sleep(s.provider.settle),
		chromedp.Screenshot("#panel", &buf, chromedp.ByID),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("capture %s panel: %w", panel.Kind, err)
	}

	s.provider.log.WithFields(map[string]any{
		"panel": panel.Kind,
		"bytes": len(buf),
	}).Debug("panel captured")

	return buf, nil
}

// Close implements render.Surface, closing the tab
func (s *surface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errClosed
	}

	s.closed = true
	s.cancel()
	return nil
}
