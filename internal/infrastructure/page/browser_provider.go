package page

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/importlens/backend/internal/domain"
	"github.com/playwright-community/playwright-go"
)

// BrowserProviderConfig configures the headless browser page fetcher
type BrowserProviderConfig struct {
	Headless  bool
	Timeout   time.Duration
	UserAgent string
	Locale    string
}

// BrowserProvider renders product pages in Chromium before harvesting, for
// marketplaces that build the product view client-side.
type BrowserProvider struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	timeout time.Duration
	logger  *slog.Logger
}

// NewBrowserProvider starts playwright and launches Chromium
func NewBrowserProvider(config BrowserProviderConfig) (*BrowserProvider, error) {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	userAgent := config.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	locale := config.Locale
	if locale == "" {
		locale = "es-AR"
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(config.Headless),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browserContext, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent:         playwright.String(userAgent),
		AcceptDownloads:   playwright.Bool(false),
		JavaScriptEnabled: playwright.Bool(true),
		Locale:            playwright.String(locale),
		Viewport: &playwright.Size{
			Width:  1920,
			Height: 1080,
		},
		ExtraHttpHeaders: map[string]string{
			"Accept-Language": defaultAcceptLanguage,
		},
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	return &BrowserProvider{
		pw:      pw,
		browser: browser,
		context: browserContext,
		timeout: timeout,
		logger:  slog.Default().With("component", "browser"),
	}, nil
}

// Fetch renders the page and harvests its signals. Every failure wraps
// domain.ErrFetchFailure.
func (p *BrowserProvider) Fetch(ctx context.Context, pageURL string) (*domain.PageSignals, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailure, err)
	}

	timeout := p.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	timeoutMs := playwright.Float(float64(timeout.Milliseconds()))

	page, err := p.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("%w: new page: %v", domain.ErrFetchFailure, err)
	}
	defer page.Close()
	page.SetDefaultTimeout(float64(timeout.Milliseconds()))

	resp, err := page.Goto(pageURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   timeoutMs,
	})
	if err != nil {
		p.logger.Error("navigation failed", "url", pageURL, "error", err)
		return nil, fmt.Errorf("%w: navigate: %v", domain.ErrFetchFailure, err)
	}
	if resp != nil && resp.Status() != 200 {
		p.logger.Warn("unexpected status", "url", pageURL, "status", resp.Status())
		return nil, fmt.Errorf("%w: status %d", domain.ErrFetchFailure, resp.Status())
	}

	// Price widgets are usually filled in after DOMContentLoaded
	if err := page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(float64(min(timeout, 5*time.Second).Milliseconds())),
	}); err != nil {
		p.logger.Debug("network did not settle", "url", pageURL, "error", err)
	}

	content, err := page.Content()
	if err != nil {
		return nil, fmt.Errorf("%w: read content: %v", domain.ErrFetchFailure, err)
	}

	p.logger.Info("page rendered", "url", page.URL(), "bytes", len(content))
	return Harvest(page.URL(), content, time.Now())
}

// Close shuts down the browser and playwright driver
func (p *BrowserProvider) Close() error {
	var errs []error

	if p.context != nil {
		if err := p.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
	}
	if p.browser != nil {
		if err := p.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}
	if p.pw != nil {
		if err := p.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}
	return nil
}
