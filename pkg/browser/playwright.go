package browser

import (
	"fmt"
	"io"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/webpilot/pkg/config"
)

// Session is a Playwright-backed Controller bound to a single page.
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
}

// NewSession launches a Chromium browser and opens one page configured per
// cfg. Playwright browsers are installed on first use.
func NewSession(cfg config.BrowserConfig) (*Session, error) {
	// Install and run Playwright with output discarded so driver noise does
	// not interleave with our own logs
	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	if err := playwright.Install(runOpts); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: &cfg.Headless,
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	context, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  cfg.ViewportWidth,
			Height: cfg.ViewportHeight,
		},
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := context.NewPage()
	if err != nil {
		context.Close()
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	if cfg.TimeoutMs > 0 {
		page.SetDefaultTimeout(cfg.TimeoutMs)
	}

	return &Session{
		pw:      pw,
		browser: browser,
		context: context,
		page:    page,
	}, nil
}

// Screenshot captures the current viewport as PNG bytes.
func (s *Session) Screenshot() ([]byte, error) {
	data, err := s.page.Screenshot(playwright.PageScreenshotOptions{})
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return data, nil
}

// Title returns the current page title.
func (s *Session) Title() (string, error) {
	title, err := s.page.Title()
	if err != nil {
		return "", fmt.Errorf("title query failed: %w", err)
	}
	return title, nil
}

// CurrentURL returns the page URL as of the last operation.
func (s *Session) CurrentURL() string {
	return s.page.URL()
}

// Click clicks the first element matching the selector.
func (s *Session) Click(selector string) error {
	if err := s.page.Click(selector, playwright.PageClickOptions{}); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	return nil
}

// Type fills the element matching the selector with text.
func (s *Session) Type(selector, text string) error {
	if err := s.page.Fill(selector, text, playwright.PageFillOptions{}); err != nil {
		return fmt.Errorf("fill failed: %w", err)
	}
	return nil
}

// Navigate loads the given URL and waits for the load event.
func (s *Session) Navigate(url string) error {
	if _, err := s.page.Goto(url, playwright.PageGotoOptions{}); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

// Evaluate runs a JavaScript expression in the page and returns its result.
func (s *Session) Evaluate(script string) (interface{}, error) {
	result, err := s.page.Evaluate(script)
	if err != nil {
		return nil, fmt.Errorf("evaluate failed: %w", err)
	}
	return result, nil
}

// ExtractText returns the text content of the element matching the selector,
// or of the body when selector is empty.
func (s *Session) ExtractText(selector string) (string, error) {
	if selector == "" {
		selector = "body"
	}

	element, err := s.page.QuerySelector(selector)
	if err != nil {
		return "", fmt.Errorf("selector query failed: %w", err)
	}
	if element == nil {
		return "", fmt.Errorf("no element found matching selector: %s", selector)
	}

	content, err := element.TextContent()
	if err != nil {
		return "", fmt.Errorf("text extraction failed: %w", err)
	}
	return content, nil
}

// ScrollBy scrolls the page vertically by the given number of pixels.
func (s *Session) ScrollBy(pixels int) error {
	script := fmt.Sprintf("window.scrollBy(0, %d)", pixels)
	if _, err := s.page.Evaluate(script); err != nil {
		return fmt.Errorf("scroll failed: %w", err)
	}
	return nil
}

// WaitFixed pauses for a fixed number of milliseconds.
func (s *Session) WaitFixed(ms int) {
	time.Sleep(time.Duration(ms) * time.Millisecond)
}

// WaitForSelector waits until an element matching the selector is attached,
// or the timeout elapses.
func (s *Session) WaitForSelector(selector string, timeoutMs float64) error {
	opts := playwright.PageWaitForSelectorOptions{}
	if timeoutMs > 0 {
		opts.Timeout = &timeoutMs
	}

	if _, err := s.page.WaitForSelector(selector, opts); err != nil {
		return fmt.Errorf("wait failed: %w", err)
	}
	return nil
}

// Close releases the page, context, browser, and Playwright driver.
func (s *Session) Close() error {
	// Ignore individual close errors, continue cleanup
	_ = s.page.Close()
	_ = s.context.Close()
	_ = s.browser.Close()

	if err := s.pw.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}
