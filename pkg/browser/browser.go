// Package browser provides the page-level session controller consumed by the
// decision loop, with a Playwright-backed implementation.
package browser

// Controller performs actual browser-level operations for one page session.
// All methods are best-effort from the loop's perspective: failures are
// reported as errors and the loop decides whether they are fatal.
type Controller interface {
	// Screenshot captures the current viewport as PNG bytes.
	Screenshot() ([]byte, error)

	// Title returns the current page title.
	Title() (string, error)

	// CurrentURL returns the page URL as of the last operation.
	CurrentURL() string

	// Click clicks the first element matching the selector.
	Click(selector string) error

	// Type fills the element matching the selector with text.
	Type(selector, text string) error

	// Navigate loads the given URL and waits for the load event.
	Navigate(url string) error

	// Evaluate runs a JavaScript expression in the page and returns its result.
	Evaluate(script string) (interface{}, error)

	// ExtractText returns the text content of the element matching the
	// selector, or of the body when selector is empty.
	ExtractText(selector string) (string, error)

	// ScrollBy scrolls the page vertically by the given number of pixels.
	ScrollBy(pixels int) error

	// WaitFixed pauses for a fixed number of milliseconds.
	WaitFixed(ms int)

	// WaitForSelector waits until an element matching the selector is
	// attached, or the timeout elapses.
	WaitForSelector(selector string, timeoutMs float64) error

	// Close releases the underlying browser resources.
	Close() error
}

// ToolSession is the narrow capability subset handed to tool code. Tools see
// only these verbs; session lifecycle, screenshots, and waits stay with the
// loop.
type ToolSession interface {
	Click(selector string) error
	Type(selector, text string) error
	Navigate(url string) error
	Evaluate(script string) (interface{}, error)
	ExtractText(selector string) (string, error)
}
