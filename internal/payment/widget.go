package payment

import (
	"context"
	"errors"
	"net/url"
	"sync"
)

// DefaultScriptURL is the Razorpay checkout script the view injects.
const DefaultScriptURL = "https://checkout.razorpay.com/v1/checkout.js"

// SessionWidget is the WidgetLoader of one browser session.  The browser
// owns the real widget: Load checks the script can be injected, Open parks
// the checkout options until the view fetches them and shows the widget.
// The widget's callback comes back through Coordinator.Deliver.
type SessionWidget struct {
	ScriptURL string
	Key       string

	mu      sync.Mutex
	loaded  bool
	pending *CheckoutOptions
}

// NewSessionWidget returns a widget for the given script and merchant key.
func NewSessionWidget(scriptURL, key string) *SessionWidget {
	if scriptURL == "" {
		scriptURL = DefaultScriptURL
	}
	return &SessionWidget{ScriptURL: scriptURL, Key: key}
}

// Load validates the script URL and merchant key.  It only does work the
// first time it succeeds.
func (w *SessionWidget) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.loaded {
		return nil
	}
	u, err := url.ParseRequestURI(w.ScriptURL)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") {
		return errors.New("invalid payment script url")
	}
	if w.Key == "" {
		return errors.New("payment key not configured")
	}
	w.loaded = true
	return nil
}

// Open parks opts for the view.
func (w *SessionWidget) Open(ctx context.Context, opts CheckoutOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.loaded {
		return errors.New("payment widget not loaded")
	}
	o := opts
	w.pending = &o
	return nil
}

// Pending returns the options of the widget currently open, if any.
func (w *SessionWidget) Pending() (CheckoutOptions, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending == nil {
		return CheckoutOptions{}, false
	}
	return *w.pending, true
}

// Close clears the pending options once the attempt has ended.
func (w *SessionWidget) Close() {
	w.mu.Lock()
	w.pending = nil
	w.mu.Unlock()
}

