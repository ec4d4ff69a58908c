/*
Package nfc polls a local card reader and turns card taps into punches.

PURPOSE:
  A terminal at the office door exposes the last card it saw over HTTP.
  The poller asks it periodically, drops repeated reads of the same card
  and hands each fresh uid to a Sink (the API handler records the next
  punch for the card's owner).

DESIGN:
  - Reader: where uids come from (HTTPReader in production, fakes in tests)
  - Debouncer: a uid seen again within Window is ignored
  - Poller: background goroutine with ticker and stop channel

CONFIGURATION:
  - Interval: How often to poll (default: 2 seconds)
  - Window:   Debounce window (default: 5 seconds)

USAGE:
  poller := nfc.NewPoller(nfc.NewHTTPReader(url, nil), handler.RecordCard, logger)
  poller.Start()
  // ... later
  poller.Stop()

SEE ALSO:
  - api/handlers.go: RecordCard sink
*/
package nfc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	DefaultInterval = 2 * time.Second
	DefaultWindow   = 5 * time.Second
)

// =============================================================================
// READER
// =============================================================================

// Reader returns the uid of the card currently on the reader, or "" if none.
type Reader interface {
	Read(ctx context.Context) (string, error)
}

// HTTPReader asks a reader service that answers GET with {"uid": "..."}.
type HTTPReader struct {
	URL    string
	Client *http.Client
}

func NewHTTPReader(url string, client *http.Client) *HTTPReader {
	if client == nil {
		client = &http.Client{Timeout: 3 * time.Second}
	}
	return &HTTPReader{URL: url, Client: client}
}

type readResponse struct {
	UID string `json:"uid"`
}

func (r *HTTPReader) Read(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, nil)
	if err != nil {
		return "", fmt.Errorf("build reader request: %w", err)
	}
	resp, err := r.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("reader request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("reader returned status %d", resp.StatusCode)
	}

	var body readResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode reader response: %w", err)
	}
	return strings.TrimSpace(body.UID), nil
}

// =============================================================================
// DEBOUNCE
// =============================================================================

// Clock is the time source for debouncing.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// Debouncer remembers when each uid was last accepted.
type Debouncer struct {
	Window time.Duration
	Clock  Clock

	mu   sync.Mutex
	seen map[string]time.Time
}

func NewDebouncer(window time.Duration, clock Clock) *Debouncer {
	if clock == nil {
		clock = SystemClock
	}
	return &Debouncer{Window: window, Clock: clock, seen: make(map[string]time.Time)}
}

// Accept reports whether uid should be processed now. A rejected read does
// not extend the window. A nil Debouncer accepts every uid.
func (d *Debouncer) Accept(uid string) bool {
	if d == nil {
		return true
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	clock := d.Clock
	if clock == nil {
		clock = SystemClock
	}
	now := clock.Now()
	if last, ok := d.seen[uid]; ok && now.Sub(last) < d.Window {
		return false
	}
	if d.seen == nil {
		d.seen = make(map[string]time.Time)
	}
	d.seen[uid] = now

	for k, t := range d.seen {
		if now.Sub(t) >= d.Window {
			delete(d.seen, k)
		}
	}
	return true
}

// =============================================================================
// POLLER
// =============================================================================

// Sink receives each accepted uid.
type Sink func(ctx context.Context, uid string) error

type Poller struct {
	Reader    Reader
	Sink      Sink
	Debouncer *Debouncer
	Interval  time.Duration
	Logger    *slog.Logger

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func NewPoller(reader Reader, sink Sink, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		Reader:    reader,
		Sink:      sink,
		Debouncer: NewDebouncer(DefaultWindow, SystemClock),
		Interval:  DefaultInterval,
		Logger:    logger,
	}
}

// Start begins polling in the background. Calling Start twice is a no-op.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ticker != nil {
		return
	}
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	p.ticker = time.NewTicker(interval)
	p.stop = make(chan struct{})
	p.wg.Add(1)

	go p.run(p.ticker, p.stop)

	p.logger().Info("nfc poller started", "interval", interval)
}

// Stop halts polling and waits for an in-flight poll to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ticker == nil {
		return
	}
	p.ticker.Stop()
	close(p.stop)
	p.wg.Wait()
	p.ticker = nil
	p.logger().Info("nfc poller stopped")
}

func (p *Poller) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer p.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-stop
		cancel()
	}()

	for {
		select {
		case <-ticker.C:
			if err := p.Poll(ctx); err != nil {
				p.logger().Warn("nfc poll failed", "error", err)
			}
		case <-stop:
			return
		}
	}
}

// Poll performs one read. It returns the reader's error; sink errors are
// logged so a bad card does not look like a broken reader.
func (p *Poller) Poll(ctx context.Context) error {
	uid, err := p.Reader.Read(ctx)
	if err != nil {
		return err
	}
	if uid == "" || !p.Debouncer.Accept(uid) {
		return nil
	}
	if err := p.Sink(ctx, uid); err != nil {
		p.logger().Warn("nfc card rejected", "uid", uid, "error", err)
		return nil
	}
	p.logger().Info("nfc card recorded", "uid", uid)
	return nil
}

func (p *Poller) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}
