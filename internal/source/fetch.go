package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/pababhi7/device-checker/internal/device"
)

const (
	// UserAgent identifies the checker to the sources it polls.
	UserAgent = "device-checker/1.0 (github.com/pababhi7/device-checker)"

	requestTimeout = 30 * time.Second

	// maxBodyBytes bounds how much of a response we are willing to read.
	maxBodyBytes = 16 << 20
)

// RetryPolicy bounds the fetch retry loop. Zero values fall back to the
// defaults from DefaultRetryPolicy.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy returns the retry policy used when the config does not
// override it.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 2 * time.Second,
		MaxInterval:     30 * time.Second,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = def.InitialInterval
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = def.MaxInterval
	}
	return p
}

// Fetcher retrieves and parses source payloads with bounded retries.
type Fetcher struct {
	client *http.Client
	retry  RetryPolicy
}

// NewFetcher creates a Fetcher with the given retry policy.
func NewFetcher(retry RetryPolicy) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: requestTimeout},
		retry:  retry.withDefaults(),
	}
}

// Result is the outcome of fetching one source: either a device list or an
// error (*FetchError or *ParseError), never both.
type Result struct {
	Source  Source
	Devices []*device.Device
	Err     error
}

// OK reports whether the source was fetched and parsed successfully.
func (r Result) OK() bool { return r.Err == nil }

// Fetch retrieves one source and parses its payload into devices. Transport
// failures and 5xx responses are retried with exponential backoff up to the
// policy's attempt budget; 4xx responses and parse failures are not.
func (f *Fetcher) Fetch(ctx context.Context, src Source) ([]*device.Device, error) {
	var body []byte
	attempts := 0

	op := func() error {
		attempts++
		data, err := f.download(ctx, src)
		if err != nil {
			return err
		}
		body = data
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = f.retry.InitialInterval
	bo.MaxInterval = f.retry.MaxInterval

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(f.retry.MaxAttempts-1)), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, &FetchError{Source: src.Name, Attempts: attempts, Err: err}
	}

	devices, err := parse(src, body)
	if err != nil {
		return nil, err
	}
	return devices, nil
}

func (f *Fetcher) download(ctx context.Context, src Source) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			// Client errors will not heal with retries.
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return data, nil
}

// FetchAll fetches every source concurrently and joins all of them before
// returning, so the diff never sees a partially fetched run. Results are
// returned in source order; a failed source carries its error while the
// others still carry devices.
func (f *Fetcher) FetchAll(ctx context.Context, sources []Source) []Result {
	results := make([]Result, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			devices, err := f.Fetch(ctx, src)
			results[i] = Result{Source: src, Devices: devices, Err: err}
		}(i, src)
	}
	wg.Wait()

	return results
}
