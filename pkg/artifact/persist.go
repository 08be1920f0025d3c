package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/buger/jsonparser"
	"github.com/cenkalti/backoff/v4"
	"github.com/jensneuse/abstractlogger"
	"github.com/tidwall/sjson"
)

// Persister registers operation text with a persisted query service and returns its id.
type Persister interface {
	Persist(ctx context.Context, name, text string) (string, error)
}

var ErrPersistResponse = errors.New("invalid persisted query response")

// HTTPPersister posts {"name": ..., "text": ...} to a persisted query endpoint and expects
// {"id": ...} back. Requests are idempotent and retried with exponential backoff; 4xx answers
// are not retried.
type HTTPPersister struct {
	url     string
	client  *http.Client
	retries uint64
	// initialInterval is the first backoff wait, tests shorten it.
	initialInterval time.Duration
	logger          abstractlogger.Logger
}

type HTTPPersisterOption func(p *HTTPPersister)

func WithHTTPClient(client *http.Client) HTTPPersisterOption {
	return func(p *HTTPPersister) {
		p.client = client
	}
}

func WithRetries(retries uint64) HTTPPersisterOption {
	return func(p *HTTPPersister) {
		p.retries = retries
	}
}

func WithInitialInterval(interval time.Duration) HTTPPersisterOption {
	return func(p *HTTPPersister) {
		p.initialInterval = interval
	}
}

func WithPersisterLogger(logger abstractlogger.Logger) HTTPPersisterOption {
	return func(p *HTTPPersister) {
		p.logger = logger
	}
}

func NewHTTPPersister(url string, opts ...HTTPPersisterOption) *HTTPPersister {
	p := &HTTPPersister{
		url:             url,
		client:          http.DefaultClient,
		retries:         3,
		initialInterval: 100 * time.Millisecond,
		logger:          abstractlogger.NoopLogger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *HTTPPersister) Persist(ctx context.Context, name, text string) (string, error) {
	body, err := sjson.SetBytes([]byte(`{}`), "name", name)
	if err != nil {
		return "", err
	}
	body, err = sjson.SetBytes(body, "text", text)
	if err != nil {
		return "", err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = p.initialInterval

	var id string
	attempt := 0
	operation := func() error {
		attempt++
		id, err = p.post(ctx, body)
		return err
	}
	notify := func(err error, wait time.Duration) {
		p.logger.Debug("artifact.persist.retry",
			abstractlogger.String("name", name),
			abstractlogger.Int("attempt", attempt),
			abstractlogger.Any("wait", wait),
			abstractlogger.Error(err),
		)
	}
	if err := backoff.RetryNotify(operation, backoff.WithContext(backoff.WithMaxRetries(policy, p.retries), ctx), notify); err != nil {
		return "", fmt.Errorf("persist %s: %w", name, err)
	}
	return id, nil
}

func (p *HTTPPersister) post(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return "", backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}
	if res.StatusCode >= 500 {
		return "", fmt.Errorf("persisted query service returned %d", res.StatusCode)
	}
	if res.StatusCode >= 400 {
		return "", backoff.Permanent(fmt.Errorf("persisted query service returned %d", res.StatusCode))
	}

	id, err := jsonparser.GetString(data, "id")
	if err != nil || id == "" {
		return "", backoff.Permanent(fmt.Errorf("%w: %s", ErrPersistResponse, data))
	}
	return id, nil
}
