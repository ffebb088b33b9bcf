package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/m-mizutani/burrow/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// MessageSource fetches raw message records page by page. Records are kept
// as decoded JSON objects because the store schema is inferred from them at
// build time.
//
// Fetch returns model.ErrQuotaExhausted when the source reports the quota as
// exceeded and model.ErrSourceNotFound when the requested offset is past the
// end of the data. Both are terminal pagination signals for the caller, not
// failures. Any other non-2xx status, transport error or malformed body is a
// hard error.
type MessageSource interface {
	Fetch(ctx context.Context, offset, limit int) ([]map[string]any, error)
}

type HTTPSource struct {
	baseURL string
	client  *http.Client
}

type HTTPSourceOption func(*HTTPSource)

func WithHTTPClient(client *http.Client) HTTPSourceOption {
	return func(s *HTTPSource) {
		s.client = client
	}
}

func NewHTTPSource(baseURL string, opts ...HTTPSourceOption) *HTTPSource {
	s := &HTTPSource{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *HTTPSource) Fetch(ctx context.Context, offset, limit int) ([]map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create request", goerr.V("url", s.baseURL))
	}

	q := req.URL.Query()
	q.Set("skip", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))
	req.URL.RawQuery = q.Encode()

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch messages", goerr.V("offset", offset))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusPaymentRequired || resp.StatusCode == http.StatusTooManyRequests:
		return nil, goerr.Wrap(model.ErrQuotaExhausted, "source rejected request",
			goerr.V("status", resp.StatusCode), goerr.V("offset", offset))
	case resp.StatusCode == http.StatusNotFound:
		return nil, goerr.Wrap(model.ErrSourceNotFound, "source has no page at offset",
			goerr.V("offset", offset))
	case resp.StatusCode != http.StatusOK:
		return nil, goerr.New("unexpected status from message source",
			goerr.V("status", resp.StatusCode), goerr.V("offset", offset))
	}

	var body map[string]json.RawMessage
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&body); err != nil {
		return nil, goerr.Wrap(err, "failed to decode source response", goerr.V("offset", offset))
	}

	raw, ok := body["items"]
	if !ok {
		return nil, goerr.New("source response has no items field", goerr.V("offset", offset))
	}

	var items []map[string]any
	itemDec := json.NewDecoder(bytes.NewReader(raw))
	itemDec.UseNumber() // keep integer vs float distinction for schema inference
	if err := itemDec.Decode(&items); err != nil {
		return nil, goerr.Wrap(err, "failed to decode items", goerr.V("offset", offset))
	}

	return items, nil
}
