package adapters

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// NetHTTPAdapter wraps a net/http client to implement the HTTPAdapter
// interface.
type NetHTTPAdapter struct {
	client *http.Client
}

// NewNetHTTPAdapter creates a transport adapter around the given net/http
// client.
func NewNetHTTPAdapter(client *http.Client) *NetHTTPAdapter {
	return &NetHTTPAdapter{client: client}
}

// Send posts the body to the endpoint and reads the full response body. The
// status code is returned as-is; interpreting it is the caller's concern.
func (a *NetHTTPAdapter) Send(
	ctx context.Context,
	endpoint string,
	headers map[string]string,
	body []byte,
) (int, []byte, error) {

	request, buildErr := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if buildErr != nil {
		return 0, nil, fmt.Errorf("building request: %w", buildErr)
	}

	for key, value := range headers {
		request.Header.Set(key, value)
	}

	response, sendErr := a.client.Do(request)
	if sendErr != nil {
		return 0, nil, sendErr
	}

	defer func() {
		_ = response.Body.Close()
	}()

	responseBody, readErr := io.ReadAll(response.Body)
	if readErr != nil {
		return 0, nil, fmt.Errorf("reading response body: %w", readErr)
	}

	return response.StatusCode, responseBody, nil
}
