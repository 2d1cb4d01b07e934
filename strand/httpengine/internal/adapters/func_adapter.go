package adapters

import "context"

// FuncAdapter wraps a plain function to implement the HTTPAdapter interface.
// It backs custom transports and test fakes.
type FuncAdapter struct {
	send func(ctx context.Context, endpoint string, headers map[string]string, body []byte) (int, []byte, error)
}

// NewFuncAdapter creates a transport adapter around the given send function.
func NewFuncAdapter(
	send func(ctx context.Context, endpoint string, headers map[string]string, body []byte) (int, []byte, error),
) *FuncAdapter {
	return &FuncAdapter{send: send}
}

// Send delegates to the wrapped function.
func (a *FuncAdapter) Send(
	ctx context.Context,
	endpoint string,
	headers map[string]string,
	body []byte,
) (int, []byte, error) {

	return a.send(ctx, endpoint, headers, body)
}
