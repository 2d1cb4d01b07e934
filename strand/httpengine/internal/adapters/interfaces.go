package adapters

import "context"

// HTTPAdapter defines the interface for transport operations needed by the
// client engine. Send carries one serialized query to the endpoint and
// returns the HTTP status code and the raw response body. The error return
// is reserved for transport failures; service-reported failures travel
// inside the body.
type HTTPAdapter interface {
	Send(ctx context.Context, endpoint string, headers map[string]string, body []byte) (int, []byte, error)
}
