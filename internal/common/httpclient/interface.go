package httpclient

import "context"

// HTTPClientInterface is the request surface the gateway depends on. Tests substitute
// an httptest server behind the real client rather than faking this interface, but
// controllers that only need a transport can accept it.
type HTTPClientInterface interface {
	DoRequest(ctx context.Context, opts RequestOptions) (*Response, error)
}

var _ HTTPClientInterface = &HTTPClient{}
