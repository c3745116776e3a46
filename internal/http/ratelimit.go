package http

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// rateLimitedBody throttles reads from a response body. Each read is capped
// to the limiter burst so WaitN never rejects the request.
type rateLimitedBody struct {
	ctx     context.Context
	body    io.ReadCloser
	limiter *rate.Limiter
}

func (r *rateLimitedBody) Read(p []byte) (int, error) {
	if burst := r.limiter.Burst(); len(p) > burst {
		p = p[:burst]
	}

	n, err := r.body.Read(p)
	if n > 0 {
		if werr := r.limiter.WaitN(r.ctx, n); werr != nil {
			return n, werr
		}
	}
	return n, err
}

func (r *rateLimitedBody) Close() error {
	return r.body.Close()
}
