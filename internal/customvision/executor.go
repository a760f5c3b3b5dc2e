package customvision

import (
	"context"
	"fmt"

	"github.com/samvad-hq/samvad-vision-predictor/internal/domain"
	"github.com/samvad-hq/samvad-vision-predictor/pkg/httpclient"
)

// Response is the raw outcome of a prediction call.
type Response struct {
	StatusCode int
	Body       []byte
}

// Executor sends prediction requests synchronously over HTTPS.
type Executor struct {
	client httpclient.Client
}

// NewExecutor wires an executor to an HTTP client. The client owns the timeout.
func NewExecutor(client httpclient.Client) *Executor {
	return &Executor{client: client}
}

// Execute validates req, sends it once and returns the status and raw body.
// A non-2xx status returns the Response together with an *APIError.
func (e *Executor) Execute(ctx context.Context, req PredictionRequest) (*Response, error) {
	if e == nil || e.client == nil {
		return nil, fmt.Errorf("executor is not initialized")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	resp, err := e.client.Post(ctx, req.URL(), req.Headers, []byte(req.Body))
	if err != nil {
		// A caller abort is not a network failure.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("prediction request to %s aborted: %w", req.Host, ctxErr)
		}
		return nil, &ConnectivityError{Host: req.Host, Err: err}
	}

	out := &Response{StatusCode: resp.StatusCode(), Body: resp.Body()}
	if out.StatusCode < 200 || out.StatusCode > 299 {
		return out, &APIError{StatusCode: out.StatusCode, Body: out.Body}
	}
	return out, nil
}

// Predict executes req and decodes the prediction result.
func (e *Executor) Predict(ctx context.Context, req PredictionRequest) (*domain.PredictionResult, *Response, error) {
	resp, err := e.Execute(ctx, req)
	if err != nil {
		return nil, resp, err
	}
	result, err := ParseResult(resp.Body)
	if err != nil {
		return nil, resp, err
	}
	return result, resp, nil
}
