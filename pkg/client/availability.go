package client

import (
	"context"
	"lodgr/pkg/middleware"
	"lodgr/pkg/model"
	"net/http"
	"net/url"
)

// AvailabilityClient calls a coordinator over HTTP. check, confirm, release
// and listHolds are safe to repeat and are retried on transient failures;
// hold is retried only under an idempotency key.
type AvailabilityClient struct {
	httpClient *HttpClient
}

func NewAvailabilityClient(baseURL string, opts Options) *AvailabilityClient {
	return &AvailabilityClient{
		httpClient: NewHttpClient(baseURL, opts),
	}
}

func unitPath(unitID string) string {
	return "/api/v1/units/" + url.PathEscape(unitID)
}

func (c *AvailabilityClient) Check(ctx context.Context, unitID string, req model.CheckRequest) (*model.CheckResponse, error) {
	var resp model.CheckResponse
	err := c.httpClient.do(ctx, request{
		method: http.MethodPost,
		path:   unitPath(unitID) + "/availability",
		body:   req,
		retry:  true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Hold asks for a hold. With an empty idempotencyKey a failed attempt is not
// retried, since a lost response may still have created a hold.
func (c *AvailabilityClient) Hold(ctx context.Context, unitID string, req model.HoldRequest, idempotencyKey string) (*model.HoldResponse, error) {
	r := request{
		method: http.MethodPost,
		path:   unitPath(unitID) + "/holds",
		body:   req,
	}
	if idempotencyKey != "" {
		r.headers = map[string]string{middleware.IdempotencyKeyHeader: idempotencyKey}
		r.retry = true
	}

	var resp model.HoldResponse
	if err := c.httpClient.do(ctx, r, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *AvailabilityClient) Confirm(ctx context.Context, unitID, token, bookingID string) (*model.ConfirmResponse, error) {
	var resp model.ConfirmResponse
	err := c.httpClient.do(ctx, request{
		method: http.MethodPost,
		path:   unitPath(unitID) + "/holds/" + url.PathEscape(token) + "/confirm",
		body:   model.ConfirmRequest{BookingID: bookingID},
		retry:  true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *AvailabilityClient) Release(ctx context.Context, unitID, token string) (*model.ReleaseResponse, error) {
	var resp model.ReleaseResponse
	err := c.httpClient.do(ctx, request{
		method: http.MethodDelete,
		path:   unitPath(unitID) + "/holds/" + url.PathEscape(token),
		retry:  true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListHolds lists active holds; pass both dates or neither.
func (c *AvailabilityClient) ListHolds(ctx context.Context, unitID, startDate, endDate string) (*model.HoldsResponse, error) {
	path := unitPath(unitID) + "/holds"
	if startDate != "" || endDate != "" {
		q := url.Values{}
		q.Set("startDate", startDate)
		q.Set("endDate", endDate)
		path += "?" + q.Encode()
	}

	var resp model.HoldsResponse
	err := c.httpClient.do(ctx, request{
		method: http.MethodGet,
		path:   path,
		retry:  true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *AvailabilityClient) WaitForHealthy(ctx context.Context) error {
	return c.httpClient.WaitForHealthy(ctx, c.httpClient.opts.AttemptTimeout*10)
}
