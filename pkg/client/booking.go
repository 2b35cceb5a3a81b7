package client

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/sirsanndy/room-booking-sub001/pkg/model"
)

// BookingClient is a thin API client used by integration tests and tooling.
// Every call carries the acting user in the X-User-ID header.
type BookingClient struct {
	httpClient *HttpClient
	userID     string
}

func NewBookingClient(baseURL, userID string) *BookingClient {
	return &BookingClient{
		httpClient: NewHttpClient(baseURL),
		userID:     userID,
	}
}

// WithUser derives a client that acts as another user against the same host.
func (c *BookingClient) WithUser(userID string) *BookingClient {
	return &BookingClient{
		httpClient: c.httpClient,
		userID:     userID,
	}
}

func (c *BookingClient) headers() map[string]string {
	return map[string]string{"X-User-ID": c.userID}
}

func (c *BookingClient) Create(body any) (*Response, error) {
	return c.httpClient.POST("/api/v1/bookings", body, c.headers())
}

// CreateIdempotent sends a create carrying an Idempotency-Key header, so a
// retried request replays the first response instead of double-booking.
func (c *BookingClient) CreateIdempotent(body any, key string) (*Response, error) {
	headers := c.headers()
	headers["Idempotency-Key"] = key
	return c.httpClient.POST("/api/v1/bookings", body, headers)
}

func (c *BookingClient) CreateRaw(rawBody []byte) (*Response, error) {
	return c.httpClient.POSTRaw("/api/v1/bookings", rawBody, c.headers())
}

func (c *BookingClient) GetByID(id string) (*Response, error) {
	path := "/api/v1/bookings/id/" + url.PathEscape(id)
	return c.httpClient.GET(path, c.headers())
}

func (c *BookingClient) Update(id string, body any) (*Response, error) {
	path := "/api/v1/bookings/id/" + url.PathEscape(id)
	return c.httpClient.PATCH(path, body, c.headers())
}

func (c *BookingClient) UpdateRaw(id string, rawBody []byte) (*Response, error) {
	path := "/api/v1/bookings/id/" + url.PathEscape(id)
	return c.httpClient.PATCHRaw(path, rawBody, c.headers())
}

func (c *BookingClient) Cancel(id string, version int64) (*Response, error) {
	path := "/api/v1/bookings/id/" + url.PathEscape(id)
	body := map[string]int64{"version": version}
	return c.httpClient.DELETE(path, body, c.headers())
}

func (c *BookingClient) GetMy(limit int, offset int64) (*Response, error) {
	path := fmt.Sprintf("/api/v1/bookings/my?limit=%d&offset=%d", limit, offset)
	return c.httpClient.GET(path, c.headers())
}

func (c *BookingClient) GetUpcoming(limit int, offset int64) (*Response, error) {
	path := fmt.Sprintf("/api/v1/bookings/upcoming?limit=%d&offset=%d", limit, offset)
	return c.httpClient.GET(path, c.headers())
}

func (c *BookingClient) GetDashboardSummary() (*Response, error) {
	return c.httpClient.GET("/api/v1/dashboard/summary", c.headers())
}

func (c *BookingClient) DecodeBooking(resp *Response) (*model.Booking, error) {
	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}

	if err := json.Unmarshal(resp.Body, &wrapper); err != nil {
		return nil, fmt.Errorf("could not decode booking wrapper:\n%+v\n%s", resp.ToString(), err)
	}

	var booking model.Booking
	if err := json.Unmarshal(wrapper.Data, &booking); err != nil {
		return nil, fmt.Errorf("could not decode booking json:\n%+v\n%s", resp.ToString(), err)
	}

	return &booking, nil
}

func (c *BookingClient) DecodeBookings(resp *Response) ([]*model.Booking, *Metadata, error) {
	var wrapper struct {
		Data       json.RawMessage `json:"data"`
		TotalCount int64           `json:"total_count"`
		Limit      int             `json:"limit"`
		Offset     int64           `json:"offset"`
	}

	if err := json.Unmarshal(resp.Body, &wrapper); err != nil {
		return nil, nil, fmt.Errorf("could not decode paginated resp:\n%+v\n%s", resp.ToString(), err)
	}

	var bookings []*model.Booking
	if err := json.Unmarshal(wrapper.Data, &bookings); err != nil {
		return nil, nil, fmt.Errorf("could not decode booking list:\n%+v\n%s", resp.ToString(), err)
	}

	metadata := &Metadata{
		TotalCount: wrapper.TotalCount,
		Limit:      wrapper.Limit,
		Offset:     wrapper.Offset,
	}

	return bookings, metadata, nil
}
