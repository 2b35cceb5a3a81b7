package client

import (
	"encoding/json"
	"fmt"

	"github.com/sirsanndy/room-booking-sub001/pkg/model"
)

type HolidayClient struct {
	httpClient *HttpClient
	userID     string
}

func NewHolidayClient(baseURL, userID string) *HolidayClient {
	return &HolidayClient{
		httpClient: NewHttpClient(baseURL),
		userID:     userID,
	}
}

func (c *HolidayClient) headers() map[string]string {
	return map[string]string{"X-User-ID": c.userID}
}

func (c *HolidayClient) GetByYear(year int) (*Response, error) {
	path := fmt.Sprintf("/api/v1/holidays?year=%d", year)
	return c.httpClient.GET(path, c.headers())
}

func (c *HolidayClient) DecodeHolidays(resp *Response) ([]*model.Holiday, error) {
	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}

	if err := json.Unmarshal(resp.Body, &wrapper); err != nil {
		return nil, fmt.Errorf("could not decode holiday wrapper:\n%+v\n%s", resp.ToString(), err)
	}

	var holidays []*model.Holiday
	if err := json.Unmarshal(wrapper.Data, &holidays); err != nil {
		return nil, fmt.Errorf("could not decode holiday list:\n%+v\n%s", resp.ToString(), err)
	}

	return holidays, nil
}
