package client

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/sirsanndy/room-booking-sub001/pkg/model"
)

type RoomClient struct {
	httpClient *HttpClient
	userID     string
}

func NewRoomClient(baseURL, userID string) *RoomClient {
	return &RoomClient{
		httpClient: NewHttpClient(baseURL),
		userID:     userID,
	}
}

func (c *RoomClient) headers() map[string]string {
	return map[string]string{"X-User-ID": c.userID}
}

// GetAll fetches the full room inventory. The endpoint is not paginated;
// rooms are administered through the migration seed and the list stays
// small.
func (c *RoomClient) GetAll() (*Response, error) {
	return c.httpClient.GET("/api/v1/rooms", c.headers())
}

func (c *RoomClient) GetByID(id string) (*Response, error) {
	path := "/api/v1/rooms/id/" + url.PathEscape(id)
	return c.httpClient.GET(path, c.headers())
}

// GetSchedule fetches one room's bookings for a YYYY-MM-DD day.
func (c *RoomClient) GetSchedule(id, date string) (*Response, error) {
	path := fmt.Sprintf("/api/v1/rooms/id/%s/schedule?date=%s",
		url.PathEscape(id), url.QueryEscape(date))
	return c.httpClient.GET(path, c.headers())
}

func (c *RoomClient) DecodeRoom(resp *Response) (*model.Room, error) {
	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}

	if err := json.Unmarshal(resp.Body, &wrapper); err != nil {
		return nil, fmt.Errorf("could not decode room wrapper:\n%+v\n%s", resp.ToString(), err)
	}

	var room model.Room
	if err := json.Unmarshal(wrapper.Data, &room); err != nil {
		return nil, fmt.Errorf("could not decode room json:\n%+v\n%s", resp.ToString(), err)
	}

	return &room, nil
}

func (c *RoomClient) DecodeRooms(resp *Response) ([]*model.Room, error) {
	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}

	if err := json.Unmarshal(resp.Body, &wrapper); err != nil {
		return nil, fmt.Errorf("could not decode room list wrapper:\n%+v\n%s", resp.ToString(), err)
	}

	var rooms []*model.Room
	if err := json.Unmarshal(wrapper.Data, &rooms); err != nil {
		return nil, fmt.Errorf("could not decode room list:\n%+v\n%s", resp.ToString(), err)
	}

	return rooms, nil
}

func (c *RoomClient) DecodeSchedule(resp *Response) (*model.RoomSchedule, error) {
	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}

	if err := json.Unmarshal(resp.Body, &wrapper); err != nil {
		return nil, fmt.Errorf("could not decode schedule wrapper:\n%+v\n%s", resp.ToString(), err)
	}

	var schedule model.RoomSchedule
	if err := json.Unmarshal(wrapper.Data, &schedule); err != nil {
		return nil, fmt.Errorf("could not decode schedule json:\n%+v\n%s", resp.ToString(), err)
	}

	return &schedule, nil
}
