// Package bilibili is the client for the Bilibili live-stream web API.
package bilibili

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	homeURL   = "https://bilibili.com"
	statusURL = "https://api.live.bilibili.com/room/v1/Room/room_init"
	ownerURL  = "https://api.live.bilibili.com/live_user/v1/Master/info"
	userURL   = "https://api.bilibili.com/x/space/acc/info"
	searchURL = "https://api.bilibili.com/x/web-interface/search/type"

	// The API rejects requests without a browser-looking user agent.
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/92.0.4515.159 Safari/537.36 Edg/92.0.902.78"

	maxBodySize = 4 * 1024 * 1024
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Status is the live status of a room.
type Status struct {
	ID      int64
	ShortID int64
	UID     int64
	Live    bool
}

// User is a broadcaster's full profile, including their live room.
type User struct {
	UID      int64
	Username string
	IconURL  string
	Profile  string
	RoomID   int64
	RoomURL  string
	Title    string
	CoverURL string
	HasRoom  bool
	Live     bool
}

// RoomOwner is the reduced broadcaster profile returned by the room
// master endpoint. It needs no credentials, which makes it suitable for
// static-mode bootstrap.
type RoomOwner struct {
	UID      int64
	Username string
	IconURL  string
	News     string
}

// SearchItem is one broadcaster in a search result.
type SearchItem struct {
	UID      int64
	Username string
	RoomID   int64
}

// SearchResult is the outcome of a user search. Total may exceed
// len(Items) when the result set was truncated to the requested limit.
type SearchResult struct {
	Total int
	Items []SearchItem
}

// Client accesses the Bilibili web API.
type Client struct {
	http     HTTPClient
	sessdata string
	timeout  time.Duration
}

// New creates a Client. sessdata is the SESSDATA cookie of a logged-in
// web session, required by the user profile endpoint.
func New(client HTTPClient, sessdata string) *Client {
	return &Client{
		http:     client,
		sessdata: sessdata,
		timeout:  30 * time.Second,
	}
}

type statusPayload struct {
	RoomID     int64 `json:"room_id"`
	ShortID    int64 `json:"short_id"`
	UID        int64 `json:"uid"`
	LiveStatus int   `json:"live_status"`
}

// GetStatus fetches the live status of a room. The returned ID is the
// room's canonical id, which may differ from a short id the caller used.
func (c *Client) GetStatus(ctx context.Context, roomID int64) (*Status, error) {
	var payload statusPayload
	err := c.getJSON(ctx, statusURL, url.Values{"id": {strconv.FormatInt(roomID, 10)}}, nil, &payload)
	if err != nil {
		return nil, err
	}
	return &Status{
		ID:      payload.RoomID,
		ShortID: payload.ShortID,
		UID:     payload.UID,
		Live:    payload.LiveStatus == 1,
	}, nil
}

type userPayload struct {
	Mid      int64  `json:"mid"`
	Name     string `json:"name"`
	Face     string `json:"face"`
	Sign     string `json:"sign"`
	LiveRoom struct {
		RoomID     int64  `json:"roomid"`
		URL        string `json:"url"`
		Title      string `json:"title"`
		Cover      string `json:"cover"`
		RoomStatus int    `json:"roomStatus"`
		LiveStatus int    `json:"liveStatus"`
	} `json:"live_room"`
}

// GetUser fetches a broadcaster's full profile by uid.
func (c *Client) GetUser(ctx context.Context, uid int64) (*User, error) {
	headers := http.Header{}
	if c.sessdata != "" {
		headers.Set("Cookie", "SESSDATA="+c.sessdata)
	}

	var payload userPayload
	err := c.getJSON(ctx, userURL, url.Values{"mid": {strconv.FormatInt(uid, 10)}}, headers, &payload)
	if err != nil {
		return nil, err
	}
	return &User{
		UID:      payload.Mid,
		Username: payload.Name,
		IconURL:  payload.Face,
		Profile:  payload.Sign,
		RoomID:   payload.LiveRoom.RoomID,
		RoomURL:  payload.LiveRoom.URL,
		Title:    payload.LiveRoom.Title,
		CoverURL: payload.LiveRoom.Cover,
		HasRoom:  payload.LiveRoom.RoomStatus == 1,
		Live:     payload.LiveRoom.LiveStatus == 1,
	}, nil
}

type ownerPayload struct {
	Info struct {
		UID   int64  `json:"uid"`
		Uname string `json:"uname"`
		Face  string `json:"face"`
	} `json:"info"`
	RoomNews struct {
		Content string `json:"content"`
	} `json:"room_news"`
}

// GetRoomOwner fetches the reduced broadcaster profile by uid.
func (c *Client) GetRoomOwner(ctx context.Context, uid int64) (*RoomOwner, error) {
	var payload ownerPayload
	err := c.getJSON(ctx, ownerURL, url.Values{"uid": {strconv.FormatInt(uid, 10)}}, nil, &payload)
	if err != nil {
		return nil, err
	}
	return &RoomOwner{
		UID:      payload.Info.UID,
		Username: payload.Info.Uname,
		IconURL:  payload.Info.Face,
		News:     payload.RoomNews.Content,
	}, nil
}

type searchPayload struct {
	NumResults int `json:"numResults"`
	Result     []struct {
		Mid    int64  `json:"mid"`
		Uname  string `json:"uname"`
		RoomID int64  `json:"room_id"`
	} `json:"result"`
}

// Search looks up broadcasters by display name, returning at most limit
// items. The search endpoint wants the anonymous cookies handed out by
// the home page, so one is probed first.
func (c *Client) Search(ctx context.Context, keyword string, limit int) (*SearchResult, error) {
	cookies, err := c.probeCookies(ctx)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	if cookies != "" {
		headers.Set("Cookie", cookies)
	}

	var payload searchPayload
	err = c.getJSON(ctx, searchURL, url.Values{
		"keyword":     {keyword},
		"search_type": {"bili_user"},
	}, headers, &payload)
	if err != nil {
		return nil, err
	}

	result := &SearchResult{Total: payload.NumResults}
	for i := 0; i < len(payload.Result) && i < limit; i++ {
		item := payload.Result[i]
		result.Items = append(result.Items, SearchItem{
			UID:      item.Mid,
			Username: item.Uname,
			RoomID:   item.RoomID,
		})
	}
	return result, nil
}

// GetImage downloads an image (avatar or cover) as raw bytes.
func (c *Client) GetImage(ctx context.Context, imageURL string) ([]byte, error) {
	resp, err := c.get(ctx, imageURL, nil, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Code: CodeNetwork, Op: "get image", cause: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &APIError{Code: CodeNetwork, Op: "get image", cause: err}
	}
	return data, nil
}

func (c *Client) probeCookies(ctx context.Context) (string, error) {
	resp, err := c.get(ctx, homeURL, nil, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))

	var pairs []string
	for _, sc := range resp.Header.Values("Set-Cookie") {
		if i := strings.Index(sc, ";"); i > 0 {
			sc = sc[:i]
		}
		if sc != "" {
			pairs = append(pairs, sc)
		}
	}
	return strings.Join(pairs, "; "), nil
}

func (c *Client) get(ctx context.Context, rawURL string, params url.Values, headers http.Header) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		cancel()
		return nil, &APIError{Code: CodeNetwork, Op: "build request", cause: err}
	}
	if params != nil {
		req.URL.RawQuery = params.Encode()
	}
	req.Header.Set("User-Agent", userAgent)
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		cancel()
		return nil, &APIError{Code: CodeNetwork, Op: "http get", cause: err}
	}
	// The response body outlives this call; tie the timeout to the body.
	resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	b.cancel()
	return b.ReadCloser.Close()
}

type envelope struct {
	Code int             `json:"code"`
	Data json.RawMessage `json:"data"`
}

func (c *Client) getJSON(ctx context.Context, rawURL string, params url.Values, headers http.Header, out any) error {
	resp, err := c.get(ctx, rawURL, params, headers)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return &APIError{Code: CodeNetwork, Op: "http get", cause: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return &APIError{Code: CodeNetwork, Op: "read body", cause: err}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return &APIError{Code: CodeNetwork, Op: "decode body", cause: err}
	}
	if env.Code != 0 {
		return &APIError{Code: env.Code, Op: "upstream"}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &APIError{Code: CodeNetwork, Op: "decode payload", cause: err}
	}
	return nil
}
