package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/minhtien379/Loto/internal/api/request"
	"github.com/minhtien379/Loto/internal/api/response"
	"github.com/minhtien379/Loto/internal/model"
)

// Client talks to the room server's HTTP API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetToken updates the client's token
func (c *Client) SetToken(token string) {
	c.token = token
}

// APIError represents an error response from the API
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an API error
type ErrorResponse struct {
	Error APIError `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

// IsAPIError reports whether err is an API error with code
func IsAPIError(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// Do performs an HTTP request
func (c *Client) Do(method, path string, body, result any) error {
	target := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, target, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	// Check for error responses
	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error.Code != "" {
			errResp.Error.Status = resp.StatusCode
			return &errResp.Error
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	// Parse successful response
	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}

// Get performs a GET request
func (c *Client) Get(path string, result any) error {
	return c.Do(http.MethodGet, path, nil, result)
}

// Post performs a POST request
func (c *Client) Post(path string, body, result any) error {
	return c.Do(http.MethodPost, path, body, result)
}

// Put performs a PUT request
func (c *Client) Put(path string, body, result any) error {
	return c.Do(http.MethodPut, path, body, result)
}

// Delete performs a DELETE request
func (c *Client) Delete(path string, result any) error {
	return c.Do(http.MethodDelete, path, nil, result)
}

// roomPath builds an API path under /api/v1/rooms/{code}
func roomPath(code model.RoomCode, suffix string) string {
	return "/api/v1/rooms/" + url.PathEscape(string(code)) + suffix
}

// Room routes. Everything except CreateRoom, Room and Health needs the host token.

func (c *Client) Health() (HealthResult, error) {
	var result HealthResult
	err := c.Get("/api/v1/health", &result)
	return result, err
}

func (c *Client) CreateRoom() (response.CreateRoomResponse, error) {
	var result response.CreateRoomResponse
	err := c.Post("/api/v1/rooms", nil, &result)
	return result, err
}

// Room returns the public summary of a room
func (c *Client) Room(code model.RoomCode) (response.RoomSummary, error) {
	var result response.RoomSummary
	err := c.Get(roomPath(code, ""), &result)
	return result, err
}

// RestoreRoom reopens a room from its saved state
func (c *Client) RestoreRoom(code model.RoomCode, token string) (response.RoomSummary, error) {
	var result response.RoomSummary
	err := c.Post(roomPath(code, "/restore"), request.RestoreRoomRequest{HostToken: token}, &result)
	return result, err
}

func (c *Client) SavedState(code model.RoomCode) (response.SavedState, error) {
	var result response.SavedState
	err := c.Get(roomPath(code, "/saved"), &result)
	return result, err
}

func (c *Client) DiscardSaved(code model.RoomCode) error {
	return c.Delete(roomPath(code, "/saved"), nil)
}

func (c *Client) RoomState(code model.RoomCode) (response.RoomState, error) {
	var result response.RoomState
	err := c.Get(roomPath(code, "/state"), &result)
	return result, err
}

func (c *Client) Draw(code model.RoomCode) (response.DrawResponse, error) {
	var result response.DrawResponse
	err := c.Post(roomPath(code, "/draw"), nil, &result)
	return result, err
}

func (c *Client) Reset(code model.RoomCode) (response.ResetResponse, error) {
	var result response.ResetResponse
	err := c.Post(roomPath(code, "/reset"), nil, &result)
	return result, err
}

// StartAutoDraw draws every interval until stopped; the server rejects intervals under a second
func (c *Client) StartAutoDraw(code model.RoomCode, interval time.Duration) (response.AutoDrawResponse, error) {
	var result response.AutoDrawResponse
	err := c.Post(roomPath(code, "/auto-draw"), request.AutoDrawRequest{IntervalMs: interval.Milliseconds()}, &result)
	return result, err
}

func (c *Client) StopAutoDraw(code model.RoomCode) (response.AutoDrawResponse, error) {
	var result response.AutoDrawResponse
	err := c.Delete(roomPath(code, "/auto-draw"), &result)
	return result, err
}

func (c *Client) Toast(code model.RoomCode, message string, style model.ToastStyle) error {
	return c.Post(roomPath(code, "/toast"), request.ToastRequest{Message: message, Style: string(style)}, nil)
}

func (c *Client) SetVoiceMode(code model.RoomCode, mode model.VoiceMode) error {
	return c.Put(roomPath(code, "/voice-mode"), request.VoiceModeRequest{Mode: string(mode)}, nil)
}

func (c *Client) Emote(code model.RoomCode, emoji string) error {
	return c.Post(roomPath(code, "/emote"), request.EmoteRequest{Emoji: emoji}, nil)
}

func (c *Client) Shout(code model.RoomCode, text string) error {
	return c.Post(roomPath(code, "/shout"), request.ShoutRequest{Text: text}, nil)
}

// CloseRoom disconnects every player; the saved state is kept
func (c *Client) CloseRoom(code model.RoomCode) error {
	return c.Delete(roomPath(code, ""), nil)
}
