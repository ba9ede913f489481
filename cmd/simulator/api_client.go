package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dom/mafia-server/internal/domain"
	"github.com/dom/mafia-server/internal/protocol"
	"github.com/google/uuid"
)

// APIClient handles HTTP communication with the backend
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClient creates a new API client
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: strings.TrimSuffix(baseURL, "/") + "/api/v1",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WebSocketURL derives the socket endpoint from the HTTP base URL.
func (c *APIClient) WebSocketURL() string {
	u := c.baseURL + "/ws"
	if strings.HasPrefix(u, "https://") {
		return "wss://" + strings.TrimPrefix(u, "https://")
	}
	return "ws://" + strings.TrimPrefix(u, "http://")
}

type GuestSession struct {
	User struct {
		ID   uuid.UUID `json:"id"`
		Name string    `json:"name"`
	} `json:"user"`
	AccessToken string `json:"accessToken"`
}

// Guest creates a guest identity and returns its token.
func (c *APIClient) Guest(name string) (*GuestSession, error) {
	body, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Post(c.baseURL+"/auth/guest", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("guest request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, readError(resp)
	}

	var result GuestSession
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}

// ListGames returns archived games played in the room with the given code.
func (c *APIClient) ListGames(token, code string, limit int) ([]domain.GameRecord, error) {
	path := fmt.Sprintf("/rooms/%s/games?limit=%d", url.PathEscape(code), limit)
	var records []domain.GameRecord
	if err := c.get(path, token, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *APIClient) get(path, token string, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func readError(resp *http.Response) error {
	var apiErr protocol.Error
	body, _ := io.ReadAll(resp.Body)
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Code != "" {
		return fmt.Errorf("%s (status %d): %s", apiErr.Code, resp.StatusCode, apiErr.Message)
	}
	return fmt.Errorf("request failed (status %d): %s", resp.StatusCode, string(body))
}
