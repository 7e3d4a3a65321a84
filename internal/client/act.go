package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Result mirrors the response of POST /api/v1/tool, /place and /reset.
// A rejected placement is OK=false with Reason set; it is not an error.
type Result struct {
	OK       bool      `json:"ok"`
	Reason   string    `json:"reason"`
	Error    string    `json:"error"`
	Building *Building `json:"building"`
	State    StateView `json:"state"`
}

// SelectTool arms kind, or disarms when kind is "none", empty or already armed.
func (c *Client) SelectTool(kind string) (*Result, error) {
	return c.post("/api/v1/tool", map[string]string{"kind": kind})
}

// Place puts the selected building at (x, z).
func (c *Client) Place(x, z int) (*Result, error) {
	return c.post("/api/v1/place", Coord{X: x, Z: z})
}

// Reset restores the starting city.
func (c *Client) Reset() (*Result, error) {
	return c.post("/api/v1/reset", struct{}{})
}

func (c *Client) post(path string, payload any) (*Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("POST %s failed (%d): %s", path, resp.StatusCode, bytes.TrimSpace(respBody))
	}

	var result Result
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}
