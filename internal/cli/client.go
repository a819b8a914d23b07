package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tycoon/internal/game"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// APIError is a non-2xx answer from the server. Anything else returned by Client is a transport failure.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

// IsTransportError reports whether err happened before the server could answer.
func IsTransportError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	return !errors.As(err, &apiErr)
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func gamePath(gameID, suffix string) string {
	return "/v1/games/" + url.PathEscape(gameID) + suffix
}

func (c *Client) Catalog(ctx context.Context) (game.Catalog, error) {
	var out game.Catalog
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/catalog", nil, &out, "")
	return out, err
}

func (c *Client) NewGame(ctx context.Context, playerName, homeBase string) (game.View, error) {
	var out game.View
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/games", map[string]any{
		"player_name": playerName,
		"home_base":   homeBase,
	}, &out, "")
	return out, err
}

func (c *Client) Game(ctx context.Context, gameID string) (game.View, error) {
	var out game.View
	err := c.jsonRequest(ctx, http.MethodGet, gamePath(gameID, ""), nil, &out, "")
	return out, err
}

func (c *Client) Market(ctx context.Context, gameID, region string) (game.MarketView, error) {
	path := gamePath(gameID, "/market")
	if region != "" {
		path += "/" + url.PathEscape(region)
	}
	var out game.MarketView
	err := c.jsonRequest(ctx, http.MethodGet, path, nil, &out, "")
	return out, err
}

func (c *Client) Trade(ctx context.Context, gameID, side, productID string, qty int, idem string) (game.TradeResult, error) {
	var out game.TradeResult
	err := c.jsonRequest(ctx, http.MethodPost, gamePath(gameID, "/"+side), map[string]any{
		"product_id": productID,
		"quantity":   qty,
	}, &out, idem)
	return out, err
}

func (c *Client) Travel(ctx context.Context, gameID, destination, idem string) (game.TravelResult, error) {
	var out game.TravelResult
	err := c.jsonRequest(ctx, http.MethodPost, gamePath(gameID, "/travel"), map[string]any{
		"destination": destination,
	}, &out, idem)
	return out, err
}

// Money posts an amount to one of bank/deposit, bank/withdraw, loan/take or loan/repay.
func (c *Client) Money(ctx context.Context, gameID, action string, amountCents int64, idem string) (game.View, error) {
	var out game.View
	err := c.jsonRequest(ctx, http.MethodPost, gamePath(gameID, "/"+action), map[string]any{
		"amount_cents": amountCents,
	}, &out, idem)
	return out, err
}

func (c *Client) Build(ctx context.Context, gameID, facility, idem string) (game.View, error) {
	var out game.View
	err := c.jsonRequest(ctx, http.MethodPost, gamePath(gameID, "/build"), map[string]any{
		"facility": facility,
	}, &out, idem)
	return out, err
}

func (c *Client) Staff(ctx context.Context, gameID, action, role, idem string) (game.View, error) {
	var out game.View
	err := c.jsonRequest(ctx, http.MethodPost, gamePath(gameID, "/staff/"+action), map[string]any{
		"role": role,
	}, &out, idem)
	return out, err
}

func (c *Client) Retire(ctx context.Context, gameID, idem string) (game.View, error) {
	var out game.View
	err := c.jsonRequest(ctx, http.MethodPost, gamePath(gameID, "/retire"), nil, &out, idem)
	return out, err
}

func (c *Client) SubmitScore(ctx context.Context, gameID string) (game.Score, error) {
	var out game.Score
	err := c.jsonRequest(ctx, http.MethodPost, gamePath(gameID, "/score"), nil, &out, "")
	return out, err
}

func (c *Client) Leaderboard(ctx context.Context, limit int) ([]game.LeaderboardRow, error) {
	var out struct {
		Rows []game.LeaderboardRow `json:"rows"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, fmt.Sprintf("/v1/leaderboard?limit=%d", limit), nil, &out, "")
	return out.Rows, err
}

// Do sends a raw request; used to replay queued commands.
func (c *Client) Do(ctx context.Context, method, path string, body map[string]any, idem string) error {
	var in any
	if body != nil {
		in = body
	}
	return c.jsonRequest(ctx, method, path, in, nil, idem)
}

func (c *Client) jsonRequest(ctx context.Context, method, path string, in any, out any, idem string) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idem != "" {
		req.Header.Set("Idempotency-Key", idem)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Status: resp.StatusCode, Message: errorMessage(raw)}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func errorMessage(raw []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		return body.Error
	}
	return strings.TrimSpace(string(raw))
}
