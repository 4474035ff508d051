// Package gas talks to the Apps Script web app deployment that fronts the
// stock spreadsheet. The web app exposes a single endpoint where the verb
// plus an action field select the operation.
package gas

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/rafidhia/implantstock/internal/config"
	"github.com/rafidhia/implantstock/internal/domain/models"
	"github.com/rafidhia/implantstock/internal/repository"
)

// Client is a resty-backed implementation of repository.RowService.
type Client struct {
	httpClient *resty.Client
	sheet      string
}

var _ repository.RowService = (*Client)(nil)

// NewClient builds a web-app client from the provided configuration values.
func NewClient(cfg config.GASConfig) *Client {
	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second)

	if cfg.Token != "" {
		restyClient.SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.Token))
	}

	return &Client{
		httpClient: restyClient,
		sheet:      cfg.Sheet,
	}
}

// apiResponse is the envelope every web app call returns.
type apiResponse struct {
	Status  string             `json:"status"`
	Message string             `json:"message"`
	Data    []models.StockItem `json:"data"`
}

// Fetch loads every row of the stock sheet.
func (c *Client) Fetch(ctx context.Context) ([]models.StockItem, error) {
	result := new(apiResponse)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("sheet", c.sheet).
		SetResult(result).
		SetError(result).
		Get("")
	if err != nil {
		return nil, fmt.Errorf("fetch stock rows: %w", err)
	}
	if err := checkResponse(resp, result); err != nil {
		return nil, err
	}

	return result.Data, nil
}

// Create appends a new row; the web app assigns the stock number.
func (c *Client) Create(ctx context.Context, item models.StockItem) error {
	payload := map[string]any{
		"sheet":  c.sheet,
		"action": "create",
		"data":   item,
	}
	return c.write(ctx, resty.MethodPost, payload, "create stock row")
}

// Update replaces the row identified by id.
func (c *Client) Update(ctx context.Context, id int64, item models.StockItem) error {
	item.ID = id
	payload := map[string]any{
		"sheet":  c.sheet,
		"action": "update",
		"id":     id,
		"data":   item,
	}
	return c.write(ctx, resty.MethodPut, payload, fmt.Sprintf("update stock row %d", id))
}

// SoftDelete flags the row as deleted on the remote side.
func (c *Client) SoftDelete(ctx context.Context, id int64) error {
	payload := map[string]any{
		"sheet": c.sheet,
		"id":    id,
	}
	return c.write(ctx, resty.MethodDelete, payload, fmt.Sprintf("delete stock row %d", id))
}

func (c *Client) write(ctx context.Context, method string, payload map[string]any, op string) error {
	result := new(apiResponse)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(result).
		SetError(result).
		Execute(method, "")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := checkResponse(resp, result); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func checkResponse(resp *resty.Response, result *apiResponse) error {
	if resp.StatusCode() >= http.StatusBadRequest {
		return fmt.Errorf("web app error: code=%d, message=%s", resp.StatusCode(), result.Message)
	}
	if result.Status != "" && result.Status != "success" {
		return fmt.Errorf("web app rejected request: %s", result.Message)
	}
	return nil
}
