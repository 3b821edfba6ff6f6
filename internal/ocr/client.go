package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"talous/internal/core"
	"talous/internal/filestore"
	"talous/internal/receipt"
)

// Client calls the hosted extraction service. The service reads the
// document straight from the file store by id, so only the id travels
// over the wire. When the response carries raw text without structured
// fields, the local parser takes over.
type Client struct {
	baseURL    string
	httpClient *http.Client
	fallback   receipt.Parser
}

var _ Extractor = (*Client)(nil)

// NewClient creates a service client. fallback parses responses that
// contain only raw text.
func NewClient(baseURL string, fallback receipt.Parser) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		fallback:   fallback,
	}
}

type extractRequest struct {
	FileID string `json:"fileId"`
}

type extractResponse struct {
	OK     bool            `json:"ok"`
	Result *extractPayload `json:"result"`
	Error  string          `json:"error"`
}

type extractPayload struct {
	Merchant string        `json:"merchant"`
	Date     string        `json:"date"`
	Total    *float64      `json:"total"`
	Currency string        `json:"currency"`
	Items    []extractItem `json:"items"`
	RawText  string        `json:"raw_text"`
	Warnings []string      `json:"warnings"`
}

type extractItem struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

func (c *Client) Extract(ctx context.Context, file filestore.File, _ []byte) (core.ParsedReceipt, error) {
	body, err := json.Marshal(extractRequest{FileID: file.ID})
	if err != nil {
		return core.ParsedReceipt{}, fmt.Errorf("marshal extract request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return core.ParsedReceipt{}, fmt.Errorf("build extract request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return core.ParsedReceipt{}, fmt.Errorf("call extraction service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return core.ParsedReceipt{}, fmt.Errorf("%w: file %s: status %d: %s",
			ErrExtraction, file.ID, resp.StatusCode, payload)
	}

	var decoded extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return core.ParsedReceipt{}, fmt.Errorf("decode extract response for %s: %w", file.ID, err)
	}
	if !decoded.OK || decoded.Result == nil {
		return core.ParsedReceipt{}, fmt.Errorf("%w: file %s: %s", ErrExtraction, file.ID, decoded.Error)
	}

	result := decoded.Result
	if len(result.Items) == 0 && result.Merchant == "" && result.RawText != "" {
		return c.fallback.Parse(result.RawText), nil
	}

	parsed := core.ParsedReceipt{
		Merchant: result.Merchant,
		RawText:  result.RawText,
		Total:    math.NaN(),
	}
	if result.Total != nil {
		parsed.Total = core.Round2(*result.Total)
	}
	if t, ok := core.ParseDate(result.Date); ok {
		parsed.Date = core.FormatDate(t)
	}
	for _, item := range result.Items {
		parsed.Items = append(parsed.Items, core.ReceiptItem{Name: item.Name, Amount: item.Amount})
	}
	return parsed, nil
}
