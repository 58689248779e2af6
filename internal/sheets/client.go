package sheets

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bresserlog/bresserlog/internal/log"
)

const defaultEndpoint = "https://sheets.googleapis.com/v4/spreadsheets"

// Client appends rows to one sheet of one spreadsheet.
type Client struct {
	endpoint      string
	spreadsheetID string
	sheetName     string
	gate          TokenGate
	httpClient    *http.Client
}

// NewClient creates an upload client. endpoint may be empty to use the
// Google Sheets API; tests point it at a local server.
func NewClient(endpoint, spreadsheetID, sheetName string, gate TokenGate) *Client {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Client{
		endpoint:      endpoint,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		gate:          gate,
		httpClient:    &http.Client{Timeout: 15 * time.Second},
	}
}

// AcquireToken asks the gate for a token valid for at least
// expirySeconds.
func (c *Client) AcquireToken(expirySeconds int) {
	c.gate.Acquire(expirySeconds)
}

// TokenReady reports whether an upload can proceed.
func (c *Client) TokenReady() bool {
	return c.gate.Ready()
}

// appendRequest is the values:append request body. Numeric cells are
// sent as JSON numbers, the rest as strings.
type appendRequest struct {
	MajorDimension string  `json:"majorDimension"`
	Values         [][]any `json:"values"`
}

// AppendRow appends one row to the sheet. A non-2xx response is an
// error; the caller leaves the entry buffered and retries on the next
// upload cycle.
func (c *Client) AppendRow(row Row) error {
	values := make([]any, 0, len(row))
	for _, cell := range row {
		if cell.Numeric {
			n, err := strconv.ParseFloat(cell.Value, 64)
			if err != nil {
				return fmt.Errorf("cell %s is marked numeric but holds %q: %w", cell.Name, cell.Value, err)
			}
			values = append(values, n)
		} else {
			values = append(values, cell.Value)
		}
	}

	body, err := json.Marshal(appendRequest{
		MajorDimension: "ROWS",
		Values:         [][]any{values},
	})
	if err != nil {
		return fmt.Errorf("error marshaling append request: %w", err)
	}

	reqURL := fmt.Sprintf("%s/%s/values/%s:append?valueInputOption=USER_ENTERED",
		c.endpoint, url.PathEscape(c.spreadsheetID), url.PathEscape(c.sheetName))

	req, err := http.NewRequest(http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("error creating append request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.gate.Token())

	log.Debugf("appending row to sheet %s", c.sheetName)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error sending append request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading append response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("sheets API error (status %d): %s", resp.StatusCode, string(respBody))
	}
	return nil
}
