// Package client is the HTTP transport adapter for the transaction collection API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/sbilibin2017/gw-transactions/internal/logger"
	"github.com/sbilibin2017/gw-transactions/internal/models"
)

// DefaultPageSize is the number of transactions requested per page.
const DefaultPageSize = 20

// CategoryResolver enriches a bare category name into a full category.
type CategoryResolver interface {
	Resolve(name *string) (models.Category, error)
	ResolveOrDefault(name *string) models.Category
}

// Client performs paged fetch, create, update and delete against the collection API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
	pageSize   int
	categories CategoryResolver
	clock      clockwork.Clock
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sends the token as a bearer Authorization header.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithPageSize sets the page size sent with every fetch.
func WithPageSize(size int) Option {
	return func(c *Client) {
		if size > 0 {
			c.pageSize = size
		}
	}
}

// WithClock sets the clock used to default a missing transaction date to today.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

// New creates a client for the API rooted at baseURL, e.g. http://localhost:8080/api/v1.
func New(baseURL string, categories CategoryResolver, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		pageSize:   DefaultPageSize,
		categories: categories,
		clock:      clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchPage returns the transactions on page index, which starts at 0.
func (c *Client) FetchPage(ctx context.Context, page int) (models.Page, error) {
	if page < 0 {
		return models.Page{}, models.NewValidationError("page", "page index must not be negative")
	}

	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(c.pageSize))
	endpoint := c.baseURL + "/transactions?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.Page{}, &FetchError{Page: page, Message: "failed to build request", Err: err}
	}

	resp, err := c.do(req)
	if err != nil {
		logger.Log.Errorw("failed to fetch transactions", "page", page, "error", err)
		return models.Page{}, &FetchError{Page: page, Message: "failed to fetch transactions", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg := errorMessage(resp, "failed to fetch transactions")
		logger.Log.Errorw("failed to fetch transactions", "page", page, "status", resp.StatusCode, "message", msg)
		return models.Page{}, &FetchError{Page: page, StatusCode: resp.StatusCode, Message: msg}
	}

	var body models.TransactionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		logger.Log.Errorw("failed to decode transactions", "page", page, "error", err)
		return models.Page{}, &FetchError{Page: page, StatusCode: resp.StatusCode, Message: "invalid response body", Err: err}
	}

	logger.Log.Debugw("fetched transactions", "page", page, "count", len(body.Transactions), "has_more", body.HasMore)
	return models.Page{Index: page, Items: body.Transactions, HasMore: body.HasMore}, nil
}

// Create validates the patch locally, enriches its category and posts it.
// Invalid input fails with a *models.ValidationError and no request is sent.
func (c *Client) Create(ctx context.Context, patch models.TransactionPatch) (models.Transaction, error) {
	if err := patch.ValidateCreate(); err != nil {
		return models.Transaction{}, err
	}
	category := c.categories.ResolveOrDefault(patch.Category)
	if patch.Date == nil {
		today := models.DateOf(c.clock.Now())
		patch.Date = &today
	}

	body := models.NewTransactionRequest(patch, &category)
	tx, err := c.send(ctx, http.MethodPost, c.baseURL+"/transactions", body, "create", "")
	if err != nil {
		return models.Transaction{}, err
	}

	logger.Log.Infow("transaction created", "id", tx.ID)
	return tx, nil
}

// Update sends only the fields present in patch and returns the confirmed record.
func (c *Client) Update(ctx context.Context, id string, patch models.TransactionPatch) (models.Transaction, error) {
	if strings.TrimSpace(id) == "" {
		return models.Transaction{}, models.NewValidationError("id", "transaction id is required")
	}
	if err := patch.ValidateUpdate(); err != nil {
		return models.Transaction{}, err
	}

	var category *models.Category
	if patch.Category != nil {
		resolved, err := c.categories.Resolve(patch.Category)
		if err != nil {
			return models.Transaction{}, err
		}
		category = &resolved
	}

	body := models.NewTransactionRequest(patch, category)
	tx, err := c.send(ctx, http.MethodPut, c.baseURL+"/transactions/"+url.PathEscape(id), body, "update", id)
	if err != nil {
		return models.Transaction{}, err
	}

	logger.Log.Infow("transaction updated", "id", tx.ID)
	return tx, nil
}

// Delete removes the transaction. A record that is already gone fails with an error
// wrapping models.ErrNotFound.
func (c *Client) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return models.NewValidationError("id", "transaction id is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/transactions/"+url.PathEscape(id), nil)
	if err != nil {
		return &MutationError{Op: "delete", ID: id, Message: "failed to build request", Err: err}
	}

	resp, err := c.do(req)
	if err != nil {
		logger.Log.Errorw("failed to delete transaction", "id", id, "error", err)
		return &MutationError{Op: "delete", ID: id, Message: "failed to delete transaction", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return mutationFailure(resp, "delete", id)
	}

	logger.Log.Infow("transaction deleted", "id", id)
	return nil
}

func (c *Client) send(ctx context.Context, method, endpoint string, body models.TransactionRequest, op, id string) (models.Transaction, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return models.Transaction{}, &MutationError{Op: op, ID: id, Message: "failed to encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(payload))
	if err != nil {
		return models.Transaction{}, &MutationError{Op: op, ID: id, Message: "failed to build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		logger.Log.Errorw("transaction request failed", "op", op, "id", id, "error", err)
		return models.Transaction{}, &MutationError{Op: op, ID: id, Message: fmt.Sprintf("failed to %s transaction", op), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return models.Transaction{}, mutationFailure(resp, op, id)
	}

	var tx models.Transaction
	if err := json.NewDecoder(resp.Body).Decode(&tx); err != nil {
		logger.Log.Errorw("failed to decode transaction", "op", op, "id", id, "error", err)
		return models.Transaction{}, &MutationError{Op: op, ID: id, StatusCode: resp.StatusCode, Message: "invalid response body", Err: err}
	}
	return tx, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.httpClient.Do(req)
}

func mutationFailure(resp *http.Response, op, id string) error {
	msg := errorMessage(resp, fmt.Sprintf("failed to %s transaction", op))
	logger.Log.Errorw("transaction request rejected", "op", op, "id", id, "status", resp.StatusCode, "message", msg)

	e := &MutationError{Op: op, ID: id, StatusCode: resp.StatusCode, Message: msg}
	if resp.StatusCode == http.StatusNotFound {
		e.Err = models.ErrNotFound
	}
	return e
}

// errorMessage reads {"error": "..."} from resp, falling back to fallback.
func errorMessage(resp *http.Response, fallback string) string {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(data) == 0 {
		return fallback
	}
	var body models.ErrorResponse
	if err := json.Unmarshal(data, &body); err != nil || body.Error == "" {
		return fallback
	}
	return body.Error
}

// IsNotFound reports whether err means the remote record no longer exists.
func IsNotFound(err error) bool {
	return errors.Is(err, models.ErrNotFound)
}
