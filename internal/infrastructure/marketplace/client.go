package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/channelport/backend/internal/domain/integration"
)

// maxResponseSize is the maximum allowed response size from the marketplace API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// maxDictionaryPageSize is the page size cap enforced by the marketplace
const maxDictionaryPageSize = 2000

// API paths for the catalog resource class
const (
	pathCategoryTree    = "/v1/category/tree"
	pathAttributes      = "/v1/category/attributes"
	pathValues          = "/v1/category/attribute-values"
	pathValuesSearch    = "/v1/category/attribute-values/search"
	statusCategoryGone  = http.StatusNotFound
	headerRetryAfter    = "Retry-After"
	defaultRetryBackoff = 2 * time.Second
)

// Client implements the integration.RemoteCatalog port over the marketplace's
// HTTP API. All catalog endpoints share one resource class on the remote, so
// a single rate limiter guards every call. The limiter belongs to the client
// instance: constructing two clients yields two independent limiters.
type Client struct {
	config     *Config
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewClient creates a new marketplace catalog client with the given configuration
func NewClient(config *Config, logger *zap.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst),
		logger:  logger.Named("marketplace"),
	}, nil
}

// ---------------------------------------------------------------------------
// Category Tree
// ---------------------------------------------------------------------------

// FetchCategoryTree returns the complete nested category structure starting
// from rootID, or from the taxonomy roots when rootID is nil.
func (c *Client) FetchCategoryTree(ctx context.Context, rootID *int64, lang integration.Language) ([]integration.CategoryNode, error) {
	payload := treeRequest{
		CategoryID: rootID,
		Language:   c.config.LanguageTag(lang),
	}

	respBody, err := c.doRequest(ctx, pathCategoryTree, payload)
	if err != nil {
		return nil, err
	}

	var resp treeResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse tree response: %v", integration.ErrRemoteInvalidResponse, err)
	}

	nodes := make([]integration.CategoryNode, 0, len(resp.Result))
	for _, n := range resp.Result {
		nodes = append(nodes, convertTreeNode(n))
	}
	return nodes, nil
}

// convertTreeNode converts a wire node (and its subtree) to the port type
func convertTreeNode(n treeNode) integration.CategoryNode {
	node := integration.CategoryNode{
		Name:       n.Name,
		IsDisabled: n.Disabled,
	}
	if n.CategoryID != nil {
		node.CategoryID = *n.CategoryID
	}
	if len(n.Children) > 0 {
		node.Children = make([]integration.CategoryNode, 0, len(n.Children))
		for _, child := range n.Children {
			node.Children = append(node.Children, convertTreeNode(child))
		}
	}
	return node
}

// ---------------------------------------------------------------------------
// Attributes
// ---------------------------------------------------------------------------

// FetchAttributes returns the attribute schema of one leaf category
func (c *Client) FetchAttributes(ctx context.Context, parentCategoryID, leafCategoryID int64, lang integration.Language) ([]integration.RemoteAttribute, error) {
	payload := attributesRequest{
		CategoryID:       leafCategoryID,
		ParentCategoryID: parentCategoryID,
		Language:         c.config.LanguageTag(lang),
	}

	respBody, err := c.doRequest(ctx, pathAttributes, payload)
	if err != nil {
		return nil, err
	}

	var resp attributesResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse attributes response: %v", integration.ErrRemoteInvalidResponse, err)
	}

	attrs := make([]integration.RemoteAttribute, 0, len(resp.Result))
	for _, a := range resp.Result {
		attr := integration.RemoteAttribute{
			Name:         a.Name,
			Description:  a.Description,
			Type:         a.Type,
			IsRequired:   a.IsRequired,
			IsCollection: a.IsCollection,
			IsAspect:     a.IsAspect,
			DictionaryID: a.DictionaryID,
			GroupID:      a.GroupID,
			GroupName:    a.GroupName,
		}
		if a.ID != nil {
			attr.AttributeID = *a.ID
		}
		attrs = append(attrs, attr)
	}
	return attrs, nil
}

// ---------------------------------------------------------------------------
// Dictionary Values
// ---------------------------------------------------------------------------

// FetchDictionaryPage returns one page of dictionary values and a flag
// indicating whether more pages follow
func (c *Client) FetchDictionaryPage(ctx context.Context, req integration.DictionaryPageRequest) ([]integration.RemoteValue, bool, error) {
	if err := req.Validate(); err != nil {
		return nil, false, err
	}
	if req.PageSize > maxDictionaryPageSize {
		req.PageSize = maxDictionaryPageSize
	}

	payload := valuesRequest{
		AttributeID:      req.AttributeID,
		CategoryID:       req.CategoryID,
		ParentCategoryID: req.ParentCategoryID,
		LastValueID:      req.AfterValueID,
		Limit:            req.PageSize,
		Language:         c.config.LanguageTag(req.Language),
	}

	respBody, err := c.doRequest(ctx, pathValues, payload)
	if err != nil {
		return nil, false, err
	}

	var resp valuesResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, false, fmt.Errorf("%w: failed to parse values response: %v", integration.ErrRemoteInvalidResponse, err)
	}

	return convertValues(resp.Result), resp.HasNext, nil
}

// SearchDictionaryValues searches a dictionary server-side
func (c *Client) SearchDictionaryValues(ctx context.Context, req integration.DictionarySearchRequest) ([]integration.RemoteValue, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	payload := valuesSearchRequest{
		AttributeID:      req.AttributeID,
		CategoryID:       req.CategoryID,
		ParentCategoryID: req.ParentCategoryID,
		Value:            req.Query,
		Limit:            req.Limit,
		Language:         c.config.LanguageTag(req.Language),
	}

	respBody, err := c.doRequest(ctx, pathValuesSearch, payload)
	if err != nil {
		return nil, err
	}

	var resp valuesResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse values search response: %v", integration.ErrRemoteInvalidResponse, err)
	}

	return convertValues(resp.Result), nil
}

// convertValues converts wire values to the port type
func convertValues(in []wireValue) []integration.RemoteValue {
	values := make([]integration.RemoteValue, 0, len(in))
	for _, v := range in {
		value := integration.RemoteValue{
			Value:   v.Value,
			Info:    v.Info,
			Picture: v.Picture,
		}
		if v.ID != nil {
			value.ValueID = *v.ID
		}
		values = append(values, value)
	}
	return values
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

// doRequest performs a rate-limited POST to the marketplace API. On HTTP 429
// it honors the Retry-After hint and retries exactly once; every other
// failure is surfaced as a typed error without further retries.
func (c *Client) doRequest(ctx context.Context, path string, payload any) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("marketplace: rate limiter wait: %w", err)
	}

	body, status, err := c.doOnce(ctx, path, payload)
	if err != nil {
		return nil, err
	}
	if status == http.StatusTooManyRequests {
		backoff := retryAfter(body.header)
		c.logger.Warn("marketplace throttled request, retrying once",
			zap.String("path", path),
			zap.Duration("backoff", backoff),
		)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		body, status, err = c.doOnce(ctx, path, payload)
		if err != nil {
			return nil, err
		}
		if status == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: %s", integration.ErrRemoteRateLimited, path)
		}
	}

	return c.checkStatus(path, status, body.bytes)
}

// apiResponse pairs the response body with the headers needed for retry hints
type apiResponse struct {
	bytes  []byte
	header http.Header
}

// doOnce performs a single HTTP exchange
func (c *Client) doOnce(ctx context.Context, path string, payload any) (apiResponse, int, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return apiResponse{}, 0, fmt.Errorf("marketplace: failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return apiResponse{}, 0, fmt.Errorf("marketplace: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Client-Id", c.config.ClientID)
	req.Header.Set("Api-Key", c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apiResponse{}, 0, fmt.Errorf("%w: %v", integration.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return apiResponse{}, 0, fmt.Errorf("marketplace: failed to read response: %w", err)
	}

	return apiResponse{bytes: body, header: resp.Header}, resp.StatusCode, nil
}

// checkStatus maps non-2xx statuses to typed errors
func (c *Client) checkStatus(path string, status int, body []byte) ([]byte, error) {
	if status < 400 {
		return body, nil
	}

	var apiErr errorResponse
	_ = json.Unmarshal(body, &apiErr)

	switch {
	case status == statusCategoryGone:
		return nil, fmt.Errorf("%w: %s - %s", integration.ErrCategoryUnavailable, apiErr.Code, apiErr.Message)
	case status >= 500:
		return nil, fmt.Errorf("%w: HTTP %d on %s", integration.ErrRemoteUnavailable, status, path)
	default:
		return nil, fmt.Errorf("%w: HTTP %d on %s: %s - %s", integration.ErrRemoteRequestFailed, status, path, apiErr.Code, apiErr.Message)
	}
}

// retryAfter parses the Retry-After header, falling back to a fixed backoff
func retryAfter(header http.Header) time.Duration {
	raw := header.Get(headerRetryAfter)
	if raw == "" {
		return defaultRetryBackoff
	}
	if seconds, err := strconv.Atoi(raw); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(raw); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return defaultRetryBackoff
}

// Ensure Client implements the RemoteCatalog port
var _ integration.RemoteCatalog = (*Client)(nil)
