// Package sui provides a minimal JSON-RPC client for Sui fullnodes,
// covering the two read calls the verifier needs: fetching a raw
// package object and fetching its normalized module projection.
package sui

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// MainnetURL is the default fullnode endpoint.
const MainnetURL = "https://fullnode.mainnet.sui.io:443"

// Common errors returned by the client.
var (
	// ErrMissingData means the node returned no object data, BCS
	// payload, or module map for the requested id.
	ErrMissingData = errors.New("missing object data")
	// ErrNotAPackage means the fetched object is not a package.
	ErrNotAPackage = errors.New("object is not a package")
)

// RPCError is a JSON-RPC level error returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Client is a Sui JSON-RPC client.
type Client struct {
	rpcURL     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithRateLimit caps outgoing requests per second. Public fullnodes
// throttle aggressively; the default of 10 rps stays well under
// typical limits.
func WithRateLimit(rps float64, burst int) Option {
	return func(client *Client) {
		client.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// New creates a client for the given fullnode URL.
func New(rpcURL string, opts ...Option) *Client {
	c := &Client{
		rpcURL: rpcURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(10), 10),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetPackage fetches a package object with its raw module bytes and
// linkage table.
func (c *Client) GetPackage(ctx context.Context, id string) (*RawPackage, error) {
	var obj objectResponse
	params := []any{id, map[string]bool{"showBcs": true}}
	if err := c.call(ctx, "sui_getObject", params, &obj); err != nil {
		return nil, fmt.Errorf("fetching package object %s: %w", id, err)
	}

	if obj.Data == nil {
		if obj.Error != nil {
			return nil, fmt.Errorf("%w: %s (%s)", ErrMissingData, id, obj.Error.Code)
		}
		return nil, fmt.Errorf("%w: %s", ErrMissingData, id)
	}
	if obj.Data.BCS == nil {
		return nil, fmt.Errorf("%w: no bcs payload for %s", ErrMissingData, id)
	}
	if obj.Data.BCS.DataType != "package" {
		return nil, fmt.Errorf("%w: %s has dataType %q", ErrNotAPackage, id, obj.Data.BCS.DataType)
	}
	if obj.Data.BCS.ModuleMap == nil {
		return nil, fmt.Errorf("%w: no module map for %s", ErrMissingData, id)
	}

	pkg := &RawPackage{
		ID:           obj.Data.BCS.ID,
		ModuleMap:    make(map[string][]byte, len(obj.Data.BCS.ModuleMap)),
		LinkageTable: obj.Data.BCS.LinkageTable,
	}
	for name, b64 := range obj.Data.BCS.ModuleMap {
		raw, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, fmt.Errorf("decoding module %s of %s: %w", name, id, err)
		}
		pkg.ModuleMap[name] = raw
	}
	return pkg, nil
}

// GetNormalizedModules fetches the normalized module projection for a
// package, keyed by module name.
func (c *Client) GetNormalizedModules(ctx context.Context, id string) (map[string]json.RawMessage, error) {
	var modules map[string]json.RawMessage
	if err := c.call(ctx, "sui_getNormalizedMoveModulesByPackage", []any{id}, &modules); err != nil {
		return nil, fmt.Errorf("fetching normalized modules for %s: %w", id, err)
	}
	return modules, nil
}

func (c *Client) call(ctx context.Context, method string, params []any, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: HTTP %d", method, resp.StatusCode)
	}

	var envelope rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("%s: decoding response: %w", method, err)
	}
	if envelope.Error != nil {
		return envelope.Error
	}
	if result != nil {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("%s: decoding result: %w", method, err)
		}
	}
	return nil
}
