package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// ErrNotFound is returned by typed lookups when the ERP has no matching record.
var ErrNotFound = errors.New("erp: record not found")

// RPCError is a fault raised inside the ERP while executing a call.
type RPCError struct {
	Code        int
	Message     string
	DataMessage string
}

func (e *RPCError) Error() string {
	if e.DataMessage != "" {
		return fmt.Sprintf("erp rpc error %d: %s", e.Code, e.DataMessage)
	}
	return fmt.Sprintf("erp rpc error %d: %s", e.Code, e.Message)
}

// IsUniqueViolation reports whether the ERP rejected a write because of a
// uniqueness constraint. The ERP surfaces these as error text, so this is a
// message match on the two constraint phrasings it emits.
func IsUniqueViolation(err error) bool {
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		return false
	}
	msg := strings.ToLower(rpcErr.Message + " " + rpcErr.DataMessage)
	return strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "already exists")
}

// Client speaks the ERP's external JSON-RPC API. All object calls run as the
// configured system user; the API key doubles as that user's credential.
type Client struct {
	baseURL  string
	database string
	uid      int
	apiKey   string
	http     *http.Client
	seq      atomic.Int64
}

func NewClient(baseURL, database string, systemUserId int, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		database: database,
		uid:      systemUserId,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
	}
}

type rpcRequest struct {
	Jsonrpc string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
	Id      int64     `json:"id"`
}

type rpcParams struct {
	Service string `json:"service"`
	Method  string `json:"method"`
	Args    []any  `json:"args"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Data    struct {
			Message string `json:"message"`
		} `json:"data"`
	} `json:"error"`
}

func (c *Client) call(ctx context.Context, service, method string, args []any) (json.RawMessage, error) {
	payload := rpcRequest{
		Jsonrpc: "2.0",
		Method:  "call",
		Params:  rpcParams{Service: service, Method: method, Args: args},
		Id:      c.seq.Add(1),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/jsonrpc", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("erp http error %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed rpcResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, err
	}
	if parsed.Error != nil {
		return nil, &RPCError{
			Code:        parsed.Error.Code,
			Message:     parsed.Error.Message,
			DataMessage: parsed.Error.Data.Message,
		}
	}
	return parsed.Result, nil
}

// ExecuteKw invokes a model method as the system user.
func (c *Client) ExecuteKw(ctx context.Context, model, method string, args []any, kwargs map[string]any) (json.RawMessage, error) {
	callArgs := []any{c.database, c.uid, c.apiKey, model, method, args}
	if kwargs != nil {
		callArgs = append(callArgs, kwargs)
	}
	return c.call(ctx, "object", "execute_kw", callArgs)
}

// Authenticate verifies a login/password pair against the ERP and returns the
// user id, or 0 when the credentials are invalid.
func (c *Client) Authenticate(ctx context.Context, login, password string) (int, error) {
	res, err := c.call(ctx, "common", "authenticate", []any{c.database, login, password, map[string]any{}})
	if err != nil {
		return 0, err
	}
	// false on bad credentials, an integer uid otherwise.
	if string(res) == "false" {
		return 0, nil
	}
	var uid int
	if err := json.Unmarshal(res, &uid); err != nil {
		return 0, err
	}
	return uid, nil
}

// SearchRead searches model records matching domain and decodes the selected
// fields into dest (a pointer to a slice of record structs).
func (c *Client) SearchRead(ctx context.Context, model string, domain []any, fields []string, offset, limit int, dest any) error {
	kwargs := map[string]any{"fields": fields}
	if offset > 0 {
		kwargs["offset"] = offset
	}
	if limit > 0 {
		kwargs["limit"] = limit
	}
	res, err := c.ExecuteKw(ctx, model, "search_read", []any{domain}, kwargs)
	if err != nil {
		return err
	}
	return json.Unmarshal(res, dest)
}

// Read decodes the selected fields of the given ids into dest.
func (c *Client) Read(ctx context.Context, model string, ids []int, fields []string, dest any) error {
	res, err := c.ExecuteKw(ctx, model, "read", []any{ids}, map[string]any{"fields": fields})
	if err != nil {
		return err
	}
	return json.Unmarshal(res, dest)
}

// Create inserts a record and returns its id.
func (c *Client) Create(ctx context.Context, model string, values map[string]any, kwargs map[string]any) (int, error) {
	res, err := c.ExecuteKw(ctx, model, "create", []any{values}, kwargs)
	if err != nil {
		return 0, err
	}
	var id int
	if err := json.Unmarshal(res, &id); err != nil {
		return 0, err
	}
	return id, nil
}

// Write updates fields on the given ids.
func (c *Client) Write(ctx context.Context, model string, ids []int, values map[string]any) error {
	_, err := c.ExecuteKw(ctx, model, "write", []any{ids, values}, nil)
	return err
}

// Unlink deletes the given ids.
func (c *Client) Unlink(ctx context.Context, model string, ids []int) error {
	_, err := c.ExecuteKw(ctx, model, "unlink", []any{ids}, nil)
	return err
}

// CallMethod invokes a model method on ids, discarding the result.
func (c *Client) CallMethod(ctx context.Context, model, method string, ids []int, kwargs map[string]any) error {
	_, err := c.ExecuteKw(ctx, model, method, []any{ids}, kwargs)
	return err
}

// ResolveExternalId resolves a module-qualified external identifier (such as a
// security group reference) to a record id.
func (c *Client) ResolveExternalId(ctx context.Context, module, name string) (int, error) {
	res, err := c.ExecuteKw(ctx, "ir.model.data", "check_object_reference", []any{module, name}, nil)
	if err != nil {
		return 0, err
	}
	var ref []any
	if err := json.Unmarshal(res, &ref); err != nil {
		return 0, err
	}
	if len(ref) != 2 {
		return 0, fmt.Errorf("erp: unexpected external id payload for %s.%s", module, name)
	}
	id, ok := ref[1].(float64)
	if !ok {
		return 0, fmt.Errorf("erp: unexpected external id payload for %s.%s", module, name)
	}
	return int(id), nil
}
