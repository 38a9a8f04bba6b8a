package ledger

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/acadchain-api/pkg/config"
	appErrors "github.com/noah-isme/acadchain-api/pkg/errors"
)

// Client talks to the chain bridge, an HTTP facade in front of the ledger
// network. One Client serves all identities; sessions returned by Connect are
// scoped to a single acting identity.
type Client struct {
	baseURL       string
	channel       string
	chaincode     string
	http          *http.Client
	submitTimeout time.Duration
	logger        *zap.Logger
	observer      func(fn, outcome string, d time.Duration)
}

// NewClient builds a bridge client from configuration.
func NewClient(cfg config.LedgerConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:       cfg.GatewayURL,
		channel:       cfg.Channel,
		chaincode:     cfg.Chaincode,
		http:          &http.Client{Timeout: cfg.RequestTimeout},
		submitTimeout: cfg.SubmitTimeout,
		logger:        logger,
	}
}

// SetObserver installs a metrics hook invoked after every executed function.
func (c *Client) SetObserver(fn func(fn, outcome string, d time.Duration)) {
	c.observer = fn
}

// Connection is one leased session scoped to an acting identity.
type Connection struct {
	client    *Client
	identity  Identity
	sessionID string
	closed    bool
}

type sessionResponse struct {
	SessionID string `json:"session_id"`
}

type invokeRequest struct {
	Fn        string            `json:"fn"`
	Args      []string          `json:"args"`
	Transient map[string]string `json:"transient,omitempty"`
}

type invokeResponse struct {
	TxID    string          `json:"tx_id"`
	Payload json.RawMessage `json:"payload"`
}

type bridgeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Connect opens a session for the acting identity.
func (c *Client) Connect(ctx context.Context, identity Identity) (*Connection, error) {
	body, err := json.Marshal(identity)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "encode identity")
	}
	url := fmt.Sprintf("%s/channels/%s/chaincodes/%s/sessions", c.baseURL, c.channel, c.chaincode)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "build session request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrLedgerUnavailable.Code, appErrors.ErrLedgerUnavailable.Status, "bridge unreachable")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 300 {
		return nil, c.classify(resp.StatusCode, decodeBridgeError(resp), "open session")
	}

	var session sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrLedgerUnavailable.Code, appErrors.ErrLedgerUnavailable.Status, "decode session")
	}

	return &Connection{client: c, identity: identity, sessionID: session.SessionID}, nil
}

// Evaluate executes a read-only function. No state is mutated.
func (conn *Connection) Evaluate(ctx context.Context, fn string, args ...string) (*Result, error) {
	return conn.invoke(ctx, "evaluate", fn, nil, args, 0)
}

// Submit executes a state-mutating function and blocks until the network
// confirms the transaction.
func (conn *Connection) Submit(ctx context.Context, fn string, args ...string) (*Result, error) {
	return conn.invoke(ctx, "submit", fn, nil, args, conn.client.submitTimeout)
}

// SubmitWithPrivateData submits with transient fields kept out of the public
// ledger state.
func (conn *Connection) SubmitWithPrivateData(ctx context.Context, fn string, transient map[string][]byte, args ...string) (*Result, error) {
	return conn.invoke(ctx, "submit", fn, transient, args, conn.client.submitTimeout)
}

// Close releases the session. Safe to call more than once.
func (conn *Connection) Close() error {
	if conn.closed {
		return nil
	}
	conn.closed = true
	url := fmt.Sprintf("%s/channels/%s/chaincodes/%s/sessions/%s",
		conn.client.baseURL, conn.client.channel, conn.client.chaincode, conn.sessionID)
	req, err := http.NewRequest(http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	resp, err := conn.client.http.Do(req)
	if err != nil {
		// The bridge reaps abandoned sessions on its own; losing a DELETE is
		// not worth surfacing to callers.
		conn.client.logger.Warn("session close failed", zap.String("session", conn.sessionID), zap.Error(err))
		return nil
	}
	_ = resp.Body.Close()
	return nil
}

func (conn *Connection) invoke(ctx context.Context, mode, fn string, transient map[string][]byte, args []string, timeout time.Duration) (*Result, error) {
	if conn.closed {
		return nil, appErrors.Clone(appErrors.ErrInternal, "connection already closed")
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	payload := invokeRequest{Fn: fn, Args: args}
	if len(transient) > 0 {
		payload.Transient = make(map[string]string, len(transient))
		for k, v := range transient {
			payload.Transient[k] = base64.StdEncoding.EncodeToString(v)
		}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "encode invoke request")
	}

	url := fmt.Sprintf("%s/channels/%s/chaincodes/%s/sessions/%s/%s",
		conn.client.baseURL, conn.client.channel, conn.client.chaincode, conn.sessionID, mode)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "build invoke request")
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := conn.client.http.Do(req)
	if err != nil {
		conn.client.observe(fn, "unavailable", start)
		return nil, appErrors.Wrap(err, appErrors.ErrLedgerUnavailable.Code, appErrors.ErrLedgerUnavailable.Status, fmt.Sprintf("%s %s failed", mode, fn))
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 300 {
		bridgeErr := decodeBridgeError(resp)
		mapped := conn.client.classify(resp.StatusCode, bridgeErr, fn)
		conn.client.observe(fn, appErrors.FromError(mapped).Code, start)
		return nil, mapped
	}

	var out invokeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		conn.client.observe(fn, "unavailable", start)
		return nil, appErrors.Wrap(err, appErrors.ErrLedgerUnavailable.Code, appErrors.ErrLedgerUnavailable.Status, "decode invoke response")
	}
	conn.client.observe(fn, "ok", start)
	return &Result{TxID: out.TxID, Payload: out.Payload}, nil
}

func (c *Client) observe(fn, outcome string, start time.Time) {
	if c.observer != nil {
		c.observer(fn, outcome, time.Since(start))
	}
}

// classify maps a bridge response to the gateway error taxonomy. Transport
// faults and bridge-side failures are retryable LEDGER_UNAVAILABLE; an
// undeployed function is COMMAND_NOT_FOUND so callers can fall back; any
// other rejection is the chaincode's own business check failing.
func (c *Client) classify(status int, bridgeErr bridgeError, fn string) error {
	switch {
	case status >= 500:
		return appErrors.Clone(appErrors.ErrLedgerUnavailable, fmt.Sprintf("bridge error on %s: %s", fn, bridgeErr.Message))
	case bridgeErr.Code == "FUNCTION_NOT_FOUND" || status == http.StatusNotImplemented:
		return appErrors.Clone(appErrors.ErrCommandNotFound, fmt.Sprintf("function %s not deployed", fn))
	default:
		msg := bridgeErr.Message
		if msg == "" {
			msg = fmt.Sprintf("command %s rejected", fn)
		}
		return appErrors.Clone(appErrors.ErrCommandRejected, msg)
	}
}

func decodeBridgeError(resp *http.Response) bridgeError {
	var out bridgeError
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return out
}
