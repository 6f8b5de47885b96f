package indexer

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

	log "github.com/thecardroom/tcr/common/logger"
	"github.com/thecardroom/tcr/common/utils"
	prt "github.com/thecardroom/tcr/protocol"
	"golang.org/x/time/rate"
)

const pageSize = 100

// Cache stores responses that never change once the chain has them.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, val []byte) error
}

// APIError is the error body Blockfrost returns with non-2xx responses.
type APIError struct {
	StatusCode int    `json:"status_code"`
	ErrorText  string `json:"error"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("blockfrost %d %s: %s", e.StatusCode, e.ErrorText, e.Message)
}

// IsNotFound reports whether err is a Blockfrost 404.
func IsNotFound(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.StatusCode == http.StatusNotFound
}

// Client is a Blockfrost API client.
type Client struct {
	network    prt.Network
	baseURL    string
	projectID  string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      Cache
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRateLimit throttles requests; Blockfrost allows 10/s with a burst
// of 500.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps > 0 {
			if burst < 1 {
				burst = 1
			}
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

func WithCache(cache Cache) Option {
	return func(c *Client) { c.cache = cache }
}

// NewClient builds a client for network with the base URL from the
// network table.
func NewClient(network prt.Network, projectID string, opts ...Option) (*Client, error) {
	info, err := prt.LookupNetwork(network)
	if err != nil {
		return nil, err
	}
	if projectID == "" {
		return nil, fmt.Errorf("blockfrost project id is empty")
	}
	c := &Client{
		network:    network,
		baseURL:    info.BlockfrostURL,
		projectID:  projectID,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Network() prt.Network {
	return c.network
}

func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.get(ctx, "/health", &h, false); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *Client) Clock(ctx context.Context) (*Clock, error) {
	var cl Clock
	if err := c.get(ctx, "/health/clock", &cl, false); err != nil {
		return nil, err
	}
	return &cl, nil
}

func (c *Client) LatestBlock(ctx context.Context) (*Block, error) {
	var b Block
	if err := c.get(ctx, "/blocks/latest", &b, false); err != nil {
		return nil, err
	}
	return &b, nil
}

// AddressUTXOs returns every UTxO at address. An address that never saw
// a transaction has none.
func (c *Client) AddressUTXOs(ctx context.Context, address string) ([]UTxO, error) {
	utxos, err := getPages[UTxO](ctx, c, "/addresses/"+url.PathEscape(address)+"/utxos")
	if IsNotFound(err) {
		return nil, nil
	}
	return utxos, err
}

// ContainsUTxO reports whether output index of txHash is still unspent at
// address.
func (c *Client) ContainsUTxO(ctx context.Context, address, txHash string, index uint32) (bool, error) {
	utxos, err := c.AddressUTXOs(ctx, address)
	if err != nil {
		return false, err
	}
	for _, u := range utxos {
		if u.TxHash == txHash && u.OutputIndex == index {
			return true, nil
		}
	}
	return false, nil
}

func (c *Client) AddressExtended(ctx context.Context, address string) (*AddressExtended, error) {
	var a AddressExtended
	if err := c.get(ctx, "/addresses/"+url.PathEscape(address)+"/extended", &a, false); err != nil {
		return nil, err
	}
	return &a, nil
}

// AssetsByPolicy pages through the assets of a policy until an empty
// page. A failure after the first page ends the listing with what was
// already read.
func (c *Client) AssetsByPolicy(ctx context.Context, policyID string) ([]PolicyAsset, error) {
	var all []PolicyAsset
	for page := 1; ; page++ {
		var assets []PolicyAsset
		path := fmt.Sprintf("/assets/policy/%s?page=%d&count=%d", policyID, page, pageSize)
		if err := c.get(ctx, path, &assets, false); err != nil {
			if page == 1 {
				return nil, err
			}
			log.Warn("assets of policy ", policyID, " stopped at page ", page, ": ", err)
			break
		}
		if len(assets) == 0 {
			break
		}
		all = append(all, assets...)
	}
	return all, nil
}

func (c *Client) AssetHistory(ctx context.Context, policyID, name string) ([]AssetHistory, error) {
	var h []AssetHistory
	if err := c.get(ctx, "/assets/"+utils.AssetUnit(policyID, name)+"/history", &h, false); err != nil {
		return nil, err
	}
	return h, nil
}

func (c *Client) AssetTransactions(ctx context.Context, policyID, name string) ([]AssetTransaction, error) {
	var txs []AssetTransaction
	if err := c.get(ctx, "/assets/"+utils.AssetUnit(policyID, name)+"/transactions", &txs, false); err != nil {
		return nil, err
	}
	return txs, nil
}

// AssetAddresses lists holders of asset (policy id + name hex).
func (c *Client) AssetAddresses(ctx context.Context, asset string) ([]AssetAddress, error) {
	var a []AssetAddress
	if err := c.get(ctx, "/assets/"+asset+"/addresses", &a, false); err != nil {
		return nil, err
	}
	return a, nil
}

// ResolveAdaHandle returns the address holding $handle.
func (c *Client) ResolveAdaHandle(ctx context.Context, handle string) (string, error) {
	handle = strings.TrimPrefix(handle, "$")
	addrs, err := c.AssetAddresses(ctx, utils.AssetUnit(prt.AdaHandlePolicyID, handle))
	if err != nil {
		return "", fmt.Errorf("resolve $%s: %w", handle, err)
	}
	if len(addrs) == 0 {
		return "", fmt.Errorf("resolve $%s: no holder", handle)
	}
	return addrs[0].Address, nil
}

func (c *Client) TransactionMetadata(ctx context.Context, txHash string) ([]TxMetadata, error) {
	var md []TxMetadata
	if err := c.get(ctx, "/txs/"+txHash+"/metadata", &md, true); err != nil {
		return nil, err
	}
	return md, nil
}

func (c *Client) Transaction(ctx context.Context, txHash string) (*Transaction, error) {
	var tx Transaction
	if err := c.get(ctx, "/txs/"+txHash, &tx, true); err != nil {
		return nil, err
	}
	return &tx, nil
}

// TxSlot is the slot of the block that holds txHash.
func (c *Client) TxSlot(ctx context.Context, txHash string) (uint64, error) {
	tx, err := c.Transaction(ctx, txHash)
	if err != nil {
		return 0, err
	}
	return tx.Slot, nil
}

func (c *Client) TransactionUTXOs(ctx context.Context, txHash string) (*TransactionUTXOs, error) {
	var u TransactionUTXOs
	if err := c.get(ctx, "/txs/"+txHash+"/utxos", &u, true); err != nil {
		return nil, err
	}
	return &u, nil
}

// PayerAddress is the address of the first input of txHash; refunds and
// minted tokens go back there.
func (c *Client) PayerAddress(ctx context.Context, txHash string) (string, error) {
	u, err := c.TransactionUTXOs(ctx, txHash)
	if err != nil {
		return "", err
	}
	if len(u.Inputs) == 0 {
		return "", fmt.Errorf("tx %s has no inputs", txHash)
	}
	return u.Inputs[0].Address, nil
}

func (c *Client) AccountAddresses(ctx context.Context, stakeAddress string) ([]AccountAddress, error) {
	return getPages[AccountAddress](ctx, c, "/accounts/"+stakeAddress+"/addresses")
}

func (c *Client) ProtocolParameters(ctx context.Context) (*ProtocolParameters, error) {
	var p ProtocolParameters
	if err := c.get(ctx, "/epochs/latest/parameters", &p, false); err != nil {
		return nil, err
	}
	return &p, nil
}

// SubmitTx posts a signed CBOR transaction and returns its id.
func (c *Client) SubmitTx(ctx context.Context, cbor []byte) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, "/tx/submit", "application/cbor", bytes.NewReader(cbor))
	if err != nil {
		return "", err
	}
	var txHash string
	if err := json.Unmarshal(resp, &txHash); err != nil {
		return "", fmt.Errorf("decode submit response: %w", err)
	}
	log.Info("submitted tx ", txHash)
	return txHash, nil
}

func getPages[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	var all []T
	for page := 1; ; page++ {
		var items []T
		if err := c.get(ctx, fmt.Sprintf("%s%spage=%d&count=%d", path, sep, page, pageSize), &items, false); err != nil {
			return all, err
		}
		all = append(all, items...)
		if len(items) < pageSize {
			return all, nil
		}
	}
}

func (c *Client) get(ctx context.Context, path string, out interface{}, cacheable bool) error {
	key := string(c.network) + ":" + path
	if cacheable && c.cache != nil {
		if data, ok := c.cache.Get(key); ok {
			return json.Unmarshal(data, out)
		}
	}

	data, err := c.do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	if cacheable && c.cache != nil {
		if err := c.cache.Set(key, data); err != nil {
			log.Warn("cache set ", key, ": ", err)
		}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("project_id", c.projectID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	log.Debug("blockfrost ", method, " ", path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if jerr := json.Unmarshal(data, apiErr); jerr != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		apiErr.StatusCode = resp.StatusCode
		return nil, apiErr
	}
	return data, nil
}
