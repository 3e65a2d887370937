package polymarket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/alanyoungcy/updownbot/internal/crypto"
	"github.com/alanyoungcy/updownbot/internal/domain"
)

// GatewayClient submits orders to the external trade gateway, which holds
// custody and signs exchange orders on our behalf. Requests are authenticated
// with HMAC headers tied to the funding wallet address.
type GatewayClient struct {
	baseURL    string
	address    string
	httpClient *http.Client
	hmacAuth   *crypto.HMACAuth
}

// NewGatewayClient creates a trade gateway client.
//
// baseURL is the gateway root. address is the funding wallet address the
// gateway credentials were issued for.
func NewGatewayClient(baseURL, address string, hmac *crypto.HMACAuth, timeout time.Duration) *GatewayClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &GatewayClient{
		baseURL:  baseURL,
		address:  address,
		hmacAuth: hmac,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// PostOrder submits a market buy to the gateway and returns the result.
// A rejection is returned as both a populated result and an error wrapping
// domain.ErrRejected so callers can record the outcome and branch on it.
func (g *GatewayClient) PostOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	body := map[string]any{
		"clientOrderId": req.ID,
		"tokenID":       req.TokenID,
		"side":          "BUY",
		"orderType":     "FOK",
		"price":         fmt.Sprintf("%.4f", req.Price),
		"amount":        fmt.Sprintf("%.2f", req.Notional),
	}

	respBody, err := g.doAuthenticatedRequest(ctx, http.MethodPost, "/orders", body)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("polymarket/gateway: post order: %w", err)
	}

	var apiResult APIOrderResult
	if err := json.Unmarshal(respBody, &apiResult); err != nil {
		return domain.OrderResult{}, fmt.Errorf("polymarket/gateway: decode order result: %w", err)
	}

	result := apiResult.ToDomainOrderResult()
	if !result.Success {
		return result, fmt.Errorf("polymarket/gateway: %w: %s", domain.ErrRejected, result.Message)
	}

	return result, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doAuthenticatedRequest builds, signs (HMAC), sends, and reads an HTTP
// request against the gateway. It returns the raw response body.
func (g *GatewayClient) doAuthenticatedRequest(ctx context.Context, method, path string, body any) ([]byte, error) {
	var bodyReader io.Reader
	var bodyStr string

	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyStr = string(jsonBody)
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if g.hmacAuth != nil {
		headers := g.hmacAuth.L2Headers(g.address, method, path, bodyStr)
		for k, v := range headers {
			req.Header.Set(k, v)
		}
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}

	return respBody, nil
}
