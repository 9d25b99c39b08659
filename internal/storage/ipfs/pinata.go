// Package ipfs stores report files on IPFS through the Pinata pinning API
// and reads them back from the Pinata gateway.
package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/ipfs/go-cid"
	"go.uber.org/zap"
)

const (
	pinFilePath = "/pinning/pinFileToIPFS"

	// gateway responses above this size are refused
	maxContentSize = 32 << 20
)

var ErrInvalidContentID = errors.New("invalid content id")

type Client struct {
	logger     *zap.Logger
	httpClient *http.Client

	apiURL     string
	gatewayURL string
	apiKey     string
	secret     string
}

func NewClient(logger *zap.Logger, apiURL, gatewayURL, apiKey, secret string, timeout time.Duration) *Client {
	return &Client{
		logger:     logger,
		httpClient: &http.Client{Timeout: timeout},
		apiURL:     apiURL,
		gatewayURL: gatewayURL,
		apiKey:     apiKey,
		secret:     secret,
	}
}

// Put pins the file and returns its content id.
func (c *Client) Put(ctx context.Context, data []byte, filename string) (string, error) {
	if c.apiKey == "" || c.secret == "" {
		return "", errors.New("pinata credentials are not configured")
	}

	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := form.Close(); err != nil {
		return "", err
	}

	r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+pinFilePath, body)
	if err != nil {
		return "", err
	}
	r.Header.Add("Content-Type", form.FormDataContentType())
	r.Header.Add("pinata_api_key", c.apiKey)
	r.Header.Add("pinata_secret_api_key", c.secret)

	resp, err := c.httpClient.Do(r)
	if err != nil {
		return "", errors.New("pinata upload failed: " + err.Error())
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.New("reading response error: " + err.Error())
	}
	if !isResponseSuccess(resp.StatusCode) {
		return "", errors.New("pinata upload, status code: " + resp.Status + "; body: " + string(responseBody))
	}

	var pinned struct {
		IpfsHash  string `json:"IpfsHash"`
		PinSize   int64  `json:"PinSize"`
		Timestamp string `json:"Timestamp"`
	}
	if err := json.Unmarshal(responseBody, &pinned); err != nil {
		return "", errors.New("failed to unmarshal the response: " + err.Error())
	}

	contentID, err := ParseContentID(pinned.IpfsHash)
	if err != nil {
		return "", fmt.Errorf("pinata returned %q: %w", pinned.IpfsHash, err)
	}

	c.logger.Info("file pinned", zap.String("filename", filename), zap.String("contentID", contentID), zap.Int64("size", pinned.PinSize))
	return contentID, nil
}

// Get fetches the content behind a content id from the gateway.
func (c *Client) Get(ctx context.Context, contentID string) ([]byte, error) {
	contentID, err := ParseContentID(contentID)
	if err != nil {
		return nil, err
	}

	r, err := http.NewRequestWithContext(ctx, http.MethodGet, c.gatewayURL+"/ipfs/"+contentID, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(r)
	if err != nil {
		return nil, errors.New("gateway request failed: " + err.Error())
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxContentSize+1))
	if err != nil {
		return nil, errors.New("reading response error: " + err.Error())
	}
	if !isResponseSuccess(resp.StatusCode) {
		return nil, errors.New("gateway, status code: " + resp.Status)
	}
	if len(data) > maxContentSize {
		return nil, fmt.Errorf("content %s exceeds %d bytes", contentID, maxContentSize)
	}

	return data, nil
}

// ParseContentID validates a CIDv0 or CIDv1 string and returns it in its
// canonical form.
func ParseContentID(s string) (string, error) {
	id, err := cid.Decode(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidContentID, err)
	}
	return id.String(), nil
}

func isResponseSuccess(responseCode int) bool {
	return responseCode >= 200 && responseCode < 300
}
