// Package eraser talks to the object-removal HTTP API: one POST per
// image/mask pair, then one GET for the produced image.
package eraser

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	nhttp "github.com/chaos-io/eraser-bench/util/http"
)

// ErrNoResultURL is returned when a 200 response carries no result_url.
var ErrNoResultURL = errors.New("eraser response has no result_url")

// Request is the JSON body of an erase call. Both fields are Base64.
type Request struct {
	File     string `json:"file"`
	MaskFile string `json:"mask_file"`
}

// Response is the JSON body of a successful erase call.
type Response struct {
	ResultURL string `json:"result_url"`
}

type Client struct {
	url   string
	token string
	cli   nhttp.IClient
}

// NewClient returns a client for the endpoint url. A nil cli uses the default
// HTTP client.
func NewClient(url, token string, cli nhttp.IClient) *Client {
	if cli == nil {
		cli = nhttp.NewHTTPClient()
	}
	return &Client{url: url, token: token, cli: cli}
}

// Erase sends the encoded image and mask and returns the result URL.
// Any status other than 200 comes back as *nhttp.StatusError.
func (c *Client) Erase(ctx context.Context, imageB64, maskB64 string) (string, error) {
	resp := &Response{}
	reqParam := &nhttp.RequestParam{
		RequestURI: c.url,
		Method:     http.MethodPost,
		Header: map[string]string{
			"Content-Type": "application/json",
			"api_token":    c.token,
		},
		Body:     &Request{File: imageB64, MaskFile: maskB64},
		Response: resp,
	}

	if err := c.cli.DoHTTPRequest(ctx, reqParam); err != nil {
		return "", fmt.Errorf("erase request: %w", err)
	}
	if reqParam.StatusCode != http.StatusOK {
		return "", fmt.Errorf("erase request: %w", &nhttp.StatusError{StatusCode: reqParam.StatusCode})
	}
	if resp.ResultURL == "" {
		return "", ErrNoResultURL
	}
	return resp.ResultURL, nil
}

// Fetch downloads the bytes behind url. The content is not validated.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	var data []byte
	reqParam := &nhttp.RequestParam{
		RequestURI: url,
		Method:     http.MethodGet,
		Response:   &data,
	}
	if err := c.cli.DoHTTPRequest(ctx, reqParam); err != nil {
		return nil, fmt.Errorf("fetch result: %w", err)
	}
	return data, nil
}
