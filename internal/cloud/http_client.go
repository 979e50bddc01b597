package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Config holds cloud service connection configuration.
type Config struct {
	BaseURL string // e.g. https://sync.quillnote.app/v1
}

// HTTPClient implements Client over authenticated HTTPS with JSON
// request/response bodies.
type HTTPClient struct {
	config     *Config
	httpClient *http.Client
}

// NewHTTPClient creates a new HTTPClient.
func NewHTTPClient(config *Config) *HTTPClient {
	return &HTTPClient{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:       10,
				IdleConnTimeout:    30 * time.Second,
				DisableCompression: false,
			},
		},
	}
}

// doJSON executes one request and decodes the JSON response into out
// (out may be nil for empty-body responses). Non-2xx responses are
// decoded from the server's error envelope into an *APIError; transport
// and decoding failures become *APIError with HTTPStatus 0.
func (c *HTTPClient) doJSON(ctx context.Context, method, path, token string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &APIError{Code: "ENCODE_FAILED", Message: err.Error()}
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reqBody)
	if err != nil {
		return &APIError{Code: "REQUEST_FAILED", Message: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Code: "NETWORK_ERROR", Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{Code: "DECODE_FAILED", Message: err.Error(), HTTPStatus: resp.StatusCode}
	}
	return nil
}

// decodeError turns a non-2xx response into an *APIError.
func decodeError(resp *http.Response) *APIError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	var envelope errorBody
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Error.Code != "" {
		return &APIError{
			Code:       envelope.Error.Code,
			Message:    envelope.Error.Message,
			HTTPStatus: resp.StatusCode,
		}
	}

	return &APIError{
		Code:       "HTTP_" + strconv.Itoa(resp.StatusCode),
		Message:    string(data),
		HTTPStatus: resp.StatusCode,
	}
}

// =====================================================
// Content RPCs
// =====================================================

func (c *HTTPClient) UploadContent(ctx context.Context, token string, req ContentUpload) (UploadAck, error) {
	var ack UploadAck
	err := c.doJSON(ctx, http.MethodPost, "/content", token, req, &ack)
	return ack, err
}

func (c *HTTPClient) UpdateContent(ctx context.Context, token, id string, req ContentUpdate) (UploadAck, error) {
	var ack UploadAck
	err := c.doJSON(ctx, http.MethodPut, "/content/"+url.PathEscape(id), token, req, &ack)
	return ack, err
}

func (c *HTTPClient) DeleteContent(ctx context.Context, token, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/content/"+url.PathEscape(id), token, nil, nil)
}

func (c *HTTPClient) GetContentChanges(ctx context.Context, token string, since int64) (ContentChangesResponse, error) {
	var resp ContentChangesResponse
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/content/changes?since=%d", since), token, nil, &resp)
	return resp, err
}

// =====================================================
// Journal RPCs
// =====================================================

func (c *HTTPClient) UploadJournal(ctx context.Context, token string, req JournalUpload) (UploadAck, error) {
	var ack UploadAck
	err := c.doJSON(ctx, http.MethodPost, "/journals", token, req, &ack)
	return ack, err
}

func (c *HTTPClient) UpdateJournal(ctx context.Context, token, id string, req JournalUpdate) (UploadAck, error) {
	var ack UploadAck
	err := c.doJSON(ctx, http.MethodPut, "/journals/"+url.PathEscape(id), token, req, &ack)
	return ack, err
}

func (c *HTTPClient) DeleteJournal(ctx context.Context, token, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/journals/"+url.PathEscape(id), token, nil, nil)
}

func (c *HTTPClient) GetJournalChanges(ctx context.Context, token string, since int64) (JournalChangesResponse, error) {
	var resp JournalChangesResponse
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/journals/changes?since=%d", since), token, nil, &resp)
	return resp, err
}

// =====================================================
// Association RPCs
// =====================================================

func (c *HTTPClient) UploadAssociation(ctx context.Context, token string, req AssociationUpload) (UploadAck, error) {
	var ack UploadAck
	err := c.doJSON(ctx, http.MethodPost, "/associations", token, req, &ack)
	return ack, err
}

func (c *HTTPClient) DeleteAssociation(ctx context.Context, token, journalID, contentID string) error {
	path := "/associations/" + url.PathEscape(journalID) + "/" + url.PathEscape(contentID)
	return c.doJSON(ctx, http.MethodDelete, path, token, nil, nil)
}

func (c *HTTPClient) GetAssociationChanges(ctx context.Context, token string, since int64) (AssociationChangesResponse, error) {
	var resp AssociationChangesResponse
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/associations/changes?since=%d", since), token, nil, &resp)
	return resp, err
}

// =====================================================
// Media RPCs
// =====================================================

// UploadMedia sends a binary attachment. Media bodies are raw bytes,
// not JSON.
func (c *HTTPClient) UploadMedia(ctx context.Context, token, mediaID string, data []byte) (UploadAck, error) {
	var ack UploadAck

	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		c.config.BaseURL+"/media/"+url.PathEscape(mediaID), bytes.NewReader(data))
	if err != nil {
		return ack, &APIError{Code: "REQUEST_FAILED", Message: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ack, &APIError{Code: "NETWORK_ERROR", Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ack, decodeError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return ack, &APIError{Code: "DECODE_FAILED", Message: err.Error(), HTTPStatus: resp.StatusCode}
	}
	return ack, nil
}

// DownloadMedia fetches a binary attachment.
func (c *HTTPClient) DownloadMedia(ctx context.Context, token, mediaID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.config.BaseURL+"/media/"+url.PathEscape(mediaID), nil)
	if err != nil {
		return nil, &APIError{Code: "REQUEST_FAILED", Message: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Code: "NETWORK_ERROR", Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Code: "NETWORK_ERROR", Message: err.Error(), HTTPStatus: resp.StatusCode}
	}
	return data, nil
}
