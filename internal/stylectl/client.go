package stylectl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/okian/stylist/internal/domain/model"
	"github.com/okian/stylist/internal/domain/types"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status    int    `json:"-"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%d %s", e.Status, e.Code)
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

// IsCode reports whether err is an APIError carrying code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// Client talks to a running stylist server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Healthy checks the service answers its probe.
func (c *Client) Healthy(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/healthz", nil, "")
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	return nil
}

// CreateSession starts a session.
func (c *Client) CreateSession(ctx context.Context) (types.SessionView, error) {
	var v types.SessionView
	err := c.doJSON(ctx, http.MethodPost, "/sessions", nil, &v)
	return v, err
}

// Answer records one quiz answer.
func (c *Client) Answer(ctx context.Context, id string, question int, answer string) (types.SessionView, error) {
	body, err := json.Marshal(map[string]string{"answer": answer})
	if err != nil {
		return types.SessionView{}, fmt.Errorf("marshal answer: %w", err)
	}
	var v types.SessionView
	err = c.doJSON(ctx, http.MethodPut, "/sessions/"+id+"/quiz/"+strconv.Itoa(question), body, &v)
	return v, err
}

// AddItem uploads one garment as multipart form data.
func (c *Client) AddItem(ctx context.Context, id string, up types.Upload) (types.ItemView, bool, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("category", string(up.Category)); err != nil {
		return types.ItemView{}, false, fmt.Errorf("write category: %w", err)
	}
	if up.UploadID != "" {
		if err := mw.WriteField("upload_id", up.UploadID); err != nil {
			return types.ItemView{}, false, fmt.Errorf("write upload id: %w", err)
		}
	}
	fw, err := mw.CreateFormFile("image", "garment")
	if err != nil {
		return types.ItemView{}, false, fmt.Errorf("create image part: %w", err)
	}
	if _, err := fw.Write(up.Image); err != nil {
		return types.ItemView{}, false, fmt.Errorf("write image part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return types.ItemView{}, false, fmt.Errorf("close multipart: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/sessions/"+id+"/items", buf.Bytes(), mw.FormDataContentType())
	if err != nil {
		return types.ItemView{}, false, err
	}
	defer func() { _ = resp.Body.Close() }()

	var ack struct {
		Item      types.ItemView `json:"item"`
		Duplicate bool           `json:"duplicate"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return types.ItemView{}, false, fmt.Errorf("decode item: %w", err)
	}
	return ack.Item, ack.Duplicate, nil
}

// GenerateOutfit asks the server to select and render the outfit.
func (c *Client) GenerateOutfit(ctx context.Context, id string) (types.OutfitView, error) {
	var v types.OutfitView
	err := c.doJSON(ctx, http.MethodPost, "/sessions/"+id+"/outfit", nil, &v)
	return v, err
}

// Preview downloads the last rendered preview.
func (c *Client) Preview(ctx context.Context, id string) (model.Preview, error) {
	resp, err := c.do(ctx, http.MethodGet, "/sessions/"+id+"/outfit/preview", nil, "")
	if err != nil {
		return model.Preview{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	img, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.Preview{}, fmt.Errorf("read preview: %w", err)
	}
	return model.Preview{Image: img, ContentType: resp.Header.Get("Content-Type")}, nil
}

// Stats fetches the service snapshot.
func (c *Client) Stats(ctx context.Context) (types.Stats, error) {
	var st types.Stats
	err := c.doJSON(ctx, http.MethodGet, "/stats", nil, &st)
	return st, err
}

func (c *Client) doJSON(ctx context.Context, method, path string, body []byte, out any) error {
	ct := ""
	if body != nil {
		ct = "application/json"
	}
	resp, err := c.do(ctx, method, path, body, ct)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", method, path, err)
	}
	return nil
}

// do sends the request and turns any non-2xx response into an *APIError.
func (c *Client) do(ctx context.Context, method, path string, body []byte, contentType string) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer func() { _ = resp.Body.Close() }()

	apiErr := &APIError{Status: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if json.Unmarshal(raw, apiErr) != nil || apiErr.Code == "" {
		apiErr.Code = http.StatusText(resp.StatusCode)
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return nil, apiErr
}
