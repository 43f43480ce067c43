// Package controller is the client side of the analyze flow: it submits a photo
// to the analyze endpoint and keeps the resulting page view up to date.
package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pageza/fridgechef/backend/internal/render"
	"github.com/pageza/fridgechef/backend/internal/types"
)

// Status line values
const (
	StatusAnalyzing = "Analyzing…"
	statusFailed    = "Analysis failed: "
)

// ImageField is the multipart field the analyze endpoint reads the photo from
const ImageField = "image"

var (
	// ErrStale is returned by Submit when a newer submission superseded this one.
	// The view is left to the newer submission.
	ErrStale = errors.New("submission superseded by a newer one")

	// ErrMalformedResponse means the endpoint answered 2xx with a body that is not an analysis.
	ErrMalformedResponse = errors.New("malformed analysis response")
)

// StatusError is a non-2xx answer from the analyze endpoint
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("analyze endpoint returned status %d", e.Code)
	}
	return fmt.Sprintf("analyze endpoint returned status %d: %s", e.Code, e.Message)
}

// State of the current submission cycle
type State int

const (
	Idle State = iota
	Submitting
	Rendered
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case Rendered:
		return "rendered"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Upload is the photo picked by the user
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Controller drives one page: a status line and the ingredients and recipes sections.
type Controller struct {
	endpoint string
	client   *http.Client
	log      logrus.FieldLogger

	mu     sync.Mutex
	view   render.PageData
	state  State
	gen    uint64
	cancel context.CancelFunc
}

// New creates a controller talking to the server at baseURL. A nil client gets a
// client with a two minute timeout.
func New(baseURL string, client *http.Client, log logrus.FieldLogger) *Controller {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	return &Controller{
		endpoint: strings.TrimRight(baseURL, "/") + "/analyze",
		client:   client,
		log:      log.WithField("component", "controller"),
	}
}

// View returns a snapshot of the page state.
func (c *Controller) View() render.PageData {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// State returns where the latest submission cycle is.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Submit sends the upload for analysis and renders the answer. A nil upload is a
// no-op. Starting a submission cancels any submission still in flight; the older
// one then returns ErrStale without touching the view.
func (c *Controller) Submit(ctx context.Context, upload *Upload) error {
	if upload == nil {
		return nil
	}

	reqCtx, gen := c.begin(ctx)
	resp, err := c.analyze(reqCtx, upload)
	return c.finish(gen, resp, err)
}

func (c *Controller) begin(ctx context.Context) (context.Context, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
	reqCtx, cancel := context.WithCancel(ctx)

	c.gen++
	c.cancel = cancel
	c.state = Submitting
	c.view.Status = StatusAnalyzing
	c.view.Failed = false
	c.view.Ingredients.Visible = false
	c.view.Recipes.Visible = false

	return reqCtx, c.gen
}

func (c *Controller) finish(gen uint64, resp *types.AnalysisResponse, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		c.log.WithField("generation", gen).Debug("dropping superseded response")
		return ErrStale
	}
	c.cancel()
	c.cancel = nil

	if err == nil {
		var ingredients, recipes render.Section
		if ingredients, recipes, err = render.Sections(resp); err == nil {
			// An empty list leaves the previous content of its section in place, hidden.
			if ingredients.Visible {
				c.view.Ingredients = ingredients
			}
			if recipes.Visible {
				c.view.Recipes = recipes
			}
			c.view.Status = ""
			c.state = Rendered
			return nil
		}
	}

	c.log.WithError(err).Warn("analysis failed")
	c.state = Failed
	c.view.Status = statusFailed + failureMessage(err)
	c.view.Failed = true
	return err
}

func (c *Controller) analyze(ctx context.Context, upload *Upload) (*types.AnalysisResponse, error) {
	body, contentType, err := encodeUpload(upload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{Code: resp.StatusCode}
		var errResp types.ErrorResponse
		if json.Unmarshal(data, &errResp) == nil {
			statusErr.Message = errResp.Error
			if errResp.Message != "" {
				statusErr.Message = errResp.Message
			}
		}
		return nil, statusErr
	}

	return decodeAnalysis(data)
}

// encodeUpload packs the upload into a multipart body with a single image part
func encodeUpload(upload *Upload) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	contentType := upload.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, ImageField, escapeQuotes(upload.Filename)))
	header.Set("Content-Type", contentType)

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create image part: %w", err)
	}
	if _, err := part.Write(upload.Data); err != nil {
		return nil, "", fmt.Errorf("failed to write image part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart body: %w", err)
	}

	return &buf, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// decodeAnalysis requires both fields to be present; empty lists are fine.
func decodeAnalysis(data []byte) (*types.AnalysisResponse, error) {
	var raw struct {
		Ingredients *[]string       `json:"ingredients"`
		Recipes     *[]types.Recipe `json:"recipes"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if raw.Ingredients == nil {
		return nil, fmt.Errorf("%w: missing ingredients", ErrMalformedResponse)
	}
	if raw.Recipes == nil {
		return nil, fmt.Errorf("%w: missing recipes", ErrMalformedResponse)
	}
	return &types.AnalysisResponse{Ingredients: *raw.Ingredients, Recipes: *raw.Recipes}, nil
}

func failureMessage(err error) string {
	var statusErr *StatusError
	var netErr net.Error
	switch {
	case errors.As(err, &statusErr):
		if statusErr.Message != "" {
			return statusErr.Message
		}
		return http.StatusText(statusErr.Code)
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return "the server took too long to answer"
	case errors.Is(err, context.Canceled):
		return "the request was cancelled"
	case errors.Is(err, ErrMalformedResponse):
		return "the server sent an unexpected answer"
	default:
		return "could not reach the server"
	}
}
