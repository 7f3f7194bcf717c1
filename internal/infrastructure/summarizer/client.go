package summarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/eliasbrown99/solicitation-dashboard/internal/core/domain"
	"github.com/eliasbrown99/solicitation-dashboard/internal/core/ports"
	"github.com/eliasbrown99/solicitation-dashboard/internal/infrastructure/resilience"
)

type Options struct {
	// Timeout bounds the non-streaming calls; the summarize stream has none.
	Timeout   time.Duration
	Executor  *resilience.Executor
	Limiter   *rate.Limiter
	Metrics   ports.ControllerMetrics
	Transport http.RoundTripper
}

// Client talks to the summarization backend.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	streamClient *http.Client
	executor     *resilience.Executor
	limiter      *rate.Limiter
	metrics      ports.ControllerMetrics
}

func New(baseURL string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	transport := options.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	var metrics ports.ControllerMetrics = ports.NopMetrics{}
	if options.Metrics != nil {
		metrics = options.Metrics
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: timeout, Transport: transport},
		streamClient: &http.Client{Transport: transport},
		executor:     options.Executor,
		limiter:      options.Limiter,
		metrics:      metrics,
	}
}

func (c *Client) execute(ctx context.Context, operation string, fn func(context.Context) error, classifier resilience.ErrorClassifier) error {
	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "summarizer."+operation, fn, classifier)
	} else {
		err = fn(ctx)
	}
	return wrapBackendError(operation, err)
}

func (c *Client) CheckExists(ctx context.Context, filename string) (domain.ExistenceResult, error) {
	var result domain.ExistenceResult
	err := c.execute(ctx, "exists", func(ctx context.Context) error {
		result = domain.ExistenceResult{}
		return c.getJSON(ctx, "/document-exists/"+url.PathEscape(filename), &result, "exists")
	}, classifyBackendError)
	if err != nil {
		return domain.ExistenceResult{}, err
	}
	return result, nil
}

func (c *Client) ListSummaries(ctx context.Context, query string) ([]domain.DocumentRecord, error) {
	path := "/summaries/"
	if q := strings.TrimSpace(query); q != "" {
		path += "?" + url.Values{"search": {q}}.Encode()
	}

	var raw []json.RawMessage
	err := c.execute(ctx, "list", func(ctx context.Context) error {
		raw = nil
		return c.getJSON(ctx, path, &raw, "list")
	}, classifyBackendError)
	if err != nil {
		return nil, err
	}

	records := make([]domain.DocumentRecord, 0, len(raw))
	for idx, item := range raw {
		var rec domain.DocumentRecord
		if err := json.Unmarshal(item, &rec); err != nil {
			slog.Warn("listing_record_undecodable", "index", idx, "error", err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func (c *Client) DeleteSummary(ctx context.Context, id domain.DocumentID) error {
	return c.execute(ctx, "delete", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/summaries/"+id.String(), nil)
		if err != nil {
			return fmt.Errorf("create delete request: %w", err)
		}
		resp, err := c.send(ctx, c.httpClient, req, "delete")
		if err != nil {
			return err
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.Body.Close()
	}, classifyNoRetry)
}

// Summarize posts the file as multipart field "file" and opens the event stream.
// It is never retried.
func (c *Client) Summarize(ctx context.Context, file domain.UploadFile) (ports.SummaryStream, error) {
	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", file.Name(), err)
	}

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		defer src.Close()
		part, err := writer.CreateFormFile("file", file.Name())
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, src); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(writer.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/summarize-stream/", pr)
	if err != nil {
		pr.CloseWithError(err)
		return nil, fmt.Errorf("create summarize request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.send(ctx, c.streamClient, req, "summarize")
	if err != nil {
		pr.CloseWithError(err)
		return nil, wrapBackendError("summarize", err)
	}
	return &summaryStream{ctx: ctx, body: resp.Body}, nil
}

type summaryStream struct {
	ctx  context.Context
	body io.ReadCloser
}

func (s *summaryStream) Events() iter.Seq2[domain.StreamEvent, error] {
	return Events(s.ctx, s.body)
}

func (s *summaryStream) Close() error {
	return s.body.Close()
}
