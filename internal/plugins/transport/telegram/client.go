package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/gadzhilaev/smile-ai-tg/internal/domain"
	debuglog "github.com/gadzhilaev/smile-ai-tg/internal/log"
)

const (
	DefaultBaseURL       = "https://api.telegram.org"
	DefaultPollTimeout   = 30 * time.Second
	DefaultRatePerMinute = 20

	textTimeout  = 10 * time.Second
	photoTimeout = 30 * time.Second
	albumTimeout = 60 * time.Second
	// the HTTP deadline of getUpdates exceeds the long-poll timeout
	pollGrace = 5 * time.Second
)

type Config struct {
	Token         string
	GroupChatID   string
	BaseURL       string
	PollTimeout   time.Duration
	RatePerMinute int
}

// Client talks to the Telegram Bot API. It is safe for concurrent use.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultPollTimeout
	}
	if cfg.RatePerMinute <= 0 {
		cfg.RatePerMinute = DefaultRatePerMinute
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{},
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMinute)), cfg.RatePerMinute),
	}
}

func (c *Client) IsConfigured() bool {
	return c.cfg.Token != "" && c.cfg.GroupChatID != ""
}

func (c *Client) endpoint(method string) string {
	return c.cfg.BaseURL + "/bot" + c.cfg.Token + "/" + method
}

func (c *Client) postJSON(ctx context.Context, method string, timeout time.Duration, payload any) (gjson.Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return gjson.Result{}, errors.Wrapf(err, "encode %s", method)
	}
	return c.do(ctx, method, timeout, "application/json", bytes.NewReader(body))
}

type filePart struct {
	field    string
	filename string
	content  []byte
}

func (c *Client) postMultipart(ctx context.Context, method string, timeout time.Duration, fields map[string]string, files []filePart) (gjson.Result, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return gjson.Result{}, errors.Wrapf(err, "encode %s", method)
		}
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.filename)
		if err != nil {
			return gjson.Result{}, errors.Wrapf(err, "encode %s", method)
		}
		if _, err = part.Write(f.content); err != nil {
			return gjson.Result{}, errors.Wrapf(err, "encode %s", method)
		}
	}
	if err := w.Close(); err != nil {
		return gjson.Result{}, errors.Wrapf(err, "encode %s", method)
	}
	return c.do(ctx, method, timeout, w.FormDataContentType(), &buf)
}

// do performs one Bot API call and returns its "result" field. Failures wrap
// domain.ErrTransport.
func (c *Client) do(ctx context.Context, method string, timeout time.Duration, contentType string, body io.Reader) (gjson.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(method), body)
	if err != nil {
		return gjson.Result{}, errors.Wrapf(domain.ErrTransport, "%s: %v", method, err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return gjson.Result{}, errors.Wrapf(domain.ErrTransport, "%s: %v", method, c.redact(err.Error()))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, errors.Wrapf(domain.ErrTransport, "%s: read response: %v", method, err)
	}
	debuglog.Debug(debuglog.Wire, "telegram %s -> %d %s\n", method, resp.StatusCode, raw)

	envelope := gjson.ParseBytes(raw)
	if !envelope.Get("ok").Bool() {
		desc := envelope.Get("description").String()
		if desc == "" {
			desc = fmt.Sprintf("http status %d", resp.StatusCode)
		}
		return gjson.Result{}, errors.Wrapf(domain.ErrTransport, "%s: %s", method, desc)
	}
	return envelope.Get("result"), nil
}

// redact hides the bot token that net/http errors echo back in the URL.
func (c *Client) redact(s string) string {
	if c.cfg.Token == "" {
		return s
	}
	return strings.ReplaceAll(s, c.cfg.Token, "<token>")
}
