package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-retryablehttp"
)

// Предусловия подключения (проверяются на connect, не на каждый сабмит).
var (
	ErrInvalidEndpoint    = fmt.Errorf("invalid endpoint url")
	ErrInvalidCredential  = fmt.Errorf("invalid api key")
	ErrConnectionFailed   = fmt.Errorf("connection failed")
	ErrTransmissionFailed = fmt.Errorf("transmission failed")
)

const minAPIKeyLen = 30

// ValidateEndpointURL: только https и только хост с разрешённым суффиксом.
func ValidateEndpointURL(raw, allowedHostSuffix string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}
	if u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be https", ErrInvalidEndpoint)
	}
	if u.Host == "" || !strings.HasSuffix(u.Hostname(), allowedHostSuffix) {
		return fmt.Errorf("%w: host must end with %s", ErrInvalidEndpoint, allowedHostSuffix)
	}
	return nil
}

func ValidateAPIKey(key string) error {
	if len(strings.TrimSpace(key)) < minAPIKeyLen {
		return fmt.Errorf("%w: key shorter than %d chars", ErrInvalidCredential, minAPIKeyLen)
	}
	return nil
}

// Identity — идентичность вызывающего, уходит вспомогательными заголовками.
type Identity struct {
	Email      string
	Department string
	ClientIP   string
}

// Endpoint — удалённый REST-эндпоинт таблиц (bearer-авторизация).
// Ретраи только у liveness-GET: вставка не идемпотентна, её повтор после
// потерянного ответа задублировал бы строку. Сабмит уходит ровно одним запросом.
type Endpoint struct {
	baseURL string
	apiKey  string
	client  *retryablehttp.Client // GET, с ретраями
	insert  *retryablehttp.Client // POST, без ретраев
	log     hclog.Logger
}

func newClient(timeout time.Duration, log hclog.Logger, retries int) *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = retries
	c.RetryWaitMin = 200 * time.Millisecond
	c.RetryWaitMax = 2 * time.Second
	c.HTTPClient.Timeout = timeout
	c.Logger = log.Named("remote.http")
	return c
}

func NewEndpoint(baseURL, apiKey string, timeout time.Duration, log hclog.Logger) *Endpoint {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Endpoint{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  newClient(timeout, log, 2),
		insert:  newClient(timeout, log, 0),
		log:     log.Named("remote"),
	}
}

func (e *Endpoint) URL() string { return e.baseURL }

func (e *Endpoint) authHeaders(req *retryablehttp.Request) {
	req.Header.Set("apikey", e.apiKey)
	req.Header.Set("Authorization", "Bearer "+e.apiKey)
}

// Ping — проверка живости и валидности ключа: GET {endpoint}/rest/v1/, ждём 2xx.
func (e *Endpoint) Ping(ctx context.Context) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/rest/v1/", nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	e.authHeaders(req)

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: endpoint returned %d", ErrConnectionFailed, resp.StatusCode)
	}
	return nil
}

// Insert — POST {endpoint}/rest/v1/{table} с защищённой записью.
// Успех — 2xx с JSON-массивом, первый элемент которого — вставленная строка.
func (e *Endpoint) Insert(ctx context.Context, table string, record map[string]any, ident Identity) (map[string]any, error) {
	body, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("%w: encode record: %v", ErrTransmissionFailed, err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost,
		e.baseURL+"/rest/v1/"+url.PathEscape(table), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransmissionFailed, err)
	}
	e.authHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")
	req.Header.Set("X-User-Email", ident.Email)
	req.Header.Set("X-Department", ident.Department)
	req.Header.Set("X-Client-IP", ident.ClientIP)

	resp, err := e.insert.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransmissionFailed, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// отдаём сообщение эндпоинта, если оно есть
		msg := endpointMessage(raw)
		if msg == "" {
			msg = fmt.Sprintf("endpoint returned %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: %s", ErrTransmissionFailed, msg)
	}

	var rows []map[string]any
	if err := json.Unmarshal(raw, &rows); err != nil || len(rows) == 0 {
		return nil, fmt.Errorf("%w: endpoint returned no representation", ErrTransmissionFailed)
	}
	return rows[0], nil
}

func endpointMessage(raw []byte) string {
	var e struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &e); err == nil && e.Message != "" {
		return e.Message
	}
	return ""
}
