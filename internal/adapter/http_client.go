package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/fieldledger/fieldledger/internal/config"
	"github.com/fieldledger/fieldledger/models"
)

type httpRemoteService struct {
	client *resty.Client

	mu    sync.RWMutex
	token string
}

// NewHTTPRemoteService builds the resty-backed RemoteService for the
// configured base URL and request timeout.
func NewHTTPRemoteService(cfg config.ClientAdapter) RemoteService {
	if cfg.HTTPAddress == "" {
		cfg.HTTPAddress = "http://localhost:8080"
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = config.DefaultRequestTimeout
	}

	cli := resty.New().
		SetBaseURL(strings.TrimRight(cfg.HTTPAddress, "/")).
		SetTimeout(cfg.RequestTimeout)

	return &httpRemoteService{client: cli}
}

func (h *httpRemoteService) SetToken(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = strings.TrimSpace(token)
}

func (h *httpRemoteService) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

func (h *httpRemoteService) Login(ctx context.Context, login, password string) (models.Token, error) {
	body := map[string]string{"login": login, "password": password}

	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post("/api/auth/login")
	if err != nil {
		return models.Token{}, fmt.Errorf("login request: %w", transportError(err))
	}
	if err = mapHTTPError(resp); err != nil {
		return models.Token{}, err
	}

	token, err := parseBearerToken(resp.Header().Get("Authorization"))
	if err != nil {
		return models.Token{}, fmt.Errorf("login parse bearer token: %w", err)
	}
	accountID, err := parseAccountIDFromJWT(token)
	if err != nil {
		return models.Token{}, fmt.Errorf("login parse account id: %w", err)
	}

	h.SetToken(token)
	return models.Token{SignedString: token, AccountID: accountID}, nil
}

func (h *httpRemoteService) Create(ctx context.Context, t models.RecordType, payload json.RawMessage) (models.RemoteRecord, error) {
	resp, err := h.authedRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody([]byte(payload)).
		Post(typePath(t))
	if err != nil {
		return models.RemoteRecord{}, fmt.Errorf("create %s request: %w", t, transportError(err))
	}
	if err = mapHTTPError(resp); err != nil {
		return models.RemoteRecord{}, err
	}

	return decodeRemoteRecord(resp.Body())
}

func (h *httpRemoteService) Update(ctx context.Context, t models.RecordType, id string, payload json.RawMessage) (models.RemoteRecord, error) {
	resp, err := h.authedRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody([]byte(payload)).
		Put(typePath(t) + "/" + id)
	if err != nil {
		return models.RemoteRecord{}, fmt.Errorf("update %s/%s request: %w", t, id, transportError(err))
	}
	if err = mapHTTPError(resp); err != nil {
		return models.RemoteRecord{}, err
	}

	return decodeRemoteRecord(resp.Body())
}

func (h *httpRemoteService) Delete(ctx context.Context, t models.RecordType, id string) error {
	resp, err := h.authedRequest(ctx).Delete(typePath(t) + "/" + id)
	if err != nil {
		return fmt.Errorf("delete %s/%s request: %w", t, id, transportError(err))
	}

	return mapHTTPError(resp)
}

func (h *httpRemoteService) List(ctx context.Context, t models.RecordType) ([]models.RemoteRecord, error) {
	resp, err := h.authedRequest(ctx).Get(typePath(t))
	if err != nil {
		return nil, fmt.Errorf("list %s request: %w", t, transportError(err))
	}
	if err = mapHTTPError(resp); err != nil {
		return nil, err
	}

	var items []models.RemoteRecord
	if err = json.Unmarshal(resp.Body(), &items); err != nil {
		return nil, fmt.Errorf("decode list %s response: %w", t, err)
	}

	return items, nil
}

func (h *httpRemoteService) Ping(ctx context.Context) error {
	resp, err := h.client.R().SetContext(ctx).Get("/api/health")
	if err != nil {
		return fmt.Errorf("health request: %w", transportError(err))
	}

	return mapHTTPError(resp)
}

func (h *httpRemoteService) authedRequest(ctx context.Context) *resty.Request {
	req := h.client.R().SetContext(ctx)
	if token := h.Token(); token != "" {
		req.SetHeader("Authorization", "Bearer "+token)
	}
	return req
}

func typePath(t models.RecordType) string {
	return "/api/" + string(models.MustRecordType(t))
}

func decodeRemoteRecord(body []byte) (models.RemoteRecord, error) {
	var record models.RemoteRecord
	if err := json.Unmarshal(body, &record); err != nil {
		return models.RemoteRecord{}, fmt.Errorf("decode record response: %w", err)
	}
	if record.ID == "" {
		return models.RemoteRecord{}, fmt.Errorf("decode record response: %w", errors.New("missing permanent id"))
	}
	return record, nil
}

// transportError classifies a failure of the HTTP round trip itself (refused
// connection, DNS, timeout). Connectivity lost mid-drain lands here and is
// therefore retried like any transient failure.
func transportError(err error) error {
	return errors.Join(ErrTransient, err)
}

// mapHTTPError folds a completed HTTP response into the error taxonomy:
// 2xx nil, 401 unauthorized, other 4xx client-rejected (except the
// retryable 408/429), everything else transient.
func mapHTTPError(resp *resty.Response) error {
	code := resp.StatusCode()
	if code >= http.StatusOK && code < http.StatusMultipleChoices {
		return nil
	}

	body := strings.TrimSpace(string(resp.Body()))
	if body == "" {
		body = http.StatusText(code)
	}

	switch {
	case code == http.StatusUnauthorized:
		return fmt.Errorf("http %d: %s: %w", code, body, ErrUnauthorized)
	case code == http.StatusRequestTimeout || code == http.StatusTooManyRequests:
		return fmt.Errorf("http %d: %s: %w", code, body, ErrTransient)
	case code >= http.StatusBadRequest && code < http.StatusInternalServerError:
		return fmt.Errorf("http %d: %s: %w", code, body, ErrClientRejected)
	default:
		return fmt.Errorf("http %d: %s: %w", code, body, ErrTransient)
	}
}

func parseBearerToken(value string) (string, error) {
	parts := strings.Split(strings.TrimSpace(value), " ")
	if len(parts) != 2 || parts[1] == "" {
		return "", errors.New("invalid authorization header")
	}
	return parts[1], nil
}

func parseAccountIDFromJWT(tokenString string) (int64, error) {
	token, _, err := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return 0, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, errors.New("invalid token claims")
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return 0, err
	}

	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return 0, err
	}
	return id, nil
}
