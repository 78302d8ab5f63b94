package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-retry"
)

const (
	RoleAdmin      = "ADMIN"
	checkTokenPath = "/auth/check-token"
	statusOK       = "OK"
)

var (
	// ErrMissingToken indica header Authorization ausente ou vazio.
	ErrMissingToken = errors.New("auth: authorization header missing")
	// ErrUnauthorized indica token recusado pelo serviço de autenticação.
	ErrUnauthorized = errors.New("auth: invalid authorization token")
	// ErrUnavailable indica que o serviço não respondeu após as tentativas.
	ErrUnavailable = errors.New("auth: service unavailable")
)

// Identity é o que o serviço de autenticação devolve para um token válido.
type Identity struct {
	Email        string `json:"email"`
	MobileNumber string `json:"mobileNumber"`
	Role         string `json:"role"`
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

type checkResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Identity
}

// Validator abstrai a checagem do token para o middleware HTTP.
type Validator interface {
	Validate(ctx context.Context, token string) (Identity, error)
}

type Config struct {
	BaseURL  string
	Attempts int
	Backoff  time.Duration
	Timeout  time.Duration
}

// Client consulta GET {BaseURL}/auth/check-token repassando o header
// Authorization. Falhas de rede e respostas 5xx são repetidas com backoff
// constante; 4xx e status diferente de OK recusam o token na hora.
type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config, httpClient *http.Client) *Client {
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: httpClient}
}

func (c *Client) Validate(ctx context.Context, token string) (Identity, error) {
	if strings.TrimSpace(token) == "" {
		return Identity{}, ErrMissingToken
	}

	var identity Identity
	attempt := 0
	backoff := retry.WithMaxRetries(uint64(c.cfg.Attempts-1), retry.NewConstant(c.backoff()))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		id, err := c.check(ctx, token)
		if err != nil && !errors.Is(err, ErrUnauthorized) {
			log.Ctx(ctx).Warn().Err(err).Int("attempt", attempt).Msg("falha ao validar token")
			return retry.RetryableError(err)
		}
		identity = id
		return err
	})
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return Identity{}, err
		}
		return Identity{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return identity, nil
}

func (c *Client) backoff() time.Duration {
	if c.cfg.Backoff <= 0 {
		return time.Millisecond
	}
	return c.cfg.Backoff
}

func (c *Client) check(ctx context.Context, token string) (Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+checkTokenPath, nil)
	if err != nil {
		return Identity{}, fmt.Errorf("erro ao criar request: %w", err)
	}
	req.Header.Set("Authorization", token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("erro de conexão com auth: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Identity{}, fmt.Errorf("auth retornou %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return Identity{}, ErrUnauthorized
	}

	var body checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		// corpo ilegível conta como recusa
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if body.Status != statusOK {
		return Identity{}, ErrUnauthorized
	}
	return body.Identity, nil
}
