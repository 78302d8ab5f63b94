package transport

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog/log"
)

// LambdaHandler adapta eventos do API Gateway para o mesmo roteador HTTP
// usado nos runtimes de container. Eventos SQS disparam a invalidação.
type LambdaHandler struct {
	handler     http.Handler
	invalidator *InvalidationListener
}

// NewLambdaHandler cria o adaptador. invalidator pode ser nil quando a
// função não recebe trigger SQS.
func NewLambdaHandler(handler http.Handler, invalidator *InvalidationListener) *LambdaHandler {
	return &LambdaHandler{handler: handler, invalidator: invalidator}
}

// Invoke recebe o evento bruto e decide entre API Gateway e SQS.
func (h *LambdaHandler) Invoke(ctx context.Context, payload json.RawMessage) (any, error) {
	var probe struct {
		Records []struct {
			EventSource string `json:"eventSource"`
		} `json:"Records"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return nil, fmt.Errorf("evento lambda inválido: %w", err)
	}

	if len(probe.Records) > 0 && probe.Records[0].EventSource == "aws:sqs" {
		var ev events.SQSEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("evento sqs inválido: %w", err)
		}
		return h.HandleSQS(ctx, ev)
	}

	var req events.APIGatewayProxyRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("evento api gateway inválido: %w", err)
	}
	return h.Handle(ctx, req)
}

// Handle processa a requisição do API Gateway passando pelo roteador.
func (h *LambdaHandler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	httpReq, err := toHTTPRequest(ctx, req)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Falha convertendo evento do API Gateway")
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusBadRequest,
			Body:       `{"status":"BAD_REQUEST","errorMessage":"invalid request"}`,
		}, nil
	}

	rw := newLambdaResponseWriter()
	h.handler.ServeHTTP(rw, httpReq)

	return rw.response(), nil
}

// HandleSQS invalida as listagens uma vez por lote. Um erro devolve o lote
// inteiro para a fila.
func (h *LambdaHandler) HandleSQS(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	if h.invalidator == nil {
		return events.SQSEventResponse{}, fmt.Errorf("invalidação não configurada")
	}
	if len(ev.Records) == 0 {
		return events.SQSEventResponse{}, nil
	}
	if err := h.invalidator.invalidate(ctx, len(ev.Records)); err != nil {
		return events.SQSEventResponse{}, err
	}
	return events.SQSEventResponse{}, nil
}

func toHTTPRequest(ctx context.Context, req events.APIGatewayProxyRequest) (*http.Request, error) {
	body := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			return nil, fmt.Errorf("body base64 inválido: %w", err)
		}
		body = decoded
	}

	u := url.URL{Path: req.Path}
	q := url.Values{}
	for k, vs := range req.MultiValueQueryStringParameters {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	for k, v := range req.QueryStringParameters {
		if !q.Has(k) {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()

	method := req.HTTPMethod
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	for k, vs := range req.MultiValueHeaders {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	for k, v := range req.Headers {
		if httpReq.Header.Get(k) == "" {
			httpReq.Header.Set(k, v)
		}
	}
	httpReq.RemoteAddr = req.RequestContext.Identity.SourceIP
	return httpReq, nil
}

type lambdaResponseWriter struct {
	header http.Header
	body   bytes.Buffer
	status int
}

func newLambdaResponseWriter() *lambdaResponseWriter {
	return &lambdaResponseWriter{header: make(http.Header)}
}

func (w *lambdaResponseWriter) Header() http.Header { return w.header }

func (w *lambdaResponseWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.body.Write(b)
}

func (w *lambdaResponseWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
}

func (w *lambdaResponseWriter) response() events.APIGatewayProxyResponse {
	status := w.status
	if status == 0 {
		status = http.StatusOK
	}

	headers := make(map[string]string, len(w.header))
	for k, vs := range w.header {
		headers[strings.ToLower(k)] = strings.Join(vs, ",")
	}

	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    headers,
		Body:       w.body.String(),
	}
}
