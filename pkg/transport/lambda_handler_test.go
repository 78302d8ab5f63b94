package transport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/raywall/broadband-plan-service/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLambdaHandler_REST(t *testing.T) {
	svc := new(MockPlanService)
	want := models.NewFilterRequest()
	want.Active = models.String("True")
	svc.On("ListPlans", mock.Anything, want).Return([]models.Plan{{PlanID: "p-1"}}, nil).Once()

	handler := NewLambdaHandler(newTestRouter(svc), nil)

	req := events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodGet,
		Path:                  base,
		QueryStringParameters: map[string]string{"active": "True"},
		Headers: map[string]string{
			"x-correlation-id": "lambda-corr",
		},
	}

	resp, err := handler.Handle(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Headers["content-type"])
	assert.Equal(t, "lambda-corr", resp.Headers[HeaderCorrelationID])
	assert.Contains(t, resp.Body, `"planId":"p-1"`)
}

func TestLambdaHandler_AuthAndBase64Body(t *testing.T) {
	svc := new(MockPlanService)
	svc.On("CreateConnection", mock.Anything, models.Connection{City: "Pune"}, "1234567890").
		Return(&models.Connection{ConnectionID: "c-1"}, nil).Once()

	handler := NewLambdaHandler(newTestRouter(svc), nil)

	resp, err := handler.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:      http.MethodPost,
		Path:            base + "/connection/new",
		Headers:         map[string]string{"Authorization": "user"},
		Body:            base64.StdEncoding.EncodeToString([]byte(`{"city":"Pune"}`)),
		IsBase64Encoded: true,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	// sem header cai no gate
	resp, err = handler.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodGet,
		Path:       base + "/connection/me",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, msgMissingToken, resp.Body)
}

func TestLambdaHandler_InvalidBase64(t *testing.T) {
	handler := NewLambdaHandler(newTestRouter(new(MockPlanService)), nil)

	resp, err := handler.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:      http.MethodPost,
		Path:            base + "/subscription-plan-detail",
		Body:            "%%%",
		IsBase64Encoded: true,
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLambdaHandler_InvokeDispatch(t *testing.T) {
	t.Run("api gateway", func(t *testing.T) {
		handler := NewLambdaHandler(newTestRouter(new(MockPlanService)), nil)
		payload, _ := json.Marshal(events.APIGatewayProxyRequest{HTTPMethod: http.MethodGet, Path: base + "/health"})

		out, err := handler.Invoke(context.Background(), payload)

		require.NoError(t, err)
		resp, ok := out.(events.APIGatewayProxyResponse)
		require.True(t, ok)
		assert.Equal(t, "live", resp.Body)
	})

	t.Run("sqs", func(t *testing.T) {
		inv := &fakeInvalidator{}
		listener := NewInvalidationListener(new(MockSQSClient), "", 0, inv, nil)
		handler := NewLambdaHandler(newTestRouter(new(MockPlanService)), listener)

		payload := []byte(`{"Records":[{"messageId":"m-1","eventSource":"aws:sqs","body":"{}"},{"messageId":"m-2","eventSource":"aws:sqs","body":"{}"}]}`)
		out, err := handler.Invoke(context.Background(), payload)

		require.NoError(t, err)
		assert.IsType(t, events.SQSEventResponse{}, out)
		assert.Equal(t, 1, inv.Calls())
	})

	t.Run("sqs com falha devolve erro", func(t *testing.T) {
		inv := &fakeInvalidator{err: errors.New("redis down")}
		listener := NewInvalidationListener(new(MockSQSClient), "", 0, inv, nil)
		handler := NewLambdaHandler(newTestRouter(new(MockPlanService)), listener)

		_, err := handler.Invoke(context.Background(), []byte(`{"Records":[{"eventSource":"aws:sqs"}]}`))

		assert.Error(t, err)
	})

	t.Run("sqs sem listener", func(t *testing.T) {
		handler := NewLambdaHandler(newTestRouter(new(MockPlanService)), nil)

		_, err := handler.Invoke(context.Background(), []byte(`{"Records":[{"eventSource":"aws:sqs"}]}`))

		assert.Error(t, err)
	})

	t.Run("payload inválido", func(t *testing.T) {
		handler := NewLambdaHandler(newTestRouter(new(MockPlanService)), nil)

		_, err := handler.Invoke(context.Background(), []byte(`not json`))

		assert.Error(t, err)
	})
}
