package injector_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/raywall/broadband-plan-service/pkg/config/injector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSSM struct{ mock.Mock }

func (m *MockSSM) GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ssm.GetParameterOutput), args.Error(1)
}

type MockSecrets struct{ mock.Mock }

func (m *MockSecrets) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*secretsmanager.GetSecretValueOutput), args.Error(1)
}

type nested struct {
	URL string
}

type testConfig struct {
	Description string
	Password    string
	BaseURL     string
	Tags        []string
	Headers     map[string]string
	Nested      *nested
	Port        int
	hidden      string
}

func TestInjector_Environment(t *testing.T) {
	t.Setenv("BB_REGION", "us-east-1")
	t.Setenv("BB_TEAM", "broadband")

	target := &testConfig{
		Description: "Service running in ${env.BB_REGION}",
		Tags:        []string{"team:${env.BB_TEAM}"},
		Headers:     map[string]string{"x-region": "${env.BB_REGION}"},
		Nested:      &nested{URL: "https://${env.BB_REGION}.api.com"},
		Port:        8080,
		hidden:      "${env.BB_REGION}",
	}

	require.NoError(t, injector.New(nil, nil).Inject(context.Background(), target))

	assert.Equal(t, "Service running in us-east-1", target.Description)
	assert.Equal(t, []string{"team:broadband"}, target.Tags)
	assert.Equal(t, "us-east-1", target.Headers["x-region"])
	assert.Equal(t, "https://us-east-1.api.com", target.Nested.URL)
	assert.Equal(t, 8080, target.Port)
	assert.Equal(t, "${env.BB_REGION}", target.hidden)
}

func TestInjector_MissingEnvBecomesEmpty(t *testing.T) {
	target := &testConfig{Description: "[${env.BB_DOES_NOT_EXIST}]"}

	require.NoError(t, injector.New(nil, nil).Inject(context.Background(), target))

	assert.Equal(t, "[]", target.Description)
}

func TestInjector_SSMAndSecrets(t *testing.T) {
	ssmMock := new(MockSSM)
	secretsMock := new(MockSecrets)

	ssmMock.On("GetParameter", mock.Anything, mock.MatchedBy(func(in *ssm.GetParameterInput) bool {
		return *in.Name == "/broadband/auth/base_url" && *in.WithDecryption
	})).Return(&ssm.GetParameterOutput{
		Parameter: &ssmtypes.Parameter{Value: aws.String("http://auth.internal")},
	}, nil).Once()

	secretsMock.On("GetSecretValue", mock.Anything, mock.MatchedBy(func(in *secretsmanager.GetSecretValueInput) bool {
		return *in.SecretId == "prod/redis"
	})).Return(&secretsmanager.GetSecretValueOutput{
		SecretString: aws.String(`{"password":"s3cr3t","user":"default"}`),
	}, nil).Once()

	target := &testConfig{
		BaseURL:     "${ssm./broadband/auth/base_url}",
		Description: "${ssm./broadband/auth/base_url}/auth",
		Password:    "${secret.prod/redis#password}",
	}

	require.NoError(t, injector.New(ssmMock, secretsMock).Inject(context.Background(), target))

	assert.Equal(t, "http://auth.internal", target.BaseURL)
	assert.Equal(t, "http://auth.internal/auth", target.Description)
	assert.Equal(t, "s3cr3t", target.Password)
	// a mesma referência é buscada uma única vez
	ssmMock.AssertExpectations(t)
	secretsMock.AssertExpectations(t)
}

func TestInjector_RawSecret(t *testing.T) {
	secretsMock := new(MockSecrets)
	secretsMock.On("GetSecretValue", mock.Anything, mock.Anything).
		Return(&secretsmanager.GetSecretValueOutput{SecretString: aws.String("plain-password")}, nil)

	target := &testConfig{Password: "${secret.redis-password}"}

	require.NoError(t, injector.New(nil, secretsMock).Inject(context.Background(), target))
	assert.Equal(t, "plain-password", target.Password)
}

func TestInjector_Errors(t *testing.T) {
	t.Run("fonte sem cliente", func(t *testing.T) {
		err := injector.New(nil, nil).Inject(context.Background(), &testConfig{BaseURL: "${ssm./x}"})
		assert.ErrorIs(t, err, injector.ErrSourceNotConfigured)
		assert.Contains(t, err.Error(), "BaseURL")
	})

	t.Run("falha do SSM", func(t *testing.T) {
		ssmMock := new(MockSSM)
		boom := errors.New("access denied")
		ssmMock.On("GetParameter", mock.Anything, mock.Anything).Return(nil, boom)

		err := injector.New(ssmMock, nil).Inject(context.Background(), &testConfig{BaseURL: "${ssm./x}"})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("campo ausente no segredo", func(t *testing.T) {
		secretsMock := new(MockSecrets)
		secretsMock.On("GetSecretValue", mock.Anything, mock.Anything).
			Return(&secretsmanager.GetSecretValueOutput{SecretString: aws.String(`{"user":"x"}`)}, nil)

		err := injector.New(nil, secretsMock).Inject(context.Background(), &testConfig{Password: "${secret.prod/redis#password}"})
		assert.ErrorContains(t, err, "password")
	})

	t.Run("target inválido", func(t *testing.T) {
		assert.Error(t, injector.New(nil, nil).Inject(context.Background(), testConfig{}))
	})
}
