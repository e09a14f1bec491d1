package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"slideforge/internal/ai"
	"slideforge/internal/deck"
	"slideforge/internal/generation"
	"slideforge/internal/mocks"
	"slideforge/internal/model"
	"slideforge/internal/service"
)

const (
	testPrimaryModel  = "primary-model"
	testFallbackModel = "fallback-model"
	testAPIKey        = "sf_0123456789abcdef0123456789abcdef0123456789abcdef"
)

type mcpFixture struct {
	router        *gin.Engine
	userID        uuid.UUID
	aiClient      *mocks.AIClient
	credits       *mocks.CreditRepository
	presentations *mocks.PresentationRepository
	slides        *mocks.SlideRepository
}

func newMCPFixture(t *testing.T) *mcpFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &mcpFixture{
		userID:        uuid.New(),
		aiClient:      &mocks.AIClient{},
		credits:       &mocks.CreditRepository{},
		presentations: &mocks.PresentationRepository{},
		slides:        &mocks.SlideRepository{},
	}

	selector := deck.NewSelector(rand.New(rand.NewSource(1)))
	outlineGen := generation.NewOutlineGenerator(f.aiClient, selector, testPrimaryModel, testFallbackModel, zap.NewNop())
	slideGen := generation.NewSlideGenerator(f.aiClient, testPrimaryModel, testFallbackModel, zap.NewNop())
	presentationService := service.NewPresentationService(
		f.presentations, f.slides, f.credits,
		outlineGen, slideGen, nil, nil, nil, zap.NewNop(),
	)
	creditService := service.NewCreditService(f.credits, zap.NewNop())

	auth := func(_ context.Context, plaintext string) (*model.APIKey, error) {
		if plaintext != testAPIKey {
			return nil, model.ErrAPIKeyInvalid
		}
		return &model.APIKey{ID: uuid.New(), UserID: f.userID, IsActive: true}, nil
	}

	handler := NewHandler(auth, NewTools(presentationService, creditService, zap.NewNop()), zap.NewNop())
	f.router = gin.New()
	handler.RegisterRoutes(f.router)
	return f
}

func (f *mcpFixture) do(t *testing.T, method, apiKey string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/api/mcp", &buf)
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func rpcBody(method string, params interface{}) map[string]interface{} {
	body := map[string]interface{}{"jsonrpc": "2.0", "id": 1, "method": method}
	if params != nil {
		body["params"] = params
	}
	return body
}

func decodeRPC(t *testing.T, rec *httptest.ResponseRecorder) rpcResponse {
	t.Helper()
	var resp rpcResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestMCPRejectsMissingAPIKey(t *testing.T) {
	f := newMCPFixture(t)
	rec := f.do(t, http.MethodPost, "", rpcBody("tools/list", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeRPC(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeUnauthorized, resp.Error.Code)
}

func TestMCPRejectsWrongAPIKey(t *testing.T) {
	f := newMCPFixture(t)
	rec := f.do(t, http.MethodPost, "sf_wrong", rpcBody("tools/list", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeRPC(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeUnauthorized, resp.Error.Code)
}

func TestMCPMethodNotAllowed(t *testing.T) {
	f := newMCPFixture(t)
	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		rec := f.do(t, method, testAPIKey, nil)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, "verb %s", method)
		resp := decodeRPC(t, rec)
		require.NotNil(t, resp.Error)
		assert.Equal(t, codeInvalidRequest, resp.Error.Code)
	}
}

func TestMCPUnknownMethod(t *testing.T) {
	f := newMCPFixture(t)
	rec := f.do(t, http.MethodPost, testAPIKey, rpcBody("resources/list", nil))

	// JSON-RPC errors for known transport but unknown method ride on HTTP 200.
	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeRPC(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeMethodNotFound, resp.Error.Code)
}

func TestMCPToolsList(t *testing.T) {
	f := newMCPFixture(t)
	rec := f.do(t, http.MethodPost, testAPIKey, rpcBody("tools/list", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeRPC(t, rec)
	require.Nil(t, resp.Error)

	result := resp.Result.(map[string]interface{})
	tools := result["tools"].([]interface{})
	require.Len(t, tools, 1)
	tool := tools[0].(map[string]interface{})
	assert.Equal(t, toolNameCreatePresentation, tool["name"])
	require.Contains(t, tool, "inputSchema")
	schema := tool["inputSchema"].(map[string]interface{})
	properties := schema["properties"].(map[string]interface{})
	for _, name := range []string{"prompt", "slideCount", "style", "language", "contentLength", "enableBrowserSearch"} {
		assert.Contains(t, properties, name)
	}
}

func TestMCPInitialize(t *testing.T) {
	f := newMCPFixture(t)
	rec := f.do(t, http.MethodPost, testAPIKey, rpcBody("initialize", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeRPC(t, rec)
	require.Nil(t, resp.Error)
	result := resp.Result.(map[string]interface{})
	assert.Equal(t, protocolVersion, result["protocolVersion"])
}

func TestMCPCreatePresentationInsufficientCredits(t *testing.T) {
	f := newMCPFixture(t)
	f.credits.On("Balance", mock.Anything, f.userID).
		Return(model.CreditCostPresentationCreate-1, nil).Once()

	rec := f.do(t, http.MethodPost, testAPIKey, rpcBody("tools/call", map[string]interface{}{
		"name":      toolNameCreatePresentation,
		"arguments": map[string]interface{}{"prompt": "anything"},
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeRPC(t, rec)
	require.Nil(t, resp.Error)

	result := resp.Result.(map[string]interface{})
	assert.Equal(t, true, result["isError"])
	// The balance pre-check must stop the call before any model traffic.
	f.aiClient.AssertNotCalled(t, "GenerateJSON",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.credits.AssertExpectations(t)
}

func TestMCPCreatePresentationMissingPrompt(t *testing.T) {
	f := newMCPFixture(t)
	rec := f.do(t, http.MethodPost, testAPIKey, rpcBody("tools/call", map[string]interface{}{
		"name":      toolNameCreatePresentation,
		"arguments": map[string]interface{}{},
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeRPC(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeInvalidParams, resp.Error.Code)
}

func TestMCPCreatePresentationForwardsBrowserSearch(t *testing.T) {
	f := newMCPFixture(t)

	f.credits.On("Balance", mock.Anything, f.userID).Return(100, nil).Once()
	f.credits.On("Deduct", mock.Anything, f.userID, model.CreditCostPresentationCreate,
		model.ActionPresentationCreate, mock.Anything).
		Return(&model.CreditLedgerEntry{BalanceAfter: 90}, nil).Once()
	f.presentations.On("Create", mock.Anything, mock.AnythingOfType("*model.Presentation")).Return(nil).Once()
	f.presentations.On("UpdateOutline", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	f.presentations.On("UpdateStatus", mock.Anything, mock.Anything, model.StatusCompleted).Return(nil).Once()

	outline, err := json.Marshal(map[string]interface{}{
		"title": "Elections",
		"sections": []map[string]interface{}{
			{"title": "Background", "bulletPoints": []string{"history"}, "templateType": "paragraph"},
			{"title": "Current landscape", "bulletPoints": []string{"parties"}, "templateType": "bullets"},
			{"title": "Outlook", "bulletPoints": []string{"polls"}, "templateType": "bullets"},
		},
	})
	require.NoError(t, err)

	var outlineSystemPrompt string
	f.aiClient.On("GenerateJSON", mock.Anything, testPrimaryModel, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { outlineSystemPrompt = args.String(2) }).
		Return(string(outline), ai.Usage{}, nil).Once()
	f.aiClient.On("GenerateJSON", mock.Anything, testPrimaryModel, mock.Anything, mock.Anything, mock.Anything).
		Return(`{"title":"Slide","content":"<p>content</p>"}`, ai.Usage{}, nil).Times(3)
	f.slides.On("Create", mock.Anything, mock.AnythingOfType("*model.Slide")).Return(nil).Times(3)

	rec := f.do(t, http.MethodPost, testAPIKey, rpcBody("tools/call", map[string]interface{}{
		"name": toolNameCreatePresentation,
		"arguments": map[string]interface{}{
			"prompt":              "current election coverage",
			"slideCount":          3,
			"enableBrowserSearch": true,
		},
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeRPC(t, rec)
	require.Nil(t, resp.Error)
	assert.Contains(t, outlineSystemPrompt, "web search",
		"enableBrowserSearch must reach the outline prompt")
	f.aiClient.AssertExpectations(t)
}

func TestMCPCreatePresentationEndToEnd(t *testing.T) {
	f := newMCPFixture(t)

	f.credits.On("Balance", mock.Anything, f.userID).Return(100, nil).Once()
	f.credits.On("Deduct", mock.Anything, f.userID, model.CreditCostPresentationCreate,
		model.ActionPresentationCreate, mock.Anything).
		Return(&model.CreditLedgerEntry{BalanceAfter: 90}, nil).Once()
	f.presentations.On("Create", mock.Anything, mock.AnythingOfType("*model.Presentation")).Return(nil).Once()
	f.presentations.On("UpdateOutline", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	f.presentations.On("UpdateStatus", mock.Anything, mock.Anything, model.StatusCompleted).Return(nil).Once()

	outline, err := json.Marshal(map[string]interface{}{
		"title": "Bees",
		"sections": []map[string]interface{}{
			{"title": "Why bees matter", "bulletPoints": []string{"pollination"}, "templateType": "paragraph"},
			{"title": "Hive structure", "bulletPoints": []string{"queen", "workers"}, "templateType": "bullets"},
			{"title": "Threats", "bulletPoints": []string{"pesticides", "habitat loss"}, "templateType": "bullets"},
			{"title": "How to help", "bulletPoints": []string{"plant flowers"}, "templateType": "paragraph"},
		},
	})
	require.NoError(t, err)

	f.aiClient.On("GenerateJSON", mock.Anything, testPrimaryModel, mock.Anything, mock.Anything, mock.Anything).
		Return(string(outline), ai.Usage{}, nil).Once()
	f.aiClient.On("GenerateJSON", mock.Anything, testPrimaryModel, mock.Anything, mock.Anything, mock.Anything).
		Return(`{"title":"Slide","content":"<p>content</p>"}`, ai.Usage{}, nil).Times(4)
	f.slides.On("Create", mock.Anything, mock.AnythingOfType("*model.Slide")).Return(nil).Times(4)

	rec := f.do(t, http.MethodPost, testAPIKey, rpcBody("tools/call", map[string]interface{}{
		"name": toolNameCreatePresentation,
		"arguments": map[string]interface{}{
			"prompt":     "everything about bees",
			"slideCount": 4,
		},
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeRPC(t, rec)
	require.Nil(t, resp.Error)

	result := resp.Result.(map[string]interface{})
	assert.NotEqual(t, true, result["isError"])

	structured := result["structuredContent"].(map[string]interface{})
	assert.Equal(t, "Bees", structured["title"])
	slides := structured["slides"].([]interface{})
	assert.Len(t, slides, 4)

	content := result["content"].([]interface{})
	first := content[0].(map[string]interface{})
	assert.Equal(t, "text", first["type"])
	assert.Contains(t, first["text"], "Bees")
	assert.Contains(t, first["text"], "4 slides")

	f.credits.AssertExpectations(t)
	f.aiClient.AssertExpectations(t)
}
