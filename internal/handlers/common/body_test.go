package common

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func testContextWithBody(t *testing.T, body string) *gin.Context {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/v1/chat/completions", strings.NewReader(body))
	return c
}

func TestReadBodyReturnsPayload(t *testing.T) {
	c := testContextWithBody(t, `{"model":"gemini-2.5-flash"}`)
	body, apiErr := ReadBody(c, 1024)
	require.Nil(t, apiErr)
	require.JSONEq(t, `{"model":"gemini-2.5-flash"}`, string(body))
}

func TestReadBodyRejectsOversized(t *testing.T) {
	c := testContextWithBody(t, strings.Repeat("x", 2048))
	_, apiErr := ReadBody(c, 16)
	require.NotNil(t, apiErr)
	require.Equal(t, http.StatusRequestEntityTooLarge, apiErr.HTTPStatus)
	require.Equal(t, "request_too_large", apiErr.Code)
}

func TestReadBodyRejectsEmpty(t *testing.T) {
	c := testContextWithBody(t, "")
	_, apiErr := ReadBody(c, 1024)
	require.NotNil(t, apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.HTTPStatus)
}
