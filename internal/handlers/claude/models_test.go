package claude

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestListModels(t *testing.T) {
	r := newMessagesRouter(t, &fakeDispatcher{}, poolWithAccount(), `{}`)

	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	data := gjson.Get(body, "data").Array()
	require.Len(t, data, 2)
	require.Equal(t, "model", data[0].Get("type").String())
	require.Equal(t, "gemini-2.5-flash", data[0].Get("id").String())
	require.NotEmpty(t, data[0].Get("created_at").String())

	require.False(t, gjson.Get(body, "has_more").Bool())
	require.Equal(t, "gemini-2.5-flash", gjson.Get(body, "first_id").String())
	require.Equal(t, "claude-sonnet-4-5", gjson.Get(body, "last_id").String())
}
