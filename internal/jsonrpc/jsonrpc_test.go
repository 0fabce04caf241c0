package jsonrpc

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoRouter() *Router {
	router := NewRouter()
	router.Register("echo", func(params json.RawMessage) (interface{}, *Error) {
		var payload map[string]interface{}
		if err := json.Unmarshal(params, &payload); err != nil {
			return nil, InvalidParams("params must be an object")
		}
		return payload, nil
	})
	return router
}

func call(t *testing.T, router *Router, body string) Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/rpc", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestDispatch(t *testing.T) {
	resp := call(t, echoRouter(), `{"jsonrpc":"2.0","method":"echo","params":{"vendor":"adobe"},"id":1}`)

	require.Nil(t, resp.Error)
	assert.Equal(t, "2.0", resp.JSONRPC)
	assert.Equal(t, json.RawMessage("1"), resp.ID)

	result, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "adobe", result["vendor"])
}

func TestParseError(t *testing.T) {
	resp := call(t, echoRouter(), `{"jsonrpc":`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeParseError, resp.Error.Code)
	assert.Equal(t, json.RawMessage("null"), resp.ID)
}

func TestInvalidVersion(t *testing.T) {
	resp := call(t, echoRouter(), `{"jsonrpc":"1.0","method":"echo","id":7}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidRequest, resp.Error.Code)
	assert.Equal(t, json.RawMessage("7"), resp.ID)
}

func TestMissingMethod(t *testing.T) {
	resp := call(t, echoRouter(), `{"jsonrpc":"2.0","id":7}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidRequest, resp.Error.Code)
}

func TestMethodNotFound(t *testing.T) {
	resp := call(t, echoRouter(), `{"jsonrpc":"2.0","method":"nope","id":2}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeMethodNotFound, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "nope")
}

func TestBatchUnsupported(t *testing.T) {
	resp := call(t, echoRouter(), `[{"jsonrpc":"2.0","method":"echo","id":1}]`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidRequest, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "batch")
}

func TestHandlerError(t *testing.T) {
	resp := call(t, echoRouter(), `{"jsonrpc":"2.0","method":"echo","params":"not-an-object","id":3}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidParams, resp.Error.Code)
}

func TestStringIDRoundTrips(t *testing.T) {
	resp := call(t, echoRouter(), `{"jsonrpc":"2.0","method":"echo","params":{},"id":"req-9"}`)
	require.Nil(t, resp.Error)
	assert.Equal(t, json.RawMessage(`"req-9"`), resp.ID)
}
