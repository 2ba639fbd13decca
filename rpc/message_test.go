package rpc

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromJSONRequest(t *testing.T) {
	msg := FromJSON([]byte(`{"jsonrpc":"2.0","id":1,"method":"sum","params":[1,2]}`))
	require.True(t, msg.IsValid())
	assert.Equal(t, TypeRequest, msg.Type())
	assert.Equal(t, "sum", msg.Method())
	assert.Equal(t, int64(1), msg.ID().IntValue())
}

func TestFromJSONNotification(t *testing.T) {
	msg := FromJSON([]byte(`{"jsonrpc":"2.0","method":"tick"}`))
	require.True(t, msg.IsValid())
	assert.Equal(t, TypeNotification, msg.Type())
	assert.False(t, msg.HasID())
}

func TestFromJSONResponseWithNullResult(t *testing.T) {
	msg := FromJSON([]byte(`{"jsonrpc":"2.0","id":1,"result":null}`))
	require.True(t, msg.IsValid())
	assert.Equal(t, TypeResponse, msg.Type())
	assert.True(t, msg.Result().IsNull())
}

func TestFromJSONError(t *testing.T) {
	msg := FromJSON([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"not found"}}`))
	require.True(t, msg.IsValid())
	assert.Equal(t, TypeError, msg.Type())
	assert.Equal(t, CodeMethodNotFound, msg.ErrorCode())
}

func TestFromJSONInvalidRequest(t *testing.T) {
	// Well-formed JSON that is none of request/response/error is the
	// {"jsonrpc":"2.0","id":666} boundary case: it must come back as an
	// InvalidRequest error with the id preserved, not silently dropped.
	msg := FromJSON([]byte(`{"jsonrpc":"2.0","id":666}`))
	require.True(t, msg.IsValid())
	assert.Equal(t, TypeError, msg.Type())
	assert.Equal(t, CodeInvalidRequest, msg.ErrorCode())
	assert.Equal(t, int64(666), msg.ID().IntValue())
}

func TestFromJSONMalformed(t *testing.T) {
	msg := FromJSON([]byte(`{not json`))
	assert.False(t, msg.IsValid())
	assert.Equal(t, CodeParseError, msg.ErrorCode())
}

func TestMessageRoundTrip(t *testing.T) {
	original := CreateRequest("sum", 1, 2, 3)
	data, err := original.ToJSON(Compact)
	require.NoError(t, err)

	decoded := FromJSON(data)
	if diff := cmp.Diff(original, decoded); diff != "" {
		t.Errorf("expected round trip to preserve the message:\n%s", diff)
	}
}

func TestCreateRequestWrapsSingleScalarParamIntoArray(t *testing.T) {
	// spec.md §3 restricts params to absent, array, or object on the
	// wire; a single scalar argument must not serialize bare.
	req := CreateRequest("singleParam", "single")
	require.Equal(t, KindArray, req.Params().Kind())
	data, err := req.ToJSON(Compact)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"params":["single"]`)
}

func TestCreateRequestPassesThroughSingleObjectParam(t *testing.T) {
	req := CreateRequest("named", map[string]interface{}{"a": 1})
	assert.Equal(t, KindObject, req.Params().Kind())
}

func TestCreateErrorResponseFillsMissingIDWithNull(t *testing.T) {
	req := CreateNotification("tick")
	resp := CreateErrorResponse(req, CodeInvalidParams, "bad params")
	assert.True(t, resp.HasID())
	assert.True(t, resp.ID().IsNull())
}
