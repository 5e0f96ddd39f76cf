package sui_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deepbook-mm/sui"
	"deepbook-mm/sui/suitest"
)

func newClient(srv *suitest.Server, opts ...sui.Option) *sui.Client {
	return sui.NewClient(sui.Config{URL: srv.URL, Timeout: 2 * time.Second}, opts...)
}

func TestClient_RPCErrorIsWrapped(t *testing.T) {
	srv := suitest.NewServer()
	defer srv.Close()
	srv.Handle("suix_getReferenceGasPrice", func([]json.RawMessage) (any, error) {
		return nil, &sui.RPCError{Code: -32000, Message: "boom"}
	})

	_, err := newClient(srv).GetReferenceGasPrice(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, sui.ErrRPC))

	var rpcErr *sui.RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, -32000, rpcErr.Code)
}

func TestClient_HTTPErrorIsRPCError(t *testing.T) {
	srv := suitest.NewServer()
	defer srv.Close()
	srv.Handle("suix_getReferenceGasPrice", func([]json.RawMessage) (any, error) {
		return nil, errors.New("overloaded")
	})

	_, err := newClient(srv).GetReferenceGasPrice(context.Background())
	assert.True(t, errors.Is(err, sui.ErrRPC))
}

func TestClient_StringU64AndObserver(t *testing.T) {
	srv := suitest.NewServer()
	defer srv.Close()
	srv.Handle("suix_getReferenceGasPrice", func([]json.RawMessage) (any, error) {
		return "750", nil
	})

	var mu sync.Mutex
	var methods []string
	cli := newClient(srv, sui.WithObserver(func(method string, _ time.Duration, err error) {
		mu.Lock()
		defer mu.Unlock()
		assert.NoError(t, err)
		methods = append(methods, method)
	}))

	price, err := cli.GetReferenceGasPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(750), price)
	assert.Equal(t, []string{"suix_getReferenceGasPrice"}, methods)
}

func TestClient_GetObjectSharedOwner(t *testing.T) {
	srv := suitest.NewServer()
	defer srv.Close()
	srv.Handle("sui_getObject", func(params []json.RawMessage) (any, error) {
		var id string
		_ = json.Unmarshal(params[0], &id)
		if id != sui.MustParseAddress("0x44").String() {
			return map[string]any{"error": map[string]string{"code": "notExists"}}, nil
		}
		return map[string]any{"data": map[string]any{
			"objectId": id,
			"version":  "99",
			"digest":   "11111111111111111111111111111111",
			"type":     "0xdee9::clob_v2::Pool<0x2::sui::SUI, 0x2::coin::USDC>",
			"owner":    map[string]any{"Shared": map[string]any{"initial_shared_version": 1234}},
		}}, nil
	})
	cli := newClient(srv)

	obj, err := cli.GetObject(context.Background(), sui.MustParseAddress("0x44"))
	require.NoError(t, err)
	assert.Equal(t, sui.Uint64(99), obj.Version)
	require.NotNil(t, obj.Owner.Shared)
	assert.Equal(t, sui.Uint64(1234), obj.Owner.Shared.InitialSharedVersion)

	_, err = cli.GetObject(context.Background(), sui.MustParseAddress("0x45"))
	assert.True(t, errors.Is(err, sui.ErrObjectNotFound))
}

func TestClient_DevInspectReturnValues(t *testing.T) {
	srv := suitest.NewServer()
	defer srv.Close()
	srv.Handle("sui_devInspectTransactionBlock", func(params []json.RawMessage) (any, error) {
		assert.Len(t, params, 4)
		return json.RawMessage(`{
			"effects": {"status": {"status": "success"}},
			"results": [{"returnValues": [[[1,0,0,0,0,0,0,0], "u64"], [[0], "bool"]]}]
		}`), nil
	})

	res, err := newClient(srv).DevInspectTransactionBlock(context.Background(), sui.MustParseAddress("0x1"), []byte{0})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	require.Len(t, res.Results[0].ReturnValues, 2)
	assert.Equal(t, []byte{1, 0, 0, 0, 0, 0, 0, 0}, res.Results[0].ReturnValues[0].Bytes)
	assert.Equal(t, "bool", res.Results[0].ReturnValues[1].Type)
}

func TestClient_DevInspectFailureStatus(t *testing.T) {
	srv := suitest.NewServer()
	defer srv.Close()
	srv.Handle("sui_devInspectTransactionBlock", func([]json.RawMessage) (any, error) {
		return json.RawMessage(`{"effects": {"status": {"status": "failure", "error": "MoveAbort"}}}`), nil
	})

	_, err := newClient(srv).DevInspectTransactionBlock(context.Background(), sui.MustParseAddress("0x1"), []byte{0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MoveAbort")
}

func TestClient_ExecuteSendsWaitForLocalExecution(t *testing.T) {
	srv := suitest.NewServer()
	defer srv.Close()
	srv.Handle("sui_executeTransactionBlock", func(params []json.RawMessage) (any, error) {
		return map[string]any{"digest": "abc", "effects": map[string]any{"status": map[string]string{"status": "success"}}}, nil
	})

	res, err := newClient(srv).ExecuteTransactionBlock(context.Background(), []byte{1, 2}, []string{"sig"})
	require.NoError(t, err)
	assert.Equal(t, "abc", res.Digest)
	assert.True(t, res.Effects.Succeeded())

	calls := srv.Calls("sui_executeTransactionBlock")
	require.Len(t, calls, 1)
	var mode string
	require.NoError(t, json.Unmarshal(calls[0][3], &mode))
	assert.Equal(t, "WaitForLocalExecution", mode)
	var txB64 string
	require.NoError(t, json.Unmarshal(calls[0][0], &txB64))
	assert.Equal(t, "AQI=", txB64)
}

func TestTokenBucketLimiter_HonorsContext(t *testing.T) {
	l := sui.NewTokenBucketLimiter(0.001, 1)
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.Wait(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
