package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateway_Invoke_Success(t *testing.T) {
	transport := NewStubTransport()
	transport.Respond("check_order_status", Result{Success: true, Data: map[string]any{"status": "shipped"}})
	gw := NewGateway(DefaultCatalog(), transport)

	records, res := gw.Invoke(context.Background(), "check_order_status", map[string]any{"order_id": "1001"})
	require.Len(t, records, 1)
	assert.True(t, res.Success)
	assert.Equal(t, "shipped", res.Data["status"])
	assert.Equal(t, 0, records[0].RetryCount)
	assert.Equal(t, []string{"check_order_status"}, transport.Calls())
}

func TestGateway_Invoke_ValidationNeverReachesTransport(t *testing.T) {
	transport := NewStubTransport()
	gw := NewGateway(DefaultCatalog(), transport)

	// Required order_id missing.
	records, res := gw.Invoke(context.Background(), "check_order_status", map[string]any{})
	require.Len(t, records, 1)
	assert.False(t, res.Success)
	assert.True(t, res.ValidationFailed)
	assert.Equal(t, 0, records[0].RetryCount)
	assert.Empty(t, transport.Calls())

	// Validation is idempotent: a second identical call yields a second
	// ValidationFailed record, not a retry.
	records2, res2 := gw.Invoke(context.Background(), "check_order_status", map[string]any{})
	require.Len(t, records2, 1)
	assert.True(t, res2.ValidationFailed)
	assert.Equal(t, 0, records2[0].RetryCount)
	assert.Empty(t, transport.Calls())
}

func TestGateway_Invoke_TypeMismatchIsValidationFailure(t *testing.T) {
	transport := NewStubTransport()
	gw := NewGateway(DefaultCatalog(), transport)

	_, res := gw.Invoke(context.Background(), "check_order_status", map[string]any{"order_id": 1001})
	assert.True(t, res.ValidationFailed)
	assert.Contains(t, res.Error, "expected type string")
	assert.Empty(t, transport.Calls())
}

func TestGateway_Invoke_RetriesExactlyOnce(t *testing.T) {
	transport := NewStubTransport()
	transport.FailTool("process_refund", "upstream unavailable")
	gw := NewGateway(DefaultCatalog(), transport)

	records, res := gw.Invoke(context.Background(), "process_refund", map[string]any{
		"order_id": "1001",
		"reason":   "damaged item",
	})

	require.Len(t, records, 2)
	assert.Equal(t, 0, records[0].RetryCount)
	assert.Equal(t, 1, records[1].RetryCount)
	assert.False(t, res.Success)
	assert.True(t, res.RetryExhausted)
	assert.Equal(t, []string{"process_refund", "process_refund"}, transport.Calls())
}

func TestGateway_Invoke_FirstFailureThenSuccessIsNotExhausted(t *testing.T) {
	calls := 0
	gw := NewGateway(DefaultCatalog(), transportFunc(func(ctx context.Context, def Definition, params map[string]any) (Result, error) {
		calls++
		if calls == 1 {
			return Result{Success: false, Error: "blip"}, nil
		}
		return Result{Success: true, Data: map[string]any{"refund_id": "rf_1"}}, nil
	}))

	records, res := gw.Invoke(context.Background(), "process_refund", map[string]any{
		"order_id": "1001",
		"reason":   "damaged item",
	})
	require.Len(t, records, 2)
	assert.True(t, res.Success)
	assert.False(t, res.RetryExhausted)
	assert.False(t, records[0].Success)
	assert.True(t, records[1].Success)
}

func TestGateway_Invoke_UnknownTool(t *testing.T) {
	transport := NewStubTransport()
	gw := NewGateway(DefaultCatalog(), transport)

	records, res := gw.Invoke(context.Background(), "open_pod_bay_doors", nil)
	require.Len(t, records, 1)
	assert.False(t, res.Success)
	assert.True(t, res.ValidationFailed)
	assert.Empty(t, transport.Calls())
}

func TestGateway_Invoke_TransportErrorTreatedAsFailure(t *testing.T) {
	gw := NewGateway(DefaultCatalog(), transportFunc(func(ctx context.Context, def Definition, params map[string]any) (Result, error) {
		return Result{}, context.DeadlineExceeded
	}))

	records, res := gw.Invoke(context.Background(), "check_order_status", map[string]any{"order_id": "1001"})
	require.Len(t, records, 2)
	assert.False(t, res.Success)
	assert.True(t, res.RetryExhausted)
	assert.Contains(t, res.Error, "deadline exceeded")
}

// transportFunc adapts a function to the Transport interface.
type transportFunc func(ctx context.Context, def Definition, params map[string]any) (Result, error)

func (f transportFunc) RoundTrip(ctx context.Context, def Definition, params map[string]any) (Result, error) {
	return f(ctx, def, params)
}
