package grpc

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestLoggingInterceptor(t *testing.T) {
	tests := []struct {
		name          string
		handlerErr    error
		expectedLevel string
		expectedCode  string
	}{
		{
			name:          "Success",
			handlerErr:    nil,
			expectedLevel: "info",
			expectedCode:  "OK",
		},
		{
			name:          "Client Error",
			handlerErr:    status.Error(codes.NotFound, "deal not found"),
			expectedLevel: "warn",
			expectedCode:  "NotFound",
		},
		{
			name:          "Server Error",
			handlerErr:    status.Error(codes.Internal, "boom"),
			expectedLevel: "error",
			expectedCode:  "Internal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			interceptor := LoggingInterceptor(zerolog.New(&buf))

			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				if tt.handlerErr != nil {
					return nil, tt.handlerErr
				}
				return "success", nil
			}

			info := &grpc.UnaryServerInfo{
				FullMethod: FullMethod("GetPortfolio"),
			}

			resp, err := interceptor(context.Background(), "test-request", info, handler)

			if tt.handlerErr == nil {
				assert.NoError(t, err)
				assert.Equal(t, "success", resp)
			} else {
				assert.Equal(t, tt.handlerErr, err, "the handler error is passed through untouched")
			}

			var entry map[string]interface{}
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, tt.expectedLevel, entry["level"])
			assert.Equal(t, tt.expectedCode, entry["code"])
			assert.Equal(t, "/dealflow.v1.DealflowService/GetPortfolio", entry["method"])
			assert.Contains(t, entry, "duration")
		})
	}
}

func TestRecoveryInterceptor(t *testing.T) {
	var buf bytes.Buffer
	interceptor := RecoveryInterceptor(zerolog.New(&buf))
	info := &grpc.UnaryServerInfo{FullMethod: FullMethod("SubmitVote")}

	t.Run("Panic Becomes Internal", func(t *testing.T) {
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			panic("nil map write")
		}

		resp, err := interceptor(context.Background(), "test-request", info, handler)

		assert.Nil(t, resp)
		st, ok := status.FromError(err)
		require.True(t, ok, "error should be a gRPC status")
		assert.Equal(t, codes.Internal, st.Code())
		assert.Contains(t, buf.String(), "nil map write")
	})

	t.Run("No Panic", func(t *testing.T) {
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return "success", nil
		}

		resp, err := interceptor(context.Background(), "test-request", info, handler)

		assert.NoError(t, err)
		assert.Equal(t, "success", resp)
	})
}
