package grpc

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// LedgerClient bank.v1.LedgerService 的呼叫端
type LedgerClient struct {
	cc grpc.ClientConnInterface
}

func NewLedgerClient(cc grpc.ClientConnInterface) *LedgerClient {
	return &LedgerClient{cc: cc}
}

// Authenticate 取得 JWT
func (c *LedgerClient) Authenticate(ctx context.Context, login, password string, opts ...grpc.CallOption) (string, error) {
	out, err := c.invoke(ctx, MethodAuthenticate, map[string]any{
		"login":    login,
		"password": password,
	}, opts...)
	if err != nil {
		return "", err
	}
	return stringField(out, "jwt"), nil
}

// Transfer 轉帳，amount 以字串傳送避免精度損失
func (c *LedgerClient) Transfer(ctx context.Context, refID uuid.UUID, recipientID int64, amount decimal.Decimal, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodTransfer, map[string]any{
		"refId":       refID.String(),
		"recipientId": float64(recipientID),
		"amount":      amount.String(),
	}, opts...)
}

// GetBalance 查詢呼叫者的帳戶
func (c *LedgerClient) GetBalance(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodGetBalance, map[string]any{}, opts...)
}

func (c *LedgerClient) invoke(ctx context.Context, method string, fields map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
