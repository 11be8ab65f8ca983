package grpc

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/JoeShih716/go-bank-clients/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-clients/internal/app/core/usecase"
)

type GrpcServer struct {
	core *usecase.CoreUseCase
}

func NewGrpcServer(core *usecase.CoreUseCase) *GrpcServer {
	return &GrpcServer{
		core: core,
	}
}

// Authenticate {login, password} -> {type, jwt}
func (s *GrpcServer) Authenticate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	login := stringField(req, "login")
	password := stringField(req, "password")
	if login == "" || password == "" {
		return nil, status.Error(codes.InvalidArgument, "login and password are required")
	}
	token, err := s.core.Authenticate(ctx, login, password)
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]any{
		"type": "Bearer",
		"jwt":  token,
	})
}

// Transfer {refId?, recipientId, amount} -> 轉帳結果
// amount 可為字串 ("20.10") 或數字
func (s *GrpcServer) Transfer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	login, ok := LoginFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing credentials")
	}

	// 1. 解析 RefID，未帶時由 usecase 產生
	var refID uuid.UUID
	if raw := stringField(req, "refId"); raw != "" {
		u, err := uuid.Parse(raw)
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, "invalid refId: "+err.Error())
		}
		refID = u
	}

	// 2. 收款帳戶與金額
	recipient, err := int64Field(req, "recipientId")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	amount, err := amountField(req, "amount")
	if err != nil {
		return nil, toStatus(err)
	}

	// 3. 執行轉帳
	res, err := s.core.Transfer(ctx, usecase.TransferCommand{
		SenderLogin:        login,
		RecipientAccountID: recipient,
		Amount:             amount,
		RefID:              refID,
	})
	if err != nil {
		return nil, toStatus(err)
	}

	return newStruct(map[string]any{
		"refId":         res.Transfer.RefID.String(),
		"fromAccountId": float64(res.Transfer.From),
		"toAccountId":   float64(res.Transfer.To),
		"amount":        res.Transfer.Amount.String(),
		"balance":       domain.RoundForDisplay(res.SenderBalance).StringFixed(domain.DisplayScale),
		"replayed":      res.Replayed,
	})
}

// GetBalance 回傳呼叫者的帳戶
func (s *GrpcServer) GetBalance(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	login, ok := LoginFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing credentials")
	}
	acc, err := s.core.GetAccountBalance(ctx, login)
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]any{
		"accountId": float64(acc.ID),
		"balance":   domain.RoundForDisplay(acc.Balance).StringFixed(domain.DisplayScale),
	})
}

func newStruct(m map[string]any) (*structpb.Struct, error) {
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return st, nil
}

func stringField(req *structpb.Struct, name string) string {
	return req.GetFields()[name].GetStringValue()
}

// int64Field structpb 的數字是 float64，只接受整數值
func int64Field(req *structpb.Struct, name string) (int64, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return 0, fmt.Errorf("%s is required", name)
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok || n.NumberValue != math.Trunc(n.NumberValue) || math.Abs(n.NumberValue) > 1<<53 {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return int64(n.NumberValue), nil
}

func amountField(req *structpb.Struct, name string) (decimal.Decimal, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s is required", domain.ErrInvalidAmount, name)
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return domain.ParseAmount(k.StringValue)
	case *structpb.Value_NumberValue:
		return domain.AmountFromFloat(k.NumberValue), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: %s must be a string or number", domain.ErrInvalidAmount, name)
	}
}

var _ LedgerServer = (*GrpcServer)(nil)
