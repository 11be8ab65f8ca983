package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestInstrumentHandler_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(InstrumentHandler)
	r.Get("/clients/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/clients/{id}", "418"))
	for _, id := range []string{"1", "2", "3"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/clients/"+id, nil))
		require.Equal(t, http.StatusTeapot, rec.Code)
	}
	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/clients/{id}", "418"))
	assert.Equal(t, 3.0, after-before)
}

func TestUnaryServerInterceptor(t *testing.T) {
	interceptor := UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/bank.v1.LedgerService/Transfer"}

	before := testutil.ToFloat64(rpcRequests.WithLabelValues(info.FullMethod, codes.NotFound.String()))
	_, err := interceptor(context.Background(), nil, info, func(context.Context, any) (any, error) {
		return nil, status.Error(codes.NotFound, "account not found")
	})
	require.Error(t, err)
	after := testutil.ToFloat64(rpcRequests.WithLabelValues(info.FullMethod, codes.NotFound.String()))
	assert.Equal(t, 1.0, after-before)
}

func TestObserveTransferAndAccrual(t *testing.T) {
	before := testutil.ToFloat64(transfers.WithLabelValues("committed"))
	ObserveTransfer("committed")
	assert.Equal(t, 1.0, testutil.ToFloat64(transfers.WithLabelValues("committed"))-before)

	before = testutil.ToFloat64(accrualAccounts.WithLabelValues("capped"))
	ObserveAccrualAccount("capped")
	assert.Equal(t, 1.0, testutil.ToFloat64(accrualAccounts.WithLabelValues("capped"))-before)

	before = testutil.ToFloat64(accrualRuns.WithLabelValues("false"))
	RecordAccrualRun(0, false)
	RecordAccrualRun(time.Second, true)
	assert.Equal(t, 1.0, testutil.ToFloat64(accrualRuns.WithLabelValues("false"))-before)
}

func TestHandler_ExposesRegistry(t *testing.T) {
	ObserveTransfer("replayed")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `bank_ledger_transfers_total{outcome="replayed"}`)
}
