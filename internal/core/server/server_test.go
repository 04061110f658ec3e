package server

import (
	"bytes"
	"context"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/solatis/ordergate/internal/core/api"
	"github.com/solatis/ordergate/internal/core/config"
	"github.com/solatis/ordergate/internal/telemetry"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

// stubService answers SelectCarrier and panics on ValidateOrder.
type stubService struct{}

func (stubService) SelectCarrier(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"matched": false})
}

func (stubService) ValidateOrder(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	panic("boom")
}

func startServer(t *testing.T, logs *bytes.Buffer) *grpc.ClientConn {
	t.Helper()

	logger, err := telemetry.NewLogger(logs, "info", "text")
	if err != nil {
		t.Fatal(err)
	}
	srv, err := NewGRPCServer(&config.Default().Server, stubService{}, logger)
	if err != nil {
		t.Fatalf("NewGRPCServer() error = %v", err)
	}

	lis := bufconn.Listen(1 << 20)
	go srv.Serve(lis)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestNewGRPCServer_RequiresDependencies(t *testing.T) {
	cfg := &config.Default().Server
	logger := telemetry.Discard()

	if _, err := NewGRPCServer(nil, stubService{}, logger); err == nil {
		t.Error("expected error for nil cfg")
	}
	if _, err := NewGRPCServer(cfg, nil, logger); err == nil {
		t.Error("expected error for nil service")
	}
	if _, err := NewGRPCServer(cfg, stubService{}, nil); err == nil {
		t.Error("expected error for nil logger")
	}
}

func TestGRPCServer_Health(t *testing.T) {
	var logs bytes.Buffer
	conn := startServer(t, &logs)
	client := grpc_health_v1.NewHealthClient(conn)

	for _, service := range []string{"", api.ServiceName} {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		resp, err := client.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: service})
		cancel()
		if err != nil {
			t.Fatalf("Check(%q) error = %v", service, err)
		}
		if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
			t.Errorf("Check(%q) = %v, want SERVING", service, resp.GetStatus())
		}
	}
}

func TestGRPCServer_Interceptors(t *testing.T) {
	var logs bytes.Buffer
	conn := startServer(t, &logs)
	client := api.NewEvaluationClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.SelectCarrier(ctx, &structpb.Struct{}); err != nil {
		t.Fatalf("SelectCarrier() error = %v", err)
	}
	_, err := client.ValidateOrder(ctx, &structpb.Struct{})
	if status.Code(err) != codes.Internal {
		t.Errorf("panicking handler code = %v, want Internal", status.Code(err))
	}

	out := logs.String()
	if !strings.Contains(out, api.SelectCarrierMethod) {
		t.Errorf("logs missing call line for SelectCarrier:\n%s", out)
	}
	if !strings.Contains(out, "grpc handler panic") {
		t.Errorf("logs missing panic line:\n%s", out)
	}
}

func TestMetricsHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := telemetry.NewMetrics(reg)
	if err != nil {
		t.Fatal(err)
	}
	m.ObserveEvaluation(telemetry.StrategyFirstMatch, 1, 0)

	rec := httptest.NewRecorder()
	MetricsHandler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `ordergate_evaluations_total{outcome="match",strategy="first_match"} 1`) {
		t.Errorf("metrics body missing evaluation counter:\n%s", rec.Body.String())
	}
}

func TestMetricsServer_Lifecycle(t *testing.T) {
	ms := NewMetricsServer("127.0.0.1:0", prometheus.NewRegistry(), telemetry.Discard())

	done := make(chan error, 1)
	go func() { done <- ms.Start(context.Background()) }()

	// Give Serve a moment to start; Shutdown before Serve is also clean.
	time.Sleep(50 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ms.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() error = %v, want nil after shutdown", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after Shutdown")
	}
}
