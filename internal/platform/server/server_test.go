package server

import (
	"bytes"
	"context"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/ogurasousui/candidate-lifecycle/internal/adapters/grpc/candidatev1"
	"github.com/ogurasousui/candidate-lifecycle/internal/core/candidate"
	"github.com/ogurasousui/candidate-lifecycle/internal/core/timeline"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

type notFoundUseCase struct{ candidate.UseCase }

func (notFoundUseCase) GetCandidate(context.Context, candidate.GetCandidateInput) (*candidate.Candidate, error) {
	return nil, candidate.ErrCandidateNotFound
}

func (notFoundUseCase) ListTimeline(context.Context, candidate.ListTimelineInput) ([]*timeline.Event, error) {
	return nil, nil
}

type syncBuffer struct {
	ch chan string
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.ch <- string(bytes.Clone(p))
	return len(p), nil
}

func TestServer_ServeAndGracefulStop(t *testing.T) {
	t.Parallel()

	logs := &syncBuffer{ch: make(chan string, 16)}
	logger := slog.New(slog.NewTextHandler(logs, nil))
	srv := New("bufnet", notFoundUseCase{}, logger)

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer conn.Close()

	client := candidatev1.NewCandidateServiceClient(conn)
	callCtx, callCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer callCancel()

	_, err = client.Call(callCtx, candidatev1.GetCandidateMethod, &structpb.Struct{Fields: map[string]*structpb.Value{
		"id": structpb.NewStringValue("c-404"),
	}})
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}

	if _, err := client.Call(callCtx, candidatev1.ListTimelineMethod, &structpb.Struct{}); err != nil {
		t.Fatalf("ListTimeline: %v", err)
	}

	var sawAccessLog bool
	timeout := time.After(2 * time.Second)
	for !sawAccessLog {
		select {
		case line := <-logs.ch:
			sawAccessLog = strings.Contains(line, "rpc finished") && strings.Contains(line, "code=NotFound")
		case <-timeout:
			t.Fatal("access log for NotFound was not written")
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after context cancel")
	}
}
