package rpc

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/caxton-rt/caxton/internal/conversation"
	"github.com/caxton-rt/caxton/internal/delivery"
	"github.com/caxton-rt/caxton/internal/domain"
	"github.com/caxton-rt/caxton/internal/failure"
	"github.com/caxton-rt/caxton/internal/registry"
	"github.com/caxton-rt/caxton/internal/router"
)

func TestServerDeliversIntoLocalRouter(t *testing.T) {
	reg := registry.New()
	convs := conversation.New(16, time.Hour)
	deliv := delivery.New(8)
	fh := failure.New(failure.Config{MaxRetries: 2, BaseBackoff: time.Millisecond})
	r := router.New(router.Config{InboundQueueSize: 16, WorkerCount: 1}, reg, convs, deliv, fh, nil)
	r.Start()

	receiver := domain.NewAgentID()
	deliv.RegisterMailbox(receiver, alwaysDeliverable{})
	if err := reg.RegisterLocal(registryAgent(receiver)); err != nil {
		t.Fatalf("RegisterLocal: %v", err)
	}

	srv := NewServer(r)

	lis := bufconn.Listen(1024 * 1024)
	grpcSrv := grpc.NewServer()
	grpcSrv.RegisterService(&serviceDesc, srv)
	go grpcSrv.Serve(lis)
	defer grpcSrv.Stop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer conn.Close()
	client := &Client{conn: conn}

	msg, err := domain.NewMessage(domain.NewMessageParams{
		Sender:       domain.NewAgentID(),
		Receiver:     receiver,
		Performative: domain.PerformativeInform,
		Content:      []byte("ping"),
	})
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	accepted, reason, err := client.Deliver(ctx, msg)
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if !accepted {
		t.Fatalf("expected delivery to be accepted, reason=%s", reason)
	}

	r.Shutdown(context.Background())
}

type alwaysDeliverable struct{}

func (alwaysDeliverable) Deliverable() bool { return true }

func registryAgent(id domain.AgentID) domain.LocalAgent {
	return domain.LocalAgent{
		ID:              id,
		Name:            domain.AgentName{},
		State:           domain.AgentStateRunning,
		Capabilities:    map[domain.CapabilityName]struct{}{},
		MailboxCapacity: 8,
	}
}
