// ABOUTME: Minimal fake assistant service for E2E testing — serves the Assist stream locally.
// ABOUTME: Usage: fake-assistant [-addr localhost:50051]

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"sync/atomic"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	embeddedpb "google.golang.org/genproto/googleapis/assistant/embedded/v1alpha2"
)

func main() {
	addr := flag.String("addr", "localhost:50051", "listen address")
	flag.Parse()

	if err := run(*addr); err != nil {
		log.Fatal(err)
	}
}

func run(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	srv := grpc.NewServer()
	embeddedpb.RegisterEmbeddedAssistantServer(srv, &fakeAssistant{})

	log.Printf("fake assistant listening on %s", addr)
	return srv.Serve(lis)
}

// fakeAssistant echoes text queries and issues a rotating state token so
// clients can exercise cross-turn continuity.
type fakeAssistant struct {
	embeddedpb.UnimplementedEmbeddedAssistantServer
	turns atomic.Int64
}

func (f *fakeAssistant) Assist(stream embeddedpb.EmbeddedAssistant_AssistServer) error {
	req, err := stream.Recv()
	if errors.Is(err, io.EOF) {
		return status.Error(codes.InvalidArgument, "no request received")
	}
	if err != nil {
		return status.Errorf(codes.Internal, "receiving request: %v", err)
	}

	cfg := req.GetConfig()
	if cfg == nil {
		return status.Error(codes.InvalidArgument, "first message must carry a config")
	}
	query := cfg.GetTextQuery()
	if query == "" {
		return status.Error(codes.InvalidArgument, "text_query is required")
	}

	turn := f.turns.Add(1)
	prevState := cfg.GetDialogStateIn().GetConversationState()
	log.Printf("turn %d: query=%q prev_state=%q", turn, query, prevState)

	// First message carries only the new state token, the second the
	// reply, mirroring how the real service splits them.
	token := fmt.Appendf(nil, "fake-state-%d", turn)
	if err := stream.Send(&embeddedpb.AssistResponse{
		DialogStateOut: &embeddedpb.DialogStateOut{
			ConversationState: token,
		},
	}); err != nil {
		return status.Errorf(codes.Internal, "sending state: %v", err)
	}

	return stream.Send(&embeddedpb.AssistResponse{
		DialogStateOut: &embeddedpb.DialogStateOut{
			SupplementalDisplayText: reply(query),
			ConversationState:       token,
		},
	})
}

func reply(query string) string {
	lower := strings.ToLower(query)
	switch {
	case strings.Contains(lower, "time"):
		return "It's always 3pm somewhere."
	case strings.Contains(lower, "hello"), strings.Contains(lower, "hi"):
		return "Hello! I am the fake assistant."
	default:
		return fmt.Sprintf("You said: %s", query)
	}
}
