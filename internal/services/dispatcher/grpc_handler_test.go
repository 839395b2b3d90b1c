package dispatcher

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatalf("struct: %v", err)
	}
	return s
}

func TestGrpcIssue(t *testing.T) {
	f := newFixture(t)
	h := NewGrpcHandler(f.intake, time.Second)

	out, err := h.Issue(context.Background(), mustStruct(t, map[string]any{
		"device_id":  5,
		"action":     "dim",
		"level":      200,
		"request_id": "g1",
		"wait":       true,
	}))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	got := out.AsMap()
	if got["request_id"] != "g1" || got["action"] != "dim" || got["level"] != float64(200) || got["status"] != "OK" {
		t.Fatalf("unexpected reply %v", got)
	}
	if f.tr.count() != 1 {
		t.Fatalf("expected one transmission, got %d", f.tr.count())
	}
}

func TestGrpcIssueInvalidArgument(t *testing.T) {
	f := newFixture(t)
	h := NewGrpcHandler(f.intake, time.Second)
	cases := []map[string]any{
		{"action": "turnOn"},
		{"device_id": 1, "action": "fly"},
		{"device_id": 1, "action": "dim"},
	}
	for _, req := range cases {
		_, err := h.Issue(context.Background(), mustStruct(t, req))
		if status.Code(err) != codes.InvalidArgument {
			t.Errorf("%v: expected InvalidArgument, got %v", req, err)
		}
	}
}

func TestGrpcSnapshot(t *testing.T) {
	f := newFixture(t)
	h := NewGrpcHandler(f.intake, time.Second)
	f.svc.TurnOn(1, nil)
	f.svc.Dim(2, 30, nil)

	out, err := h.Snapshot(context.Background(), &emptypb.Empty{})
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	got := out.AsMap()
	entries, _ := got["entries"].([]any)
	if got["queued"] != float64(2) || len(entries) != 2 {
		t.Fatalf("unexpected snapshot %v", got)
	}
	second := entries[1].(map[string]any)
	if second["action"] != "dim" || second["level"] != float64(30) || second["repeat_count"] != float64(0) {
		t.Fatalf("unexpected entry %v", second)
	}
}

func TestServiceDescDecodesRequest(t *testing.T) {
	f := newFixture(t)
	h := NewGrpcHandler(f.intake, time.Second)
	req := mustStruct(t, map[string]any{"device_id": 4, "action": "stop"})
	raw, err := proto.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	dec := func(v any) error { return proto.Unmarshal(raw, v.(proto.Message)) }

	if dispatcherServiceDesc.ServiceName != "telldus.v1.Dispatcher" {
		t.Fatalf("unexpected service name %s", dispatcherServiceDesc.ServiceName)
	}
	out, err := issueHandler(h, context.Background(), dec, nil)
	if err != nil {
		t.Fatalf("issue handler: %v", err)
	}
	if out.(*structpb.Struct).AsMap()["action"] != "stop" {
		t.Fatalf("unexpected reply %v", out)
	}
	if _, err := snapshotHandler(h, context.Background(), func(any) error { return nil }, nil); err != nil {
		t.Fatalf("snapshot handler: %v", err)
	}
}
