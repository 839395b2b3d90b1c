package dispatcher

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/LeonardoBeccarini/telldus_queue/internal/model"
)

// DispatcherServer is telldus.v1.Dispatcher. Requests and replies are
// google.protobuf.Struct, so no generated code is needed.
type DispatcherServer interface {
	Issue(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Snapshot(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

func RegisterDispatcherServer(s grpc.ServiceRegistrar, srv DispatcherServer) {
	s.RegisterService(&dispatcherServiceDesc, srv)
}

var dispatcherServiceDesc = grpc.ServiceDesc{
	ServiceName: "telldus.v1.Dispatcher",
	HandlerType: (*DispatcherServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Issue", Handler: issueHandler},
		{MethodName: "Snapshot", Handler: snapshotHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "telldus/v1/dispatcher.proto",
}

func issueHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DispatcherServer).Issue(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/telldus.v1.Dispatcher/Issue"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DispatcherServer).Issue(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func snapshotHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DispatcherServer).Snapshot(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/telldus.v1.Dispatcher/Snapshot"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DispatcherServer).Snapshot(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// GrpcHandler serves DispatcherServer on top of the intake.
type GrpcHandler struct {
	intake      *Intake
	waitTimeout time.Duration
}

func NewGrpcHandler(in *Intake, waitTimeout time.Duration) *GrpcHandler {
	if waitTimeout <= 0 {
		waitTimeout = 5 * time.Second
	}
	return &GrpcHandler{intake: in, waitTimeout: waitTimeout}
}

// Issue accepts {device_id, action, level?, request_id?, wait?}. With wait set
// the reply carries the first transmission outcome.
func (h *GrpcHandler) Issue(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := req.GetFields()
	if _, ok := f["device_id"]; !ok {
		return nil, status.Error(codes.InvalidArgument, "device_id required")
	}
	cr := model.CommandRequest{
		RequestID: f["request_id"].GetStringValue(),
		DeviceID:  int(f["device_id"].GetNumberValue()),
		Action:    f["action"].GetStringValue(),
	}
	if v, ok := f["level"]; ok {
		lvl := int(v.GetNumberValue())
		cr.Level = &lvl
	}

	ticket, err := h.intake.Submit(cr, SurfaceGRPC)
	if err != nil {
		if isRequestError(err) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		return nil, status.Error(codes.Internal, err.Error())
	}

	out := map[string]any{
		"request_id": ticket.RequestID,
		"device_id":  int(ticket.Command.DeviceID),
		"action":     string(ticket.Command.Action),
		"accepted":   true,
	}
	if ticket.Command.Action == model.ActionDim {
		out["level"] = int(ticket.Command.Level)
	}
	if f["wait"].GetBoolValue() {
		wctx, cancel := context.WithTimeout(ctx, h.waitTimeout)
		defer cancel()
		if done, sendErr := ticket.Wait(wctx); done {
			out["status"] = "OK"
			if sendErr != nil {
				out["status"] = "FAIL"
				out["reason"] = sendErr.Error()
			}
		}
	}
	return structpb.NewStruct(out)
}

func (h *GrpcHandler) Snapshot(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	s := h.intake.Service().Scheduler()
	entries := s.Snapshot()
	list := make([]any, 0, len(entries))
	for _, e := range entries {
		item := map[string]any{
			"device_id":    int(e.Command.DeviceID),
			"action":       string(e.Command.Action),
			"repeat_count": e.RepeatCount,
			"invalidated":  e.Invalidated,
			"expires_at":   e.ExpiresAt.UTC().Format(time.RFC3339Nano),
		}
		if e.Command.Action == model.ActionDim {
			item["level"] = int(e.Command.Level)
		}
		list = append(list, item)
	}
	return structpb.NewStruct(map[string]any{
		"busy":    s.Busy(),
		"queued":  len(entries),
		"entries": list,
	})
}
