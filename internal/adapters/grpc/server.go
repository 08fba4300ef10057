package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/venturelink/deal-service/internal/application"
	"github.com/venturelink/deal-service/internal/domain"
)

// DealInternalService answers cross-service lookups over the mesh. Peer
// services (billing, notifications) call it with service credentials, so
// party-level authorization does not apply on this surface.
type DealInternalService interface {
	GetContractStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type DealInternalServer struct {
	service *application.Service
}

func NewDealInternalServer(service *application.Service) *DealInternalServer {
	return &DealInternalServer{service: service}
}

func Register(server grpc.ServiceRegistrar, svc DealInternalService) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: "venturelink.deal.v1.DealInternalService",
		HandlerType: (*DealInternalService)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "GetContractStatus",
				Handler:    getContractStatusHandler(svc),
			},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "venturelink/contracts/proto/deal/v1/deal_internal.proto",
	}, svc)
}

func (s *DealInternalServer) GetContractStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	idVal := req.GetFields()["contract_id"]
	if idVal == nil || idVal.GetStringValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "missing contract_id")
	}

	summary, err := s.service.ContractStatus(ctx, idVal.GetStringValue())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, status.Error(codes.NotFound, "contract not found")
		}
		return nil, status.Errorf(codes.Internal, "lookup contract: %v", err)
	}

	resp, err := structpb.NewStruct(map[string]any{
		"contract_id":       summary.ContractID,
		"proposal_id":       summary.ProposalID,
		"requester_id":      summary.RequesterID,
		"performer_id":      summary.PerformerID,
		"status":            string(summary.Status),
		"total_amount":      summary.TotalAmount,
		"milestones_total":  summary.MilestonesTotal,
		"milestones_closed": summary.MilestonesClosed,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func getContractStatusHandler(svc DealInternalService) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := &structpb.Struct{}
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return svc.GetContractStatus(ctx, req)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/venturelink.deal.v1.DealInternalService/GetContractStatus",
		}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*structpb.Struct)
			if !ok {
				return nil, status.Error(codes.InvalidArgument, "invalid request type")
			}
			return svc.GetContractStatus(ctx, typed)
		}
		return interceptor(ctx, req, info, handler)
	}
}
