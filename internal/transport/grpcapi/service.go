// Package grpcapi serves the game service over gRPC as realm.v1.Realm. Calls
// use the JSON codec registered by this package; WatchZone streams a zone's
// events from the feed hub.
package grpcapi

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/cory-johannsen/realm/internal/game/quest"
	"github.com/cory-johannsen/realm/internal/gameserver"
	"github.com/cory-johannsen/realm/internal/observability"
	"github.com/cory-johannsen/realm/internal/transport/feed"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "realm.v1.Realm"

// ZoneHeader is the response header WatchZone sends once the subscription is
// live.
const ZoneHeader = "realm-zone"

// Game is the gameplay surface served over gRPC. *gameserver.Service
// implements it.
type Game interface {
	CreateCharacter(ctx context.Context, characterID, name string) (gameserver.CharacterResult, error)
	GetCharacter(ctx context.Context, characterID string) (gameserver.CharacterResult, error)
	EnterZone(ctx context.Context, characterID, zoneID string) (gameserver.ZoneResult, error)
	PopulateZone(ctx context.Context, zoneID string) (gameserver.ZoneResult, error)
	ListLiveMonsters(ctx context.Context, zoneID string) (gameserver.ZoneResult, error)
	ListLiveItems(ctx context.Context, zoneID string) (gameserver.ZoneResult, error)
	Attack(ctx context.Context, characterID, monsterID string) (gameserver.AttackResult, error)
	CollectItem(ctx context.Context, characterID, itemID string) (gameserver.CollectResult, error)
	ListAvailableQuests(ctx context.Context, characterID string) (gameserver.QuestListResult, error)
	ListActiveQuests(ctx context.Context, characterID string) (gameserver.ActiveQuestsResult, error)
	AcceptQuest(ctx context.Context, characterID, questID string) (gameserver.QuestResult, error)
	AbandonQuest(ctx context.Context, characterID, questID string) (gameserver.QuestResult, error)
	CompleteQuest(ctx context.Context, characterID, questID string) (gameserver.QuestResult, error)
	OnGameplayEvent(ctx context.Context, characterID string, eventType quest.ObjectiveType, targetID string, amount int) (gameserver.EventResult, error)
}

// Server adapts a Game to the realm.v1.Realm service.
type Server struct {
	game   Game
	hub    *feed.Hub
	logger *zap.Logger
	buffer int
}

// NewServer creates a Server. buffer is the queue length of each WatchZone
// subscription; zero selects feed.DefaultBuffer.
//
// Precondition: game, hub and logger must be non-nil.
func NewServer(game Game, hub *feed.Hub, logger *zap.Logger, buffer int) *Server {
	if game == nil || hub == nil || logger == nil {
		panic("grpcapi.NewServer: game, hub and logger must not be nil")
	}
	return &Server{game: game, hub: hub, logger: logger, buffer: buffer}
}

// Register adds the service to r.
func (s *Server) Register(r grpc.ServiceRegistrar) {
	r.RegisterService(&serviceDesc, s)
}

// NewGRPCServer returns a grpc.Server with the logging interceptors and s
// registered.
func NewGRPCServer(s *Server, opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{
		grpc.ChainUnaryInterceptor(observability.UnaryServerInterceptor(s.logger)),
		grpc.ChainStreamInterceptor(observability.StreamServerInterceptor(s.logger)),
	}, opts...)
	srv := grpc.NewServer(opts...)
	s.Register(srv)
	return srv
}

// rpcError maps an infrastructure failure to a gRPC status. Domain failures
// travel inside the result and never reach here.
func rpcError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return status.FromContextError(ctxErr).Err()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return status.FromContextError(err).Err()
	}
	return status.Error(codes.Unavailable, err.Error())
}

func unary[Req any, Resp any](name string, call func(g Game, ctx context.Context, req *Req) (Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			req := new(Req)
			if err := dec(req); err != nil {
				return nil, err
			}
			s := srv.(*Server)
			handler := func(ctx context.Context, in any) (any, error) {
				r := in.(*Req)
				if v, ok := any(r).(validator); ok {
					if err := v.validate(); err != nil {
						return nil, status.Error(codes.InvalidArgument, err.Error())
					}
				}
				resp, err := call(s.game, ctx, r)
				if err != nil {
					return nil, rpcError(ctx, err)
				}
				return &resp, nil
			}
			if interceptor == nil {
				return handler(ctx, req)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, req, info, handler)
		},
	}
}

// realmServer is the handler type checked by grpc.Server.RegisterService.
type realmServer interface {
	watchZone(req *WatchZoneRequest, stream grpc.ServerStream) error
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*realmServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateCharacter", func(g Game, ctx context.Context, r *CreateCharacterRequest) (gameserver.CharacterResult, error) {
			return g.CreateCharacter(ctx, r.CharacterID, r.Name)
		}),
		unary("GetCharacter", func(g Game, ctx context.Context, r *CharacterRequest) (gameserver.CharacterResult, error) {
			return g.GetCharacter(ctx, r.CharacterID)
		}),
		unary("EnterZone", func(g Game, ctx context.Context, r *EnterZoneRequest) (gameserver.ZoneResult, error) {
			return g.EnterZone(ctx, r.CharacterID, r.ZoneID)
		}),
		unary("PopulateZone", func(g Game, ctx context.Context, r *ZoneRequest) (gameserver.ZoneResult, error) {
			return g.PopulateZone(ctx, r.ZoneID)
		}),
		unary("ListLiveMonsters", func(g Game, ctx context.Context, r *ZoneRequest) (gameserver.ZoneResult, error) {
			return g.ListLiveMonsters(ctx, r.ZoneID)
		}),
		unary("ListLiveItems", func(g Game, ctx context.Context, r *ZoneRequest) (gameserver.ZoneResult, error) {
			return g.ListLiveItems(ctx, r.ZoneID)
		}),
		unary("Attack", func(g Game, ctx context.Context, r *AttackRequest) (gameserver.AttackResult, error) {
			return g.Attack(ctx, r.CharacterID, r.MonsterID)
		}),
		unary("CollectItem", func(g Game, ctx context.Context, r *CollectItemRequest) (gameserver.CollectResult, error) {
			return g.CollectItem(ctx, r.CharacterID, r.ItemID)
		}),
		unary("ListAvailableQuests", func(g Game, ctx context.Context, r *CharacterRequest) (gameserver.QuestListResult, error) {
			return g.ListAvailableQuests(ctx, r.CharacterID)
		}),
		unary("ListActiveQuests", func(g Game, ctx context.Context, r *CharacterRequest) (gameserver.ActiveQuestsResult, error) {
			return g.ListActiveQuests(ctx, r.CharacterID)
		}),
		unary("AcceptQuest", func(g Game, ctx context.Context, r *QuestRequest) (gameserver.QuestResult, error) {
			return g.AcceptQuest(ctx, r.CharacterID, r.QuestID)
		}),
		unary("AbandonQuest", func(g Game, ctx context.Context, r *QuestRequest) (gameserver.QuestResult, error) {
			return g.AbandonQuest(ctx, r.CharacterID, r.QuestID)
		}),
		unary("CompleteQuest", func(g Game, ctx context.Context, r *QuestRequest) (gameserver.QuestResult, error) {
			return g.CompleteQuest(ctx, r.CharacterID, r.QuestID)
		}),
		unary("OnGameplayEvent", func(g Game, ctx context.Context, r *GameplayEventRequest) (gameserver.EventResult, error) {
			return g.OnGameplayEvent(ctx, r.CharacterID, r.Type, r.Target, r.Amount)
		}),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchZone",
			Handler:       watchZoneHandler,
			ServerStreams: true,
		},
	},
	Metadata: "realm/v1/realm",
}

func watchZoneHandler(srv any, stream grpc.ServerStream) error {
	req := new(WatchZoneRequest)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(*Server).watchZone(req, stream)
}

// watchZone streams the zone's events until the client goes away or the hub
// shuts down.
//
// Postcondition: The ZoneHeader header is sent after the subscription is
// registered, so an event published once the client has the header is
// delivered.
func (s *Server) watchZone(req *WatchZoneRequest, stream grpc.ServerStream) error {
	if err := req.validate(); err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	sub := s.hub.Subscribe(req.ZoneID, s.buffer)
	defer sub.Close()

	if err := stream.SendHeader(metadata.Pairs(ZoneHeader, req.ZoneID)); err != nil {
		return err
	}
	s.logger.Info("zone watch started", zap.String("zone", req.ZoneID))
	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("zone watch ended",
				zap.String("zone", req.ZoneID),
				zap.Int64("dropped", sub.Dropped()),
			)
			return nil
		case ev, ok := <-sub.Events():
			if !ok {
				return status.Error(codes.Unavailable, "zone feed closed")
			}
			if err := stream.SendMsg(&ev); err != nil {
				return err
			}
		}
	}
}
