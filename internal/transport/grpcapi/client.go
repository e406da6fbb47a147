package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/cory-johannsen/realm/internal/game/quest"
	"github.com/cory-johannsen/realm/internal/gameserver"
)

// Dial opens a plaintext connection to a realm server. Extra options are
// applied after the defaults.
func Dial(target string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, opts...)
	return grpc.NewClient(target, opts...)
}

// Client calls realm.v1.Realm. Domain failures come back in the result with
// Success false; a non-nil error is a gRPC status.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, req, resp any) error {
	return c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, req, resp, grpc.CallContentSubtype(CodecName))
}

func (c *Client) CreateCharacter(ctx context.Context, characterID, name string) (gameserver.CharacterResult, error) {
	var out gameserver.CharacterResult
	err := c.invoke(ctx, "CreateCharacter", &CreateCharacterRequest{CharacterID: characterID, Name: name}, &out)
	return out, err
}

func (c *Client) GetCharacter(ctx context.Context, characterID string) (gameserver.CharacterResult, error) {
	var out gameserver.CharacterResult
	err := c.invoke(ctx, "GetCharacter", &CharacterRequest{CharacterID: characterID}, &out)
	return out, err
}

func (c *Client) EnterZone(ctx context.Context, characterID, zoneID string) (gameserver.ZoneResult, error) {
	var out gameserver.ZoneResult
	err := c.invoke(ctx, "EnterZone", &EnterZoneRequest{CharacterID: characterID, ZoneID: zoneID}, &out)
	return out, err
}

func (c *Client) PopulateZone(ctx context.Context, zoneID string) (gameserver.ZoneResult, error) {
	var out gameserver.ZoneResult
	err := c.invoke(ctx, "PopulateZone", &ZoneRequest{ZoneID: zoneID}, &out)
	return out, err
}

func (c *Client) ListLiveMonsters(ctx context.Context, zoneID string) (gameserver.ZoneResult, error) {
	var out gameserver.ZoneResult
	err := c.invoke(ctx, "ListLiveMonsters", &ZoneRequest{ZoneID: zoneID}, &out)
	return out, err
}

func (c *Client) ListLiveItems(ctx context.Context, zoneID string) (gameserver.ZoneResult, error) {
	var out gameserver.ZoneResult
	err := c.invoke(ctx, "ListLiveItems", &ZoneRequest{ZoneID: zoneID}, &out)
	return out, err
}

func (c *Client) Attack(ctx context.Context, characterID, monsterID string) (gameserver.AttackResult, error) {
	var out gameserver.AttackResult
	err := c.invoke(ctx, "Attack", &AttackRequest{CharacterID: characterID, MonsterID: monsterID}, &out)
	return out, err
}

func (c *Client) CollectItem(ctx context.Context, characterID, itemID string) (gameserver.CollectResult, error) {
	var out gameserver.CollectResult
	err := c.invoke(ctx, "CollectItem", &CollectItemRequest{CharacterID: characterID, ItemID: itemID}, &out)
	return out, err
}

func (c *Client) ListAvailableQuests(ctx context.Context, characterID string) (gameserver.QuestListResult, error) {
	var out gameserver.QuestListResult
	err := c.invoke(ctx, "ListAvailableQuests", &CharacterRequest{CharacterID: characterID}, &out)
	return out, err
}

func (c *Client) ListActiveQuests(ctx context.Context, characterID string) (gameserver.ActiveQuestsResult, error) {
	var out gameserver.ActiveQuestsResult
	err := c.invoke(ctx, "ListActiveQuests", &CharacterRequest{CharacterID: characterID}, &out)
	return out, err
}

func (c *Client) AcceptQuest(ctx context.Context, characterID, questID string) (gameserver.QuestResult, error) {
	var out gameserver.QuestResult
	err := c.invoke(ctx, "AcceptQuest", &QuestRequest{CharacterID: characterID, QuestID: questID}, &out)
	return out, err
}

func (c *Client) AbandonQuest(ctx context.Context, characterID, questID string) (gameserver.QuestResult, error) {
	var out gameserver.QuestResult
	err := c.invoke(ctx, "AbandonQuest", &QuestRequest{CharacterID: characterID, QuestID: questID}, &out)
	return out, err
}

func (c *Client) CompleteQuest(ctx context.Context, characterID, questID string) (gameserver.QuestResult, error) {
	var out gameserver.QuestResult
	err := c.invoke(ctx, "CompleteQuest", &QuestRequest{CharacterID: characterID, QuestID: questID}, &out)
	return out, err
}

func (c *Client) OnGameplayEvent(ctx context.Context, characterID string, eventType quest.ObjectiveType, targetID string, amount int) (gameserver.EventResult, error) {
	var out gameserver.EventResult
	req := &GameplayEventRequest{CharacterID: characterID, Type: eventType, Target: targetID, Amount: amount}
	err := c.invoke(ctx, "OnGameplayEvent", req, &out)
	return out, err
}

// ZoneStream receives the events of one watched zone. Payloads decode as
// generic JSON values.
type ZoneStream struct {
	stream grpc.ClientStream
}

// WatchZone subscribes to zoneID.
//
// Postcondition: On success the server-side subscription is live, so every
// event published after WatchZone returns reaches Recv unless the stream
// falls behind.
func (c *Client) WatchZone(ctx context.Context, zoneID string) (*ZoneStream, error) {
	stream, err := c.cc.NewStream(ctx, &serviceDesc.Streams[0], "/"+ServiceName+"/WatchZone",
		grpc.CallContentSubtype(CodecName))
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(&WatchZoneRequest{ZoneID: zoneID}); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	if _, err := stream.Header(); err != nil {
		return nil, err
	}
	return &ZoneStream{stream: stream}, nil
}

// Recv blocks for the next event. It returns io.EOF when the server ends the
// stream cleanly and a gRPC status otherwise.
func (z *ZoneStream) Recv() (gameserver.Event, error) {
	var ev gameserver.Event
	err := z.stream.RecvMsg(&ev)
	return ev, err
}
