package feed_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/realm/internal/gameserver"
	"github.com/cory-johannsen/realm/internal/transport/feed"
)

var at = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func message(zoneID, text string) gameserver.Event {
	return gameserver.ZoneMessageEvent(zoneID, text, at)
}

func TestHub_DeliversToZoneSubscribersOnly(t *testing.T) {
	hub := feed.NewHub(zaptest.NewLogger(t))
	forest := hub.Subscribe("dark-forest", 4)
	other := hub.Subscribe("dark-forest", 4)
	village := hub.Subscribe("starting-village", 4)
	defer forest.Close()
	defer other.Close()
	defer village.Close()

	hub.NotifyZone("dark-forest", message("dark-forest", "howling"))

	for _, s := range []*feed.Subscription{forest, other} {
		select {
		case ev := <-s.Events():
			assert.Equal(t, gameserver.EventZoneMessage, ev.Type)
			assert.Equal(t, gameserver.MessagePayload{Text: "howling"}, ev.Payload)
		default:
			t.Fatal("forest subscriber got nothing")
		}
	}
	assert.Empty(t, village.Events())
	assert.Equal(t, 2, hub.Subscribers("dark-forest"))
}

func TestHub_FullQueueDropsAndWarnsOnce(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	hub := feed.NewHub(zap.New(core))
	s := hub.Subscribe("dark-forest", 1)
	defer s.Close()

	for i := 0; i < 3; i++ {
		hub.NotifyZone("dark-forest", message("dark-forest", "tick"))
	}

	assert.Len(t, s.Events(), 1)
	assert.Equal(t, int64(2), s.Dropped())
	assert.Equal(t, 1, logs.FilterMessage("zone subscriber falling behind").Len())
}

func TestSubscription_CloseIsIdempotent(t *testing.T) {
	hub := feed.NewHub(zaptest.NewLogger(t))
	s := hub.Subscribe("dark-forest", 0)
	s.Close()
	s.Close()

	_, ok := <-s.Events()
	assert.False(t, ok)
	assert.Zero(t, hub.Subscribers("dark-forest"))
	hub.NotifyZone("dark-forest", message("dark-forest", "nobody listening"))
}

func TestHub_CloseEndsEverySubscription(t *testing.T) {
	hub := feed.NewHub(zaptest.NewLogger(t))
	a := hub.Subscribe("dark-forest", 1)
	b := hub.Subscribe("goblin-camp", 1)

	hub.Close()
	for _, s := range []*feed.Subscription{a, b} {
		_, ok := <-s.Events()
		assert.False(t, ok)
	}
	a.Close()

	late := hub.Subscribe("dark-forest", 1)
	_, ok := <-late.Events()
	assert.False(t, ok, "subscriptions after Close start closed")
	hub.NotifyZone("dark-forest", message("dark-forest", "gone"))
}

func TestHub_ConcurrentNotifyAndUnsubscribe(t *testing.T) {
	hub := feed.NewHub(zaptest.NewLogger(t))
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		s := hub.Subscribe("dark-forest", 2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				hub.NotifyZone("dark-forest", message("dark-forest", "spam"))
			}
		}()
		go func() {
			defer wg.Done()
			s.Close()
		}()
	}
	wg.Wait()
	require.Zero(t, hub.Subscribers("dark-forest"))
}

func TestProperty_DeliveredPlusDroppedEqualsSent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		buffer := rapid.IntRange(1, 16).Draw(rt, "buffer")
		sent := rapid.IntRange(0, 64).Draw(rt, "sent")

		hub := feed.NewHub(zap.NewNop())
		s := hub.Subscribe("dark-forest", buffer)
		for i := 0; i < sent; i++ {
			hub.NotifyZone("dark-forest", message("dark-forest", "x"))
		}
		s.Close()

		delivered := 0
		for range s.Events() {
			delivered++
		}
		if int64(delivered)+s.Dropped() != int64(sent) {
			rt.Fatalf("delivered %d + dropped %d != sent %d", delivered, s.Dropped(), sent)
		}
		if delivered > buffer {
			rt.Fatalf("delivered %d exceeds buffer %d", delivered, buffer)
		}
	})
}
