package stream

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"backend-stizi/internal/logging"

	"github.com/redis/go-redis/v9"
)

const (
	channelPrefix  = "stamps:"
	channelSuffix  = ":collected"
	channelPattern = channelPrefix + "*" + channelSuffix
)

// Hub fans stamp collection events out to websocket clients. With Redis
// every instance receives every event through the pattern subscription.
type Hub struct {
	redis   *redis.Client
	pubsub  *redis.PubSub
	logger  *slog.Logger
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	StampID string
	Send    chan []byte
}

func NewHub(redisClient *redis.Client, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = logging.Discard()
	}
	h := &Hub{
		redis:   redisClient,
		logger:  logger,
		clients: map[string]map[*Client]struct{}{},
	}

	if redisClient != nil {
		ctx := context.Background()
		pubsub := redisClient.PSubscribe(ctx, channelPattern)
		if _, err := pubsub.Receive(ctx); err != nil {
			logger.Warn("redis subscribe failed, delivering locally", slog.Any("error", err))
			_ = pubsub.Close()
			h.redis = nil
			return h
		}
		h.pubsub = pubsub
		go h.subscribeRedis(pubsub.Channel())
	}
	return h
}

func (h *Hub) Register(stampID string) *Client {
	client := &Client{
		StampID: stampID,
		Send:    make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[stampID] == nil {
		h.clients[stampID] = map[*Client]struct{}{}
	}
	h.clients[stampID][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	stampClients, ok := h.clients[client.StampID]
	if !ok {
		return
	}
	if _, ok := stampClients[client]; !ok {
		return
	}
	delete(stampClients, client)
	if len(stampClients) == 0 {
		delete(h.clients, client.StampID)
	}
	close(client.Send)
}

// Broadcast publishes payload to everyone watching stampID.
func (h *Hub) Broadcast(stampID string, payload []byte) {
	if h.redis != nil {
		err := h.redis.Publish(context.Background(), redisChannel(stampID), payload).Err()
		if err == nil {
			return
		}
		h.logger.Error("redis publish failed", slog.String("stamp_id", stampID), slog.Any("error", err))
	}
	h.deliver(stampID, payload)
}

func (h *Hub) deliver(stampID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[stampID] {
		select {
		case client.Send <- payload:
		default:
			h.logger.Warn("dropping event for slow client", slog.String("stamp_id", stampID))
		}
	}
}

func (h *Hub) subscribeRedis(messages <-chan *redis.Message) {
	for msg := range messages {
		stampID := stampIDFromChannel(msg.Channel)
		if stampID == "" {
			continue
		}
		h.deliver(stampID, []byte(msg.Payload))
	}
}

func (h *Hub) Close() error {
	if h.pubsub == nil {
		return nil
	}
	return h.pubsub.Close()
}

func redisChannel(stampID string) string {
	return channelPrefix + stampID + channelSuffix
}

func stampIDFromChannel(ch string) string {
	// stamps:{id}:collected
	if !strings.HasPrefix(ch, channelPrefix) || !strings.HasSuffix(ch, channelSuffix) {
		return ""
	}
	if len(ch) <= len(channelPrefix)+len(channelSuffix) {
		return ""
	}
	return ch[len(channelPrefix) : len(ch)-len(channelSuffix)]
}
