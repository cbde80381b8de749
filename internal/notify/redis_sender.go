package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSender stores notifications in Redis instead of delivering them.
// Integration tests poll the key to assert a reminder was produced.
type RedisSender struct {
	client *redis.Client
}

// NewRedisSender creates a new RedisSender.
func NewRedisSender(client *redis.Client) Sender {
	return &RedisSender{client: client}
}

// Send stores a JSON representation of the message under mocknotify:<to>.
func (s *RedisSender) Send(ctx context.Context, msg Message) error {
	data := map[string]interface{}{
		"to":      msg.To,
		"subject": msg.Subject,
		"body":    msg.Body,
		"sent_at": time.Now().UTC().Format(time.RFC3339Nano),
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal notification data: %w", err)
	}

	key := fmt.Sprintf("mocknotify:%s", msg.To)
	if err := s.client.Set(ctx, key, jsonData, 10*time.Minute).Err(); err != nil {
		return fmt.Errorf("failed to store mock notification in Redis: %w", err)
	}
	log.Printf("Mock notification stored in Redis under %s", key)
	return nil
}
