package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "aurachat:"

// RedisFeed — лента изменений поверх Redis Pub/Sub.
// Одна подписка Redis на каждый Subscribe; приём переустанавливается
// с бэкоффом при ошибках соединения.
type RedisFeed struct {
	client *redis.Client
}

func NewRedisFeed(ctx context.Context, addr, password string, db int) (*RedisFeed, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisFeed{client: client}, nil
}

func (f *RedisFeed) Close() error {
	return f.client.Close()
}

func (f *RedisFeed) Publish(ctx context.Context, topic string, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return f.client.Publish(ctx, channelPrefix+topic, payload).Err()
}

func (f *RedisFeed) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	pubsub := f.client.Subscribe(subCtx, channelPrefix+topic)
	// Дожидаемся подтверждения подписки: после этого Publish с других узлов
	// уже не потеряется.
	if _, err := pubsub.Receive(subCtx); err != nil {
		cancel()
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis subscribe %q: %w", topic, err)
	}

	out := make(chan Event, subscriberBuffer)

	go func() {
		defer close(out)
		defer func() { _ = pubsub.Close() }()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					// go-redis сам переподключается; закрытый канал значит,
					// что подписка остановлена насовсем
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					slog.Warn("feed: invalid event payload", "topic", topic, "err", err)
					continue
				}
				select {
				case out <- ev:
				case <-subCtx.Done():
					return
				default:
					// медленный подписчик: событие отбрасывается
				}
			}
		}
	}()

	return newSubscription(out, cancel), nil
}
