//go:build ignore

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

type SyncRequest struct {
	SourceID    string    `json:"source_id,omitempty"`
	All         bool      `json:"all,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

func main() {
	redisAddr := flag.String("redis", "localhost:6379", "Redis address for streams")
	sourceID := flag.String("source", "", "Source ID to sync (empty = all sources)")
	flag.Parse()

	client := redis.NewClient(&redis.Options{
		Addr: *redisAddr,
	})
	defer client.Close()

	ctx := context.Background()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	req := SyncRequest{
		SourceID:    *sourceID,
		All:         *sourceID == "",
		RequestedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(req)
	if err != nil {
		log.Fatalf("Failed to marshal request: %v", err)
	}

	result, err := client.XAdd(ctx, &redis.XAddArgs{
		Stream: "place:sync:requests",
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()
	if err != nil {
		log.Fatalf("Failed to publish request: %v", err)
	}

	fmt.Printf("✅ Sync request published!\n")
	fmt.Printf("   Stream: place:sync:requests\n")
	fmt.Printf("   Message ID: %s\n", result)
	if req.All {
		fmt.Printf("   Scope: all sources\n")
	} else {
		fmt.Printf("   Scope: %s\n", req.SourceID)
	}

	if *sourceID == "" {
		fmt.Println("\nWatching all sources is not supported, pass -source to follow status.")
		return
	}

	fmt.Printf("\n⏳ Waiting for sync:status:%s to reach a terminal state...\n", *sourceID)

	timeout := time.After(60 * time.Second)
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	statusKey := "sync:status:" + *sourceID

	for {
		select {
		case <-timeout:
			fmt.Println("❌ Timeout waiting for sync to finish")
			return
		case <-ticker.C:
			raw, err := client.Get(ctx, statusKey).Result()
			if err != nil {
				continue
			}

			var status map[string]interface{}
			if err := json.Unmarshal([]byte(raw), &status); err != nil {
				continue
			}

			state, _ := status["state"].(string)
			fmt.Printf("   state: %s\n", state)

			if state == "success" || state == "error" {
				prettyJSON, _ := json.MarshalIndent(status, "", "  ")
				fmt.Printf("\n✅ Terminal state reached:\n%s\n", prettyJSON)
				return
			}
		}
	}
}
