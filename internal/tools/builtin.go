package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

func init() {
	MustRegister("weather.query", func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		var in struct {
			City string `json:"city"`
		}
		_ = json.Unmarshal(args, &in)
		if in.City == "" {
			in.City = "unknown"
		}
		out, _ := json.Marshal(map[string]interface{}{
			"city":        in.City,
			"conditions":  "Sunny",
			"temperature": 25,
		})
		return out, nil
	})
	MustRegister("web.search", func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		var in struct {
			Query string `json:"query"`
		}
		_ = json.Unmarshal(args, &in)
		out, _ := json.Marshal(map[string]interface{}{
			"query":   in.Query,
			"results": []string{"no live search backend configured"},
		})
		return out, nil
	})
	MustRegister("itinerary.save", func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		return json.RawMessage(`{"status":"saved","itinerary_id":"it_123"}`), nil
	})
	MustRegister("system.exec", func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		return nil, fmt.Errorf("tool execution disabled")
	})
}
