package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestOrderEventOmitsUnsetIDs(t *testing.T) {
	statusEvent := OrderEvent{
		Type:       TypeOrderStatusUpdated,
		OrderID:    uuid.New(),
		Status:     "Delivered",
		OccurredAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	raw, err := json.Marshal(statusEvent)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"user_id", "book_id"} {
		if _, ok := fields[key]; ok {
			t.Fatalf("%s should be omitted: %s", key, raw)
		}
	}
	if fields["order_id"] != statusEvent.OrderID.String() {
		t.Fatalf("order_id = %v", fields["order_id"])
	}

	placed := statusEvent
	placed.Type = TypeOrderPlaced
	placed.UserID = uuid.New()
	placed.BookID = uuid.New()
	raw, _ = json.Marshal(placed)
	fields = nil
	_ = json.Unmarshal(raw, &fields)
	if fields["user_id"] != placed.UserID.String() || fields["book_id"] != placed.BookID.String() {
		t.Fatalf("ids missing: %s", raw)
	}
}
