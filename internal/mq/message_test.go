package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

func TestTask_Marshal_Format(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 30, 0, 0, time.FixedZone("MSK", 3*60*60))
	body, err := NewTask("app-1", now).Marshal()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if raw["entityId"] != "app-1" {
		t.Errorf("expected entityId app-1, got %v", raw["entityId"])
	}
	if raw["timestamp"] != "2024-05-01T09:30:00Z" {
		t.Errorf("expected UTC timestamp, got %v", raw["timestamp"])
	}
	if len(raw) != 2 {
		t.Errorf("expected exactly 2 fields, got %v", raw)
	}
}

func TestParseTask(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantID  string
		wantErr bool
	}{
		{"valid", `{"entityId":"abc","timestamp":"2024-01-01T00:00:00Z"}`, "abc", false},
		{"without timestamp", `{"entityId":"abc"}`, "abc", false},
		{"extra fields", `{"entityId":"abc","foo":1}`, "abc", false},
		{"empty id", `{"entityId":""}`, "", true},
		{"blank id", `{"entityId":"   "}`, "", true},
		{"missing id", `{"timestamp":"2024-01-01T00:00:00Z"}`, "", true},
		{"not json", `hello`, "", true},
		{"empty body", ``, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, err := ParseTask([]byte(tt.body))
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedTask) {
					t.Errorf("expected ErrMalformedTask, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if task.EntityID != tt.wantID {
				t.Errorf("expected %s, got %s", tt.wantID, task.EntityID)
			}
		})
	}
}

func TestDelivery_AckNack(t *testing.T) {
	acker := &fakeAcker{}
	d := &Delivery{Raw: amqp.Delivery{Acknowledger: acker, DeliveryTag: 7}}

	if err := d.Ack(); err != nil {
		t.Fatalf("ack: %v", err)
	}
	if err := d.Nack(false); err != nil {
		t.Fatalf("nack: %v", err)
	}

	if len(acker.acks) != 1 || acker.acks[0] != 7 {
		t.Errorf("unexpected acks: %v", acker.acks)
	}
	if len(acker.nacks) != 1 || acker.nacks[0].requeue {
		t.Errorf("unexpected nacks: %v", acker.nacks)
	}
}

func TestMemoryCounter(t *testing.T) {
	c := NewMemoryCounter()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		n, err := c.Incr(ctx, "k")
		if err != nil {
			t.Fatalf("incr: %v", err)
		}
		if n != want {
			t.Errorf("expected %d, got %d", want, n)
		}
	}

	if err := c.Reset(ctx, "k"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if n, _ := c.Incr(ctx, "k"); n != 1 {
		t.Errorf("expected counter to restart at 1, got %d", n)
	}
}

func TestRedeliveryKey(t *testing.T) {
	withID := amqp.Delivery{MessageId: "abc", Body: []byte("x")}
	if got := redeliveryKey(withID); got != "abc" {
		t.Errorf("expected message id key, got %s", got)
	}

	a := redeliveryKey(amqp.Delivery{Body: []byte(`{"entityId":"1"}`)})
	b := redeliveryKey(amqp.Delivery{Body: []byte(`{"entityId":"1"}`)})
	c := redeliveryKey(amqp.Delivery{Body: []byte(`{"entityId":"2"}`)})
	if a != b {
		t.Error("same body should give same key")
	}
	if a == c {
		t.Error("different bodies should give different keys")
	}
}
