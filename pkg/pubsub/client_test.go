package pubsub

import (
	"context"
	"testing"

	"github.com/angelmondragon/matreq-backend/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	cases := []struct {
		project string
		name    string
		want    string
	}{
		{"matreq-prod", "requisition-events", "projects/matreq-prod/topics/requisition-events"},
		{"matreq-prod", "  requisition-events ", "projects/matreq-prod/topics/requisition-events"},
		{"other", "projects/shared/topics/events", "projects/shared/topics/events"},
		{"", "requisition-events", ""},
		{"matreq-prod", "", ""},
	}
	for _, tc := range cases {
		if got := TopicResourceName(tc.project, tc.name); got != tc.want {
			t.Fatalf("TopicResourceName(%q, %q) = %q, want %q", tc.project, tc.name, got, tc.want)
		}
	}
}

func TestNewClientRequiresProjectAndTopic(t *testing.T) {
	if _, err := NewClient(context.Background(), config.PubSubConfig{RequisitionTopic: "t"}, nil); err != errProjectIDRequired {
		t.Fatalf("expected project id error, got %v", err)
	}
	if _, err := NewClient(context.Background(), config.PubSubConfig{ProjectID: "p"}, nil); err != errTopicRequired {
		t.Fatalf("expected topic error, got %v", err)
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	if c.Publisher("x") != nil {
		t.Fatalf("expected nil publisher from nil client")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close on nil client: %v", err)
	}
	if err := c.Ping(context.Background()); err == nil {
		t.Fatalf("expected ping error on nil client")
	}
}
