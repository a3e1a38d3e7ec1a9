package pubsub

import "testing"

func TestTopicResourceName(t *testing.T) {
	cases := []struct {
		project string
		name    string
		want    string
	}{
		{"bnb-dev", "bnb-listing-events", "projects/bnb-dev/topics/bnb-listing-events"},
		{"bnb-dev", "  bnb-listing-events ", "projects/bnb-dev/topics/bnb-listing-events"},
		{"other", "projects/bnb-prod/topics/events", "projects/bnb-prod/topics/events"},
		{"", "bnb-listing-events", ""},
		{"bnb-dev", "", ""},
	}
	for _, tc := range cases {
		if got := topicResourceName(tc.project, tc.name); got != tc.want {
			t.Fatalf("topicResourceName(%q, %q) = %q, want %q", tc.project, tc.name, got, tc.want)
		}
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	if c.Publisher("x") != nil {
		t.Fatal("expected nil publisher from nil client")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close on nil client: %v", err)
	}
	if err := c.Ping(nil); err == nil {
		t.Fatal("expected ping on nil client to fail")
	}
}
