package publishers

import (
	"testing"
)

func TestParseConfigRegistryYAML(t *testing.T) {
	raw := []byte(`
publishers:
  - id: "analyzer-queue"
    type: "sqs"
    sqs:
      uri: "https://sqs.ap-northeast-2.amazonaws.com/123/news"
      region: "ap-northeast-2"
  - id: "alerts"
    type: "sns"
    enabled: false
    sns:
      topic_arn: "arn:aws:sns:ap-northeast-2:123:news-alerts"
      region: "ap-northeast-2"
  - id: "webhook"
    type: "http"
    http:
      url: "https://hooks.example.com/news"
      method: "put"
  - id: "bigquery-feed"
    type: "pubsub"
    pubsub:
      project_id: "regional-news"
      topic_id: "accepted-articles"
`)

	reg, err := ParseConfigRegistry(raw, ".yaml")
	if err != nil {
		t.Fatalf("ParseConfigRegistry: %v", err)
	}

	if len(reg.All()) != 4 {
		t.Fatalf("expected 4 publishers, got %d", len(reg.All()))
	}

	enabled := reg.Enabled()
	if len(enabled) != 3 {
		t.Fatalf("expected 3 enabled publishers, got %d", len(enabled))
	}
	for _, cfg := range enabled {
		if cfg.ID == "alerts" {
			t.Fatalf("disabled publisher returned as enabled")
		}
	}

	webhook, ok := reg.ByID("webhook")
	if !ok {
		t.Fatalf("webhook publisher missing")
	}
	if webhook.HTTP.Method != "PUT" {
		t.Fatalf("method not normalized: %s", webhook.HTTP.Method)
	}
	if webhook.HTTP.TimeoutSeconds != httpDefaultTimeoutSeconds {
		t.Fatalf("timeout default not applied: %d", webhook.HTTP.TimeoutSeconds)
	}
}

func TestParseConfigRegistryRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"missing id", `publishers: [{type: "http", http: {url: "https://x"}}]`},
		{"missing type", `publishers: [{id: "p1"}]`},
		{"sqs without uri", `publishers: [{id: "p1", type: "sqs", sqs: {region: "ap-northeast-2"}}]`},
		{"sns without topic", `publishers: [{id: "p1", type: "sns", sns: {region: "ap-northeast-2"}}]`},
		{"pubsub without project", `publishers: [{id: "p1", type: "pubsub", pubsub: {topic_id: "t"}}]`},
		{"duplicate ids", `publishers: [{id: "p1", type: "http", http: {url: "https://x"}}, {id: "p1", type: "http", http: {url: "https://y"}}]`},
		{"empty file", `publishers: []`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseConfigRegistry([]byte(tc.raw), ".yaml"); err == nil {
				t.Fatalf("expected error for %s", tc.name)
			}
		})
	}
}

func TestRegistryRejectsUnknownType(t *testing.T) {
	raw := []byte(`publishers: [{id: "p1", type: "kafka"}]`)
	reg, err := ParseConfigRegistry(raw, ".yaml")
	if err != nil {
		t.Fatalf("unknown types pass config validation: %v", err)
	}

	cfg, _ := reg.ByID("p1")
	if _, err := DefaultRegistry().PublisherFor(nil, cfg, nil); err == nil {
		t.Fatalf("expected builder lookup to fail for kafka")
	}
}
