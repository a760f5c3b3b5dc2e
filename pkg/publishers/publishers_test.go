package publishers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/samvad-hq/samvad-vision-predictor/internal/logger"
)

func TestLoadRegistryEnabledFilter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "publishers.yaml")
	raw := `
publishers:
  - id: http1
    type: http
    enabled: false
    http:
      url: https://example.com
  - id: http2
    type: http
    enabled: true
    http:
      url: https://example.com/2
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	enabled := reg.Enabled()
	if len(enabled) != 1 || enabled[0].ID != "http2" {
		t.Fatalf("expected only http2 enabled, got %#v", enabled)
	}
}

func TestValidatePublisherConfigRejectsMissingHTTP(t *testing.T) {
	err := validatePublisherConfig(PublisherConfig{
		ID:   "h1",
		Type: TypeHTTP,
	})
	if err == nil {
		t.Fatalf("expected validation error for missing http block")
	}
}

func TestLoadRegistryParsesCloudSinks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "publishers.yaml")
	raw := `
publishers:
  - id: queue
    type: SQS
    sqs:
      uri: " https://sqs.us-east-1.amazonaws.com/123/predictions "
      region: us-east-1
      access_key_id: AKIA
      secret_access_key: secret
  - id: topic
    type: sns
    sns:
      topic_arn: arn:aws:sns:us-east-1:123:predictions
      region: us-east-1
  - id: gcp
    type: gcp_pubsub
    gcp_pubsub:
      project_id: vision
      topic: predictions
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if len(reg.All()) != 3 {
		t.Fatalf("expected 3 publishers, got %d", len(reg.All()))
	}

	q, ok := reg.ByID("queue")
	if !ok || q.Type != TypeSQS {
		t.Fatalf("unexpected queue publisher %#v", q)
	}
	if q.SQS.QueueURL != "https://sqs.us-east-1.amazonaws.com/123/predictions" {
		t.Fatalf("queue url not trimmed: %q", q.SQS.QueueURL)
	}
	if q.SQS.AccessKeyID != "AKIA" || q.SQS.SecretAccessKey != "secret" {
		t.Fatalf("inline credentials not decoded: %#v", q.SQS.AWSCredentials)
	}

	topic, _ := reg.ByID("topic")
	if topic.SNS == nil || topic.SNS.TopicARN != "arn:aws:sns:us-east-1:123:predictions" {
		t.Fatalf("unexpected sns config %#v", topic.SNS)
	}
	gcp, _ := reg.ByID("gcp")
	if gcp.GCPPubSub == nil || gcp.GCPPubSub.Topic != "predictions" {
		t.Fatalf("unexpected pubsub config %#v", gcp.GCPPubSub)
	}
}

func TestLoadRegistryJSONAndDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "publishers.json")
	raw := `{"publishers":[{"id":"hook","type":"http","http":{"url":"https://example.com/hook","headers":{" X-Token ":" t ","Empty":" "}}}]}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	hook, ok := reg.ByID("hook")
	if !ok {
		t.Fatalf("hook publisher missing")
	}
	if hook.HTTP.Method != "POST" || hook.HTTP.TimeoutSeconds != httpDefaultTimeoutSeconds {
		t.Fatalf("defaults not applied: %#v", hook.HTTP)
	}
	if len(hook.HTTP.Headers) != 1 || hook.HTTP.Headers["X-Token"] != "t" {
		t.Fatalf("headers not sanitized: %#v", hook.HTTP.Headers)
	}
	if !hook.EnabledValue() {
		t.Fatalf("publishers default to enabled")
	}
}

func TestLoadRegistryRejectsDuplicatesAndEmpty(t *testing.T) {
	dir := t.TempDir()

	dup := filepath.Join(dir, "dup.yaml")
	if err := os.WriteFile(dup, []byte(`
publishers:
  - {id: a, type: http, http: {url: "https://a"}}
  - {id: a, type: http, http: {url: "https://b"}}
`), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := LoadRegistry(dup); err == nil {
		t.Fatalf("expected duplicate id error")
	}

	empty := filepath.Join(dir, "empty.yaml")
	if err := os.WriteFile(empty, []byte("publishers: []\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := LoadRegistry(empty); err == nil {
		t.Fatalf("expected error for empty publishers file")
	}

	if _, err := LoadRegistry(" "); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestValidatePublisherConfigCloudSinks(t *testing.T) {
	cases := []PublisherConfig{
		{ID: "s", Type: TypeSQS, SQS: &SQSPublisherConfig{QueueURL: "u"}},
		{ID: "n", Type: TypeSNS},
		{ID: "n", Type: TypeSNS, SNS: &SNSPublisherConfig{Region: "us-east-1"}},
		{ID: "g", Type: TypeGCPPubSub, GCPPubSub: &GCPPubSubPublisherConfig{ProjectID: "p"}},
	}
	for _, cfg := range cases {
		if err := validatePublisherConfig(cfg); err == nil {
			t.Fatalf("expected validation error for %#v", cfg)
		}
	}
}

func TestValidatePublisherConfigNamesMissingField(t *testing.T) {
	err := validatePublisherConfig(PublisherConfig{
		ID:   "q",
		Type: TypeSQS,
		SQS:  &SQSPublisherConfig{QueueURL: "https://sqs.example/q"},
	})
	if err == nil || err.Error() != `sqs.region is required for publisher "q"` {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestLoadRegistryWithoutExtensionFallsBackToJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "publishers")
	raw := `{"publishers":[{"id":"hook","type":"http","http":{"url":"https://example.com/hook"}}]}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if _, ok := reg.ByID("hook"); !ok {
		t.Fatalf("hook publisher missing")
	}
}

func TestEnsureLoggerFallsBackToNop(t *testing.T) {
	if _, ok := ensureLogger(nil).(logger.NopLogger); !ok {
		t.Fatalf("expected NopLogger fallback")
	}
}
