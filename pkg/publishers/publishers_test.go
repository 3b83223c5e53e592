package publishers

import (
	"os"
	"path/filepath"
	"testing"
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

func TestNormalizeRejectsMissingHTTPBlock(t *testing.T) {
	_, err := PublisherConfig{ID: "h1", Type: TypeHTTP}.normalize()
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
      uri: " https://sqs.ap-northeast-2.amazonaws.com/1/notices "
      region: ap-northeast-2
      access_key_id: AKID
      secret_access_key: secret
  - id: topic
    type: sns
    sns:
      topic_arn: arn:aws:sns:ap-northeast-2:1:notices
      region: ap-northeast-2
  - id: gcp
    type: gcp_pubsub
    gcp_pubsub:
      project_id: knu
      topic: notices
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}

	queue, ok := reg.ByID("queue")
	if !ok || queue.Type != TypeSQS {
		t.Fatalf("expected sqs publisher, got %#v", queue)
	}
	if queue.SQS.QueueURL != "https://sqs.ap-northeast-2.amazonaws.com/1/notices" {
		t.Fatalf("queue url not trimmed: %q", queue.SQS.QueueURL)
	}
	if queue.SQS.AccessKeyID != "AKID" || queue.SQS.SecretAccessKey != "secret" {
		t.Fatalf("inline credentials not decoded: %#v", queue.SQS.AWSCredentials)
	}
	if _, ok := reg.ByID("topic"); !ok {
		t.Fatalf("missing sns publisher")
	}
	if len(reg.Enabled()) != 3 {
		t.Fatalf("expected all publishers enabled by default")
	}
}

func TestNormalizeRejectsIncompleteSinks(t *testing.T) {
	cases := map[string]PublisherConfig{
		"sns without arn":    {ID: "s", Type: TypeSNS, SNS: &SNSPublisherConfig{Region: "r"}},
		"sns without block":  {ID: "s", Type: TypeSNS},
		"gcp without topic":  {ID: "g", Type: TypeGCPPubSub, GCP: &GCPQueueConfig{ProjectID: "p"}},
		"sqs without region": {ID: "q", Type: TypeSQS, SQS: &SQSPublisherConfig{QueueURL: "u"}},
		"http without url":   {ID: "h", Type: TypeHTTP, HTTP: &HTTPPublisherConfig{}},
		"unknown type":       {ID: "k", Type: "kafka"},
		"missing type":       {ID: "k"},
		"missing id":         {Type: TypeHTTP, HTTP: &HTTPPublisherConfig{URL: "https://x"}},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := cfg.normalize(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestNormalizeAppliesHTTPDefaults(t *testing.T) {
	cfg, err := PublisherConfig{
		ID:   " hook ",
		Type: " HTTP ",
		HTTP: &HTTPPublisherConfig{
			URL:     " https://hooks.example.com/notices ",
			Method:  "put",
			Headers: map[string]string{" X-Token ": " abc ", "Empty": " "},
		},
	}.normalize()
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.ID != "hook" || cfg.Type != TypeHTTP {
		t.Fatalf("id/type not normalized: %q %q", cfg.ID, cfg.Type)
	}
	if cfg.HTTP.URL != "https://hooks.example.com/notices" || cfg.HTTP.Method != "PUT" {
		t.Fatalf("http block not normalized: %#v", cfg.HTTP)
	}
	if cfg.HTTP.TimeoutSeconds != httpDefaultTimeoutSeconds {
		t.Fatalf("expected default timeout, got %d", cfg.HTTP.TimeoutSeconds)
	}
	if len(cfg.HTTP.Headers) != 1 || cfg.HTTP.Headers["X-Token"] != "abc" {
		t.Fatalf("unexpected headers %#v", cfg.HTTP.Headers)
	}
	if !cfg.EnabledValue() {
		t.Fatalf("expected enabled by default")
	}
}

func TestLoadRegistryJSONAndDuplicateIDs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "publishers.json")
	raw := `{"publishers":[{"id":"h","type":"http","http":{"url":"https://a.example.com"}}]}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry json: %v", err)
	}
	if cfg, ok := reg.ByID(" h "); !ok || cfg.HTTP.Method != httpDefaultMethod {
		t.Fatalf("expected http publisher with default method, got %#v", cfg)
	}

	_, err = NewConfigRegistry(
		PublisherConfig{ID: "h", Type: TypeHTTP, HTTP: &HTTPPublisherConfig{URL: "https://a"}},
		PublisherConfig{ID: "h", Type: TypeHTTP, HTTP: &HTTPPublisherConfig{URL: "https://b"}},
	)
	if err == nil {
		t.Fatalf("expected duplicate id error")
	}
}
