package publishers

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Supported sink types.
const (
	TypeHTTP      = "http"
	TypeSQS       = "sqs"
	TypeSNS       = "sns"
	TypeGCPPubSub = "gcp_pubsub"
)

// PublisherConfig is one sink entry of the publishers file. Exactly the block
// matching Type is used.
type PublisherConfig struct {
	ID      string               `json:"id" yaml:"id"`
	Type    string               `json:"type" yaml:"type"`
	Enabled *bool                `json:"enabled" yaml:"enabled"`
	HTTP    *HTTPPublisherConfig `json:"http" yaml:"http"`
	SQS     *SQSPublisherConfig  `json:"sqs" yaml:"sqs"`
	SNS     *SNSPublisherConfig  `json:"sns" yaml:"sns"`
	GCP     *GCPQueueConfig      `json:"gcp_pubsub" yaml:"gcp_pubsub"`
}

// AWSCredentials are optional static keys; the default AWS chain is used when empty.
type AWSCredentials struct {
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
}

// EnabledValue returns the enabled flag, defaulting to true.
func (cfg PublisherConfig) EnabledValue() bool {
	return cfg.Enabled == nil || *cfg.Enabled
}

// normalize trims the entry and checks the block for its type.
func (cfg PublisherConfig) normalize() (PublisherConfig, error) {
	cfg.ID = strings.TrimSpace(cfg.ID)
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))
	if cfg.ID == "" {
		return cfg, errors.New("id is required")
	}

	var err error
	switch cfg.Type {
	case TypeHTTP:
		err = cfg.HTTP.normalize()
	case TypeSQS:
		err = cfg.SQS.normalize()
	case TypeSNS:
		err = cfg.SNS.normalize()
	case TypeGCPPubSub:
		err = cfg.GCP.normalize()
	case "":
		err = errors.New("type is required")
	default:
		err = fmt.Errorf("unsupported type %q", cfg.Type)
	}
	if err != nil {
		return cfg, fmt.Errorf("publisher %q: %w", cfg.ID, err)
	}
	return cfg, nil
}

// requireFields checks alternating key, value pairs and names the first empty one.
func requireFields(block string, kv ...string) error {
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] == "" {
			return fmt.Errorf("%s.%s is required", block, kv[i])
		}
	}
	return nil
}

func trimAll(fields ...*string) {
	for _, f := range fields {
		*f = strings.TrimSpace(*f)
	}
}

// ConfigRegistry holds the validated publisher entries in file order.
type ConfigRegistry struct {
	publishers []PublisherConfig
	idx        map[string]int
}

type configFile struct {
	Publishers []PublisherConfig `json:"publishers" yaml:"publishers"`
}

// LoadRegistry reads a YAML or JSON publishers file.
func LoadRegistry(path string) (*ConfigRegistry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("publishers file path is empty")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read publishers file: %w", err)
	}

	var file configFile
	decode := yaml.Unmarshal
	if strings.EqualFold(filepath.Ext(path), ".json") {
		decode = json.Unmarshal
	}
	if err := decode(raw, &file); err != nil {
		return nil, fmt.Errorf("decode publishers file: %w", err)
	}
	if len(file.Publishers) == 0 {
		return nil, errors.New("publishers file contains no publishers entries")
	}
	return NewConfigRegistry(file.Publishers...)
}

// NewConfigRegistry validates entries and rejects duplicate ids.
func NewConfigRegistry(entries ...PublisherConfig) (*ConfigRegistry, error) {
	reg := &ConfigRegistry{idx: make(map[string]int, len(entries))}
	for i, entry := range entries {
		cfg, err := entry.normalize()
		if err != nil {
			return nil, fmt.Errorf("publishers[%d]: %w", i, err)
		}
		if _, dup := reg.idx[cfg.ID]; dup {
			return nil, fmt.Errorf("duplicate publisher id %q", cfg.ID)
		}
		reg.idx[cfg.ID] = len(reg.publishers)
		reg.publishers = append(reg.publishers, cfg)
	}
	return reg, nil
}

// ByID returns the publisher config by id.
func (r *ConfigRegistry) ByID(id string) (PublisherConfig, bool) {
	if r == nil {
		return PublisherConfig{}, false
	}
	i, ok := r.idx[strings.TrimSpace(id)]
	if !ok {
		return PublisherConfig{}, false
	}
	return r.publishers[i], true
}

// All returns every configured publisher.
func (r *ConfigRegistry) All() []PublisherConfig {
	if r == nil {
		return nil
	}
	return append([]PublisherConfig(nil), r.publishers...)
}

// Enabled returns the publishers that are switched on.
func (r *ConfigRegistry) Enabled() []PublisherConfig {
	var out []PublisherConfig
	for _, cfg := range r.All() {
		if cfg.EnabledValue() {
			out = append(out, cfg)
		}
	}
	return out
}
