package config

import (
	"fmt"
	"time"
)

// BridgeConfig is the root configuration for one pacsbridge process: an
// MLLP listener, a durable outbound queue, a router, an MWL store, and a
// patient cache.
type BridgeConfig struct {
	MLLP     MLLPConfig     `yaml:"mllp"`
	Queue    QueueConfig    `yaml:"queue"`
	Routing  RoutingConfig  `yaml:"routing"`
	MWL      MWLConfig      `yaml:"mwl"`
	Cache    CacheConfig    `yaml:"cache"`
	Tracing  TracingConfig  `yaml:"tracing"`
	Admin    AdminConfig    `yaml:"admin"`
	Outbound OutboundConfig `yaml:"outbound"`
}

// Validate applies structural defaults and checks every section.
func (c *BridgeConfig) Validate() error {
	if err := c.MLLP.Validate(); err != nil {
		return fmt.Errorf("mllp: %w", err)
	}
	if err := c.Queue.Validate(); err != nil {
		return fmt.Errorf("queue: %w", err)
	}
	if err := c.Routing.Validate(); err != nil {
		return fmt.Errorf("routing: %w", err)
	}
	if err := c.MWL.Validate(); err != nil {
		return fmt.Errorf("mwl: %w", err)
	}
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := c.Tracing.Validate(); err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	if err := c.Admin.Validate(); err != nil {
		return fmt.Errorf("admin: %w", err)
	}
	if err := c.Outbound.Validate(); err != nil {
		return fmt.Errorf("outbound: %w", err)
	}
	return nil
}

// AdminConfig configures the bridge's own HTTP surface: Prometheus
// metrics and liveness/readiness health checks. This is separate from
// the MLLP listener, which never speaks HTTP.
type AdminConfig struct {
	ListenAddress string `yaml:"listen_address"`
}

func (c *AdminConfig) Validate() error {
	if c.ListenAddress == "" {
		c.ListenAddress = "0.0.0.0:9090"
	}
	return nil
}

// OutboundConfig names this bridge in the MSH segments it constructs for
// messages it originates (currently, the MPPS-to-ORM workflow).
type OutboundConfig struct {
	SendingApp        string `yaml:"sending_app"`
	SendingFacility   string `yaml:"sending_facility"`
	ReceivingApp      string `yaml:"receiving_app"`
	ReceivingFacility string `yaml:"receiving_facility"`
	Version           string `yaml:"version"`
}

func (c *OutboundConfig) Validate() error {
	if c.SendingApp == "" {
		c.SendingApp = "PACSBRIDGE"
	}
	if c.SendingFacility == "" {
		c.SendingFacility = "RADIOLOGY"
	}
	if c.ReceivingApp == "" {
		c.ReceivingApp = "HIS"
	}
	if c.ReceivingFacility == "" {
		c.ReceivingFacility = "HOSPITAL"
	}
	if c.Version == "" {
		c.Version = "2.5"
	}
	return nil
}

// MLLPConfig configures the inbound MLLP listener.
type MLLPConfig struct {
	// ListenAddress is "host:port" for the accept loop.
	ListenAddress string `yaml:"listen_address"`

	// IdleTimeout bounds how long a session waits for the next frame.
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownGrace bounds how long Shutdown waits for sessions to drain.
	ShutdownGrace time.Duration `yaml:"shutdown_grace"`

	// MaxPayloadSize caps a single framed HL7 message, in bytes.
	MaxPayloadSize int `yaml:"max_payload_size"`

	// TLSEnabled selects a TLS transport instead of plain TCP. This
	// config carries no certificate or key settings.
	TLSEnabled bool `yaml:"tls_enabled"`
}

func (c *MLLPConfig) Validate() error {
	if c.ListenAddress == "" {
		c.ListenAddress = "0.0.0.0:2575"
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 60 * time.Second
	}
	if c.ShutdownGrace <= 0 {
		c.ShutdownGrace = 10 * time.Second
	}
	if c.MaxPayloadSize <= 0 {
		c.MaxPayloadSize = 1 << 20
	}
	return nil
}

// QueueConfig configures the durable outbound queue and its worker pool.
type QueueConfig struct {
	// DriverPath is the modernc.org/sqlite DSN path for the queue's own
	// database, distinct from the MWL/MPPS SQL backends.
	DriverPath string `yaml:"driver_path"`

	Workers      int           `yaml:"workers"`
	PollInterval time.Duration `yaml:"poll_interval"`
	ReapInterval time.Duration `yaml:"reap_interval"`
	ReapAfter    time.Duration `yaml:"reap_after"`

	BackoffBase        time.Duration `yaml:"backoff_base"`
	BackoffMultiplier  float64       `yaml:"backoff_multiplier"`
	BackoffCap         time.Duration `yaml:"backoff_cap"`
	BackoffJitterMax   time.Duration `yaml:"backoff_jitter_max"`
	BackoffMaxAttempts int           `yaml:"backoff_max_attempts"`
}

func (c *QueueConfig) Validate() error {
	if c.DriverPath == "" {
		c.DriverPath = "queue.db"
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.Workers > 8 {
		return fmt.Errorf("workers %d exceeds the recommended 4-8 range; raise the ceiling deliberately if this is intended", c.Workers)
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 200 * time.Millisecond
	}
	if c.ReapInterval <= 0 {
		c.ReapInterval = 30 * time.Second
	}
	if c.ReapAfter <= 0 {
		c.ReapAfter = 2 * time.Minute
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 100 * time.Millisecond
	}
	if c.BackoffMultiplier <= 0 {
		c.BackoffMultiplier = 2
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = 30 * time.Second
	}
	if c.BackoffJitterMax <= 0 {
		c.BackoffJitterMax = c.BackoffBase
	}
	if c.BackoffMaxAttempts <= 0 {
		c.BackoffMaxAttempts = 5
	}
	return nil
}

// RoutingConfig configures the destination table and routing rule loader.
type RoutingConfig struct {
	// DestinationsPath is a single YAML file defining destinations,
	// failover groups, and routing rules (see destinations.go).
	DestinationsPath string `yaml:"destinations_path"`

	// WatchForChanges enables fsnotify-backed hot-reload of DestinationsPath.
	WatchForChanges bool `yaml:"watch_for_changes"`

	DegradedThreshold  int `yaml:"degraded_threshold"`
	UnhealthyThreshold int `yaml:"unhealthy_threshold"`

	ProbeInterval time.Duration `yaml:"probe_interval"`
}

func (c *RoutingConfig) Validate() error {
	if c.DestinationsPath == "" {
		return fmt.Errorf("destinations_path must be set")
	}
	if c.DegradedThreshold <= 0 {
		c.DegradedThreshold = 3
	}
	if c.UnhealthyThreshold <= 0 {
		c.UnhealthyThreshold = 5
	}
	if c.UnhealthyThreshold < c.DegradedThreshold {
		return fmt.Errorf("unhealthy_threshold %d must be >= degraded_threshold %d", c.UnhealthyThreshold, c.DegradedThreshold)
	}
	if c.ProbeInterval <= 0 {
		c.ProbeInterval = 30 * time.Second
	}
	return nil
}

// MWLConfig configures the DICOM Modality Worklist store.
type MWLConfig struct {
	// DriverPath is the mattn/go-sqlite3 DSN path for MWL storage,
	// distinct from the queue's pure-Go SQLite database.
	DriverPath string `yaml:"driver_path"`

	// RetentionAfterScheduledStart prunes entries whose scheduled start is
	// older than this, whatever their status.
	RetentionAfterScheduledStart time.Duration `yaml:"retention_after_scheduled_start"`

	// PrunerSchedule is a robfig/cron/v3 expression for the retention
	// pruner, e.g. "0 3 * * *" for daily at 03:00.
	PrunerSchedule string `yaml:"pruner_schedule"`
}

func (c *MWLConfig) Validate() error {
	if c.DriverPath == "" {
		c.DriverPath = "mwl.db"
	}
	if c.RetentionAfterScheduledStart <= 0 {
		c.RetentionAfterScheduledStart = 30 * 24 * time.Hour
	}
	if c.PrunerSchedule == "" {
		c.PrunerSchedule = "0 3 * * *"
	}
	return nil
}

// CacheConfig configures the patient demographics cache.
type CacheConfig struct {
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
}

func (c *CacheConfig) Validate() error {
	if c.TTL < 0 {
		return fmt.Errorf("ttl must not be negative")
	}
	if c.MaxEntries < 0 {
		return fmt.Errorf("max_entries must not be negative")
	}
	return nil
}

// OTLPConfig configures the OTLP gRPC span exporter.
type OTLPConfig struct {
	Insecure bool          `yaml:"insecure"`
	Timeout  time.Duration `yaml:"timeout"`
}

// TracingConfig configures distributed tracing across the MLLP inbound
// path, outbound sender, and queue worker pool.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`

	// ServiceName identifies this process in exported spans.
	ServiceName string `yaml:"service_name"`

	// Exporter selects the span exporter. Only "otlp" is implemented;
	// "jaeger" and "zipkin" are recognized names for which tracing.New
	// returns an error.
	Exporter string `yaml:"exporter"`

	// Endpoint is the exporter's collector address.
	Endpoint string `yaml:"endpoint"`

	// Sampler selects the sampling strategy: "always", "never", or "ratio".
	Sampler     string  `yaml:"sampler"`
	SampleRatio float64 `yaml:"sample_ratio"`

	OTLP OTLPConfig `yaml:"otlp"`
}

func (c *TracingConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.ServiceName == "" {
		c.ServiceName = "pacsbridge"
	}
	if c.Exporter == "" {
		c.Exporter = "otlp"
	}
	if c.Sampler == "" {
		c.Sampler = "ratio"
	}
	if c.Sampler == "ratio" && (c.SampleRatio < 0 || c.SampleRatio > 1) {
		return fmt.Errorf("sample_ratio must be between 0.0 and 1.0, got %f", c.SampleRatio)
	}
	if c.OTLP.Timeout <= 0 {
		c.OTLP.Timeout = 10 * time.Second
	}
	return nil
}
