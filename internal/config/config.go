package config

import "time"

// Config is the top-level simrun configuration.
type Config struct {
	Provider ProviderConfig `yaml:"provider"`
	Machine  MachineConfig  `yaml:"machine"`
	Store    StoreConfig    `yaml:"store"`
	NATS     NATSConfig     `yaml:"nats"`
	Tasks    TasksConfig    `yaml:"tasks"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
}

// ProviderConfig configures the cloud provider.
type ProviderConfig struct {
	// Project scopes every resource simrun creates. Hetzner API tokens are
	// bound to a single project; the value is also written to resource labels.
	Project string        `yaml:"project"`
	Token   string        `yaml:"token"`
	Storage StorageConfig `yaml:"storage"`
}

// StorageConfig configures S3-compatible object storage for results.
type StorageConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`

	ResultPath   string        `yaml:"result_path"`
	ReportName   string        `yaml:"report_name"`
	UploadName   string        `yaml:"upload_name"`
	ReportExpiry time.Duration `yaml:"report_expiry"`
	UploadExpiry time.Duration `yaml:"upload_expiry"`
}

// MachineConfig is the default machine configuration for new jobs.
type MachineConfig struct {
	Name        string `yaml:"name"`
	NamePrefix  string `yaml:"name_prefix"`
	Image       string `yaml:"image"`
	DiskSize    int    `yaml:"disk_size"`
	Zone        string `yaml:"zone"`
	Network     string `yaml:"network"`
	Type        string `yaml:"type"`
	StartupPath string `yaml:"startup_path"`
}

// StoreConfig configures the job store.
type StoreConfig struct {
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
}

// NATSConfig configures the broadcast and mail transport.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// TasksConfig configures the background task queue.
type TasksConfig struct {
	Workers     int `yaml:"workers"`
	QueueSize   int `yaml:"queue_size"`
	MaxAttempts int `yaml:"max_attempts"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default values applied by SetDefaults.
const (
	DefaultRegion       = "eu-central"
	DefaultResultPath   = "results"
	DefaultReportName   = "report.pdf"
	DefaultUploadName   = "results.tar.gz"
	DefaultReportExpiry = 24 * time.Hour
	DefaultUploadExpiry = 12 * time.Hour

	DefaultMachineName = "default"
	DefaultNamePrefix  = "sim"
	DefaultImage       = "ubuntu-24.04"
	DefaultDiskSize    = 50
	DefaultZone        = "nbg1"
	DefaultType        = "cpx31"
	DefaultStartupPath = "/etc/simrun/startup.sh"

	DefaultStorePath   = "./data/simrun"
	DefaultNATSURL     = "nats://127.0.0.1:4222"
	DefaultWorkers     = 4
	DefaultQueueSize   = 256
	DefaultMaxAttempts = 5
	DefaultMetricsAddr = ":9090"
	DefaultLogLevel    = "info"
)

// SetDefaults fills every unset field with its default.
func (c *Config) SetDefaults() {
	s := &c.Provider.Storage
	setString(&s.Region, DefaultRegion)
	setString(&s.ResultPath, DefaultResultPath)
	setString(&s.ReportName, DefaultReportName)
	setString(&s.UploadName, DefaultUploadName)
	if s.ReportExpiry == 0 {
		s.ReportExpiry = DefaultReportExpiry
	}
	if s.UploadExpiry == 0 {
		s.UploadExpiry = DefaultUploadExpiry
	}

	m := &c.Machine
	setString(&m.Name, DefaultMachineName)
	setString(&m.NamePrefix, DefaultNamePrefix)
	setString(&m.Image, DefaultImage)
	setString(&m.Zone, DefaultZone)
	setString(&m.Type, DefaultType)
	setString(&m.StartupPath, DefaultStartupPath)
	if m.DiskSize == 0 {
		m.DiskSize = DefaultDiskSize
	}

	setString(&c.Store.Path, DefaultStorePath)
	setString(&c.NATS.URL, DefaultNATSURL)
	if c.Tasks.Workers == 0 {
		c.Tasks.Workers = DefaultWorkers
	}
	if c.Tasks.QueueSize == 0 {
		c.Tasks.QueueSize = DefaultQueueSize
	}
	if c.Tasks.MaxAttempts == 0 {
		c.Tasks.MaxAttempts = DefaultMaxAttempts
	}
	setString(&c.Metrics.Addr, DefaultMetricsAddr)
	setString(&c.Log.Level, DefaultLogLevel)
}

func setString(field *string, def string) {
	if *field == "" {
		*field = def
	}
}
