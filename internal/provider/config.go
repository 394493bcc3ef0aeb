package provider

import "time"

// Defaults applied by Config.withDefaults.
const (
	DefaultResultPath   = "results"
	DefaultReportName   = "report.pdf"
	DefaultUploadName   = "results.tar.gz"
	DefaultReportExpiry = 24 * time.Hour
	DefaultUploadExpiry = 12 * time.Hour
)

// Config holds the settings for both provider concerns.
type Config struct {
	// Connection
	Token   string
	Project string

	// Storage
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string

	ResultPath   string
	ReportName   string
	UploadName   string
	ReportExpiry time.Duration
	UploadExpiry time.Duration
}

// CheckConnection verifies the fields the compute concern needs.
func (c Config) CheckConnection() error {
	return requireFields("connection",
		field{"token", c.Token},
		field{"project", c.Project},
	)
}

// CheckStorage verifies the fields the storage concern needs.
func (c Config) CheckStorage() error {
	return requireFields("storage",
		field{"access_key", c.AccessKey},
		field{"secret_key", c.SecretKey},
		field{"endpoint", c.Endpoint},
		field{"bucket", c.Bucket},
	)
}

type field struct {
	name  string
	value string
}

func requireFields(concern string, fields ...field) error {
	var missing []string
	for _, f := range fields {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return &InitializeError{Provider: concern, Missing: missing}
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.ResultPath == "" {
		c.ResultPath = DefaultResultPath
	}
	if c.ReportName == "" {
		c.ReportName = DefaultReportName
	}
	if c.UploadName == "" {
		c.UploadName = DefaultUploadName
	}
	if c.ReportExpiry <= 0 {
		c.ReportExpiry = DefaultReportExpiry
	}
	if c.UploadExpiry <= 0 {
		c.UploadExpiry = DefaultUploadExpiry
	}
	return c
}
