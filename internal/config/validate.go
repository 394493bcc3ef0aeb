package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for errors that make simrun unusable
// regardless of which provider concern is used.
func (c *Config) Validate() error {
	var errs []error

	if c.Machine.Image == "" {
		errs = append(errs, errors.New("machine.image is required"))
	}
	if c.Machine.Type == "" {
		errs = append(errs, errors.New("machine.type is required"))
	}
	if c.Machine.Zone == "" {
		errs = append(errs, errors.New("machine.zone is required"))
	}
	if c.Machine.DiskSize < 10 {
		errs = append(errs, fmt.Errorf("machine.disk_size must be at least 10 GB, got %d", c.Machine.DiskSize))
	}
	if c.Tasks.Workers < 1 {
		errs = append(errs, fmt.Errorf("tasks.workers must be positive, got %d", c.Tasks.Workers))
	}
	if c.Tasks.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("tasks.max_attempts must be positive, got %d", c.Tasks.MaxAttempts))
	}
	if strings.Contains(c.Provider.Storage.ReportName, "/") {
		errs = append(errs, fmt.Errorf("provider.storage.report_name must be a plain object name, got %q", c.Provider.Storage.ReportName))
	}
	if c.Provider.Storage.ReportExpiry < 0 || c.Provider.Storage.UploadExpiry < 0 {
		errs = append(errs, errors.New("provider.storage expiries must not be negative"))
	}

	return errors.Join(errs...)
}
