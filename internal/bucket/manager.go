package bucket

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/simrun/internal/provider"
	"github.com/imamik/simrun/internal/util/naming"
)

// DefaultReportExpiry is how long a report URL stays valid.
const DefaultReportExpiry = 24 * time.Hour

// Target identifies whose results a call refers to.
type Target struct {
	UserID    string
	ProjectID string
}

// Manager issues result storage paths and URLs.
type Manager struct {
	provider     provider.Provider
	reportExpiry time.Duration
	uploadName   string
	log          logr.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithReportExpiry sets how long report URLs stay valid.
func WithReportExpiry(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.reportExpiry = d
		}
	}
}

// WithUploadName sets the object name uploads use when none is given.
func WithUploadName(name string) Option {
	return func(m *Manager) {
		if name != "" {
			m.uploadName = name
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logr.Logger) Option {
	return func(m *Manager) {
		m.log = log
	}
}

// New returns a Manager on top of p.
func New(p provider.Provider, opts ...Option) *Manager {
	m := &Manager{
		provider:     p,
		reportExpiry: DefaultReportExpiry,
		uploadName:   provider.DefaultUploadName,
		log:          logr.Discard(),
	}
	if named, ok := p.(interface{ UploadName() string }); ok && named.UploadName() != "" {
		m.uploadName = named.UploadName()
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Path returns the result folder of t.
func (m *Manager) Path(t Target) string {
	return naming.ResultPath(m.provider.ResultPath(), t.UserID, t.ProjectID)
}

// UploadURL makes sure the result folder exists and returns a presigned
// write URL for name inside it. An empty name selects the default upload
// object.
func (m *Manager) UploadURL(ctx context.Context, t Target, name string) (*provider.SignedURL, error) {
	dir, err := m.provider.CreateDir(ctx, m.Path(t))
	if err != nil {
		return nil, fmt.Errorf("failed to create result folder: %w", err)
	}

	if name == "" {
		name = m.uploadName
	}

	url, err := m.provider.UploadURL(ctx, dir+name)
	if err != nil {
		return nil, err
	}
	m.log.V(1).Info("issued upload url", "key", dir+name, "expires", url.ExpiresAt)
	return url, nil
}

// Results lists every object in the result folder of t.
func (m *Manager) Results(ctx context.Context, t Target) ([]provider.FileRef, error) {
	return m.provider.Files(ctx, m.Path(t)+"/")
}

// Find returns the object called name in the result folder, or nil.
func (m *Manager) Find(ctx context.Context, t Target, name string) (*provider.FileRef, error) {
	return m.provider.File(ctx, m.Path(t)+"/"+name)
}

// ReportURL returns a presigned read URL for the report of t, or nil if
// no report was uploaded yet.
func (m *Manager) ReportURL(ctx context.Context, t Target) (*provider.SignedURL, error) {
	report, err := m.Find(ctx, t, m.provider.ReportName())
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, nil
	}
	return m.provider.SignedURL(ctx, report.Key, m.reportExpiry)
}

// DeleteReport removes the result folder of t and everything in it.
func (m *Manager) DeleteReport(ctx context.Context, t Target) error {
	path := m.Path(t)
	if err := m.provider.DeleteFile(ctx, path); err != nil {
		return err
	}
	m.log.Info("deleted results", "path", path)
	return nil
}

// FindReportFor returns the report URL of t using a default Manager.
func FindReportFor(ctx context.Context, p provider.Provider, t Target) (*provider.SignedURL, error) {
	return New(p).ReportURL(ctx, t)
}
