package labels

import (
	"sort"
	"strings"
)

// Label keys for cloud resources.
const (
	// KeyManagedBy identifies the management system.
	KeyManagedBy = "simrun.io/managed-by"

	// KeyRole identifies what a resource is used for.
	KeyRole = "simrun.io/role"

	// KeyJob identifies the simulation job a machine belongs to.
	KeyJob = "simrun.io/job"

	// KeyProject identifies the owning project.
	KeyProject = "simrun.io/project"

	// KeyInstance is set on disks and names the instance they were created for.
	KeyInstance = "simrun.io/instance"

	// KeyAutoDelete marks a disk for deletion together with its instance.
	KeyAutoDelete = "simrun.io/auto-delete"
)

// Well-known values.
const (
	ManagedBySimrun = "simrun"
	RoleSimulation  = "simulation"
	True            = "true"
)

// LabelBuilder provides a fluent interface for building resource labels.
type LabelBuilder struct {
	labels map[string]string
}

// NewLabelBuilder creates a builder with the managed-by and role labels set.
func NewLabelBuilder() *LabelBuilder {
	return &LabelBuilder{
		labels: map[string]string{
			KeyManagedBy: ManagedBySimrun,
			KeyRole:      RoleSimulation,
		},
	}
}

// WithJob adds the job label. Empty IDs are ignored.
func (lb *LabelBuilder) WithJob(jobID string) *LabelBuilder {
	if jobID != "" {
		lb.labels[KeyJob] = jobID
	}
	return lb
}

// WithProject adds the project label. Empty IDs are ignored.
func (lb *LabelBuilder) WithProject(projectID string) *LabelBuilder {
	if projectID != "" {
		lb.labels[KeyProject] = projectID
	}
	return lb
}

// WithInstance adds the owning instance label (used on disks).
func (lb *LabelBuilder) WithInstance(name string) *LabelBuilder {
	lb.labels[KeyInstance] = name
	return lb
}

// Merge adds all labels from the provided map.
func (lb *LabelBuilder) Merge(extra map[string]string) *LabelBuilder {
	for k, v := range extra {
		lb.labels[k] = v
	}
	return lb
}

// Build returns a copy of the labels map.
func (lb *LabelBuilder) Build() map[string]string {
	result := make(map[string]string, len(lb.labels))
	for k, v := range lb.labels {
		result[k] = v
	}
	return result
}

// Machine returns the labels shared by every simrun machine. Listing
// instances by these labels finds all machines the system manages.
func Machine() map[string]string {
	return NewLabelBuilder().Build()
}

// Merge returns a new map holding base overlaid with extra.
func Merge(base, extra map[string]string) map[string]string {
	result := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		result[k] = v
	}
	for k, v := range extra {
		result[k] = v
	}
	return result
}

// Selector renders labels as a comma-separated "k=v" selector, sorted by key.
func Selector(labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+labels[k])
	}
	return strings.Join(parts, ",")
}
