package provider

import "time"

// InstanceStatus is the provider reported state of an instance.
type InstanceStatus string

// Instance statuses.
const (
	InstanceStarting InstanceStatus = "starting"
	InstanceRunning  InstanceStatus = "running"
	InstanceStopping InstanceStatus = "stopping"
	InstanceOff      InstanceStatus = "off"
	InstanceUnknown  InstanceStatus = "unknown"
)

// Instance is a compute instance at the provider.
type Instance struct {
	ID        string
	Name      string
	Zone      string
	Type      string
	Image     string
	Status    InstanceStatus
	PublicIP  string
	Labels    map[string]string
	DiskIDs   []string
	CreatedAt time.Time
}

// Disk is a block device at the provider.
type Disk struct {
	ID     string
	Name   string
	Size   int
	Zone   string
	Status string
	Labels map[string]string
}

// Image is a bootable image.
type Image struct {
	ID           string
	Name         string
	Description  string
	OSFlavor     string
	Architecture string
}

// Zone is a location instances can be placed in.
type Zone struct {
	ID          string
	Name        string
	Description string
	Country     string
	City        string
	NetworkZone string
}

// Network is a private network instances can be attached to.
type Network struct {
	ID      string
	Name    string
	IPRange string
}

// MachineType is an instance size.
type MachineType struct {
	ID           string
	Name         string
	Description  string
	Cores        int
	MemoryGB     float32
	DiskGB       int
	Architecture string
	PriceMonthly string
}

// FileRef describes an object in storage.
type FileRef struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}

// SignedURL is a time limited URL granting access to a single object.
type SignedURL struct {
	URL       string
	Method    string
	ExpiresAt time.Time
}

// Spec is a provisioning request for one instance and its disk.
type Spec struct {
	Name     string
	Image    string
	DiskSize int
	Zone     string
	Network  string
	Type     string
	Labels   map[string]string
	UserData string

	// AutoDelete binds the disk lifetime to the instance once the instance
	// is running.
	AutoDelete bool
}

// DiskSpec is the backend request for a new disk.
type DiskSpec struct {
	Name   string
	Size   int
	Zone   *Zone
	Image  *Image
	Labels map[string]string
}

// InstanceSpec is the backend request for a new instance.
type InstanceSpec struct {
	Name     string
	Type     string
	Zone     *Zone
	Network  *Network
	Image    *Image
	DiskIDs  []string
	Labels   map[string]string
	UserData string
}
