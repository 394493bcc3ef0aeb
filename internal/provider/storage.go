package provider

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Files lists every object under prefix.
func (c *Cloud) Files(ctx context.Context, prefix string) ([]FileRef, error) {
	storage, err := c.storageAPI(ctx)
	if err != nil {
		return nil, err
	}

	files, err := storage.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}
	return files, nil
}

// File returns the named object, or nil if it does not exist.
func (c *Cloud) File(ctx context.Context, name string) (*FileRef, error) {
	storage, err := c.storageAPI(ctx)
	if err != nil {
		return nil, err
	}

	ref, err := storage.Head(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s: %w", name, err)
	}
	return ref, nil
}

// DeleteFile removes the named object and everything stored below it.
func (c *Cloud) DeleteFile(ctx context.Context, name string) error {
	storage, err := c.storageAPI(ctx)
	if err != nil {
		return err
	}

	name = strings.TrimSuffix(name, "/")
	if err := storage.Delete(ctx, name); err != nil {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	if err := storage.DeletePrefix(ctx, name+"/"); err != nil {
		return fmt.Errorf("failed to delete objects below %s: %w", name, err)
	}

	c.log.V(1).Info("deleted objects", "path", name)
	return nil
}

// CreateDir creates a folder marker at path and returns its key. Creating
// a folder that already exists is not an error.
func (c *Cloud) CreateDir(ctx context.Context, path string) (string, error) {
	storage, err := c.storageAPI(ctx)
	if err != nil {
		return "", err
	}

	key := strings.TrimSuffix(path, "/") + "/"

	existing, err := storage.Head(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to look up %s: %w", key, err)
	}
	if existing != nil {
		return key, nil
	}

	if err := storage.Put(ctx, key, nil); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", key, err)
	}
	return key, nil
}

// UploadURL returns a presigned write URL for name.
func (c *Cloud) UploadURL(ctx context.Context, name string) (*SignedURL, error) {
	storage, err := c.storageAPI(ctx)
	if err != nil {
		return nil, err
	}

	url, err := storage.PresignPut(ctx, name, c.cfg.UploadExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to sign upload of %s: %w", name, err)
	}
	return url, nil
}

// SignedURL returns a presigned read URL for name. A non-positive expiry
// selects the configured report expiry.
func (c *Cloud) SignedURL(ctx context.Context, name string, expires time.Duration) (*SignedURL, error) {
	storage, err := c.storageAPI(ctx)
	if err != nil {
		return nil, err
	}

	if expires <= 0 {
		expires = c.cfg.ReportExpiry
	}

	url, err := storage.PresignGet(ctx, name, expires)
	if err != nil {
		return nil, fmt.Errorf("failed to sign download of %s: %w", name, err)
	}
	return url, nil
}
