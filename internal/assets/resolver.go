package assets

import (
	"errors"
)

// AssetResolver tries a custom directory first and falls back to the
// embedded scaffold for assets the directory does not provide.
type AssetResolver struct {
	custom   AssetLoader // nil if no custom path configured
	embedded AssetLoader
}

// NewAssetResolver creates an AssetResolver.
// If customBasePath is empty, only embedded assets are used.
// Returns error if customBasePath is set but invalid.
func NewAssetResolver(customBasePath string) (*AssetResolver, error) {
	resolver := &AssetResolver{
		embedded: NewEmbeddedLoader(),
	}

	if customBasePath != "" {
		fsLoader, err := NewFilesystemLoader(customBasePath)
		if err != nil {
			return nil, err
		}
		resolver.custom = fsLoader
	}

	return resolver, nil
}

// Load loads an asset, trying the custom loader first if available.
// Only not-found errors fall back; validation and I/O errors are returned.
func (r *AssetResolver) Load(name string) ([]byte, error) {
	if r.custom == nil {
		return r.embedded.Load(name)
	}

	content, err := r.custom.Load(name)
	if err == nil {
		return content, nil
	}
	if !errors.Is(err, ErrAssetNotFound) {
		return nil, err
	}
	return r.embedded.Load(name)
}

// HasCustomLoader returns true if a custom asset loader is configured.
func (r *AssetResolver) HasCustomLoader() bool {
	return r.custom != nil
}

// Compile-time interface check.
var _ AssetLoader = (*AssetResolver)(nil)
