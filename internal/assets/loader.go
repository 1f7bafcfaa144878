package assets

// AssetLoader loads a scaffold file by name, e.g. "certificate.tex".
type AssetLoader interface {
	// Load returns ErrAssetNotFound if the asset doesn't exist and
	// ErrInvalidAssetName if the name is unsafe.
	Load(name string) ([]byte, error)
}
