// Package assets provides the starter files written by "certgen init".
//
// # Loader Architecture
//
//	AssetLoader (interface)
//	    │
//	    ├── EmbeddedLoader    - loads from go:embed filesystem (built-in scaffold)
//	    ├── FilesystemLoader  - loads from custom directory on disk
//	    └── AssetResolver     - combines both with custom-first fallback
//
// The embedded scaffold holds the certificate-generator.sty preview stub, a
// sample template, a sample batch description and a configuration file.
// A custom directory may override any of them by file name.
//
// # Security
//
// Asset names are validated to prevent path traversal.
// FilesystemLoader resolves symlinks and verifies paths stay within basePath.
package assets
