// Package bundled serves ui:// resources for extensions shipped with the
// host. Bundled extensions live under a directory tree described by an
// extensions.yaml (or extensions.toml) manifest; their UI resources resolve
// to local HTML files, so no backend round trip is needed.
package bundled
