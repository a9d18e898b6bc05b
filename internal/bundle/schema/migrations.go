package schema

// MigrationFunc upgrades a raw manifest (decoded as a generic JSON tree)
// from one schema version to the shape the current version expects.
type MigrationFunc func(map[string]any) map[string]any

// VersionMigrations maps a manifest's declared version to the function
// that brings it forward to BundleVersion. "1.0.0" is the only version
// this build knows about, so its migration is the identity function; a
// future schema bump adds an entry here rather than replacing this one.
var VersionMigrations = map[string]MigrationFunc{
	"1.0.0": func(b map[string]any) map[string]any { return b },
	"1.0":   func(b map[string]any) map[string]any { return b },
}
