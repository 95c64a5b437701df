package domain

const (
	// ConfigFileName is the optional project configuration file.
	ConfigFileName = "brisk.yaml"

	// BowerManifest is the project manifest listing front-end dependencies.
	BowerManifest = "bower.json"

	// BowerInstalledManifest is the manifest bower writes into each installed package.
	BowerInstalledManifest = ".bower.json"

	// ProductionEnv is the NODE_ENV value used when preprocessing HTML for dist.
	ProductionEnv = "production"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644
)
