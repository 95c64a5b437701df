package domain

import "go.trai.ch/zerr"

var (
	// ErrTaskAlreadyExists is returned when attempting to add a task with a name that already exists.
	ErrTaskAlreadyExists = zerr.New("task already exists")

	// ErrMissingDependency is returned when a task references a dependency that doesn't exist in the graph.
	ErrMissingDependency = zerr.New("missing dependency")

	// ErrCycleDetected is returned when a cycle is detected in the task dependency graph.
	ErrCycleDetected = zerr.New("cycle detected")

	// ErrGraphNotValidated is returned when a graph is run before Validate succeeded.
	ErrGraphNotValidated = zerr.New("task graph not validated")

	// ErrTaskNotFound is returned when a requested task is not found in the graph.
	ErrTaskNotFound = zerr.New("task not found")

	// ErrInvalidTaskName is returned when a task is registered with an empty name.
	ErrInvalidTaskName = zerr.New("invalid task name")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrInvalidConfig is returned when a configuration value is out of range or malformed.
	ErrInvalidConfig = zerr.New("invalid configuration")

	// ErrInvalidGlob is returned when a source or watch pattern is not a valid glob.
	ErrInvalidGlob = zerr.New("invalid glob pattern")

	// ErrBuildExecutionFailed is returned when the build execution fails.
	ErrBuildExecutionFailed = zerr.New("build execution failed")

	// ErrTaskExecutionFailed is returned when a task execution fails.
	ErrTaskExecutionFailed = zerr.New("task execution failed")

	// ErrInputResolutionFailed is returned when source patterns cannot be expanded.
	ErrInputResolutionFailed = zerr.New("failed to resolve inputs")

	// ErrFileReadFailed is returned when a source file cannot be read.
	ErrFileReadFailed = zerr.New("failed to read file")

	// ErrFileWriteFailed is returned when an output file cannot be written.
	ErrFileWriteFailed = zerr.New("failed to write file")

	// ErrFileHashFailed is returned when hashing a file fails.
	ErrFileHashFailed = zerr.New("failed to hash file content")

	// ErrCleanFailed is returned when an output directory cannot be removed.
	ErrCleanFailed = zerr.New("failed to remove directory")

	// ErrCompileFailed is returned when an external compiler rejects a source file.
	ErrCompileFailed = zerr.New("compilation failed")

	// ErrLintFailed is returned when the linter reports problems.
	ErrLintFailed = zerr.New("lint failed")

	// ErrMinifyFailed is returned when a script or stylesheet cannot be minified.
	ErrMinifyFailed = zerr.New("minification failed")

	// ErrAssetNotFound is returned when a build block references a file that exists in no search root.
	ErrAssetNotFound = zerr.New("referenced asset not found")

	// ErrInvalidBuildBlock is returned when a build block names an unknown type or no output path.
	ErrInvalidBuildBlock = zerr.New("invalid build block")

	// ErrUnterminatedBlock is returned when a build block or directive has no closing marker.
	ErrUnterminatedBlock = zerr.New("unterminated block")

	// ErrManifestParseFailed is returned when a bower manifest cannot be decoded.
	ErrManifestParseFailed = zerr.New("failed to parse package manifest")

	// ErrPortInUse is returned when the server port is already bound.
	ErrPortInUse = zerr.New("port already in use")

	// ErrListenFailed is returned when a listener cannot be created for other reasons.
	ErrListenFailed = zerr.New("failed to listen")

	// ErrServerFailed is returned when a running server stops unexpectedly.
	ErrServerFailed = zerr.New("server stopped unexpectedly")

	// ErrWatchFailed is returned when the file watcher cannot be started.
	ErrWatchFailed = zerr.New("failed to start file watcher")
)
