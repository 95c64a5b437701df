package ports

// InputResolver expands source globs.
//
//go:generate mockgen -destination=mocks/mock_resolver.go -package=mocks -source=resolver.go
type InputResolver interface {
	// ResolveInputs expands patterns relative to root and returns the matching
	// regular files as sorted, slash-separated paths relative to root.
	// Patterns prefixed with "!" exclude matches. Dotfiles match only when includeDot is set.
	ResolveInputs(patterns []string, root string, includeDot bool) ([]string, error)
}
