package ports

// Hasher computes content digests.
//
//go:generate mockgen -destination=mocks/mock_hasher.go -package=mocks -source=hasher.go
type Hasher interface {
	// ComputeFileHash returns the digest of the file at path.
	ComputeFileHash(path string) (uint64, error)
}
