package domain

// ValueBucket lists the hashes of the non destroyed notes of an
// (asset, owner) pair that share the same value, oldest first.
type ValueBucket struct {
	Value  uint64
	Hashes []string
}
