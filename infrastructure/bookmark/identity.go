package bookmark

// fileIdentity distinguishes one file from another that later takes its path.
type fileIdentity struct {
	device uint64
	inode  uint64
	dir    bool
}

func (f fileIdentity) sameFile(other fileIdentity) bool {
	return f == other
}
