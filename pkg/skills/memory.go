package skills

import "context"

// MemoryDirectory serves a fixed Record. Used in tests and when no skills
// database is configured but a static record is supplied.
type MemoryDirectory struct {
	record *Record
}

// NewMemoryDirectory creates a directory serving the given record.
func NewMemoryDirectory(record *Record) *MemoryDirectory {
	return &MemoryDirectory{record: record}
}

func (d *MemoryDirectory) Lookup(ctx context.Context) (*Record, error) {
	return d.record, nil
}

func (d *MemoryDirectory) Close() error {
	return nil
}
