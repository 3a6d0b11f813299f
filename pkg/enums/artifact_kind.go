package enums

// ArtifactKind names a side-car text blob written by the external processing pipeline.
type ArtifactKind string

const (
	ArtifactKindError  ArtifactKind = "error"
	ArtifactKindResult ArtifactKind = "result"
)

// String returns the literal string for the kind.
func (a ArtifactKind) String() string {
	return string(a)
}

// FileName returns the object name the pipeline writes for this kind.
func (a ArtifactKind) FileName() string {
	return string(a) + ".txt"
}
