package domain

// SourceLocation tells the normalizer where the source bytes live.
type SourceLocation string

const (
	SourceLocal  SourceLocation = "local"
	SourceRemote SourceLocation = "remote"
)

// SourceAsset identifies one user photo handed to the enhancement pipeline.
// Identity is a stable content hash (or URI for remote sources) and never
// changes once the asset exists.
type SourceAsset struct {
	Identity string
	Width    int
	Height   int
	Location SourceLocation
	// URI is a filesystem path for local sources and an http(s) URL for
	// remote ones.
	URI string
}

// Remote reports whether the source bytes must be fetched before use.
func (s SourceAsset) Remote() bool {
	return s.Location == SourceRemote
}
