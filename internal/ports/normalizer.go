package ports

// Normalizer defines the interface for source text normalization.
type Normalizer interface {
	Normalize(text string) string
}
