package service

import (
	"strings"

	"github.com/loomnote/loomnote/internal/domain"
)

// ChunkConfig controls how document text is split for embedding.
type ChunkConfig struct {
	// ChunkSize is the maximum chunk length in runes.
	ChunkSize int
	// Overlap is how many runes consecutive chunks share.
	Overlap int
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		ChunkSize: 1000,
		Overlap:   200,
	}
}

// chunkSeparators is the split priority: paragraph break, line break, word
// boundary, and finally a hard character cut.
var chunkSeparators = []string{"\n\n", "\n", " "}

// SplitText splits text into overlapping windows of at most cfg.ChunkSize
// runes, preferring to cut on the highest-priority separator found near the
// window end. The function is deterministic and side-effect free: the same
// input always yields the same sequence.
func SplitText(text string, cfg ChunkConfig) ([]string, error) {
	if cfg.ChunkSize <= 0 || cfg.Overlap < 0 || cfg.Overlap >= cfg.ChunkSize {
		return nil, domain.ErrInvalidChunkConfig
	}

	clean := strings.TrimSpace(text)
	if clean == "" {
		return nil, domain.ErrEmptyDocument
	}

	runes := []rune(clean)
	if len(runes) <= cfg.ChunkSize {
		return []string{clean}, nil
	}

	chunks := make([]string, 0, len(runes)/cfg.ChunkSize+1)
	start := 0
	for start < len(runes) {
		end := start + cfg.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}

		if end < len(runes) {
			if cut := findCut(runes, start, end); cut > start {
				end = cut
			}
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end >= len(runes) {
			break
		}

		next := end - cfg.Overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks, nil
}

// findCut scans backwards from end for the best separator to cut on. The
// separator priority is tried in order; the first kind with any occurrence
// in the window wins, at its last occurrence.
func findCut(runes []rune, start, end int) int {
	window := string(runes[start:end])
	for _, sep := range chunkSeparators {
		if idx := strings.LastIndex(window, sep); idx > 0 {
			return start + len([]rune(window[:idx])) + len([]rune(sep))
		}
	}
	return end
}

// estimateTokens approximates the token count of a chunk. The platform does
// not tokenize locally; whitespace-delimited words are close enough for the
// stored statistics.
func estimateTokens(text string) int {
	return len(strings.Fields(text))
}
