package util

import "fmt"

// ValidateChunking reports whether a chunk size and overlap pair can make progress.
func ValidateChunking(chunkSize, overlap int) error {
	if chunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrConfiguration, chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return fmt.Errorf("%w: chunk overlap %d must be in [0, %d)", ErrConfiguration, overlap, chunkSize)
	}
	return nil
}

// ChunkText splits text into windows of chunkSize runes, each starting
// chunkSize-overlap runes after the previous one. Windows are returned
// untrimmed so that together they cover every rune of the input.
func ChunkText(text string, chunkSize, overlap int) ([]string, error) {
	if err := ValidateChunking(chunkSize, overlap); err != nil {
		return nil, err
	}
	runes := []rune(text)
	step := chunkSize - overlap
	out := make([]string, 0, len(runes)/step+1)
	for i := 0; i < len(runes); i += step {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[i:end]))
		if end == len(runes) {
			break
		}
	}
	return out, nil
}

// ChunkCount is the number of windows ChunkText produces for n runes.
func ChunkCount(n, chunkSize, overlap int) int {
	if n <= 0 {
		return 0
	}
	if n <= chunkSize {
		return 1
	}
	step := chunkSize - overlap
	return (n - overlap + step - 1) / step
}
