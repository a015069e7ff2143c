package export

import (
	"fmt"
	"os"
	"strings"
)

// WriteFailedList writes one source ID per line. An empty failed set
// still produces the file so callers can rely on its presence.
func (w *Writer) WriteFailedList(path string, failed []string) error {
	const op = "WriteFailedList"

	var b strings.Builder
	for _, sourceID := range failed {
		b.WriteString(sourceID)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("%s: failed to write failed list: %w", op, err)
	}

	w.log.Info().Str("path", path).Int("failed", len(failed)).Msg("Failed list written")
	return nil
}
