package index

import (
	"bufio"
	"fmt"
	"io"
)

// WriteKeys writes every search key path to w, one per line, in discovery
// order.
func (ix *Index) WriteKeys(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, k := range ix.Keys() {
		if _, err := bw.WriteString(k.Path); err != nil {
			return fmt.Errorf("writing key: %w", err)
		}
		if err := bw.WriteByte('\n'); err != nil {
			return fmt.Errorf("writing key: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flushing keys: %w", err)
	}
	return nil
}
