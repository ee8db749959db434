package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/xxh3"
)

// fingerprintFile computes a streaming xxh3 hash of the file at path and
// returns it hex-encoded. Identical task configurations against identical
// inputs produce byte-identical outputs, so the fingerprint doubles as a
// cheap idempotence check across runs.
func fingerprintFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := xxh3.New()
	if _, err := io.Copy(h, bufio.NewReaderSize(f, 1<<20)); err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}
