package sender

import (
	"fmt"
	"os"
)

// NextFreeName returns the first "<basename>_<n>.txt" (n = 1, 2, ...) not
// present in dir. The directory is listed on every call and nothing is
// created, so repeated calls against an unchanged directory agree.
func NextFreeName(basename, dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to list %s: %w", dir, err)
	}

	existing := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		existing[e.Name()] = struct{}{}
	}

	for n := 1; ; n++ {
		name := fmt.Sprintf("%s_%d.txt", basename, n)
		if _, taken := existing[name]; !taken {
			return name, nil
		}
	}
}
