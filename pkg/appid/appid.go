// Package appid extracts Steam app IDs from store links in text.
package appid

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
)

var appPattern = regexp.MustCompile(`/app/(\d+)/`)

// Extract returns every app ID found in r, in source order. Each line may hold
// any number of matches; duplicates are kept.
func Extract(r io.Reader) ([]string, error) {
	var ids []string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		for _, m := range appPattern.FindAllStringSubmatch(scanner.Text(), -1) {
			ids = append(ids, m[1])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan app ids: %w", err)
	}

	return ids, nil
}

// ReadFile extracts app IDs from the file at path.
func ReadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open app id source: %w", err)
	}
	defer f.Close()

	return Extract(f)
}
