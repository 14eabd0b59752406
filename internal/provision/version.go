package provision

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// versionPattern matches the VERSION constant the setup script declares,
// e.g. VERSION = "2025.10.12".
var versionPattern = regexp.MustCompile(`^VERSION\s*=\s*"([^"]+)"`)

// ScriptVersion extracts the version string a setup script declares.
func ScriptVersion(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if match := versionPattern.FindStringSubmatch(strings.TrimSpace(scanner.Text())); match != nil {
			return match[1], nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("no VERSION declaration in %s", path)
}

// ParseVersion splits a dot-delimited version like "2025.10.12" into integer
// parts. Integer parts make date-styled versions compare naturally with
// slices.Compare.
func ParseVersion(value string) ([]int, bool) {
	parts := strings.Split(strings.TrimSpace(value), ".")
	version := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, false
		}
		version = append(version, n)
	}
	return version, true
}
