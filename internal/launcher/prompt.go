package launcher

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// promptACMEDomain asks the operator for the certificate domain on the
// first web-enabled launch.
func promptACMEDomain(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Domain for the web server's TLS certificate (e.g. juno.example.com): ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read domain: %w", err)
	}
	return strings.TrimSpace(line), nil
}
