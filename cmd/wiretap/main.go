// wiretap captures the raw event stream of a modem daemon to a file,
// for replay in parser and session tests. The sanitize mode scrubs
// captured numbers and identifiers so captures can be committed.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

func main() {
	host := flag.String("host", "127.0.0.1", "Modem daemon host")
	port := flag.Int("port", 6701, "Modem daemon port")
	outDir := flag.String("outdir", "testdata/captures", "Output directory for captures")
	sanitize := flag.String("sanitize", "", "Sanitize a capture file in-place (keeps .bak)")
	flag.Parse()

	if *sanitize != "" {
		if err := sanitizeFile(*sanitize); err != nil {
			fmt.Fprintf(os.Stderr, "sanitize error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("sanitized:", *sanitize)
		return
	}

	if err := capture(*host, *port, *outDir); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func capture(host string, port int, outDir string) error {
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	fmt.Printf("connecting to %s...\n", addr)

	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	filename := filepath.Join(outDir, time.Now().Format("20060102-150405")+".raw")
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	defer f.Close()

	fmt.Printf("writing to %s\n", filename)

	// The daemon greets with a banner line before the first block.
	reader := bufio.NewReader(conn)
	banner, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("reading banner: %w", err)
	}
	f.WriteString(banner)
	fmt.Printf("banner: %s", banner)

	fmt.Println("streaming events (ctrl+c to stop)...")
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := scanner.Text()
		f.WriteString(line + "\n")
	}

	return scanner.Err()
}

var (
	phonePattern = regexp.MustCompile(`\b\+?\d{7,15}\b`)
	imsiPattern  = regexp.MustCompile(`(?i)(IMSI:\s*).+`)
	imeiPattern  = regexp.MustCompile(`(?i)(IMEI:\s*).+`)
)

// numberFields are headers whose values identify a caller.
var numberFields = []string{"Number", "Name", "Digits"}

func sanitizeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	bakPath := path + ".bak"
	if err := os.WriteFile(bakPath, data, 0o644); err != nil {
		return fmt.Errorf("creating backup: %w", err)
	}

	lines := strings.Split(string(data), "\n")
	for i, line := range lines {
		line = imsiPattern.ReplaceAllString(line, "${1}REDACTED")
		line = imeiPattern.ReplaceAllString(line, "${1}REDACTED")

		for _, field := range numberFields {
			if strings.HasPrefix(line, field+":") {
				line = phonePattern.ReplaceAllString(line, "15550001234")
				break
			}
		}

		lines[i] = line
	}

	return os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644)
}
