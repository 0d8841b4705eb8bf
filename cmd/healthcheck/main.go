// Command healthcheck probes a local coursetable server for container
// HEALTHCHECK instructions. It exits 1 when the probe fails.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/garyellow/coursetable/internal/config"
)

func main() {
	ready := flag.Bool("ready", false, "probe /readyz (database included) instead of /livez")
	timeout := flag.Duration("timeout", 8*time.Second, "probe timeout")
	flag.Parse()

	port := os.Getenv(config.EnvPort)
	if port == "" {
		port = "10000"
	}
	probe := "/livez"
	if *ready {
		probe = "/readyz"
	}

	if err := check(fmt.Sprintf("http://localhost:%s%s", port, probe), *timeout); err != nil {
		fmt.Fprintln(os.Stderr, "healthcheck:", err)
		os.Exit(1)
	}
}

func check(url string, timeout time.Duration) error {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned %d", url, resp.StatusCode)
	}
	return nil
}
