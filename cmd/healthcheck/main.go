// Command healthcheck probes a running stadatax API. It exits 0 when the
// health endpoint reports ok and 1 otherwise, for use as a container
// HEALTHCHECK where no shell or curl is available.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	gojson "github.com/goccy/go-json"
)

const defaultAddr = "127.0.0.1:8080"

type healthResponse struct {
	Status     string `json:"status"`
	Credential bool   `json:"credential_configured"`
}

func main() {
	requireCredential := flag.Bool("require-credential", false, "fail when no BPS token is configured")
	flag.Parse()

	os.Exit(check(normalizeAddr(os.Getenv("STADATAX_LISTEN_ADDR")), *requireCredential))
}

func check(addr string, requireCredential bool) int {
	client := &http.Client{Timeout: 2 * time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("http://%s/api/v1/health", addr), nil)
	if err != nil {
		return 1
	}

	resp, err := client.Do(req)
	if err != nil {
		return 1
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 1
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return 1
	}
	var health healthResponse
	if err := gojson.Unmarshal(body, &health); err != nil || health.Status != "ok" {
		return 1
	}
	if requireCredential && !health.Credential {
		return 1
	}

	return 0
}

// normalizeAddr ensures the healthcheck connects to loopback rather than the
// bind-all address.
func normalizeAddr(raw string) string {
	if raw == "" {
		return defaultAddr
	}

	host, port, err := net.SplitHostPort(raw)
	if err != nil {
		return defaultAddr
	}

	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}

	return net.JoinHostPort(host, port)
}
