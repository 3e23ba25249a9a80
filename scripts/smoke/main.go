package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

// Deployment smoke check: probes the liveness, readiness, metrics and docs
// endpoints of a running instance and exits non-zero when a required probe
// fails. Used by the deploy pipeline before traffic cutover.

type probe struct {
	Name     string
	Path     string
	Required bool
	Expect   int
}

type result struct {
	Probe    probe
	Status   int
	Duration time.Duration
	Err      error
}

func main() {
	var (
		base    string
		timeout time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	probes := []probe{
		{Name: "liveness", Path: "/health", Required: true, Expect: http.StatusOK},
		{Name: "readiness", Path: "/ready", Required: true, Expect: http.StatusOK},
		{Name: "metrics", Path: "/metrics", Required: true, Expect: http.StatusOK},
		{Name: "docs", Path: "/docs/index.html", Required: false, Expect: http.StatusOK},
	}

	client := &http.Client{Timeout: timeout}
	var failures int

	fmt.Println("Smoke Check Report")
	fmt.Println("==================")
	for _, p := range probes {
		res := run(client, base, p)
		state := "OK"
		if res.Err != nil || res.Status != p.Expect {
			if p.Required {
				state = "FAIL"
				failures++
			} else {
				state = "SKIP"
			}
		}
		fmt.Printf("[%s] %-10s GET %s\n", state, p.Name, p.Path)
		if res.Err != nil {
			fmt.Printf("  error: %v\n", res.Err)
			continue
		}
		fmt.Printf("  status: %d (want %d) in %s\n", res.Status, p.Expect, res.Duration)

		if p.Name == "readiness" && res.Status != http.StatusOK {
			log.Printf("readiness degraded; check database and redis connectivity")
		}
	}

	fmt.Printf("Failures: %d\n", failures)
	if failures > 0 {
		os.Exit(1)
	}
}

func run(client *http.Client, base string, p probe) result {
	res := result{Probe: p}
	url := strings.TrimRight(base, "/") + p.Path

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		res.Err = err
		return res
	}

	start := time.Now()
	resp, err := client.Do(req)
	res.Duration = time.Since(start)
	if err != nil {
		res.Err = err
		return res
	}
	defer resp.Body.Close()

	res.Status = resp.StatusCode
	if p.Name == "readiness" && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var parsed map[string]interface{}
		if json.Unmarshal(body, &parsed) == nil {
			res.Err = fmt.Errorf("readiness payload: %v", parsed)
		}
	}
	return res
}
