package main

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

// webhookEvent mirrors the processor's event envelope
type webhookEvent struct {
	Type       string `json:"type"`
	TransferID string `json:"transferId"`
	Reason     string `json:"reason,omitempty"`
}

// requestResult contains metrics for a single request
type requestResult struct {
	Success      bool
	ResponseTime time.Duration
	StatusCode   int
	Error        error
}

// runStats aggregates results across all workers
type runStats struct {
	TotalRequests      int
	SuccessfulRequests int
	FailedRequests     int
	TotalTime          time.Duration
	MinResponseTime    time.Duration
	MaxResponseTime    time.Duration
	TotalResponseTime  time.Duration
	ResponseTimes      []time.Duration
	ErrorCounts        map[string]int
	ScenarioStats      map[string]int
	Lock               sync.Mutex
}

// scenario is one request shape the generator can pick
type scenario struct {
	Name string
	// Kind is "balance" for a read or "webhook" for a signed event post
	Kind      string
	EventType string
}

func main() {
	concurrency := flag.Int("c", 5, "Number of concurrent goroutines")
	totalRequests := flag.Int("n", 100, "Total number of requests to make")
	userIDsStr := flag.String("u", "1,2,3", "Comma-separated list of user IDs to read balances for")
	baseURL := flag.String("url", "http://localhost:8080", "Base URL for the API")
	webhookSecret := flag.String("secret", "", "Webhook secret; empty skips webhook scenarios")
	delayMs := flag.Int("delay", 100, "Delay between requests in milliseconds")
	flag.Parse()

	var userIDs []int
	for _, idStr := range strings.Split(*userIDsStr, ",") {
		var id int
		if _, err := fmt.Sscanf(idStr, "%d", &id); err == nil && id > 0 {
			userIDs = append(userIDs, id)
		}
	}
	if len(userIDs) == 0 {
		userIDs = []int{1}
	}

	scenarios := []scenario{
		{"Balance Read", "balance", ""},
		{"Transfer Paid", "webhook", "transfer.paid"},
		{"Transfer Failed", "webhook", "transfer.failed"},
		{"Transfer Processing", "webhook", "transfer.processing"},
	}
	if *webhookSecret == "" {
		scenarios = scenarios[:1]
	}

	fmt.Printf("Load testing %s across %d users: %v\n", *baseURL, len(userIDs), userIDs)
	fmt.Printf("Scenarios: %d, concurrency: %d, requests: %d, delay: %d ms\n",
		len(scenarios), *concurrency, *totalRequests, *delayMs)

	stats := &runStats{
		TotalRequests:   *totalRequests,
		MinResponseTime: time.Hour,
		ErrorCounts:     make(map[string]int),
		ResponseTimes:   make([]time.Duration, 0, *totalRequests),
		ScenarioStats:   make(map[string]int),
	}

	results := make(chan requestResult, *totalRequests)
	jobs := make(chan int, *totalRequests)

	var wg sync.WaitGroup
	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			worker(workerID, *baseURL, *webhookSecret, *delayMs, userIDs, scenarios, jobs, results, stats)
		}(i)
	}

	go func() {
		for i := 0; i < *totalRequests; i++ {
			jobs <- i
		}
		close(jobs)
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for result := range results {
			stats.Lock.Lock()
			if result.Success {
				stats.SuccessfulRequests++
			} else {
				stats.FailedRequests++
				errMsg := "unknown"
				if result.Error != nil {
					errMsg = result.Error.Error()
				}
				stats.ErrorCounts[errMsg]++
			}

			stats.ResponseTimes = append(stats.ResponseTimes, result.ResponseTime)
			stats.TotalResponseTime += result.ResponseTime
			if result.ResponseTime < stats.MinResponseTime {
				stats.MinResponseTime = result.ResponseTime
			}
			if result.ResponseTime > stats.MaxResponseTime {
				stats.MaxResponseTime = result.ResponseTime
			}
			stats.Lock.Unlock()
		}
	}()

	startTime := time.Now()
	wg.Wait()
	close(results)
	<-done
	stats.TotalTime = time.Since(startTime)

	printResults(stats)
}

func worker(id int, baseURL, webhookSecret string, delayMs int, userIDs []int,
	scenarios []scenario, jobs <-chan int, results chan<- requestResult, stats *runStats) {

	client := &http.Client{Timeout: 10 * time.Second}

	for jobID := range jobs {
		if delayMs > 0 {
			time.Sleep(time.Duration(delayMs) * time.Millisecond)
		}

		chosen := scenarios[rand.Intn(len(scenarios))]
		stats.Lock.Lock()
		stats.ScenarioStats[chosen.Name]++
		stats.Lock.Unlock()

		var req *http.Request
		var err error
		switch chosen.Kind {
		case "balance":
			userID := userIDs[rand.Intn(len(userIDs))]
			req, err = http.NewRequest("GET",
				fmt.Sprintf("%s/users/%d/balance", baseURL, userID), nil)
		default:
			// Random transfer ids exercise the unknown-reference path, which
			// must answer 200 without touching the ledger.
			body, _ := json.Marshal(webhookEvent{
				Type:       chosen.EventType,
				TransferID: fmt.Sprintf("loadtest-%d-%d-%d", id, jobID, rand.Intn(1000000)),
			})
			req, err = http.NewRequest("POST", baseURL+"/webhooks/processor", bytes.NewBuffer(body))
			if err == nil {
				mac := hmac.New(sha256.New, []byte(webhookSecret))
				mac.Write(body)
				req.Header.Set("Content-Type", "application/json")
				req.Header.Set("X-Webhook-Signature", hex.EncodeToString(mac.Sum(nil)))
			}
		}
		if err != nil {
			results <- requestResult{Success: false, Error: err}
			continue
		}

		started := time.Now()
		resp, err := client.Do(req)
		result := requestResult{ResponseTime: time.Since(started)}

		if err != nil {
			result.Error = err
		} else {
			result.StatusCode = resp.StatusCode
			result.Success = resp.StatusCode >= 200 && resp.StatusCode < 300
			if !result.Success {
				result.Error = fmt.Errorf("HTTP status code %d", resp.StatusCode)
			}
			resp.Body.Close()
		}

		results <- result
	}
}

func printResults(stats *runStats) {
	tps := float64(stats.SuccessfulRequests) / stats.TotalTime.Seconds()

	var avgResponseTime time.Duration
	if len(stats.ResponseTimes) > 0 {
		avgResponseTime = stats.TotalResponseTime / time.Duration(len(stats.ResponseTimes))
	}

	var p50, p90, p95, p99 time.Duration
	if len(stats.ResponseTimes) > 0 {
		sorted := make([]time.Duration, len(stats.ResponseTimes))
		copy(sorted, stats.ResponseTimes)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		p50 = sorted[len(sorted)*50/100]
		p90 = sorted[len(sorted)*90/100]
		p95 = sorted[len(sorted)*95/100]
		p99 = sorted[len(sorted)*99/100]
	}

	fmt.Println("\n================= TEST RESULTS =================")
	fmt.Printf("Total Requests:      %d\n", stats.TotalRequests)
	fmt.Printf("Successful Requests: %d (%.1f%%)\n", stats.SuccessfulRequests,
		float64(stats.SuccessfulRequests)/float64(stats.TotalRequests)*100)
	fmt.Printf("Failed Requests:     %d (%.1f%%)\n", stats.FailedRequests,
		float64(stats.FailedRequests)/float64(stats.TotalRequests)*100)
	fmt.Printf("Total Test Time:     %.2f seconds\n", stats.TotalTime.Seconds())
	fmt.Printf("Throughput:          %.2f requests/second\n", tps)

	fmt.Println("\n----------------- RESPONSE TIMES -----------------")
	fmt.Printf("Average Response:    %v\n", avgResponseTime)
	fmt.Printf("Minimum Response:    %v\n", stats.MinResponseTime)
	fmt.Printf("Maximum Response:    %v\n", stats.MaxResponseTime)
	fmt.Printf("P50 Response:        %v\n", p50)
	fmt.Printf("P90 Response:        %v\n", p90)
	fmt.Printf("P95 Response:        %v\n", p95)
	fmt.Printf("P99 Response:        %v\n", p99)

	fmt.Println("\n----------------- SCENARIO DISTRIBUTION -----------------")
	total := 0
	for _, count := range stats.ScenarioStats {
		total += count
	}
	for name, count := range stats.ScenarioStats {
		if count > 0 {
			fmt.Printf("%-20s: %d requests (%.1f%%)\n", name, count,
				float64(count)/float64(total)*100)
		}
	}

	if stats.FailedRequests > 0 {
		fmt.Println("\n----------------- ERROR DISTRIBUTION -----------------")
		for errMsg, count := range stats.ErrorCounts {
			fmt.Printf("%-40s: %d (%.1f%%)\n", errMsg, count,
				float64(count)/float64(stats.TotalRequests)*100)
		}
	}
	fmt.Println("================================================")
}
