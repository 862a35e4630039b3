// Benchmark tool for testing Shrike against labeled caller data.
//
// Usage:
//   go run cmd/benchmark/main.go -csv /path/to/numbers.csv -url http://localhost:8080
//
// This tool:
//   1. Reads labeled number data (number, is_spam, category)
//   2. Sends each number to Shrike for screening
//   3. Compares Shrike's verdict (SCREEN/BLOCK vs ALLOW) with the labels
//   4. Calculates precision, recall, F1-score, and confusion matrix
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// LabeledNumber represents one row from the benchmark dataset.
type LabeledNumber struct {
	Number   string
	IsSpam   bool
	Category string
}

// ScreenRequest is the Shrike API request format.
type ScreenRequest struct {
	Number string `json:"number"`
}

// ScreenResponse is the Shrike API response format.
type ScreenResponse struct {
	ID         string   `json:"id"`
	Action     string   `json:"action"` // "ALLOW", "SCREEN", or "BLOCK"
	Confidence float64  `json:"confidence"`
	Category   string   `json:"category"`
	Reasons    []string `json:"reasons"`
}

// Metrics tracks benchmark results.
type Metrics struct {
	TruePositives  int64 // Spam flagged SCREEN/BLOCK
	FalsePositives int64 // Legit flagged SCREEN/BLOCK
	TrueNegatives  int64 // Legit allowed
	FalseNegatives int64 // Spam allowed (missed spam!)

	TotalProcessed int64
	TotalSpam      int64
	TotalLegit     int64
	TotalErrors    int64

	ProcessingTimeMs int64
}

func main() {
	csvPath := flag.String("csv", "", "Path to labeled number CSV file")
	baseURL := flag.String("url", "http://localhost:8080", "Shrike base URL")
	limit := flag.Int("limit", 10000, "Maximum numbers to process (0 = all)")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	verbose := flag.Bool("verbose", false, "Print each screening result")
	flag.Parse()

	if *csvPath == "" {
		fmt.Println("Usage: benchmark -csv /path/to/numbers.csv [-url http://localhost:8080]")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║          SHRIKE BENCHMARK - Spam Caller Detection             ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nCSV File:    %s\n", *csvPath)
	fmt.Printf("Shrike URL:  %s\n", *baseURL)
	fmt.Printf("Workers:     %d\n", *workers)
	fmt.Printf("Limit:       %d\n", *limit)
	fmt.Println()

	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: Shrike not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure Shrike is running:")
		fmt.Println("  go run cmd/shrike/main.go")
		os.Exit(1)
	}
	fmt.Println("✓ Shrike is healthy")

	fmt.Printf("\nReading labeled numbers from %s...\n", *csvPath)
	numbers, err := readLabeledCSV(*csvPath, *limit)
	if err != nil {
		fmt.Printf("ERROR: Failed to read CSV: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Loaded %d numbers\n", len(numbers))

	spamCount := 0
	for _, n := range numbers {
		if n.IsSpam {
			spamCount++
		}
	}
	fmt.Printf("  - Spam:  %d (%.2f%%)\n", spamCount, 100*float64(spamCount)/float64(len(numbers)))
	fmt.Printf("  - Legit: %d (%.2f%%)\n", len(numbers)-spamCount, 100*float64(len(numbers)-spamCount)/float64(len(numbers)))

	fmt.Printf("\nRunning benchmark with %d workers...\n", *workers)
	startTime := time.Now()
	metrics := runBenchmark(numbers, *baseURL, *workers, *verbose)
	duration := time.Since(startTime)

	printResults(metrics, duration)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// readLabeledCSV expects columns: number, is_spam, category (header optional).
func readLabeledCSV(path string, limit int) ([]LabeledNumber, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	var numbers []LabeledNumber
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // Skip malformed rows
		}
		if len(record) < 2 {
			continue
		}
		if strings.EqualFold(record[0], "number") {
			continue // Header row
		}

		n := LabeledNumber{
			Number: strings.TrimSpace(record[0]),
			IsSpam: record[1] == "1" || strings.EqualFold(record[1], "true"),
		}
		if len(record) > 2 {
			n.Category = strings.TrimSpace(record[2])
		}
		numbers = append(numbers, n)

		if limit > 0 && len(numbers) >= limit {
			break
		}
	}

	return numbers, nil
}

func runBenchmark(numbers []LabeledNumber, baseURL string, numWorkers int, verbose bool) *Metrics {
	metrics := &Metrics{}

	work := make(chan LabeledNumber, 100)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}

			for n := range work {
				start := time.Now()
				result, err := screenNumber(client, baseURL, n)
				elapsed := time.Since(start).Milliseconds()

				atomic.AddInt64(&metrics.ProcessingTimeMs, elapsed)
				atomic.AddInt64(&metrics.TotalProcessed, 1)

				if err != nil {
					atomic.AddInt64(&metrics.TotalErrors, 1)
					if verbose {
						fmt.Printf("ERROR: %s -> %v\n", n.Number, err)
					}
					continue
				}

				if n.IsSpam {
					atomic.AddInt64(&metrics.TotalSpam, 1)
				} else {
					atomic.AddInt64(&metrics.TotalLegit, 1)
				}

				predicted := result.Action != "ALLOW"
				actual := n.IsSpam

				if predicted && actual {
					atomic.AddInt64(&metrics.TruePositives, 1)
				} else if predicted && !actual {
					atomic.AddInt64(&metrics.FalsePositives, 1)
				} else if !predicted && !actual {
					atomic.AddInt64(&metrics.TrueNegatives, 1)
				} else { // !predicted && actual
					atomic.AddInt64(&metrics.FalseNegatives, 1)
				}

				if verbose {
					status := "✓"
					if (predicted && !actual) || (!predicted && actual) {
						status = "✗"
					}
					fmt.Printf("%s %-16s | Spam: %-5v | Shrike: %-6s (%.2f) | %s\n",
						status,
						n.Number,
						n.IsSpam,
						result.Action,
						result.Confidence,
						strings.Join(result.Reasons, "; "),
					)
				}
			}
		}()
	}

	for _, n := range numbers {
		work <- n
	}
	close(work)

	wg.Wait()

	return metrics
}

func screenNumber(client *http.Client, baseURL string, n LabeledNumber) (*ScreenResponse, error) {
	body, err := json.Marshal(ScreenRequest{Number: n.Number})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, baseURL+"/screen/call", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result ScreenResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &result, nil
}

func printResults(m *Metrics, duration time.Duration) {
	fmt.Println("\n╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                      BENCHMARK RESULTS                        ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")

	fmt.Printf("\n📊 DATASET STATISTICS\n")
	fmt.Printf("   Total Processed:  %d\n", m.TotalProcessed)
	fmt.Printf("   Total Spam:       %d\n", m.TotalSpam)
	fmt.Printf("   Total Legit:      %d\n", m.TotalLegit)
	fmt.Printf("   Errors:           %d\n", m.TotalErrors)

	fmt.Printf("\n📈 CONFUSION MATRIX\n")
	fmt.Println("                        Predicted")
	fmt.Println("                   FLAG        ALLOW")
	fmt.Println("              ┌──────────┬──────────┐")
	fmt.Printf("   Actual  S  │ %8d │ %8d │  (TP, FN)\n", m.TruePositives, m.FalseNegatives)
	fmt.Println("              ├──────────┼──────────┤")
	fmt.Printf("           L  │ %8d │ %8d │  (FP, TN)\n", m.FalsePositives, m.TrueNegatives)
	fmt.Println("              └──────────┴──────────┘")

	precision := float64(0)
	if m.TruePositives+m.FalsePositives > 0 {
		precision = float64(m.TruePositives) / float64(m.TruePositives+m.FalsePositives)
	}

	recall := float64(0)
	if m.TruePositives+m.FalseNegatives > 0 {
		recall = float64(m.TruePositives) / float64(m.TruePositives+m.FalseNegatives)
	}

	f1 := float64(0)
	if precision+recall > 0 {
		f1 = 2 * (precision * recall) / (precision + recall)
	}

	accuracy := float64(0)
	total := m.TruePositives + m.TrueNegatives + m.FalsePositives + m.FalseNegatives
	if total > 0 {
		accuracy = float64(m.TruePositives+m.TrueNegatives) / float64(total)
	}

	fmt.Printf("\n🎯 DETECTION METRICS\n")
	fmt.Printf("   Precision:  %.4f  (of flagged calls, how many were actual spam)\n", precision)
	fmt.Printf("   Recall:     %.4f  (of spam, how many did we catch)\n", recall)
	fmt.Printf("   F1-Score:   %.4f  (harmonic mean of precision & recall)\n", f1)
	fmt.Printf("   Accuracy:   %.4f  (overall correct predictions)\n", accuracy)

	fmt.Printf("\n🔍 DETECTION ANALYSIS\n")
	if m.TotalSpam > 0 {
		detectionRate := float64(m.TruePositives) / float64(m.TotalSpam) * 100
		missRate := float64(m.FalseNegatives) / float64(m.TotalSpam) * 100
		fmt.Printf("   Spam Flagged:      %d / %d (%.2f%%)\n", m.TruePositives, m.TotalSpam, detectionRate)
		fmt.Printf("   Spam Missed:       %d / %d (%.2f%%) ⚠️\n", m.FalseNegatives, m.TotalSpam, missRate)
	}
	if m.TotalLegit > 0 {
		falseAlarmRate := float64(m.FalsePositives) / float64(m.TotalLegit) * 100
		fmt.Printf("   False Alarms:      %d / %d (%.2f%%)\n", m.FalsePositives, m.TotalLegit, falseAlarmRate)
	}

	fmt.Printf("\n⏱️  PERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v\n", duration.Round(time.Millisecond))
	if m.TotalProcessed > 0 {
		avgMs := float64(m.ProcessingTimeMs) / float64(m.TotalProcessed)
		rps := float64(m.TotalProcessed) / duration.Seconds()
		fmt.Printf("   Avg Latency:      %.2f ms\n", avgMs)
		fmt.Printf("   Throughput:       %.2f calls/sec\n", rps)
	}

	fmt.Printf("\n💡 INTERPRETATION\n")
	if recall >= 0.9 {
		fmt.Println("   ✅ Excellent recall - catching most spam")
	} else if recall >= 0.7 {
		fmt.Println("   ⚠️  Good recall - but missing some spam")
	} else if recall >= 0.5 {
		fmt.Println("   ⚠️  Moderate recall - significant spam getting through")
	} else {
		fmt.Println("   ❌ Poor recall - most spam is getting through!")
	}

	if precision >= 0.5 {
		fmt.Println("   ✅ Good precision - flags are meaningful")
	} else if precision >= 0.2 {
		fmt.Println("   ⚠️  Low precision - many false alarms")
	} else {
		fmt.Println("   ❌ Very low precision - mostly false alarms")
	}

	fmt.Println()
}
