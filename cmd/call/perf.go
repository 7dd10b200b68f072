package call

import (
	"context"
	"encoding/csv"
	"fmt"
	"github.com/ValentinKolb/dRPC/cmd/util"
	"github.com/ValentinKolb/dRPC/rpc/ack"
	"github.com/ValentinKolb/dRPC/rpc/common"
	"github.com/ValentinKolb/dRPC/rpc/host"
	"github.com/ValentinKolb/dRPC/rpc/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf [address:port]",
		Short:   "Performance testing tool for dRPC servers",
		Long:    "Runs echo benchmarks against a server started with 'drpc serve'",
		Args:    cobra.ExactArgs(1),
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfLargeValueSizeKB = 100
	perfNumThreads       = 10
	perfAsyncWindow      = 64
	perfSkip             = make([]string, 0)
)

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. echo,async)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How large the payload for the echo-large test should be (in KB)"))
	key = "async-window"
	perfTestCmd.Flags().Int(key, 64, util.WrapString("How many asynchronous calls each thread keeps in flight"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
	key = "metrics"
	perfTestCmd.Flags().Bool(key, false, util.WrapString("Print the collected request metrics in the prometheus format"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfNumThreads = viper.GetInt("threads")
	perfAsyncWindow = max(viper.GetInt("async-window"), 1)
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func runPerf(cmd *cobra.Command, args []string) error {
	h, err := parseTarget(args[0])
	if err != nil {
		return err
	}

	fmt.Println("Performance testing tool for dRPC servers")

	// Print configuration
	config := util.GetConnectConfig()
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(config.String())
	fmt.Printf("Target: %s\n", h)
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	// connect once up front, the benchmarks measure established connections only
	ctx, cancel := requestContext(cmd.Context())
	defer cancel()
	if err := rpcClient.Manager().Connect(ctx, h); err != nil {
		return fmt.Errorf("failed to connect %s: %w", h, err)
	}

	fmt.Println("starting tests...")

	// Create results map
	results := make(map[string]testing.BenchmarkResult)

	results["echo"] = benchmarkEcho("echo", h, []byte("test"))
	printResult("echo", results["echo"])

	results["echo-large"] = benchmarkEcho("echo-large", h, make([]byte, perfLargeValueSizeKB*1024))
	printResult("echo-large", results["echo-large"])

	results["async"] = benchmarkAsync("async", h, []byte("test"))
	printResult("async", results["async"])

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, h, config); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	// Print the collected metrics
	if viper.GetBool("metrics") {
		if collector, ok := rpcClient.Manager().Collector().(*ack.MemoryCollector); ok {
			fmt.Println()
			collector.WritePrometheus(os.Stdout)
		}
	}

	return nil
}

// --------------------------------------------------------------------------
// Benchmarks
// --------------------------------------------------------------------------

// benchmarkEcho measures blocking calls
func benchmarkEcho(test string, h host.Host, payload []byte) testing.BenchmarkResult {
	return testing.Benchmark(func(b *testing.B) {
		if shouldSkip(test) {
			return
		}

		b.SetParallelism(perfNumThreads)
		b.SetBytes(int64(len(payload)))

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			ctx := context.Background()
			for pb.Next() {
				_, err := rpcClient.Call(ctx, h, server.EchoService, server.EchoMethod, payload)
				if err != nil {
					log.Printf("(%s) - error calling %s: %v\n", test, h, err)
				}
			}
		})
	})
}

// benchmarkAsync measures pipelined calls, every thread keeps perfAsyncWindow calls in flight
func benchmarkAsync(test string, h host.Host, payload []byte) testing.BenchmarkResult {
	return testing.Benchmark(func(b *testing.B) {
		if shouldSkip(test) {
			return
		}

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			ctx := context.Background()
			window := make([]func() error, 0, perfAsyncWindow)

			flush := func() {
				for _, wait := range window {
					if err := wait(); err != nil {
						log.Printf("(%s) - error waiting for %s: %v\n", test, h, err)
					}
				}
				window = window[:0]
			}

			for pb.Next() {
				p, err := rpcClient.CallAsync(ctx, h, server.EchoService, server.EchoMethod, payload)
				if err != nil {
					log.Printf("(%s) - error calling %s: %v\n", test, h, err)
					continue
				}
				window = append(window, func() error {
					_, err := p.Wait(ctx)
					return err
				})
				if len(window) == perfAsyncWindow {
					flush()
				}
			}
			flush()
		})
	})
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	// Print the formatted result
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\n", test, nsPerOp, time.Duration(nsPerOp), opsPerSec)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult, target host.Host, config *common.ConnectConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Skipped",
		"Target", "RequestTimeoutMillis", "EventLoopWorkers", "EventLoopShared",
		"Compression", "Serializer",
		"Threads", "LargeValueSizeKB", "AsyncWindow",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for test, result := range results {
		var nsPerOp float64
		var opsPerSec float64
		var skipped string

		if result.NsPerOp() == 0 {
			skipped = "true"
			nsPerOp = 0
			opsPerSec = 0
		} else {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			skipped,
			target.HostPort(),
			strconv.Itoa(config.RequestTimeoutMillis),
			strconv.Itoa(config.EventLoopWorkers),
			strconv.FormatBool(config.EventLoopShared),
			config.Compression,
			viper.GetString("serializer"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfAsyncWindow),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
