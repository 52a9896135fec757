// Command influx-replay feeds recorded aggregate results through the
// reporter, one JSON record per input line. It is meant for re-sending a
// finished run to a fresh database and for exercising a dashboard from a
// live pipe, e.g.:
//
//	tail -f results.jsonl | influx-replay -config reporter.yaml -input -
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/op/go-logging"
	"gopkg.in/yaml.v3"

	reporter "github.com/loadwatch/influx-reporter"
)

var log = logging.MustGetLogger("influx-replay")

// fileConfig carries the reporter settings under the option names used by
// the load-test engine's settings block.
type fileConfig struct {
	InfluxURL     string  `yaml:"influx-url"`
	Application   string  `yaml:"application"`
	Measurement   string  `yaml:"measurement"`
	SendInterval  string  `yaml:"send-interval"`
	ResendTimeout float64 `yaml:"resend-timeout"`
}

func loadConfig(path string) (reporter.Config, error) {
	var cfg reporter.Config

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.URL = fc.InfluxURL
	cfg.Application = fc.Application
	cfg.Measurement = fc.Measurement
	if fc.SendInterval != "" {
		d, err := time.ParseDuration(fc.SendInterval)
		if err != nil {
			return cfg, fmt.Errorf("send-interval: %w", err)
		}
		cfg.SendInterval = d
	}
	if fc.ResendTimeout > 0 {
		cfg.ResendTimeout = time.Duration(fc.ResendTimeout * float64(time.Second))
	}
	return cfg, nil
}

func main() {
	configPath := flag.String("config", "reporter.yaml", "path to the reporter config file")
	inputPath := flag.String("input", "-", "JSON-lines file of aggregated records, - for stdin")
	tickEvery := flag.Duration("tick", time.Second, "how often to poll the flush check")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	logging.SetFormatter(logging.MustStringFormatter(
		`%{time:15:04:05.000} %{level:.4s} %{message}`))
	level := logging.INFO
	if *verbose {
		level = logging.DEBUG
	}
	logging.SetLevel(level, "influx-replay")
	logging.SetLevel(level, "influx-reporter")

	if err := run(*configPath, *inputPath, *tickEvery); err != nil {
		log.Fatalf("replay failed: %v", err)
	}
}

func run(configPath, inputPath string, tickEvery time.Duration) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	in := os.Stdin
	if inputPath != "-" {
		f, err := os.Open(inputPath)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	uploader, err := reporter.NewUploader(ctx, cfg)
	if err != nil {
		return err
	}

	uploader.NotifyStart()
	defer uploader.NotifyEnd()

	// Poll the flush check on its own goroutine so a stalled input pipe
	// does not hold buffered records past the send interval.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(tickEvery)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case now := <-ticker.C:
				uploader.Tick(now)
			}
		}
	}()

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	var replayed, lineNo int
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec reporter.Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			log.Warningf("skipping line %d: %v", lineNo, err)
			continue
		}
		uploader.OnWindowComplete(rec)
		replayed++
	}

	log.Infof("replayed %d records", replayed)
	uploader.FlushAll()
	return scanner.Err()
}
