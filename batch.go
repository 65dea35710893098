package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/gocarina/gocsv"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"estat_reader/estat"
	"estat_reader/export"
	"estat_reader/utils"
)

type BatchConfig struct {
	CommonConfig
	Jobs    string `long:"jobs" required:"true" description:"CSV file with the columns name, stats_data_id, limit and filter"`
	Workers int    `long:"workers" default:"4" description:"Number of tables read concurrently"`
}

// One line of the jobs file. filter holds space separated 'dimension=codes' pairs.
type BatchJob struct {
	Name        string `csv:"name"`
	StatsDataID string `csv:"stats_data_id"`
	Limit       int    `csv:"limit"`
	Filter      string `csv:"filter"`
}

func readJobs(path string) ([]BatchJob, error) {
	csvfile, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer csvfile.Close()

	var jobs []BatchJob
	if err := gocsv.UnmarshalFile(csvfile, &jobs); err != nil {
		return nil, fmt.Errorf("could not parse '%s': %w", path, err)
	}

	for i := range jobs {
		if jobs[i].StatsDataID == "" {
			return nil, fmt.Errorf("job %d in '%s' has no stats_data_id", i+1, path)
		}
		if jobs[i].Name == "" {
			jobs[i].Name = jobs[i].StatsDataID
		}
	}
	return jobs, nil
}

// Data command settings of a single job
func (job BatchJob) dataConfig(common CommonConfig) DataConfig {
	config := DataConfig{CommonConfig: common, ID: job.StatsDataID, Limit: job.Limit, Name: job.Name}
	config.Filters = strings.Fields(job.Filter)
	return config
}

// Serializes the writes of concurrent jobs to one sink
type lockedSink struct {
	mu   sync.Mutex
	sink export.Sink
}

func (s *lockedSink) Write(ctx context.Context, name string, res estat.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sink.Write(ctx, name, res.Frame)
}

func (config *BatchConfig) Execute(_ []string) error {
	defer utils.SendEmailOnPanic("batch", config.Email)

	if config.Workers <= 0 {
		return fmt.Errorf("'--workers' must be > 0, got %d", config.Workers)
	}
	if err := config.setup("batch", "batch"); err != nil {
		return err
	}

	jobs, err := readJobs(config.Jobs)
	if err != nil {
		return err
	}

	ctx := context.Background()
	sink, err := config.openSink(ctx)
	if err != nil {
		return err
	}
	defer sink.Close()

	err = config.run(ctx, jobs, &lockedSink{sink: sink})
	utils.SendEmailOnError("batch", err, config.Email)
	return err
}

// Runs the jobs with at most Workers readers in flight. A failing job is logged
// and does not stop the others, failing to write the output does.
func (config *BatchConfig) run(ctx context.Context, jobs []BatchJob, sink *lockedSink) error {
	limiter := config.limiter()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(config.Workers)

	var mu sync.Mutex
	var failed []string
	for _, job := range jobs {
		g.Go(func() error {
			res, err := config.runJob(ctx, job, limiter)
			if err != nil {
				slog.Error(fmt.Sprintf("Job %s (%s) failed: %s", job.Name, job.StatsDataID, err))
				mu.Lock()
				failed = append(failed, job.Name)
				mu.Unlock()
				return nil
			}
			return sink.Write(ctx, job.Name, res)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if len(failed) > 0 {
		return errors.New("failed jobs: " + strings.Join(failed, ", "))
	}
	slog.Info(fmt.Sprintf("All %d jobs finished", len(jobs)))
	return nil
}

func (config *BatchConfig) runJob(ctx context.Context, job BatchJob, limiter *rate.Limiter) (estat.Result, error) {
	dc := job.dataConfig(config.CommonConfig)
	opts, err := dc.options(config.readerOptions(limiter))
	if err != nil {
		return estat.Result{}, err
	}

	reader, err := estat.NewStatsDataReader(opts)
	if err != nil {
		return estat.Result{}, err
	}
	res, err := reader.Read(ctx)
	if err != nil {
		return estat.Result{}, err
	}
	logStatus(res.Meta)
	return res, nil
}
