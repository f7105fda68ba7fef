package services

import (
	"context"
	"sync"

	"cvanalyzer/semantic-cv-analyzer/internal/logger"
	"cvanalyzer/semantic-cv-analyzer/internal/models"
)

// BatchJob is one résumé to score against the shared job description.
type BatchJob struct {
	Filename string
	Data     []byte
}

// BatchResult keeps the input order: Index is the job's position.
type BatchResult struct {
	Index    int
	Filename string
	Report   *models.AnalysisReport
	Err      error
}

type Worker interface {
	Run(ctx context.Context, jobDescription string, jobs []BatchJob) []BatchResult
}

type worker struct {
	analyzer    AnalyzerService
	concurrency int
	log         *logger.Logger
}

// NewWorker runs batches through analyzer with at most concurrency analyses
// in flight.
func NewWorker(analyzer AnalyzerService, concurrency int, log *logger.Logger) Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &worker{
		analyzer:    analyzer,
		concurrency: concurrency,
		log:         log.WithComponent("worker"),
	}
}

type indexedJob struct {
	index int
	job   BatchJob
}

// Run implements Worker. Every job gets a result, including jobs that were
// never started because ctx was cancelled.
func (w *worker) Run(ctx context.Context, jobDescription string, jobs []BatchJob) []BatchResult {
	results := make([]BatchResult, len(jobs))
	jobQueue := make(chan indexedJob)

	workers := w.concurrency
	if workers > len(jobs) {
		workers = len(jobs)
	}
	w.log.Info().Int("jobs", len(jobs)).Int("workers", workers).Msg("🚀 Starting batch")

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go w.processJobs(ctx, i+1, jobDescription, jobQueue, results, &wg)
	}

enqueue:
	for i, job := range jobs {
		select {
		case jobQueue <- indexedJob{index: i, job: job}:
		case <-ctx.Done():
			for j := i; j < len(jobs); j++ {
				results[j] = BatchResult{Index: j, Filename: jobs[j].Filename, Err: ctx.Err()}
			}
			break enqueue
		}
	}
	close(jobQueue)
	wg.Wait()

	w.log.Info().Int("jobs", len(jobs)).Msg("✅ Batch finished")
	return results
}

func (w *worker) processJobs(
	ctx context.Context,
	workerID int,
	jobDescription string,
	jobQueue <-chan indexedJob,
	results []BatchResult,
	wg *sync.WaitGroup,
) {
	defer wg.Done()

	for item := range jobQueue {
		w.log.Debug().Int("worker", workerID).Str("file", item.job.Filename).Msg("👷 Processing résumé")

		report, err := w.analyzer.AnalyzeDocument(ctx, item.job.Data, item.job.Filename, jobDescription)
		if err != nil {
			w.log.Warn().Int("worker", workerID).Str("file", item.job.Filename).Err(err).Msg("❌ Analysis failed")
		}
		// each index is written by exactly one worker
		results[item.index] = BatchResult{
			Index:    item.index,
			Filename: item.job.Filename,
			Report:   report,
			Err:      err,
		}
	}
}
