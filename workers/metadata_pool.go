// Package workers runs metadata extraction on a bounded pool so one slow
// or stuck file cannot stall a whole scan.
package workers

import (
	"log"
	"os"
	"sync"

	"github.com/camden-git/mediacatalog/media"
)

// MetadataJob asks for one file's capture metadata.
type MetadataJob struct {
	AbsolutePath string
	Directory    string
	Filename     string
	Kind         media.Kind
	ModTime      int64
}

// MetadataResult pairs a job with its extraction outcome. Failed marks
// files that could not be processed at all (vanished between walk and
// extract, or a panicking parser); an empty Meta with Failed=false just
// means the file carries no metadata.
type MetadataResult struct {
	Job    MetadataJob
	Meta   media.Metadata
	Failed bool
}

// MetadataPool is a fixed-size worker pool over a buffered job queue. The
// per-file timeout lives inside the extractor, so each worker is bounded
// independently.
type MetadataPool struct {
	extractor media.Extractor
	jobs      chan MetadataJob
	results   chan MetadataResult
	wg        sync.WaitGroup
}

// NewMetadataPool starts numWorkers workers consuming a queue of queueSize.
func NewMetadataPool(extractor media.Extractor, numWorkers, queueSize int) *MetadataPool {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	pool := &MetadataPool{
		extractor: extractor,
		jobs:      make(chan MetadataJob, queueSize),
		results:   make(chan MetadataResult, queueSize),
	}
	pool.wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go pool.worker(i)
	}
	go func() {
		pool.wg.Wait()
		close(pool.results)
	}()
	log.Printf("Started %d metadata worker(s) with queue size %d", numWorkers, queueSize)
	return pool
}

// Submit queues a job; it blocks when the queue is full.
func (p *MetadataPool) Submit(job MetadataJob) {
	p.jobs <- job
}

// Close signals that no further jobs will be submitted. Results drains to
// completion afterwards.
func (p *MetadataPool) Close() {
	close(p.jobs)
}

// Results is closed once every submitted job has been processed.
func (p *MetadataPool) Results() <-chan MetadataResult {
	return p.results
}

func (p *MetadataPool) worker(id int) {
	defer p.wg.Done()
	for job := range p.jobs {
		p.results <- p.process(id, job)
	}
}

// process never lets a single file abort the batch: stat failures and
// parser panics come back as Failed results.
func (p *MetadataPool) process(id int, job MetadataJob) (res MetadataResult) {
	res = MetadataResult{Job: job}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("Worker %d: PANIC extracting metadata for %s: %v", id, job.AbsolutePath, r)
			res.Meta = media.Metadata{}
			res.Failed = true
		}
	}()

	if _, statErr := os.Stat(job.AbsolutePath); statErr != nil {
		log.Printf("Worker %d: skipping %s: %v", id, job.AbsolutePath, statErr)
		res.Failed = true
		return res
	}

	res.Meta = p.extractor.Extract(job.AbsolutePath, job.Filename, job.Kind)
	return res
}
