package workbook

import (
	"context"
	"sync"
)

// ConcurrentLoader loads several statement exports at once.
type ConcurrentLoader struct {
	loader         *Loader
	maxConcurrency int
	semaphore      chan struct{}
}

// NewConcurrentLoader creates a concurrent loader around loader.
func NewConcurrentLoader(loader *Loader, maxConcurrency int) *ConcurrentLoader {
	if maxConcurrency <= 0 {
		maxConcurrency = 4 // Default concurrency
	}

	return &ConcurrentLoader{
		loader:         loader,
		maxConcurrency: maxConcurrency,
		semaphore:      make(chan struct{}, maxConcurrency),
	}
}

// ConcurrentLoadResult holds the result of loading one source.
type ConcurrentLoadResult struct {
	Index  int
	Source string
	File   *StatementFile
	Error  error
}

// LoadStatementsAsync loads every source and streams the results as they
// complete. The channel is closed once all sources are done.
func (cl *ConcurrentLoader) LoadStatementsAsync(ctx context.Context, sources []Source) <-chan *ConcurrentLoadResult {
	results := make(chan *ConcurrentLoadResult, len(sources))

	var wg sync.WaitGroup

	for i, src := range sources {
		wg.Add(1)

		go func(index int, src Source) {
			defer wg.Done()

			// Acquire semaphore
			cl.semaphore <- struct{}{}
			defer func() { <-cl.semaphore }()

			result := &ConcurrentLoadResult{Index: index, Source: src.Name}
			if err := ctx.Err(); err != nil {
				result.Error = err
				results <- result
				return
			}

			result.File, result.Error = cl.loader.LoadStatementSource(ctx, src)
			results <- result
		}(i, src)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// LoadStatements loads every source and returns the files in source order.
// When several sources fail, the error of the earliest one is returned.
func (cl *ConcurrentLoader) LoadStatements(ctx context.Context, sources []Source) ([]*StatementFile, error) {
	files := make([]*StatementFile, len(sources))
	errs := make([]error, len(sources))

	for result := range cl.LoadStatementsAsync(ctx, sources) {
		files[result.Index] = result.File
		errs[result.Index] = result.Error
	}

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}
