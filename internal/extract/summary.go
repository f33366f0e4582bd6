package extract

// Aggregator folds per-file results into the run summary and forwards the
// deltas to an optional progress channel.
type Aggregator struct {
	summary Summary
	updates chan<- ProgressUpdate
}

func NewAggregator(updates chan<- ProgressUpdate) *Aggregator {
	return &Aggregator{updates: updates}
}

// Record counts res as one attempted file plus one error per failure in it.
func (a *Aggregator) Record(res FileResult) {
	a.summary.Files++
	a.summary.Errors += len(res.Errs)
	a.summary.Published += len(res.Published)

	if a.updates != nil {
		a.updates <- ProgressUpdate{
			FilesDelta:     1,
			PublishedDelta: len(res.Published),
			ErrorDelta:     len(res.Errs),
			Current:        res.Path,
		}
	}
}

func (a *Aggregator) Summary() Summary {
	return a.summary
}
