package worker

// persistOperations handles writing accepted blocks to storage.
func (w *Worker) persistOperations() {
	w.evHandler("worker: persistOperations: G started")
	defer w.evHandler("worker: persistOperations: G completed")

	for {
		select {
		case <-w.persist:
			w.runPersistOperation()
		case <-w.shut:
			w.evHandler("worker: persistOperations: received shut signal")
			w.runPersistOperation()
			return
		}
	}
}

// runPersistOperation writes the blocks accepted since the last write.
func (w *Worker) runPersistOperation() {
	n, err := w.state.Persist()
	if err != nil {
		w.evHandler("worker: runPersistOperation: ERROR: written[%d]: %s", n, err)
		return
	}

	if n > 0 {
		w.evHandler("worker: runPersistOperation: written[%d]", n)
	}
}
