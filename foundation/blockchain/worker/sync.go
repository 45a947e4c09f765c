package worker

// syncOperations handles chain sync requests.
func (w *Worker) syncOperations() {
	w.evHandler("worker: syncOperations: G started")
	defer w.evHandler("worker: syncOperations: G completed")

	for {
		select {
		case <-w.startSync:
			if !w.isShutdown() {
				w.runSyncOperation()
			}
		case <-w.shut:
			w.evHandler("worker: syncOperations: received shut signal")
			return
		}
	}
}

// runSyncOperation asks the first reachable peer for its chain. The answer
// arrives later as a chain response and goes through fork choice.
func (w *Worker) runSyncOperation() {
	w.evHandler("worker: runSyncOperation: started")
	defer w.evHandler("worker: runSyncOperation: completed")

	for _, pr := range w.state.RetrieveKnownPeers() {

		// Retrieve the status of this peer.
		status, err := w.net.QueryStatus(w.ctx, pr)
		if err != nil {
			w.evHandler("worker: runSyncOperation: queryPeerStatus: %s: ERROR: %s", pr.Host, err)
			continue
		}

		w.state.SetPeerNodeID(pr, status.NodeID)
		w.addNewPeers(status.KnownPeers)

		if status.NodeID == "" {
			continue
		}

		if err := w.gossip.RequestChain(w.ctx, status.NodeID); err != nil {
			w.evHandler("worker: runSyncOperation: RequestChain: %s: WARNING: %s", pr.Host, err)
		}
		return
	}

	w.evHandler("worker: runSyncOperation: no reachable peers")
}
