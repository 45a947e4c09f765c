package worker

// responseOperations handles sending the chain responses queued by the
// gossip protocol.
func (w *Worker) responseOperations() {
	w.evHandler("worker: responseOperations: G started")
	defer w.evHandler("worker: responseOperations: G completed")

	responses := w.gossip.Responses()

	for {
		select {
		case resp := <-responses:
			if !w.isShutdown() {
				if err := w.gossip.SendChainResponse(w.ctx, resp); err != nil {
					w.evHandler("worker: responseOperations: receiver[%s]: WARNING: %s", resp.Receiver, err)
				}
			}
		case <-w.shut:
			w.evHandler("worker: responseOperations: received shut signal")
			return
		}
	}
}
