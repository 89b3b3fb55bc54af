package state

import "github.com/ebsnet/blockchain/foundation/blockchain/database"

// SubmitTransaction accepts a signed transaction from a client for inclusion.
// Submitting a transaction that is already pending is not an error. It
// returns the number of transactions pending.
func (s *State) SubmitTransaction(signedTx database.SignedTx) (int, error) {
	tx := database.NewBlockTx(signedTx)

	s.mu.Lock()
	n, err := s.mempool.Submit(tx)
	s.mu.Unlock()

	if err != nil {
		return n, err
	}

	s.evHandler("state: SubmitTransaction: tx[%s]: pending[%d]", s.db.Token(signedTx), n)

	s.Worker.SignalStartMining()

	return n, nil
}

// Token returns the uniqueness token the node uses for the transaction.
func (s *State) Token(signedTx database.SignedTx) string {
	return s.db.Token(signedTx)
}
