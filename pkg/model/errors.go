package model

import "github.com/m-mizutani/goerr/v2"

var (
	// ErrIngestion covers fatal failures during a store build: transport
	// errors, timeouts and malformed responses. No partial store is
	// committed when it is returned.
	ErrIngestion = goerr.New("ingestion failed")

	// ErrQuotaExhausted and ErrSourceNotFound are terminal pagination
	// signals, not failures: the build keeps what was fetched so far.
	ErrQuotaExhausted = goerr.New("message source quota exhausted")
	ErrSourceNotFound = goerr.New("message source has no more data")

	ErrStoreMissing = goerr.New("message store not found, run the fetch step first")
	ErrIndexMissing = goerr.New("embedding index not found, run the index step first")

	// ErrIndexStale means the index artifact was built from a different
	// corpus version than the open store. Resolving positions against a
	// stale index would silently return wrong rows, so it is rejected.
	ErrIndexStale = goerr.New("embedding index does not match the message store, rebuild the index")

	ErrEmptyCorpus          = goerr.New("message store has no rows")
	ErrEmbeddingUnavailable = goerr.New("embedding model is unavailable")
	ErrSearchFailed         = goerr.New("vector search failed")
)
