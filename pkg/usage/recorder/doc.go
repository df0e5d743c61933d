// Package recorder provides asynchronous writing of usage records.
//
// # Recording Flow
//
// A request handler builds one complete usage.Record when the request
// finishes and hands it to Record, which enqueues it on a buffered
// channel and returns immediately. A background worker drains the
// channel and writes to the storage backend with a per-write timeout.
//
// When the buffer is full the record is dropped and counted rather
// than blocking the handler; Dropped reports the running total.
//
// # Basic Usage
//
//	rec := recorder.NewRecorder(store, &recorder.Config{
//	    Enabled:      true,
//	    Buffer:       1000,
//	    WriteTimeout: 5 * time.Second,
//	})
//	defer rec.Close()
//
//	rec.Record(&usage.Record{
//	    RequestID: requestID,
//	    Dialect:   "openai",
//	    Model:     model,
//	    Status:    usage.StatusSuccess,
//	})
//
// Close drains the queue before returning, so records accepted before
// shutdown are not lost.
package recorder
