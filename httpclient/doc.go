// Package httpclient is the outbound HTTP transport used for bulk submissions.
//
// A Client sends one request per Do call and classifies the outcome: a
// transport failure or a non-2xx status comes back as an *Error whose Code
// tells timeouts, connection failures, client errors and server errors apart.
// The client never retries; callers decide what a failure means.
//
//	client, err := httpclient.New(httpclient.Config{Timeout: 30 * time.Second})
//	resp, err := client.Do(ctx, httpclient.Request{
//	    Method:  http.MethodPost,
//	    Path:    "http://localhost:9200/_bulk",
//	    Headers: map[string]string{"Content-Type": "application/x-ndjson"},
//	    Body:    payload,
//	})
package httpclient
