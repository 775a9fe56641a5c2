// Package inbox is the storage and live push backend of the in-app channel.
//
// Manager persists each Item first and then hands it to a Deliverer. LiveFeed
// is the in-process Deliverer: one broadcaster per recipient, kept in an LRU
// so idle recipients do not pin memory. Transport layers subscribe per
// recipient:
//
//	sub := feed.Subscribe(r.Context(), recipientID)
//	defer sub.Close()
//
//	for msg := range sub.Receive(r.Context()) {
//	    data, _ := json.Marshal(msg.Data)
//	    fmt.Fprintf(w, "data: %s\n\n", data)
//	    w.(http.Flusher).Flush()
//	}
package inbox
