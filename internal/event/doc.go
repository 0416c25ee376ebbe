/*
Package event is the in-process pub/sub bus that carries workspace changes
to interested parties, most notably the server's SSE stream.

Events are JSON-encoded into watermill messages and routed through a
gochannel pub/sub on a single topic. Subscribers receive decoded events whose
Data is the raw JSON payload, so what a subscriber sees is exactly what an
out-of-process consumer would see.

Every event carries the Scope of the identity whose workspace produced it.
Subscribers interested in a single identity filter on Scope.

PublishSync returns only after every subscriber has handled the event, which
preserves ordering for a single publisher. Publish hands the event off and
returns immediately.
*/
package event
