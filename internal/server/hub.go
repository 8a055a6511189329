// Package server coordinates client registration, display names, message
// history, and fault-tolerant broadcast for the Palaver hub.
package server

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/samber/lo"
)

// inboundEvent pairs a decoded client event with the connection it arrived
// on. The read pumps feed these to the hub's run loop one at a time per
// connection, which preserves per-sender ordering.
type inboundEvent struct {
	client *Client
	event  clientEvent
}

// Hub owns the set of live connections, the connection to display-name
// mapping, and the message history. All registry mutations are serialized on
// the Run goroutine; the mutex guards the maps for the snapshot readers used
// during fan-out.
type Hub struct {
	clients    map[*Client]bool
	names      map[*Client]string
	history    *historyBuffer
	inbound    chan inboundEvent
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewHub creates a Hub sized from the active configuration. The returned Hub
// does nothing until Run is started.
func NewHub() *Hub {
	cfg := currentConfig()
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[*Client]bool),
		names:      make(map[*Client]string),
		history:    newHistoryBuffer(cfg.HistoryLimit),
		inbound:    make(chan inboundEvent),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Run is the hub's event loop. It serializes every registry operation:
// connects, disconnects, renames, and chat messages are all applied here, so
// no two operations ever interleave. It runs until Shutdown and should be
// called in its own goroutine.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			h.admit(client)

		case client := <-h.unregister:
			h.remove(client)

		case in := <-h.inbound:
			switch in.event.Type {
			case eventTypePseudo:
				h.rename(in.client, in.event.Txt)
			case eventTypeMessage:
				h.post(in.client, in.event.Txt)
			}
		}
	}
}

// admit registers a connection as live, starts its pumps, and replays the
// retained history. A connection that cannot receive its history payload is
// dropped on the spot; it has no name yet, so the removal is silent.
func (h *Hub) admit(client *Client) {
	if client == nil {
		log.Printf("Received nil client registration; skipping")
		return
	}

	h.mutex.Lock()
	client.closed = false
	h.clients[client] = true
	clientCount := len(h.clients)
	h.mutex.Unlock()
	log.Printf("Client %s connected from %s. Total clients: %d", client.id, client.addr, clientCount)

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()

	backlog := h.history.snapshot()
	if len(backlog) == 0 {
		return
	}
	payload, ok := encodeEvent(historyEvent{Type: eventTypeHistory, Messages: backlog})
	if !ok {
		return
	}
	if !h.safeSend(client, payload) {
		h.remove(client)
	}
}

// rename stores a new display name for a live connection, then broadcasts
// the refreshed presence list followed by a rename notice when an earlier,
// different name existed. Connections that are not live are ignored.
func (h *Hub) rename(client *Client, name string) {
	if name == "" {
		return
	}

	h.mutex.Lock()
	if !h.clients[client] {
		h.mutex.Unlock()
		return
	}
	previous, hadName := h.names[client]
	h.names[client] = name
	h.mutex.Unlock()

	h.remove(h.broadcastPresence()...)

	if hadName && previous != name {
		if payload, ok := encodeEvent(systemEvent{Type: eventTypeSystem, Txt: previous + " is now known as " + name}); ok {
			h.remove(h.fanOut(payload, nil)...)
		}
	}
}

// post appends a chat message to the history and fans it out to every live
// connection, the sender included. Messages from connections that have not
// announced a name, and empty messages, are dropped silently.
func (h *Hub) post(client *Client, text string) {
	if text == "" {
		return
	}

	h.mutex.RLock()
	live := h.clients[client]
	name, named := h.names[client]
	h.mutex.RUnlock()
	if !live || !named {
		log.Printf("Dropping message from unnamed client %s", client.id)
		return
	}

	h.history.append(historyEntry{
		Type:      eventTypeMessage,
		Txt:       text,
		Pseudo:    name,
		Timestamp: time.Now().Format(time.RFC3339),
	})

	if payload, ok := encodeEvent(messageEvent{Type: eventTypeMessage, Txt: text, Pseudo: name}); ok {
		h.remove(h.fanOut(payload, nil)...)
	}
}

// remove drains a work queue of connections to take out of the live set.
// Removing a named connection broadcasts a leave notice to the others and a
// refreshed presence list to everyone; recipients that fail those sends are
// appended to the same queue rather than processed recursively, and a
// connection already detached is never reprocessed.
func (h *Hub) remove(clients ...*Client) {
	queue := clients
	for len(queue) > 0 {
		client := queue[0]
		queue = queue[1:]

		name, named, removed := h.detach(client)
		if !removed {
			continue
		}
		close(client.send)
		log.Printf("Client %s disconnected from %s", client.id, client.addr)

		if !named {
			continue
		}
		if payload, ok := encodeEvent(systemEvent{Type: eventTypeSystem, Txt: name + " has left the chat"}); ok {
			queue = append(queue, h.fanOut(payload, client)...)
		}
		queue = append(queue, h.broadcastPresence()...)
	}
}

// detach removes a connection from the live set and the name map in one
// critical section. It reports the name the connection held, if any, and
// whether this call actually performed the removal.
func (h *Hub) detach(client *Client) (string, bool, bool) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if !h.clients[client] {
		return "", false, false
	}
	delete(h.clients, client)
	name, named := h.names[client]
	delete(h.names, client)
	client.closed = true
	return name, named, true
}

// broadcastPresence sends the current list of display names to every live
// connection and returns the recipients whose send failed.
func (h *Hub) broadcastPresence() []*Client {
	h.mutex.RLock()
	pseudos := lo.Values(h.names)
	h.mutex.RUnlock()

	payload, ok := encodeEvent(pseudosEvent{Type: eventTypePseudos, Pseudos: pseudos})
	if !ok {
		return nil
	}
	return h.fanOut(payload, nil)
}

// fanOut attempts one delivery of payload to every connection live at the
// start of the call, skipping skip, and returns the connections whose send
// failed. It never removes anything itself; callers decide what to do with
// the failures.
func (h *Hub) fanOut(payload []byte, skip *Client) []*Client {
	var failed []*Client
	for _, client := range h.clientSnapshot() {
		if skip != nil && client == skip {
			continue
		}
		if !h.safeSend(client, payload) {
			failed = append(failed, client)
		}
	}
	return failed
}

func (h *Hub) clientSnapshot() []*Client {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return lo.Keys(h.clients)
}

// safeSend queues payload for one connection without blocking. A connection
// that is gone, closed, or whose send buffer is full counts as a failed
// send. The recover guard covers the race with a concurrently closed send
// channel.
func (h *Hub) safeSend(client *Client, payload []byte) (sent bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in safeSend: %v", r)
			sent = false
		}
	}()

	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if !h.clients[client] || client.closed {
		return false
	}

	select {
	case client.send <- payload:
		return true
	default:
		return false
	}
}

// shutdownClients empties the registry and closes every connection's socket
// and send channel so the pump goroutines unwind.
func (h *Hub) shutdownClients() {
	log.Println("Shutting down all client connections...")

	h.mutex.Lock()
	clients := lo.Keys(h.clients)
	for _, client := range clients {
		delete(h.clients, client)
		delete(h.names, client)
		client.closed = true
	}
	h.mutex.Unlock()

	for _, client := range clients {
		close(client.send)
		if client.conn != nil {
			if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
				log.Printf("Error closing client connection from %s: %v", client.addr, err)
			}
		}
	}

	log.Printf("Closed %d client connections", len(clients))
}

// Shutdown stops the run loop and waits for the client pump goroutines to
// finish, or until the timeout elapses.
func (h *Hub) Shutdown(timeout time.Duration) error {
	log.Println("Initiating hub shutdown...")

	h.cancel()
	<-h.done

	finished := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		log.Println("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		log.Println("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
