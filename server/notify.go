// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package server

import (
	"container/list"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// sendBufferSize is the number of elements the send channel can queue
	// before blocking.
	sendBufferSize = 50

	// writeWait bounds the time allowed to write one message to a client.
	writeWait = 10 * time.Second
)

// versionNotification is the message announcing a new snapshot version.
type versionNotification struct {
	Version int32 `json:"version"`
}

func marshalVersion(version int32) []byte {
	// Marshalling a struct of one integer cannot fail.
	b, _ := json.Marshal(versionNotification{Version: version})
	return b
}

// notificationManager tracks the connected notification clients and fans
// version announcements out to them.
type notificationManager struct {
	sync.Mutex

	// clients is a map of all currently connected websocket clients.
	clients map[chan struct{}]*wsClient

	// reserved counts slots taken by upgrades that have not been added
	// as clients yet.
	reserved   int
	maxClients int

	metrics *metrics
}

// NumClients returns the number of clients actively being served.
//
// This function is safe for concurrent access.
func (m *notificationManager) NumClients() int {
	m.Lock()
	defer m.Unlock()

	return len(m.clients)
}

// ReserveClient takes a client slot ahead of a websocket upgrade.  It returns
// false when every slot is in use.  A successful reservation is consumed by
// AddClient or returned with ReleaseClient.
//
// This function is safe for concurrent access.
func (m *notificationManager) ReserveClient() bool {
	m.Lock()
	defer m.Unlock()

	if len(m.clients)+m.reserved >= m.maxClients {
		return false
	}
	m.reserved++
	return true
}

// ReleaseClient returns a slot taken by ReserveClient that was not used.
//
// This function is safe for concurrent access.
func (m *notificationManager) ReleaseClient() {
	m.Lock()
	defer m.Unlock()

	m.reserved--
}

// AddClient adds the passed websocket client to the notification manager,
// consuming a slot taken by ReserveClient.
//
// This function is safe for concurrent access.
func (m *notificationManager) AddClient(wsc *wsClient) {
	m.Lock()
	defer m.Unlock()

	if m.reserved > 0 {
		m.reserved--
	}
	m.clients[wsc.quit] = wsc
	m.metrics.notifyClients.Set(float64(len(m.clients)))
}

// RemoveClient removes the passed websocket client.
//
// This function is safe for concurrent access.
func (m *notificationManager) RemoveClient(wsc *wsClient) {
	m.Lock()
	defer m.Unlock()

	delete(m.clients, wsc.quit)
	m.metrics.notifyClients.Set(float64(len(m.clients)))
}

// NotifyVersion queues an announcement of version to every client.
//
// This function is safe for concurrent access.
func (m *notificationManager) NotifyVersion(version int32) {
	msg := marshalVersion(version)

	m.Lock()
	defer m.Unlock()

	for _, wsc := range m.clients {
		wsc.QueueNotification(msg)
	}
}

// Shutdown disconnects all websocket clients the manager knows about.
func (m *notificationManager) Shutdown() {
	m.Lock()
	defer m.Unlock()

	for _, wsc := range m.clients {
		wsc.Disconnect()
	}
}

func newNotificationManager(maxClients int, m *metrics) *notificationManager {
	return &notificationManager{
		clients:    make(map[chan struct{}]*wsClient),
		maxClients: maxClients,
		metrics:    m,
	}
}

// wsResponse houses a message to send to a connected websocket client as
// well as a channel to reply on when the message is sent.
type wsResponse struct {
	msg      []byte
	doneChan chan bool
}

// wsClient provides an abstraction for handling a notification client.
// Notifications are sent via QueueNotification which implements a queue via
// notificationQueueHandler so that announcing a version never blocks on a
// slow client.  All messages are written by outHandler.  Anything the client
// sends is read and discarded.
type wsClient struct {
	// conn is the underlying websocket connection.
	conn *websocket.Conn

	// addr is the remote address of the client.
	addr string

	ntfnChan chan []byte
	sendChan chan wsResponse
	quit     chan struct{}
	quitOnce sync.Once
	wg       sync.WaitGroup
}

// inHandler reads until the connection fails so that control frames are
// processed and a closed connection is noticed.
func (c *wsClient) inHandler() {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure,
				websocket.CloseGoingAway) {

				select {
				case <-c.quit:
				default:
					log.Debugf("Websocket receive error from %s: %v",
						c.addr, err)
				}
			}
			break
		}
	}

	// Ensure the connection is closed.
	c.Disconnect()
	c.wg.Done()
	log.Tracef("Websocket client input handler done for %s", c.addr)
}

// notificationQueueHandler queues outgoing notifications so that callers of
// QueueNotification never wait on the network.  It must be run as a
// goroutine.
func (c *wsClient) notificationQueueHandler() {
	ntfnSentChan := make(chan bool, 1) // nonblocking sync

	pendingNtfns := list.New()
	waiting := false
out:
	for {
		select {
		case msg := <-c.ntfnChan:
			if !waiting {
				c.SendMessage(msg, ntfnSentChan)
			} else {
				pendingNtfns.PushBack(msg)
			}
			waiting = true

		case <-ntfnSentChan:
			next := pendingNtfns.Front()
			if next == nil {
				waiting = false
				continue
			}
			msg := pendingNtfns.Remove(next).([]byte)
			c.SendMessage(msg, ntfnSentChan)

		case <-c.quit:
			break out
		}
	}

	// Drain any wait channels before exiting so nothing is left waiting
	// around to send.
cleanup:
	for {
		select {
		case <-c.ntfnChan:
		case <-ntfnSentChan:
		default:
			break cleanup
		}
	}
	c.wg.Done()
	log.Tracef("Websocket client notification queue handler done for %s",
		c.addr)
}

// outHandler handles all outgoing messages for the websocket connection.  It
// must be run as a goroutine.
func (c *wsClient) outHandler() {
out:
	for {
		select {
		case r := <-c.sendChan:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := c.conn.WriteMessage(websocket.TextMessage, r.msg)
			if err != nil {
				c.Disconnect()
				break out
			}
			if r.doneChan != nil {
				r.doneChan <- true
			}

		case <-c.quit:
			break out
		}
	}

	// Drain any wait channels before exiting so nothing is left waiting
	// around to send.
cleanup:
	for {
		select {
		case r := <-c.sendChan:
			if r.doneChan != nil {
				r.doneChan <- false
			}
		default:
			break cleanup
		}
	}
	c.wg.Done()
	log.Tracef("Websocket client output handler done for %s", c.addr)
}

// SendMessage sends the passed message to the websocket client.  It is backed
// by a buffered channel, so it will not block until the send channel is full.
func (c *wsClient) SendMessage(msg []byte, doneChan chan bool) {
	select {
	case c.sendChan <- wsResponse{msg: msg, doneChan: doneChan}:
	case <-c.quit:
		if doneChan != nil {
			doneChan <- false
		}
	}
}

// QueueNotification queues the passed notification to be sent to the
// websocket client.
func (c *wsClient) QueueNotification(msg []byte) {
	select {
	case c.ntfnChan <- msg:
	case <-c.quit:
	}
}

// Disconnect disconnects the websocket client.
func (c *wsClient) Disconnect() {
	c.quitOnce.Do(func() {
		log.Tracef("Disconnecting websocket client %s", c.addr)
		close(c.quit)
		c.conn.Close()
	})
}

// Start begins processing input and output messages.
func (c *wsClient) Start() {
	log.Tracef("Starting websocket client %s", c.addr)

	c.wg.Add(3)
	go c.inHandler()
	go c.notificationQueueHandler()
	go c.outHandler()
}

// WaitForShutdown blocks until the websocket client goroutines are stopped
// and the connection is closed.
func (c *wsClient) WaitForShutdown() {
	c.wg.Wait()
}

func newWebsocketClient(conn *websocket.Conn, remoteAddr string) *wsClient {
	return &wsClient{
		conn:     conn,
		addr:     remoteAddr,
		ntfnChan: make(chan []byte, 1), // nonblocking sync
		sendChan: make(chan wsResponse, sendBufferSize),
		quit:     make(chan struct{}),
	}
}
