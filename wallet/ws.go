package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WSFeed subscribes to a wallet bridge websocket and surfaces accountsChanged
// notifications as [AccountChange] values. Raw provider events can fire in
// bursts; debouncing is the consumer's job, the feed only delivers.
type WSFeed struct {
	conn    *websocket.Conn
	changes chan AccountChange

	closeOnce sync.Once
	done      chan struct{}
}

// wsNotification is the bridge's push frame. Only accountsChanged is acted
// on; other methods are ignored.
type wsNotification struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// DialFeed connects to the bridge websocket, subscribes to account events,
// and starts the read pump.
func DialFeed(ctx context.Context, endpoint string) (*WSFeed, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: dial event feed: %v", ErrProviderUnavailable, err)
	}

	subscribe := map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "wallet_subscribe",
		"params":  []string{"accountsChanged"},
	}
	if err := conn.WriteJSON(subscribe); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: subscribe: %v", ErrProviderUnavailable, err)
	}

	feed := &WSFeed{
		conn:    conn,
		changes: make(chan AccountChange, 16),
		done:    make(chan struct{}),
	}
	go feed.readPump()
	return feed, nil
}

// Changes returns the notification channel. It is closed when the feed stops,
// whether by Close or by the connection dropping.
func (f *WSFeed) Changes() <-chan AccountChange {
	return f.changes
}

// Close stops the read pump and closes the connection. Safe to call more
// than once.
func (f *WSFeed) Close() error {
	var err error
	f.closeOnce.Do(func() {
		close(f.done)
		err = f.conn.Close()
	})
	return err
}

func (f *WSFeed) readPump() {
	defer close(f.changes)

	for {
		var frame wsNotification
		if err := f.conn.ReadJSON(&frame); err != nil {
			select {
			case <-f.done:
			default:
				log.Print("walletgate: wallet event feed closed: ", err)
			}
			return
		}
		if frame.Method != "accountsChanged" {
			continue
		}

		var accounts []string
		if err := json.Unmarshal(frame.Params, &accounts); err != nil {
			log.Print("walletgate: malformed accountsChanged params, skipping")
			continue
		}

		change := AccountChange{Accounts: accounts, At: time.Now()}
		select {
		case f.changes <- change:
		case <-f.done:
			return
		default:
			// Queue full: drop the oldest so the newest account state wins.
			select {
			case <-f.changes:
			default:
			}
			select {
			case f.changes <- change:
			default:
			}
		}
	}
}
