// Package rankcachetest provides an in-memory Redis for tests.
package rankcachetest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gomodule/redigo/redis"
)

var ErrDown = errors.New("connection refused")

// Redis implements just enough of Redis for the ranking cache: GET, SET and
// PING.
type Redis struct {
	mux  sync.Mutex
	kv   map[string][]byte
	down bool
}

func New() *Redis {
	return &Redis{kv: make(map[string][]byte)}
}

// SetDown makes every new connection fail until reset.
func (r *Redis) SetDown(down bool) {
	r.mux.Lock()
	defer r.mux.Unlock()
	r.down = down
}

func (r *Redis) Has(key string) bool {
	r.mux.Lock()
	defer r.mux.Unlock()
	_, ok := r.kv[key]
	return ok
}

func (r *Redis) GetContext(ctx context.Context) (redis.Conn, error) {
	r.mux.Lock()
	defer r.mux.Unlock()
	if r.down {
		return nil, ErrDown
	}
	return &conn{r}, nil
}

type conn struct {
	r *Redis
}

func (c *conn) Close() error { return nil }
func (c *conn) Err() error   { return nil }
func (c *conn) Flush() error { return nil }

func (c *conn) Send(cmd string, args ...interface{}) error {
	return errors.New("not supported")
}

func (c *conn) Receive() (interface{}, error) {
	return nil, errors.New("not supported")
}

func (c *conn) Do(cmd string, args ...interface{}) (interface{}, error) {
	c.r.mux.Lock()
	defer c.r.mux.Unlock()
	switch cmd {
	case "PING":
		return "PONG", nil
	case "SET":
		c.r.kv[args[0].(string)] = args[1].([]byte)
		return "OK", nil
	case "GET":
		b, ok := c.r.kv[args[0].(string)]
		if !ok {
			return nil, nil
		}
		return b, nil
	}
	return nil, fmt.Errorf("unknown command %q", cmd)
}
