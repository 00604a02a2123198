// Package lock serializes access to the registry and snapshot stores across
// independently launched processes. The mutual-exclusion token is a bind on a
// fixed loopback TCP endpoint: at most one process on the host can hold it,
// and the kernel reclaims it whenever the holder exits, cleanly or not.
//
// While held, a responder goroutine answers every connection to the endpoint
// with the holder's identity so a blocked competitor can say who is in the way.
package lock

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultAddr          = "127.0.0.1:8089"
	DefaultRetryInterval = 30 * time.Second
)

// Owner identifies the process currently holding the lock.
type Owner struct {
	Name string `json:"name"`
	PID  int    `json:"pid"`
}

// LockedError is returned by a non-waiting Acquire when the endpoint is
// already bound by someone else.
type LockedError struct {
	Owner Owner
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("locked by %s (pid %d); try later or retry with --wait", e.Owner.Name, e.Owner.PID)
}

// Options controls Acquire behavior.
type Options struct {
	// Addr is the coordination endpoint. Every process coordinating on the
	// same resource must use the same value.
	Addr string

	// Holder describes this process; it is reported to competitors.
	Holder string

	// Wait retries until the lock is obtained or ctx is cancelled.
	Wait          bool
	RetryInterval time.Duration
}

// Lock is a held mutual-exclusion token. Release is idempotent; exiting the
// process releases it implicitly.
type Lock struct {
	owner    Owner
	listener net.Listener
}

func (l *Lock) Owner() Owner { return l.owner }

func (l *Lock) Release() {
	if l.listener != nil {
		_ = l.listener.Close()
		l.listener = nil
	}
}

// Acquire obtains the lock described by opts.
//
// With Wait unset a contended acquire fails immediately with *LockedError
// carrying the current owner. With Wait set it retries on a fixed interval
// until it wins or ctx is cancelled, logging the owner on every miss.
func Acquire(ctx context.Context, opts Options, log zerolog.Logger) (*Lock, error) {
	addr := strings.TrimSpace(opts.Addr)
	if addr == "" {
		addr = DefaultAddr
	}
	holder := strings.TrimSpace(opts.Holder)
	if holder == "" {
		holder = "another process"
	}
	interval := opts.RetryInterval
	if interval <= 0 {
		interval = DefaultRetryInterval
	}

	for {
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			l := &Lock{
				owner:    Owner{Name: holder, PID: os.Getpid()},
				listener: ln,
			}
			go respond(ln, l.owner)
			log.Debug().Str("addr", addr).Str("holder", holder).Msg("lock acquired")
			return l, nil
		}

		owner, qerr := QueryOwner(addr)
		if qerr != nil {
			// Bind failed but nobody answered: either the holder is mid
			// startup/shutdown or the port is taken by an unrelated service.
			owner = Owner{Name: "unknown"}
		}
		if !opts.Wait {
			return nil, &LockedError{Owner: owner}
		}

		log.Info().Str("holder", owner.Name).Int("pid", owner.PID).Msg("resource locked, retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
}

// QueryOwner asks whoever holds the endpoint to identify itself.
func QueryOwner(addr string) (Owner, error) {
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		return Owner{}, err
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var owner Owner
	if err := json.NewDecoder(conn).Decode(&owner); err != nil {
		return Owner{}, fmt.Errorf("decode lock owner: %w", err)
	}
	return owner, nil
}

// respond answers ownership queries until the listener is closed.
func respond(ln net.Listener, owner Owner) {
	payload, err := json.Marshal(owner)
	if err != nil {
		return
	}
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		_, _ = conn.Write(payload)
		_ = conn.Close()
	}
}
