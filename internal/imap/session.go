package imap

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
)

var (
	// ErrConnection indicates the bridge is unreachable or the session died
	// and could not be re-established.
	ErrConnection = errors.New("imap: connection failed")
	// ErrAuth indicates the bridge rejected the credentials. Not retried.
	ErrAuth = errors.New("imap: authentication rejected")
	// ErrMailboxNotFound indicates the requested mailbox does not exist.
	ErrMailboxNotFound = errors.New("imap: mailbox not found")
)

// State is the authentication state of the managed session.
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateAuthenticated
)

// Manager owns the single authenticated IMAP session to the bridge.
//
// The session is not safe for concurrent protocol operations, so every
// access goes through With/WithClient, which hold the session mutex for the
// duration of the callback. Connection is lazy: nothing is dialed until the
// first operation needs the session.
type Manager struct {
	address  string
	useTLS   bool
	username string
	password string

	// dial is swappable for tests.
	dial func(address string, useTLS bool) (Client, error)

	mu       sync.Mutex
	client   Client
	state    State
	selected string
}

// NewManager creates a session manager for the given bridge endpoint.
func NewManager(address string, useTLS bool, username, password string) *Manager {
	return &Manager{
		address:  address,
		useTLS:   useTLS,
		username: username,
		password: password,
		dial:     Dial,
	}
}

// NewManagerWithDialer is like NewManager but with an injected dial function.
func NewManagerWithDialer(address string, useTLS bool, username, password string, dial func(string, bool) (Client, error)) *Manager {
	m := NewManager(address, useTLS, username, password)
	m.dial = dial
	return m
}

// With acquires the session exclusively, ensures it is connected and
// authenticated, selects the given mailbox, and runs fn against the client.
//
// A broken-connection error from any step invalidates the session and retries
// the whole sequence exactly once; a second consecutive failure surfaces
// wrapped in ErrConnection. Authentication and mailbox-not-found errors are
// never retried.
func (m *Manager) With(mailbox string, fn func(Client) error) error {
	return m.withRetry(func() error {
		if err := m.ensureConnectedLocked(); err != nil {
			return err
		}
		if err := m.selectLocked(mailbox); err != nil {
			return err
		}
		return fn(m.client)
	})
}

// WithClient is the variant of With for operations that do not need a
// selected mailbox (LIST, CREATE, DELETE).
func (m *Manager) WithClient(fn func(Client) error) error {
	return m.withRetry(func() error {
		if err := m.ensureConnectedLocked(); err != nil {
			return err
		}
		return fn(m.client)
	})
}

func (m *Manager) withRetry(run func() error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	err := run()
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrAuth) || errors.Is(err, ErrMailboxNotFound) {
		return err
	}
	if !isBrokenConnectionError(err) && !errors.Is(err, ErrConnection) {
		return err
	}

	log.Printf("Session: connection error, reconnecting: %v", err)
	m.invalidateLocked()

	if retryErr := run(); retryErr != nil {
		if errors.Is(retryErr, ErrAuth) || errors.Is(retryErr, ErrMailboxNotFound) {
			return retryErr
		}
		m.invalidateLocked()
		return fmt.Errorf("%w: %v", ErrConnection, retryErr)
	}
	return nil
}

// State returns the current session state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SelectedMailbox returns the name of the currently selected mailbox, or "".
func (m *Manager) SelectedMailbox() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selected
}

// Invalidate tears down the session so the next operation reconnects.
// Called by components that detect a protocol-level failure mid-operation.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidateLocked()
}

// Close logs out and releases the session.
func (m *Manager) Close() {
	m.Invalidate()
}

// ensureConnectedLocked dials and authenticates if needed. Idempotent:
// a no-op when the session is already authenticated.
func (m *Manager) ensureConnectedLocked() error {
	if m.state == StateAuthenticated && m.client != nil {
		return nil
	}

	c, err := m.dial(m.address, m.useTLS)
	if err != nil {
		m.state = StateDisconnected
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	m.client = c
	m.state = StateConnected

	if err := c.Login(m.username, m.password); err != nil {
		_ = c.Logout()
		m.client = nil
		m.state = StateDisconnected
		return fmt.Errorf("%w: %v", ErrAuth, err)
	}
	m.state = StateAuthenticated
	m.selected = ""

	return nil
}

func (m *Manager) selectLocked(mailbox string) error {
	if mailbox == "" || m.selected == mailbox {
		return nil
	}

	if _, err := m.client.Select(mailbox, false); err != nil {
		if isBrokenConnectionError(err) {
			return err
		}
		return fmt.Errorf("%w: %q: %v", ErrMailboxNotFound, mailbox, err)
	}
	m.selected = mailbox

	return nil
}

func (m *Manager) invalidateLocked() {
	if m.client != nil {
		_ = m.client.Logout()
	}
	m.client = nil
	m.state = StateDisconnected
	m.selected = ""
}

// isBrokenConnectionError checks if the error indicates a dead connection
// that can be recovered by reconnecting.
func isBrokenConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "use of closed network connection") ||
		strings.Contains(msg, "i/o timeout") ||
		strings.Contains(msg, "EOF")
}
