package imap

import (
	"errors"
	"fmt"
	"testing"

	"github.com/emersion/go-imap"
)

// fakeClient is a scriptable Client for session manager tests.
type fakeClient struct {
	loginErr   error
	selectErr  error
	searchErr  error
	loginCalls int
	selects    []string
	logouts    int
}

func (f *fakeClient) Login(username, password string) error {
	f.loginCalls++
	return f.loginErr
}

func (f *fakeClient) Logout() error {
	f.logouts++
	return nil
}

func (f *fakeClient) Select(name string, readOnly bool) (*imap.MailboxStatus, error) {
	if f.selectErr != nil {
		return nil, f.selectErr
	}
	f.selects = append(f.selects, name)
	return &imap.MailboxStatus{Name: name}, nil
}

func (f *fakeClient) List(ref, name string, ch chan *imap.MailboxInfo) error {
	close(ch)
	return nil
}

func (f *fakeClient) Create(name string) error { return nil }
func (f *fakeClient) Delete(name string) error { return nil }

func (f *fakeClient) UidSearch(criteria *imap.SearchCriteria) ([]uint32, error) {
	return nil, f.searchErr
}

func (f *fakeClient) UidFetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error {
	close(ch)
	return nil
}

func (f *fakeClient) UidStore(seqset *imap.SeqSet, item imap.StoreItem, value interface{}, ch chan *imap.Message) error {
	return nil
}

func (f *fakeClient) UidMove(seqset *imap.SeqSet, dest string) error { return nil }
func (f *fakeClient) UidCopy(seqset *imap.SeqSet, dest string) error { return nil }
func (f *fakeClient) Expunge(ch chan uint32) error                   { return nil }

func newTestManager(clients ...*fakeClient) (*Manager, *int) {
	dials := 0
	dial := func(address string, useTLS bool) (Client, error) {
		if dials >= len(clients) {
			return nil, fmt.Errorf("no more clients scripted")
		}
		c := clients[dials]
		dials++
		return c, nil
	}
	return NewManagerWithDialer("127.0.0.1:1143", false, "user", "pass", dial), &dials
}

func TestManagerLazyConnect(t *testing.T) {
	fake := &fakeClient{}
	m, dials := newTestManager(fake)

	if m.State() != StateDisconnected {
		t.Errorf("expected disconnected before first use, got %v", m.State())
	}
	if *dials != 0 {
		t.Errorf("expected no dial before first use, got %d", *dials)
	}

	err := m.With("INBOX", func(c Client) error { return nil })
	if err != nil {
		t.Fatalf("With returned error: %v", err)
	}

	if *dials != 1 {
		t.Errorf("expected 1 dial, got %d", *dials)
	}
	if fake.loginCalls != 1 {
		t.Errorf("expected 1 login, got %d", fake.loginCalls)
	}
	if m.State() != StateAuthenticated {
		t.Errorf("expected authenticated after use, got %v", m.State())
	}
	if m.SelectedMailbox() != "INBOX" {
		t.Errorf("expected INBOX selected, got %q", m.SelectedMailbox())
	}
}

func TestManagerReusesSession(t *testing.T) {
	fake := &fakeClient{}
	m, dials := newTestManager(fake)

	for i := 0; i < 3; i++ {
		if err := m.With("INBOX", func(c Client) error { return nil }); err != nil {
			t.Fatalf("With returned error: %v", err)
		}
	}

	if *dials != 1 {
		t.Errorf("expected single dial for repeated use, got %d", *dials)
	}
	if fake.loginCalls != 1 {
		t.Errorf("expected single login, got %d", fake.loginCalls)
	}
	// Selecting the same mailbox repeatedly issues SELECT once.
	if len(fake.selects) != 1 {
		t.Errorf("expected 1 SELECT, got %d", len(fake.selects))
	}
}

func TestManagerRetriesBrokenConnectionOnce(t *testing.T) {
	dead := &fakeClient{}
	fresh := &fakeClient{}
	m, dials := newTestManager(dead, fresh)

	calls := 0
	err := m.With("INBOX", func(c Client) error {
		calls++
		if calls == 1 {
			return errors.New("write tcp: broken pipe")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}

	if calls != 2 {
		t.Errorf("expected callback to run twice, ran %d times", calls)
	}
	if *dials != 2 {
		t.Errorf("expected reconnect dial, got %d dials", *dials)
	}
	if dead.logouts == 0 {
		t.Error("expected dead session to be logged out")
	}
}

func TestManagerSecondFailureIsConnectionError(t *testing.T) {
	m, _ := newTestManager(&fakeClient{}, &fakeClient{})

	err := m.With("INBOX", func(c Client) error {
		return errors.New("read tcp: connection reset by peer")
	})
	if !errors.Is(err, ErrConnection) {
		t.Errorf("expected ErrConnection after two failures, got %v", err)
	}
	if m.State() != StateDisconnected {
		t.Errorf("expected disconnected after repeated failures, got %v", m.State())
	}
}

func TestManagerAuthErrorIsNotRetried(t *testing.T) {
	rejected := &fakeClient{loginErr: errors.New("NO [AUTHENTICATIONFAILED]")}
	m, dials := newTestManager(rejected, &fakeClient{})

	err := m.With("INBOX", func(c Client) error { return nil })
	if !errors.Is(err, ErrAuth) {
		t.Errorf("expected ErrAuth, got %v", err)
	}
	if *dials != 1 {
		t.Errorf("expected no retry on auth failure, got %d dials", *dials)
	}
}

func TestManagerMailboxNotFound(t *testing.T) {
	fake := &fakeClient{selectErr: errors.New("NO mailbox does not exist")}
	m, dials := newTestManager(fake, &fakeClient{})

	err := m.With("Nope", func(c Client) error { return nil })
	if !errors.Is(err, ErrMailboxNotFound) {
		t.Errorf("expected ErrMailboxNotFound, got %v", err)
	}
	if *dials != 1 {
		t.Errorf("expected no retry for unknown mailbox, got %d dials", *dials)
	}
}

func TestManagerInvalidateForcesReconnect(t *testing.T) {
	m, dials := newTestManager(&fakeClient{}, &fakeClient{})

	if err := m.WithClient(func(c Client) error { return nil }); err != nil {
		t.Fatalf("WithClient returned error: %v", err)
	}
	m.Invalidate()
	if m.State() != StateDisconnected {
		t.Errorf("expected disconnected after invalidate, got %v", m.State())
	}

	if err := m.WithClient(func(c Client) error { return nil }); err != nil {
		t.Fatalf("WithClient returned error: %v", err)
	}
	if *dials != 2 {
		t.Errorf("expected reconnect after invalidate, got %d dials", *dials)
	}
}

func TestIsBrokenConnectionError(t *testing.T) {
	cases := []struct {
		err    error
		broken bool
	}{
		{nil, false},
		{errors.New("write tcp: broken pipe"), true},
		{errors.New("read tcp: connection reset by peer"), true},
		{errors.New("use of closed network connection"), true},
		{errors.New("i/o timeout"), true},
		{errors.New("unexpected EOF"), true},
		{errors.New("NO mailbox does not exist"), false},
	}
	for _, tc := range cases {
		if got := isBrokenConnectionError(tc.err); got != tc.broken {
			t.Errorf("isBrokenConnectionError(%v) = %v, want %v", tc.err, got, tc.broken)
		}
	}
}
