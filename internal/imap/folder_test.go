package imap

import (
	"testing"

	"github.com/emersion/go-imap"
)

type fakeListClient struct {
	fakeClient
	folders []string
}

func (f *fakeListClient) List(ref, name string, ch chan *imap.MailboxInfo) error {
	for _, folder := range f.folders {
		ch <- &imap.MailboxInfo{Name: folder}
	}
	close(ch)
	return nil
}

func TestListFolders(t *testing.T) {
	t.Run("collects folder names", func(t *testing.T) {
		fake := &fakeListClient{folders: []string{"INBOX", "Archive", "Trash"}}

		folders, err := ListFolders(fake)
		if err != nil {
			t.Fatalf("ListFolders returned error: %v", err)
		}
		if len(folders) != 3 {
			t.Errorf("expected 3 folders, got %v", folders)
		}
	})

	t.Run("rejects nil client", func(t *testing.T) {
		if _, err := ListFolders(nil); err == nil {
			t.Error("expected error for nil client")
		}
	})
}
