package imap

import (
	"fmt"

	"github.com/emersion/go-imap"
)

// ListFolders lists all folders on the server.
func ListFolders(c Client) ([]string, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}

	mailboxes := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)

	go func() {
		done <- c.List("", "*", mailboxes)
	}()

	var folders []string
	for m := range mailboxes {
		folders = append(folders, m.Name)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}

	return folders, nil
}

// CreateFolder creates a folder on the server.
func CreateFolder(c Client, name string) error {
	if err := c.Create(name); err != nil {
		return fmt.Errorf("failed to create folder %s: %w", name, err)
	}
	return nil
}

// DeleteFolder deletes a folder on the server.
func DeleteFolder(c Client, name string) error {
	if err := c.Delete(name); err != nil {
		return fmt.Errorf("failed to delete folder %s: %w", name, err)
	}
	return nil
}
