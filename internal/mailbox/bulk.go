package mailbox

import "github.com/dmeyer/bridgemail/internal/batch"

// BulkMove moves a set of messages from source to target in chunked batch
// commands. Partial failure is reported in the result, never as an error.
func (s *Service) BulkMove(source string, uids []uint32, target string) (batch.Result, error) {
	return s.runBatch(source, batch.Move(target), uids)
}

// BulkMarkRead marks a set of messages read (or unread when read is false).
func (s *Service) BulkMarkRead(source string, uids []uint32, read bool) (batch.Result, error) {
	op := batch.MarkRead()
	if !read {
		op = batch.MarkUnread()
	}
	return s.runBatch(source, op, uids)
}

// BulkMarkImportant flags a set of messages as important.
func (s *Service) BulkMarkImportant(source string, uids []uint32) (batch.Result, error) {
	return s.runBatch(source, batch.MarkImportant(), uids)
}

// BulkDelete deletes a set of messages: moved to the trash folder, or
// flagged \Deleted and expunged when permanent is set.
func (s *Service) BulkDelete(source string, uids []uint32, permanent bool) (batch.Result, error) {
	return s.runBatch(source, batch.Delete(permanent), uids)
}
