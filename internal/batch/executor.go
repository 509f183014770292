// Package batch turns logical bulk mailbox operations into the minimum
// number of protocol round-trips, falling back to per-message execution
// when the server rejects a combined command.
package batch

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/emersion/go-imap"
)

// Conn is the protocol surface the executor drives. The session manager's
// client satisfies it.
type Conn interface {
	UidStore(seqset *imap.SeqSet, item imap.StoreItem, value interface{}, ch chan *imap.Message) error
	UidMove(seqset *imap.SeqSet, dest string) error
	UidCopy(seqset *imap.SeqSet, dest string) error
	UidFetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error
	Expunge(ch chan uint32) error
}

// Kind identifies a bulk operation.
type Kind int

const (
	KindMarkRead Kind = iota
	KindMarkUnread
	KindMarkImportant
	KindMove
	KindDelete
)

// Operation is one bulk operation to apply to a set of message UIDs.
type Operation struct {
	kind      Kind
	target    string
	permanent bool
}

// MarkRead marks messages as read (adds \Seen).
func MarkRead() Operation { return Operation{kind: KindMarkRead} }

// MarkUnread marks messages as unread (removes \Seen).
func MarkUnread() Operation { return Operation{kind: KindMarkUnread} }

// MarkImportant flags messages as important (adds \Flagged).
func MarkImportant() Operation { return Operation{kind: KindMarkImportant} }

// Move moves messages to the target folder.
func Move(target string) Operation { return Operation{kind: KindMove, target: target} }

// Delete deletes messages. Non-permanent deletes move to the executor's
// trash folder; permanent deletes flag \Deleted and expunge.
func Delete(permanent bool) Operation { return Operation{kind: KindDelete, permanent: permanent} }

// Kind returns the operation kind.
func (op Operation) Kind() Kind { return op.kind }

// Target returns the destination folder for move operations.
func (op Operation) Target() string { return op.target }

func (op Operation) String() string {
	switch op.kind {
	case KindMarkRead:
		return "mark-read"
	case KindMarkUnread:
		return "mark-unread"
	case KindMarkImportant:
		return "mark-important"
	case KindMove:
		return "move:" + op.target
	case KindDelete:
		if op.permanent {
			return "delete-permanent"
		}
		return "delete"
	}
	return "unknown"
}

// Result is the aggregate outcome of a bulk operation. Partial failure is a
// normal, reportable outcome: the executor does not return an error for it.
// Only a dead connection aborts a run with an error.
//
// A UID in Failed has no guaranteed effect: the operation may or may not
// have applied depending on where the per-message fallback failed.
type Result struct {
	Succeeded []uint32          `json:"succeeded"`
	Failed    map[uint32]string `json:"failed,omitempty"`
}

// Partial reports whether some but not all messages failed.
func (r Result) Partial() bool {
	return len(r.Failed) > 0 && len(r.Succeeded) > 0
}

// Executor chunks UID sets into server-acceptable group sizes and executes
// one combined command per chunk.
type Executor struct {
	// ChunkSize caps UIDs per combined command. Default 50.
	ChunkSize int
	// BodyChunkSize caps UIDs per body-bearing fetch, which carries a much
	// larger payload per message. Default 10.
	BodyChunkSize int
	// Delay is the pause between chunks, a crude rate limit so large runs
	// do not overload the bridge. Zero disables it.
	Delay time.Duration
	// TrashFolder receives non-permanent deletes.
	TrashFolder string

	sleep func(time.Duration)
}

// NewExecutor creates an executor with the given chunk size and inter-chunk
// delay. Zero chunkSize selects the default.
func NewExecutor(chunkSize int, delay time.Duration, trashFolder string) *Executor {
	if chunkSize <= 0 {
		chunkSize = 50
	}
	if trashFolder == "" {
		trashFolder = "Trash"
	}
	return &Executor{
		ChunkSize:     chunkSize,
		BodyChunkSize: 10,
		Delay:         delay,
		TrashFolder:   trashFolder,
		sleep:         time.Sleep,
	}
}

// Run applies op to every UID in uids against the selected mailbox on conn.
//
// UIDs are deduplicated preserving order and partitioned into chunks of at
// most ChunkSize. Each chunk is issued as one combined UID command; if the
// server rejects it, the same operation is retried for every UID in the
// chunk individually so one bad UID cannot fail its neighbors. Every
// processed UID ends up in exactly one of Result.Succeeded or Result.Failed.
//
// A connection-class error aborts the run immediately and is returned so
// the session manager can invalidate the dead session and reconnect; only
// genuine per-message rejections land in Result.Failed.
func (e *Executor) Run(conn Conn, op Operation, uids []uint32) (Result, error) {
	result := Result{Failed: make(map[uint32]string)}

	uids = dedupe(uids)
	chunks := chunkUIDs(uids, e.ChunkSize)

	for i, chunk := range chunks {
		if i > 0 && e.Delay > 0 {
			e.sleep(e.Delay)
		}

		set := new(imap.SeqSet)
		set.AddNum(chunk...)

		err := e.apply(conn, op, set)
		if err == nil {
			result.Succeeded = append(result.Succeeded, chunk...)
			continue
		}
		if isConnectionError(err) {
			return trimFailed(result), fmt.Errorf("bulk %s aborted: %w", op, err)
		}
		log.Printf("Batch: combined %s rejected for %d messages, falling back to per-message execution: %v", op, len(chunk), err)

		for _, uid := range chunk {
			single := new(imap.SeqSet)
			single.AddNum(uid)
			if err := e.apply(conn, op, single); err != nil {
				if isConnectionError(err) {
					return trimFailed(result), fmt.Errorf("bulk %s aborted: %w", op, err)
				}
				result.Failed[uid] = err.Error()
			} else {
				result.Succeeded = append(result.Succeeded, uid)
			}
		}
	}

	return trimFailed(result), nil
}

func trimFailed(result Result) Result {
	if len(result.Failed) == 0 {
		result.Failed = nil
	}
	return result
}

// Fetch is the chunked fetch path. It fetches the given UIDs in chunks
// (smaller when withBody is set, since body payloads are large) and returns
// the messages it could retrieve; rejected chunks are logged and skipped.
// A connection-class error aborts the run and is returned.
func (e *Executor) Fetch(conn Conn, uids []uint32, withBody bool) ([]*imap.Message, error) {
	uids = dedupe(uids)

	chunkSize := e.ChunkSize
	if withBody && e.BodyChunkSize > 0 {
		chunkSize = e.BodyChunkSize
	}

	items := []imap.FetchItem{
		imap.FetchEnvelope,
		imap.FetchFlags,
		imap.FetchUid,
	}
	if withBody {
		section := &imap.BodySectionName{Peek: true}
		items = append(items, section.FetchItem())
	}

	var result []*imap.Message
	var lastErr error

	chunks := chunkUIDs(uids, chunkSize)
	for i, chunk := range chunks {
		if i > 0 && e.Delay > 0 {
			e.sleep(e.Delay)
		}

		set := new(imap.SeqSet)
		set.AddNum(chunk...)

		messages := make(chan *imap.Message, len(chunk))
		done := make(chan error, 1)
		go func() {
			done <- conn.UidFetch(set, items, messages)
		}()

		for msg := range messages {
			result = append(result, msg)
		}
		if err := <-done; err != nil {
			if isConnectionError(err) {
				return nil, fmt.Errorf("failed to fetch messages: %w", err)
			}
			log.Printf("Warning: fetch chunk of %d messages failed: %v", len(chunk), err)
			lastErr = err
		}
	}

	if len(result) == 0 && lastErr != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", lastErr)
	}

	return result, nil
}

// apply issues one combined command for the whole set.
func (e *Executor) apply(conn Conn, op Operation, set *imap.SeqSet) error {
	switch op.kind {
	case KindMarkRead:
		return e.store(conn, set, imap.AddFlags, imap.SeenFlag)
	case KindMarkUnread:
		return e.store(conn, set, imap.RemoveFlags, imap.SeenFlag)
	case KindMarkImportant:
		return e.store(conn, set, imap.AddFlags, imap.FlaggedFlag)
	case KindMove:
		return e.move(conn, set, op.target)
	case KindDelete:
		if op.permanent {
			if err := e.store(conn, set, imap.AddFlags, imap.DeletedFlag); err != nil {
				return err
			}
			if err := conn.Expunge(nil); err != nil {
				return fmt.Errorf("failed to expunge: %w", err)
			}
			return nil
		}
		return e.move(conn, set, e.TrashFolder)
	}
	return fmt.Errorf("unknown operation kind %d", op.kind)
}

func (e *Executor) store(conn Conn, set *imap.SeqSet, flagsOp imap.FlagsOp, flag string) error {
	item := imap.FormatFlagsOp(flagsOp, true)
	if err := conn.UidStore(set, item, []interface{}{flag}, nil); err != nil {
		return fmt.Errorf("failed to store flags: %w", err)
	}
	return nil
}

// move tries the MOVE extension first and falls back to
// copy + \Deleted + expunge for servers without it.
func (e *Executor) move(conn Conn, set *imap.SeqSet, dest string) error {
	if err := conn.UidMove(set, dest); err == nil {
		return nil
	}
	if err := conn.UidCopy(set, dest); err != nil {
		return fmt.Errorf("failed to copy to %s: %w", dest, err)
	}
	if err := e.store(conn, set, imap.AddFlags, imap.DeletedFlag); err != nil {
		return err
	}
	if err := conn.Expunge(nil); err != nil {
		return fmt.Errorf("failed to expunge: %w", err)
	}
	return nil
}

// isConnectionError reports whether the error indicates a dead session
// rather than a command rejection. Mirrors the session manager's
// classification so aborted runs trigger its reconnect-and-retry.
func isConnectionError(err error) bool {
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

func dedupe(uids []uint32) []uint32 {
	seen := make(map[uint32]struct{}, len(uids))
	out := make([]uint32, 0, len(uids))
	for _, uid := range uids {
		if _, ok := seen[uid]; ok {
			continue
		}
		seen[uid] = struct{}{}
		out = append(out, uid)
	}
	return out
}

func chunkUIDs(uids []uint32, size int) [][]uint32 {
	if size <= 0 {
		size = 50
	}
	var chunks [][]uint32
	for i := 0; i < len(uids); i += size {
		j := i + size
		if j > len(uids) {
			j = len(uids)
		}
		chunks = append(chunks, uids[i:j])
	}
	return chunks
}
