package repositories

import (
	"codeshare/domain"
	"codeshare/errors"
	"codeshare/ledger"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/dgraph-io/badger/v4"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const archivePrefix = "archive:"

// ArchiveRepository keeps evicted sessions in BadgerDB, one protobuf record per eviction.
type ArchiveRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewArchiveRepository(db *badger.DB, log *slog.Logger) ArchiveRepository {
	return ArchiveRepository{db: db, log: log}
}

// Store persists an archive under "archive:{escaped_session_id}:{evicted_at_padded}".
// The id is query-escaped so it never carries the ':' separator.
// A session id that was evicted, reopened and evicted again keeps both records,
// the padded timestamp sorts them chronologically.
func (a ArchiveRepository) Store(ctx context.Context, archive domain.Archive) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	record, err := toRecord(archive)
	if err != nil {
		return err
	}
	bytes, err := proto.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return a.db.Update(func(txn *badger.Txn) error {
		return txn.Set(archiveKey(archive.SessionID, archive.EvictedAt), bytes)
	})
}

// Get returns the latest archive of sessionID.
func (a ArchiveRepository) Get(sessionID domain.SessionID) (domain.Archive, error) {
	var archive domain.Archive
	found := false
	err := a.db.View(func(txn *badger.Txn) error {
		prefix := archivePrefixOf(sessionID)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Reverse iteration starts at the highest key below the seek key
		it.Seek(append(prefix, []byte("9999999999999999999")...))
		if !it.ValidForPrefix(prefix) {
			return nil
		}
		return it.Item().Value(func(value []byte) error {
			decoded, err := DecodeArchive(value)
			if err != nil {
				return err
			}
			archive, found = decoded, true
			return nil
		})
	})
	if err != nil {
		return domain.Archive{}, err
	}
	if !found {
		return domain.Archive{}, fmt.Errorf("%w: %s", errors.ErrArchiveNotFound, sessionID)
	}
	return archive, nil
}

// List returns every stored archive ordered by session id then eviction time.
// A record that cannot be decoded is skipped and logged.
func (a ArchiveRepository) List() ([]domain.Archive, error) {
	var archives []domain.Archive
	err := a.db.View(func(txn *badger.Txn) error {
		prefix := []byte(archivePrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(value []byte) error {
				archive, err := DecodeArchive(value)
				if err != nil {
					a.log.Warn("Skipping unreadable archive", "key", string(item.Key()), "error", err)
					return nil
				}
				archives = append(archives, archive)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return archives, err
}

func archivePrefixOf(sessionID domain.SessionID) []byte {
	return []byte(archivePrefix + url.QueryEscape(string(sessionID)) + ":")
}

func archiveKey(sessionID domain.SessionID, evictedAt time.Time) []byte {
	return fmt.Appendf(archivePrefixOf(sessionID), "%019d", evictedAt.UnixNano())
}

// DecodeArchive reads one stored archive record.
func DecodeArchive(value []byte) (domain.Archive, error) {
	var record structpb.Struct
	if err := proto.Unmarshal(value, &record); err != nil {
		return domain.Archive{}, fmt.Errorf("%w: %v", errors.ErrMalformedArchive, err)
	}
	return fromRecord(&record)
}

func toRecord(archive domain.Archive) (*structpb.Struct, error) {
	chain := make([]any, 0, len(archive.Chain))
	for _, block := range archive.Chain {
		chain = append(chain, map[string]any{
			"index":         block.Index,
			"timestamp":     formatTime(block.Timestamp),
			"user_id":       block.UserID,
			"action":        block.Action,
			"payload":       block.Payload,
			"previous_hash": block.PreviousHash,
			"hash":          block.Hash,
		})
	}
	return structpb.NewStruct(map[string]any{
		"session_id": string(archive.SessionID),
		"content":    archive.Content,
		"language":   archive.Language,
		"revision":   archive.Revision,
		"owner_id":   archive.OwnerID,
		"created_at": formatTime(archive.CreatedAt),
		"evicted_at": formatTime(archive.EvictedAt),
		"chain":      chain,
		"seal": map[string]any{
			"length":    archive.Seal.Length,
			"head_hash": archive.Seal.HeadHash,
			"key_id":    archive.Seal.KeyID,
			"signature": archive.Seal.Signature,
		},
	})
}

func fromRecord(record *structpb.Struct) (domain.Archive, error) {
	fields := record.GetFields()
	createdAt, err := parseTime(fields["created_at"].GetStringValue())
	if err != nil {
		return domain.Archive{}, err
	}
	evictedAt, err := parseTime(fields["evicted_at"].GetStringValue())
	if err != nil {
		return domain.Archive{}, err
	}

	values := fields["chain"].GetListValue().GetValues()
	chain := make([]ledger.Block, 0, len(values))
	for _, value := range values {
		block := value.GetStructValue().GetFields()
		at, err := parseTime(block["timestamp"].GetStringValue())
		if err != nil {
			return domain.Archive{}, err
		}
		chain = append(chain, ledger.Block{
			Index:        int(block["index"].GetNumberValue()),
			Timestamp:    at,
			UserID:       block["user_id"].GetStringValue(),
			Action:       block["action"].GetStringValue(),
			Payload:      block["payload"].GetStringValue(),
			PreviousHash: block["previous_hash"].GetStringValue(),
			Hash:         block["hash"].GetStringValue(),
		})
	}

	seal := fields["seal"].GetStructValue().GetFields()
	return domain.Archive{
		SessionID: domain.SessionID(fields["session_id"].GetStringValue()),
		Content:   fields["content"].GetStringValue(),
		Language:  fields["language"].GetStringValue(),
		Revision:  uint64(fields["revision"].GetNumberValue()),
		OwnerID:   fields["owner_id"].GetStringValue(),
		CreatedAt: createdAt,
		EvictedAt: evictedAt,
		Chain:     chain,
		Seal: ledger.Seal{
			Length:    int(seal["length"].GetNumberValue()),
			HeadHash:  seal["head_hash"].GetStringValue(),
			KeyID:     seal["key_id"].GetStringValue(),
			Signature: seal["signature"].GetStringValue(),
		},
	}, nil
}

// Timestamps are stored as text so the nanoseconds the block hash covers survive.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", errors.ErrMalformedArchive, err)
	}
	return t, nil
}
