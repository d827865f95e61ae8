package main

import (
	"codeshare/repositories"
	"fmt"

	"github.com/mama165/sdk-go/database"
)

// ArchiveMapper renders an archived session for the badger debug inspector.
func ArchiveMapper(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)

	archive, err := repositories.DecodeArchive(val)
	if err != nil {
		row.Detail = "Error: unmarshal failed"
		return row
	}

	row.Type = "ARCHIVE"
	row.Detail = fmt.Sprintf("%s %s rev=%d blocks=%d owner=%s",
		archive.SessionID, archive.Language, archive.Revision, len(archive.Chain), archive.OwnerID)
	return row
}
