package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Dosada05/tournament-fixtures/models"
)

// FixtureArchive keeps a JSON copy of a schedule before it gets replaced, so a
// destructive regeneration can still be inspected afterwards.
type FixtureArchive struct {
	uploader FileUploader
	now      func() time.Time
}

func NewFixtureArchive(uploader FileUploader) *FixtureArchive {
	return &FixtureArchive{uploader: uploader, now: time.Now}
}

func ArchiveKey(schedule *models.Schedule, at time.Time) string {
	return fmt.Sprintf("fixtures/%s/%s/v%d-%d.json",
		schedule.TournamentID, schedule.ID, schedule.Version, at.UTC().Unix())
}

func (a *FixtureArchive) Archive(ctx context.Context, schedule *models.Schedule) (*UploadResult, error) {
	body, err := json.Marshal(schedule)
	if err != nil {
		return nil, fmt.Errorf("failed to encode fixture %s for archive: %w", schedule.ID, err)
	}

	key := ArchiveKey(schedule, a.now())
	result, err := a.uploader.Upload(ctx, key, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to archive fixture %s: %w", schedule.ID, err)
	}
	return result, nil
}

func (a *FixtureArchive) Discard(ctx context.Context, key string) error {
	if err := a.uploader.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to discard fixture archive %s: %w", key, err)
	}
	return nil
}
