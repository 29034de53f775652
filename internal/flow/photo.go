package flow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BTreeMap/LockIn/internal/models"
	"github.com/google/uuid"
)

// handlePhoto stores an inbound image. The first photo a user ever sends is the baseline.
func (c *Coach) handlePhoto(ctx context.Context, r *request) (Reply, error) {
	existing, err := c.store.ListPhotos(r.user.ID, "", 1)
	if err != nil {
		return Reply{}, fmt.Errorf("failed to list photos: %w", err)
	}
	photoType := models.PhotoDaily
	if len(existing) == 0 {
		photoType = models.PhotoBaseline
	}
	photo := models.Photo{
		ID:        uuid.NewString(),
		UserID:    r.user.ID,
		Type:      photoType,
		URL:       r.msg.MediaURL,
		Date:      r.today(),
		CreatedAt: c.now(),
	}
	if err := c.store.AddPhoto(photo); err != nil {
		return Reply{}, fmt.Errorf("failed to save photo: %w", err)
	}
	slog.Debug("Photo: stored", "userID", r.user.ID, "type", photoType)

	body := fmt.Sprintf("Progress photo saved for %s.", photo.Date)
	if photoType == models.PhotoBaseline {
		body = "Baseline photo saved. This is the \"before\". Every photo from now on gets compared to it."
	}
	return Reply{Body: body, Flow: models.FlowTypePhoto}, nil
}
