package service

import (
	"context"
	"errors"

	"plugin-directory-backend/internal/database/models"
	apperrors "plugin-directory-backend/internal/errors"
	"plugin-directory-backend/internal/logger"
)

// ResyncReport summarizes one ResyncAll run
type ResyncReport struct {
	Total   int `json:"total"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// ResyncAll maps every sync plugin onto its plugin row, page by page. Records
// without metadata are skipped; a failing record is logged and counted.
func (s *PluginService) ResyncAll(ctx context.Context, batchSize int) (*ResyncReport, error) {
	if batchSize <= 0 {
		return nil, apperrors.ErrInvalidBatchSize
	}

	log := logger.FromContext(ctx)
	report := &ResyncReport{}

	for offset := 0; ; offset += batchSize {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		batch, total, err := s.store.SyncPlugins().GetAll(batchSize, offset)
		if err != nil {
			return report, err
		}

		for i := range batch {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			report.Total++
			s.resyncOne(ctx, &batch[i], report)
		}

		if len(batch) < batchSize || int64(offset+len(batch)) >= total {
			break
		}
	}

	log.WithFields(map[string]interface{}{
		"total":   report.Total,
		"created": report.Created,
		"updated": report.Updated,
		"skipped": report.Skipped,
		"failed":  report.Failed,
	}).Info("Plugin resync finished")
	return report, nil
}

func (s *PluginService) resyncOne(ctx context.Context, syncPlugin *models.SyncPlugin, report *ResyncReport) {
	log := logger.FromContext(ctx).WithField("slug", syncPlugin.Slug)

	if !syncPlugin.HasMetadata() {
		report.Skipped++
		log.Debug("Skipping sync plugin without metadata")
		return
	}

	existing, err := s.findBySyncID(syncPlugin.ID)
	if err != nil {
		report.Failed++
		log.WithError(err).Warn("Failed to look up plugin")
		return
	}

	if existing == nil {
		if _, err := s.CreateFromSyncPlugin(syncPlugin); err != nil {
			report.Failed++
			log.WithError(err).Warn("Failed to create plugin")
			return
		}
		report.Created++
		return
	}

	if _, err := s.UpdateFromSyncPlugin(existing); err != nil {
		if errors.Is(err, apperrors.ErrSlugMismatch) {
			log = log.WithField("plugin_slug", existing.Slug)
		}
		report.Failed++
		log.WithError(err).Warn("Failed to refresh plugin")
		return
	}
	report.Updated++
}
