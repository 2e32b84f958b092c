package previews

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/lueurxax/vrental/internal/core/errors"
	"github.com/lueurxax/vrental/internal/platform/observability"
)

// Previewer fetches the preview fields of a single listing.
type Previewer interface {
	FetchPreview(ctx context.Context, rawURL string) (*Fields, error)
}

// BatchResult holds one outcome per requested item, split by kind. Both
// lists follow request order.
type BatchResult struct {
	Previews []Result
	Errors   []Failure
}

// Service fetches previews for a batch of games concurrently.
type Service struct {
	previewer Previewer
	logger    *zerolog.Logger
	now       func() time.Time
}

func NewService(previewer Previewer, logger *zerolog.Logger) *Service {
	return &Service{
		previewer: previewer,
		logger:    logger,
		now:       time.Now,
	}
}

type outcome struct {
	result  *Result
	failure *Failure
}

// FetchBatch fetches every item concurrently. A failing or panicking item
// never cancels its siblings.
func (s *Service) FetchBatch(ctx context.Context, items []RequestItem) BatchResult {
	res := BatchResult{Previews: []Result{}}
	if len(items) == 0 {
		return res
	}

	logger := s.logger.With().Str(logKeyBatchID, uuid.NewString()).Logger()
	outcomes := make([]outcome, len(items))

	var g errgroup.Group

	for i, item := range items {
		g.Go(func() error {
			outcomes[i] = s.fetchOne(ctx, item, &logger)

			return nil
		})
	}

	_ = g.Wait()

	for _, o := range outcomes {
		switch {
		case o.result != nil:
			res.Previews = append(res.Previews, *o.result)
		case o.failure != nil:
			res.Errors = append(res.Errors, *o.failure)
		}
	}

	logger.Debug().Int("requested", len(items)).Int("previews", len(res.Previews)).
		Int("errors", len(res.Errors)).Msg("preview batch finished")

	return res
}

func (s *Service) fetchOne(ctx context.Context, item RequestItem, logger *zerolog.Logger) (o outcome) {
	defer func() {
		if r := recover(); r != nil {
			observability.PreviewItemPanics.Inc()
			logger.Error().Str(logKeyGameID, item.ID.String()).Interface("panic", r).Msg("preview fetch panicked")

			o = outcome{failure: &Failure{GameID: item.ID, Message: coalesce(fmt.Sprint(r), apperrors.ErrPreviewFailed.Error())}}
		}
	}()

	fields, err := s.previewer.FetchPreview(ctx, item.SourceURL)
	if err == nil && fields == nil {
		err = apperrors.ErrPreviewFailed
	}

	if err != nil {
		logger.Warn().Err(err).Str(logKeyGameID, item.ID.String()).Str(logKeyURL, item.SourceURL).
			Msg("preview fetch failed")

		return outcome{failure: &Failure{GameID: item.ID, Message: failureMessage(err)}}
	}

	result := newResult(item.ID, item.SourceURL, *fields, s.now())

	return outcome{result: &result}
}

func failureMessage(err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}

	return apperrors.ErrPreviewFailed.Error()
}
