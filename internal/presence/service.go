package presence

import (
	"context"

	"linkhub-ops/internal/ident"

	"github.com/rs/zerolog/log"
)

type Service struct {
	src Source
}

func NewService(src Source) *Service {
	return &Service{src: src}
}

// Lookup never fails: malformed ids and fetch errors degrade to offline.
func (s *Service) Lookup(ctx context.Context, userID string, includeActivity bool) Snapshot {
	if !ident.ValidUserID(userID) || s.src == nil {
		metricPresenceDegradedTotal.Add(1)
		return Offline()
	}
	raw, err := s.src.Fetch(ctx, userID)
	if err != nil {
		metricPresenceDegradedTotal.Add(1)
		log.Debug().Err(err).Str("user_id", userID).Msg("presence fetch failed")
		return Offline()
	}
	metricPresenceLookupsTotal.Add(1)
	return Translate(raw, includeActivity)
}
