package usecase

import "context"

type HealthOutput struct {
	Credential string
	Dispatch   string
}

// Health reports the token broker state and the dispatch mode.
func (s *Usecase) Health(ctx context.Context) HealthOutput {
	_, span := s.startSpan(ctx, "Health")
	defer span.End()

	return HealthOutput{
		Credential: s.broker.State().String(),
		Dispatch:   s.mode.String(),
	}
}
