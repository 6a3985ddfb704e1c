package crank

import (
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"github.com/samber/do/v2"
	"github.com/vreid/dareme/internal/pkg/escrow"
	"github.com/vreid/dareme/internal/pkg/identity"
)

// CrankService periodically expires every dare whose deadline or dispute
// window has passed. Expire is permissionless, so Operator only shows up in
// the logs.
type CrankService struct {
	EscrowService *escrow.EscrowService

	Clock    clockwork.Clock
	Operator identity.Key
	Interval time.Duration

	scheduler gocron.Scheduler
}

func NewCrankService(i do.Injector) (*CrankService, error) {
	escrowService := do.MustInvoke[*escrow.EscrowService](i)
	clock := do.MustInvoke[clockwork.Clock](i)
	operator := do.MustInvokeNamed[identity.Key](i, "crank-operator")
	interval := do.MustInvokeNamed[time.Duration](i, "crank-interval")

	result := &CrankService{
		EscrowService: escrowService,

		Clock:    clock,
		Operator: operator,
		Interval: interval,
	}

	return result, nil
}

func (s *CrankService) Start() error {
	scheduler, err := gocron.NewScheduler(gocron.WithClock(s.Clock))
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(s.Interval),
		gocron.NewTask(func() {
			_, err := s.Sweep()
			if err != nil {
				log.Printf("[Crank] sweep failed: %v", err)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule crank: %w", err)
	}

	scheduler.Start()

	s.scheduler = scheduler

	log.Printf("[Crank] running every %s as %s", s.Interval, s.Operator)

	return nil
}

// Sweep expires every current candidate once and returns how many
// succeeded. A candidate that fails is logged and left for the next run.
func (s *CrankService) Sweep() (int, error) {
	candidates, err := s.EscrowService.ExpiryCandidates()
	if err != nil {
		return 0, fmt.Errorf("failed to list expiry candidates: %w", err)
	}

	expired := 0

	for _, candidate := range candidates {
		_, err := s.EscrowService.ExpireDare(s.Operator, candidate.Ref, candidate.Recipient)
		if err != nil {
			log.Printf("[Crank] failed to expire dare %s/%d: %v",
				candidate.Ref.Challenger, candidate.Ref.DareID, err)

			continue
		}

		expired++
	}

	return expired, nil
}

func (s *CrankService) Shutdown() error {
	if s.scheduler == nil {
		return nil
	}

	err := s.scheduler.Shutdown()
	if err != nil {
		return fmt.Errorf("failed to shutdown scheduler: %w", err)
	}

	return nil
}
