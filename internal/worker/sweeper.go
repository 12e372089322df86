package worker

import (
	"context"
	"log"
	"time"

	"github.com/videomerger/api/internal/store"
)

// Sweeper periodically removes aged-out files from the output store.
// Files with an in-flight download are skipped by the store itself.
type Sweeper struct {
	store    *store.Store
	maxAge   time.Duration
	interval time.Duration
}

func NewSweeper(st *store.Store, maxAge, interval time.Duration) *Sweeper {
	if interval < time.Minute {
		log.Printf("Sweep interval %s below minimum, using %s", interval, time.Minute)
		interval = time.Minute
	}
	return &Sweeper{
		store:    st,
		maxAge:   maxAge,
		interval: interval,
	}
}

// Start runs the sweep loop until ctx is canceled
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Printf("Output sweeper started (retention %s, interval %s)", s.maxAge, s.interval)

	for {
		select {
		case <-ctx.Done():
			log.Println("Output sweeper stopped")
			return
		case <-ticker.C:
			removed, err := s.store.Sweep(s.maxAge)
			if err != nil {
				log.Printf("Output sweep failed: %v", err)
				continue
			}
			if removed > 0 {
				log.Printf("Output sweep removed %d expired files", removed)
			}
		}
	}
}
