package journey

import (
	"fmt"
	"math/rand"
	"sync"
)

// Selector picks journeys by weighted random choice. Weights need not sum
// to 1; they are normalized at selection time.
type Selector struct {
	journeys []Journey
	total    float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector validates the journey set and builds a selector. A nil rng
// seeds from the global source; tests inject a seeded one.
func NewSelector(journeys []Journey, rng *rand.Rand) (*Selector, error) {
	if len(journeys) == 0 {
		return nil, fmt.Errorf("journey: selector needs at least one journey")
	}
	var total float64
	for _, j := range journeys {
		if err := j.Validate(); err != nil {
			return nil, err
		}
		total += j.Weight
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Selector{journeys: journeys, total: total, rng: rng}, nil
}

// Pick returns one journey, chosen proportionally to weight.
func (s *Selector) Pick() Journey {
	if len(s.journeys) == 1 {
		return s.journeys[0]
	}

	s.mu.Lock()
	x := s.rng.Float64() * s.total
	s.mu.Unlock()

	for _, j := range s.journeys {
		x -= j.Weight
		if x < 0 {
			return j
		}
	}
	return s.journeys[len(s.journeys)-1]
}

// Journeys returns the configured journey set.
func (s *Selector) Journeys() []Journey {
	return s.journeys
}
