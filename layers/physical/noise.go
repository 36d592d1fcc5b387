package physical

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type (
	// NoiseConfig makes a wire flip bits of the payloads it sends. Frames
	// hit by noise fail their checksum on the other end. Selective repeat
	// does not survive lost acks, so only the wire of the sending end of a
	// link should be noisy.
	NoiseConfig struct {
		// BitErrorProbability is the probability of one random bit of a
		// sent payload being flipped.
		BitErrorProbability float64 `yaml:"bitErrorProbability"`
		// Seed seeds the noise. Zero means seeded from the clock.
		Seed int64 `yaml:"seed"`
	}

	noise struct {
		p       float64
		mu      sync.Mutex
		rnd     *rand.Rand
		flipped prometheus.Counter
	}
)

func newNoise(conf *NoiseConfig, flipped prometheus.Counter) (*noise, error) {
	if conf == nil || conf.BitErrorProbability == 0 {
		return nil, nil
	}
	if p := conf.BitErrorProbability; p < 0 || 1 < p {
		return nil, fmt.Errorf("bit error probability must be in [0, 1], got %v", p)
	}
	seed := conf.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &noise{
		p:       conf.BitErrorProbability,
		rnd:     rand.New(rand.NewSource(seed)),
		flipped: flipped,
	}, nil
}

// apply returns the payload as it travels on the wire. The input is never
// modified, a hit payload is copied before the flip.
func (n *noise) apply(payload []byte) []byte {
	if n == nil {
		return payload
	}

	n.mu.Lock()
	hit := n.rnd.Float64() < n.p
	bit := n.rnd.Intn(8 * len(payload))
	n.mu.Unlock()
	if !hit {
		return payload
	}

	out := append([]byte(nil), payload...)
	out[bit/8] ^= 1 << (bit % 8)
	n.flipped.Inc()
	return out
}
