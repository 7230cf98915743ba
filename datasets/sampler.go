package datasets

import (
	"io"
	"log/slog"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// sampler holds the iteration state shared by the datasets: the epoch order
// walked by Yield, the augmentation RNG and the decoding parallelism.
type sampler struct {
	name      string
	size      int
	batchSize int
	workers   int
	logger    *slog.Logger

	// mu protects rng, order, cursor and shuffle.
	mu      sync.Mutex
	rng     *rand.Rand
	order   []int
	cursor  int
	shuffle *rand.Rand
}

func newSampler(name string, size int, cfg Config) *sampler {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
		cfg.Logger.Debug("no seed configured, picked a time based one", "dataset", name, "seed", seed)
	}
	workers := cfg.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	s := &sampler{
		name:      name,
		size:      size,
		batchSize: cfg.BatchSize,
		workers:   workers,
		logger:    cfg.Logger,
		rng:       rand.New(rand.NewSource(seed)),
		order:     make([]int, size),
	}
	for i := range s.order {
		s.order[i] = i
	}
	return s
}

// Len returns the number of examples in the split.
func (s *sampler) Len() int {
	return s.size
}

// Name implements train.Dataset.
func (s *sampler) Name() string {
	return s.name
}

// Shuffle permutes the order in which Yield visits the examples and rewinds
// to the start of the epoch. Every later Reset reshuffles with the same RNG.
// Example indices are not affected.
func (s *sampler) Shuffle(seed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shuffle = rand.New(rand.NewSource(seed))
	s.reshuffle()
	s.cursor = 0
}

// Reset implements train.Dataset. It restarts the epoch, and reshuffles if
// Shuffle was called before.
func (s *sampler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = 0
	if s.shuffle != nil {
		s.reshuffle()
	}
}

func (s *sampler) reshuffle() {
	s.shuffle.Shuffle(len(s.order), func(i, j int) {
		s.order[i], s.order[j] = s.order[j], s.order[i]
	})
}

// nextIndices returns the indices of the next batch, or io.EOF once the epoch
// is exhausted. The last batch may be smaller than batchSize.
func (s *sampler) nextIndices() ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor >= len(s.order) {
		return nil, io.EOF
	}
	end := min(s.cursor+s.batchSize, len(s.order))
	indices := append([]int(nil), s.order[s.cursor:end]...)
	s.cursor = end
	return indices, nil
}

func (s *sampler) checkIndex(i int) error {
	if i < 0 || i >= s.size {
		return errors.Errorf("index %d out of range [0, %d)", i, s.size)
	}
	return nil
}

// forEach validates indices, draws one RNG seed per index sequentially and then
// calls fn concurrently, each call with its own RNG. Results therefore only
// depend on the dataset seed, not on goroutine scheduling.
func (s *sampler) forEach(indices []int, fn func(pos, idx int, rng *rand.Rand) error) error {
	for _, idx := range indices {
		if err := s.checkIndex(idx); err != nil {
			return err
		}
	}
	seeds := make([]int64, len(indices))
	s.mu.Lock()
	for i := range seeds {
		seeds[i] = s.rng.Int63()
	}
	s.mu.Unlock()

	var g errgroup.Group
	g.SetLimit(s.workers)
	for pos, idx := range indices {
		g.Go(func() error {
			return fn(pos, idx, rand.New(rand.NewSource(seeds[pos])))
		})
	}
	return g.Wait()
}
