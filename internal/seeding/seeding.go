// Package seeding owns the random state of a training process.
//
// A Context is built once at process start and handed to whatever needs
// randomness, instead of relying on package-level generators.
package seeding

import (
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"sync"
)

// HashSeedEnv is inherited by child interpreter processes and fixes their
// string hashing.
const HashSeedEnv = "PYTHONHASHSEED"

// Stream identifies one of the seeded generators.
type Stream int

const (
	General Stream = iota
	Array
	Tensor
	Accelerator
)

var streamNames = [...]string{"general", "array", "tensor", "accelerator"}

func (s Stream) String() string {
	if int(s) < len(streamNames) {
		return streamNames[s]
	}
	return "stream(" + strconv.Itoa(int(s)) + ")"
}

// Context holds every generator of the process together with the backend
// determinism flags.
type Context struct {
	mu         sync.Mutex
	seed       int64
	seeded     bool
	generators [len(streamNames)]*rand.Rand

	// Deterministic forces deterministic kernel selection in the numeric backend.
	Deterministic bool
	// Benchmark lets the numeric backend autotune kernels, which breaks
	// reproducibility.
	Benchmark bool

	setenv func(key, value string) error
}

// NewContext returns an unseeded context that writes the process environment.
func NewContext() *Context {
	return &Context{setenv: os.Setenv}
}

// NewContextWithEnv is NewContext with a custom environment writer.
func NewContextWithEnv(setenv func(key, value string) error) *Context {
	return &Context{setenv: setenv}
}

// Seed reseeds every stream from seed, exports the hash seed and pins the
// determinism flags.
func (c *Context) Seed(seed int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.generators {
		c.generators[i] = rand.New(rand.NewSource(streamSeed(seed, Stream(i))))
	}
	if c.setenv != nil {
		if err := c.setenv(HashSeedEnv, strconv.FormatInt(seed, 10)); err != nil {
			return fmt.Errorf("failed to export %s: %w", HashSeedEnv, err)
		}
	}
	c.Deterministic = true
	c.Benchmark = false
	c.seed = seed
	c.seeded = true
	return nil
}

// streamSeed offsets seed by a per-stream constant so that streams do not
// replay each other. The general stream uses seed itself.
func streamSeed(seed int64, s Stream) int64 {
	return int64(uint64(seed) + uint64(s)*0x9E3779B97F4A7C15)
}

// Seeded reports whether Seed has been called.
func (c *Context) Seeded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seeded
}

// Value returns the last seed.
func (c *Context) Value() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seed
}

// Rand returns the generator of a stream. It panics if the context has
// not been seeded.
func (c *Context) Rand(s Stream) *rand.Rand {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.seeded {
		panic("seeding: Rand called before Seed")
	}
	return c.generators[s]
}

// Env returns the environment entries a child training process needs to
// reproduce this context.
func (c *Context) Env() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.seeded {
		return nil
	}
	return []string{
		HashSeedEnv + "=" + strconv.FormatInt(c.seed, 10),
	}
}
