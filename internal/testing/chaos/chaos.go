// Package chaos corrupts valid inputs so parser tests can verify that
// malformed data produces errors instead of panics.
package chaos

import "math/rand"

// Corruptor produces corrupted variants of an input, deterministically
// for a given seed.
type Corruptor struct {
	rng       *rand.Rand
	mutations []func([]byte) []byte
}

// NewCorruptor creates a Corruptor seeded for reproducible corpora.
func NewCorruptor(seed int64) *Corruptor {
	c := &Corruptor{rng: rand.New(rand.NewSource(seed))}
	c.mutations = []func([]byte) []byte{
		c.flipBit,
		c.deleteByte,
		c.insertByte,
		c.replaceByte,
		c.breakUTF8,
		c.truncate,
	}
	return c
}

// Corrupt applies one random mutation to a copy of input.
func (c *Corruptor) Corrupt(input []byte) []byte {
	out := make([]byte, len(input))
	copy(out, input)
	if len(out) == 0 {
		return c.insertByte(out)
	}
	return c.mutations[c.rng.Intn(len(c.mutations))](out)
}

// CorruptN applies n mutations in sequence.
func (c *Corruptor) CorruptN(input []byte, n int) []byte {
	out := make([]byte, len(input))
	copy(out, input)
	for i := 0; i < n; i++ {
		out = c.Corrupt(out)
	}
	return out
}

// GenerateCorpus produces count corrupted variants of valid with varying
// mutation intensity.
func (c *Corruptor) GenerateCorpus(valid []byte, count int) [][]byte {
	corpus := make([][]byte, count)
	for i := range corpus {
		corpus[i] = c.CorruptN(valid, c.rng.Intn(5)+1)
	}
	return corpus
}

func (c *Corruptor) flipBit(b []byte) []byte {
	b[c.rng.Intn(len(b))] ^= 1 << c.rng.Intn(8)
	return b
}

func (c *Corruptor) deleteByte(b []byte) []byte {
	if len(b) <= 1 {
		return b
	}
	i := c.rng.Intn(len(b))
	return append(b[:i], b[i+1:]...)
}

func (c *Corruptor) insertByte(b []byte) []byte {
	i := c.rng.Intn(len(b) + 1)
	v := byte(c.rng.Intn(256))
	return append(b[:i], append([]byte{v}, b[i:]...)...)
}

func (c *Corruptor) replaceByte(b []byte) []byte {
	b[c.rng.Intn(len(b))] = byte(c.rng.Intn(256))
	return b
}

// breakUTF8 overwrites a byte with a multi-byte start byte that is never
// followed by a valid continuation.
func (c *Corruptor) breakUTF8(b []byte) []byte {
	b[c.rng.Intn(len(b))] = 0xC0 | byte(c.rng.Intn(0x20))
	return b
}

func (c *Corruptor) truncate(b []byte) []byte {
	if len(b) <= 1 {
		return b
	}
	return b[:c.rng.Intn(len(b)-1)+1]
}
