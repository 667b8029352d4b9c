package cachebus

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"github.com/rsimgroup/rsim/engine"
)

// Config describes one level of the reference cache (adapted from the
// teacher's timing/cache.Config; HitLatency/MissLatency here are the
// fixed completion delays this stand-in uses instead of a real
// hierarchy's variable timing).
type Config struct {
	Size          int
	Associativity int
	BlockSize     int
	HitLatency    int64
	MissLatency   int64
	InputPortSize int
}

// DefaultL1DConfig mirrors a small, fast L1 data cache.
func DefaultL1DConfig() Config {
	return Config{
		Size: 32 * 1024, Associativity: 4, BlockSize: 64,
		HitLatency: 2, MissLatency: 20, InputPortSize: 4,
	}
}

// Backing is the next level down (flat memory in tests).
type Backing interface {
	Read(addr uint64, size int) []byte
	Write(addr uint64, data []byte)
}

// Cache is the reference asynchronous cache port: a directory-managed set
// of lines (via akita's DirectoryImpl + LRU victim finder, exactly as the
// teacher's timing/cache package uses them) with a bounded input port and
// a completion queue draining on a fixed hit/miss latency. It implements
// Port.
type Cache struct {
	cfg       Config
	directory *akitacache.DirectoryImpl
	dataStore [][]byte
	backing   Backing

	inFlight  int
	completions *engine.Heap[Completion]
}

func completionLess(a, b Completion) bool {
	if a.Cycle != b.Cycle {
		return a.Cycle < b.Cycle
	}
	return a.Tag < b.Tag
}

// New creates a reference cache over backing.
func New(cfg Config, backing Backing) *Cache {
	numSets := cfg.Size / (cfg.Associativity * cfg.BlockSize)
	totalBlocks := numSets * cfg.Associativity
	dataStore := make([][]byte, totalBlocks)
	for i := range dataStore {
		dataStore[i] = make([]byte, cfg.BlockSize)
	}
	return &Cache{
		cfg: cfg,
		directory: akitacache.NewDirectory(
			numSets, cfg.Associativity, cfg.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		dataStore:   dataStore,
		backing:     backing,
		completions: engine.NewHeap[Completion](completionLess),
	}
}

func (c *Cache) blockIndex(block *akitacache.Block) int {
	return block.SetID*c.cfg.Associativity + block.WayID
}

func (c *Cache) blockAddr(addr uint64) uint64 {
	return (addr / uint64(c.cfg.BlockSize)) * uint64(c.cfg.BlockSize)
}

// Submit implements Port. Requests occupying a cache line are resolved
// synchronously against the directory (hit/miss classification and data
// movement), but the Completion is always deferred to Poll at the
// configured latency — the processor-to-cache boundary is asynchronous
// regardless of how fast the lookup itself is (spec 5).
func (c *Cache) Submit(req Request, currentCycle int64) bool {
	if c.inFlight >= c.cfg.InputPortSize {
		return false
	}
	c.inFlight++

	blockAddr := c.blockAddr(req.Addr)
	block := c.directory.Lookup(0, blockAddr)

	miss := MissL1Hit
	var data uint64
	latency := c.cfg.HitLatency

	if block != nil && block.IsValid {
		c.directory.Visit(block)
		blockData := c.dataStore[c.blockIndex(block)]
		offset := req.Addr % uint64(c.cfg.BlockSize)
		if req.Kind == AccessWrite || req.Kind == AccessRMW {
			storeBytes(blockData, offset, req.Size, req.Data)
			block.IsDirty = true
		} else {
			data = loadBytes(blockData, offset, req.Size)
		}
	} else {
		miss = MissLocalMem
		latency = c.cfg.MissLatency
		victim := c.directory.FindVictim(blockAddr)
		if victim != nil {
			victimData := c.dataStore[c.blockIndex(victim)]
			if victim.IsValid && victim.IsDirty && c.backing != nil {
				c.backing.Write(victim.Tag, victimData)
			}
			if c.backing != nil {
				copy(victimData, c.backing.Read(blockAddr, c.cfg.BlockSize))
			}
			victim.Tag, victim.IsValid, victim.IsDirty = blockAddr, true, false
			offset := req.Addr % uint64(c.cfg.BlockSize)
			if req.Kind == AccessWrite || req.Kind == AccessRMW {
				storeBytes(victimData, offset, req.Size, req.Data)
				victim.IsDirty = true
			} else {
				data = loadBytes(victimData, offset, req.Size)
			}
			c.directory.Visit(victim)
		}
	}

	c.completions.Insert(Completion{
		Tag: req.Tag, Miss: miss, GlobalPerform: true,
		Data: data, Cycle: currentCycle + latency,
	})
	return true
}

// Poll implements Port.
func (c *Cache) Poll(cycle int64) []Completion {
	var out []Completion
	c.completions.DrainUpTo(func(e Completion) bool { return e.Cycle <= cycle }, func(e Completion) {
		c.inFlight--
		out = append(out, e)
	})
	return out
}

func loadBytes(data []byte, offset uint64, size int) uint64 {
	if data == nil || int(offset)+size > len(data) {
		return 0
	}
	var result uint64
	for i := 0; i < size; i++ {
		result |= uint64(data[int(offset)+i]) << (8 * i)
	}
	return result
}

func storeBytes(data []byte, offset uint64, size int, value uint64) {
	if data == nil || int(offset)+size > len(data) {
		return
	}
	for i := 0; i < size; i++ {
		data[int(offset)+i] = byte(value >> (8 * i))
	}
}
