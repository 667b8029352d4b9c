// Package core wires rename, activelist, branch, memunit, funits, except,
// traptable, stats and cachebus into the per-cycle Tick an external
// discrete-event scheduler drives (spec 5). Processor owns no thread of
// its own: Tick performs one cycle's bounded work and returns, exactly as
// spec 5's RSIM_EVENT callback model requires.
package core

import (
	"fmt"

	"github.com/rsimgroup/rsim/activelist"
	"github.com/rsimgroup/rsim/branch"
	"github.com/rsimgroup/rsim/cachebus"
	"github.com/rsimgroup/rsim/config"
	"github.com/rsimgroup/rsim/engine"
	"github.com/rsimgroup/rsim/except"
	"github.com/rsimgroup/rsim/funits"
	"github.com/rsimgroup/rsim/isa"
	"github.com/rsimgroup/rsim/loader"
	"github.com/rsimgroup/rsim/memunit"
	"github.com/rsimgroup/rsim/rename"
	"github.com/rsimgroup/rsim/stats"
	"github.com/rsimgroup/rsim/traptable"
)

// Option configures a Processor at construction, in the teacher's
// functional-option idiom (timing/pipeline.WithLatencyTable etc).
type Option func(*Processor)

// WithTrapTableBase overrides the synthetic PC range fetch redirects into
// on WINTRAP (default 0xFFFF000000000000).
func WithTrapTableBase(addr uint64) Option {
	return func(p *Processor) { p.traps = traptable.NewTable(addr) }
}

const defaultTrapTableBase = 0xFFFF000000000000

// Processor is one core: every subsystem plus the fetch cursor and
// per-cycle bookkeeping the spec 5 ordering needs.
type Processor struct {
	cfg   *config.Config
	prog  *loader.Program
	cache cachebus.Port

	tags  engine.TagAllocator
	ren   *rename.Unit
	al    *activelist.List
	ttab  *activelist.TagLookup
	br    *branch.Unit
	mem   *memunit.Unit
	fu    *funits.Pool
	traps *traptable.Table
	Stats *stats.Report

	drain     *except.Drain
	exceptPC  uint64
	exceptInst *engine.Instance

	pc       uint64
	cycle    int64
	halted   bool
	exitCode int64

	// readyALU/readyFPU/readyAddr are the tag-ordered FIFO ready queues
	// spec 5 calls for ("ready queues are tag-ordered FIFO"); issue pops
	// the head of each once its operands and a free unit are both
	// available, in program order within the kind.
	readyALU, readyFPU, readyAddr []*engine.Instance

	// memPortInFlight/memPortCapacity gate how many memory ops may be
	// outstanding at the cache port concurrently — see DESIGN.md for why
	// this bypasses funits.Pool's MEM kind rather than double-booking
	// against the cache's own completion timing.
	memPortInFlight, memPortCapacity int
}

// NewProcessor builds a processor bound to prog and cache, configured by
// cfg, with cfg.MaxSpeculations/ActiveListSize/etc sizing every
// subsystem's capacity.
func NewProcessor(cfg *config.Config, prog *loader.Program, cache cachebus.Port, opts ...Option) *Processor {
	p := &Processor{
		cfg:   cfg,
		prog:  prog,
		cache: cache,
		ren:   rename.NewUnit(32, 32+64, 32, 32+64, cfg.MaxSpeculations),
		al:    activelist.New(cfg.ActiveListSize),
		ttab:  activelist.NewTagLookup(cfg.ActiveListSize),
		br:    newBranchUnit(cfg),
		mem:   memunit.New(consistencyOf(cfg), ambigPolicyOf(cfg), cfg.MemQueueSize),
		fu:    funits.NewPool(funitSpecs(cfg)),
		traps: traptable.NewTable(defaultTrapTableBase),
		Stats: stats.New(),
		pc:    prog.EntryPoint,

		memPortCapacity: cfg.MemUnits,
	}
	p.mem.SpeculativeLoadsPastMembars = cfg.SpeculativeLoadsPastMembars
	p.mem.NonBlockingWrites = cfg.NonBlockingWrites
	for _, o := range opts {
		o(p)
	}
	return p
}

func newBranchUnit(cfg *config.Config) *branch.Unit {
	scheme := branch.Bimodal
	if cfg.Prediction == config.PredictionAgree {
		scheme = branch.Agree
	}
	tableSize := cfg.PredictorSize
	if cfg.Prediction == config.PredictionStatic {
		tableSize = 0
	}
	return branch.New(scheme, tableSize, cfg.RASDepth)
}

func consistencyOf(cfg *config.Config) memunit.Consistency {
	switch cfg.Consistency {
	case config.ModelSC:
		return memunit.SC
	case config.ModelPC:
		return memunit.PC
	default:
		return memunit.RC
	}
}

func ambigPolicyOf(cfg *config.Config) memunit.AmbigPolicy {
	switch cfg.SpeculativeLoad {
	case config.SpecLoadLimbo:
		return memunit.SpecLimbo
	case config.SpecLoadStall:
		return memunit.SpecStall
	default:
		return memunit.SpecExcept
	}
}

func funitSpecs(cfg *config.Config) [4]funits.Spec {
	var specs [4]funits.Spec
	specs[funits.ALU] = funits.Spec{Count: cfg.ALUUnits, Latency: cfg.ALULatency, Repeat: cfg.ALURepeat}
	specs[funits.FPU] = funits.Spec{Count: cfg.FPUUnits, Latency: cfg.FPULatency, Repeat: cfg.FPURepeat}
	specs[funits.ADDR] = funits.Spec{Count: cfg.AddrUnits, Latency: cfg.AddrLatency, Repeat: cfg.AddrRepeat}
	specs[funits.MEM] = funits.Spec{Count: cfg.MemUnits, Latency: cfg.MemLatency, Repeat: cfg.MemRepeat}
	return specs
}

// Halted reports whether an ILLTRAP trap 0 (exit) has retired.
func (p *Processor) Halted() bool { return p.halted }

// ExitCode returns the value the exiting ILLTRAP carried.
func (p *Processor) ExitCode() int64 { return p.exitCode }

// Cycle returns the number of cycles Tick has been called.
func (p *Processor) Cycle() int64 { return p.cycle }

// Instance looks up an in-flight instance by tag. Since this module is a
// timing simulator (spec 1's scope excludes a functional/correctness
// engine), data values, memory addresses, and branch outcomes are not
// computed here; an external functional model (or, in tests, the caller)
// sets them on the instance once it is visible here, between fetch and
// the functional unit completion that consumes them.
func (p *Processor) Instance(tag engine.Tag) (*engine.Instance, bool) {
	return p.ttab.Lookup(tag)
}

// Run drives Tick until the processor halts or maxCycles is exhausted (0
// means unbounded), returning the number of cycles actually run.
func (p *Processor) Run(maxCycles int64) int64 {
	var n int64
	for !p.halted && (maxCycles == 0 || n < maxCycles) {
		p.Tick()
		n++
	}
	return n
}

// Tick advances the processor by one cycle, in spec 5's fixed order:
// completion drain, graduation, decode/rename, issue, memory-unit issue,
// stats sampling. There is no separate availability-accounting step:
// decode/rename and issue record their losses as they stall.
func (p *Processor) Tick() {
	if p.halted {
		return
	}
	p.cycle++
	p.fu.FastMode = p.cfg.FastUnits

	p.drainCompletions()
	p.graduate()
	p.decodeRename()
	p.issue()
	p.issueMemUnit()
	p.Stats.RecordCycle()
}

func (p *Processor) drainCompletions() {
	p.fu.DrainCompletions(p.cycle, p.completeExec)
	p.fu.DrainFreeingUnits(p.cycle, func(funits.Kind) {})
	for _, c := range p.cache.Poll(p.cycle) {
		p.memPortInFlight--
		p.completeMem(c)
	}
}

func (p *Processor) completeExec(ev funits.RunningEvent) {
	in := ev.Inst
	if in.Code.IsBranch() {
		p.resolveBranch(in)
	}
	if in.Code.IsStore() {
		// Resolving the address here (rather than only at AddStore time)
		// is what lets blockedByAmbiguousStore/Disambiguate see it; the
		// store itself has nothing left to wait on in the active list
		// (its memory effect is async, handled after retirement), spec
		// 4.3's three-way classification.
		killed := p.mem.SetAddress(in.Tag, in.Addr, in.Code.Size)
		if p.mem.Policy == memunit.SpecExcept {
			for _, kt := range killed {
				// Under SPEC_EXCEPT, Disambiguate only stamped the live
				// instance's ExceptionCode; the active list has to be
				// told too or RemoveHead will never notice and the
				// stale load retires as if nothing happened. Under
				// SPEC_LIMBO the same killed list means "reissue
				// silently", not an exception, so this only applies here.
				p.al.FlagException(kt, engine.ExceptSOFTLimbo)
			}
		}
		p.al.MarkDone(in.Tag, engine.ExceptOK, p.cycle)
		return
	}
	if in.Code.IsLoad() {
		p.mem.SetLoadAddress(in.Tag, in.Addr, in.Code.Size)
		in.AddrReady = true
		return
	}
	p.retireRegisterProducer(in)
	p.al.MarkDone(in.Tag, in.ExceptionCode, p.cycle)
}

func (p *Processor) retireRegisterProducer(in *engine.Instance) {
	if in.PRd >= 0 {
		p.ren.Complete(in.PRd, regFileOf(in.Code.RdClass))
	}
	if in.PRdp >= 0 {
		p.ren.Complete(in.PRdp, rename.FileInt)
	}
	if in.PRcc >= 0 {
		p.ren.Complete(in.PRcc, rename.FileInt)
	}
}

func (p *Processor) completeMem(c cachebus.Completion) {
	// A store's memunit entry outlives its active-list one: stores mark
	// their active-list entries done and may graduate (leaving ttab) as
	// soon as their address resolves, well before this asynchronous
	// completion frees the virtual-store-buffer resident. So the ttab
	// lookup below is only meaningful, and only attempted, for loads.
	restart, isStore, found := p.mem.CompleteMemOp(c.Tag)
	if !found {
		return
	}
	if isStore {
		p.mem.Remove(c.Tag, true)
		return
	}
	in, ok := p.ttab.Lookup(c.Tag)
	if !ok {
		return // flushed before its completion arrived
	}
	if restart {
		in.AddrReady = false
		return
	}
	in.RdVal = c.Data
	p.retireRegisterProducer(in)
	p.al.MarkDone(in.Tag, in.ExceptionCode, p.cycle)
	p.mem.Remove(c.Tag, false)
}

func regFileOf(c isa.RegClass) rename.RegFile {
	if c == isa.RegFP || c == isa.RegFPHalf {
		return rename.FileFP
	}
	return rename.FileInt
}

func (p *Processor) graduate() {
	rate := p.cfg.EffectiveGraduateRate()
	const lookahead = 0
	for i := 0; i < rate; i++ {
		res, ready, hasException := p.al.RemoveHead(p.cycle, lookahead)
		if hasException {
			p.beginDrain(res.Tag, res.Exception)
			return
		}
		if !ready {
			return
		}
		p.ren.Retire(res.OldDest, res.DestFile)
		p.ren.Retire(res.OldCC, res.CCFile)
		if in, ok := p.ttab.Lookup(res.Tag); ok {
			if in.Code.IsStore() {
				// Stores, RMWs included (IsStore is true for them), are
				// marked ready to issue to the cache. A retiring load or
				// membar has nothing left to do here: a
				// load's memunit entry is already gone (completeMem removed it
				// once its data arrived, which is what let it reach done in
				// the first place); membars and ALU/FPU ops were never in
				// memunit at all.
				p.mem.MarkStoreReady(res.Tag)
			}
			p.markAggregateBucket(in)
		}
		p.ttab.PopHead()
		p.Stats.RecordGraduate()
	}
}

// markAggregateBucket implements the ILLTRAP aux2 marker convention (4.1):
// aux2 > 4096 opens an aggregate-latency measurement window, aux2 == 4096
// closes the currently open one. These are instrumentation markers, not
// exceptions - they retire normally and never reach beginDrain.
func (p *Processor) markAggregateBucket(in *engine.Instance) {
	if in.Code.Op != isa.OpILLTRAP || in.Code.TrapAux2 < 4096 {
		return
	}
	if in.Code.TrapAux2 == 4096 {
		p.Stats.CloseAggregateBucket(p.cycle)
		return
	}
	p.Stats.CloseAggregateBucket(p.cycle)
	p.Stats.OpenAggregateBucket(p.cycle)
}

func (p *Processor) beginDrain(tag engine.Tag, kind engine.ExceptKind) {
	// The excepting instance's own ttab/active-list entries are gone by
	// the time Dispatch runs (PhaseFlushing tail-flushes tag >= d.Tag,
	// which includes it), so whatever Dispatch needs off the instance —
	// restart PC, window direction, trap payload — must be captured here
	// first, while it is still live.
	p.exceptInst, _ = p.ttab.Lookup(tag)
	if p.exceptInst != nil {
		p.exceptPC = p.exceptInst.PC
	} else {
		p.exceptPC = p.pc
	}
	p.drain = except.NewDrain(kind, tag, p.cfg.ExceptFlushRate)
	p.Stats.RecordException(kind)
	p.advanceDrain()
}

func (p *Processor) advanceDrain() {
	d := p.drain
	if d == nil {
		return
	}
	d.AdvancePreDrain(0) // ready-unissued stores are not counted: pre-drain never waits on them
	if d.Phase == except.PhaseFlushing {
		p.flushFrom(d.Tag)
		d.AdvanceFlushing()
	}
	if d.Phase == except.PhaseFlushingActiveList {
		remaining := p.al.NumElements()
		d.TickActiveListFlush(remaining)
		for _, r := range p.al.FlushFrom(d.Tag) {
			p.ren.Retire(r.OldDest, r.DestFile)
			p.ren.Retire(r.OldCC, r.CCFile)
		}
	}
	if d.Phase == except.PhaseDispatch {
		p.dispatchException(d)
		d.Finish()
	}
	if d.Done() {
		p.drain = nil
	}
}

func (p *Processor) flushFrom(tag engine.Tag) {
	p.ren.Shadow.FlushFrom(tag)
	p.mem.FlushFrom(tag)
	p.ttab.FlushFrom(tag)
	p.readyALU = dropFromTag(p.readyALU, tag)
	p.readyFPU = dropFromTag(p.readyFPU, tag)
	p.readyAddr = dropFromTag(p.readyAddr, tag)
}

func dropFromTag(q []*engine.Instance, tag engine.Tag) []*engine.Instance {
	out := q[:0]
	for _, in := range q {
		if in.Tag < tag {
			out = append(out, in)
		}
	}
	return out
}

func (p *Processor) dispatchException(d *except.Drain) {
	switch d.Kind {
	case engine.ExceptWINTRAP:
		// SAVE overflowing CWP spills the new window; RESTORE underflowing
		// it fills the one being returned to (spec 4.6).
		kind := traptable.Fill
		if p.exceptInst != nil && p.exceptInst.Code.WindowChange == isa.WinSave {
			kind = traptable.Spill
		}
		_ = p.traps.Program(kind)
		p.pc = p.traps.BaseAddr
	case engine.ExceptSYSTRAP:
		p.handleSyscall(d.Tag)
		p.pc = p.exceptPC
	default:
		if !except.Recoverable(d.Kind) {
			p.halted = true
			return
		}
		// SEGV-in-stack-range growth, SERIALIZE emulation, and the soft
		// kinds all restart the excepting instance in place once drained.
		p.pc = p.exceptPC
	}
}

func (p *Processor) handleSyscall(tag engine.Tag) {
	// Trap-number dispatch (spec 6) is delegated to an external emulator in
	// the real system; here only the exit trap has in-core effect. The
	// excepting instance is already gone from ttab by the time this runs
	// (PhaseFlushing tail-flushes tag >= d.Tag), so beginDrain's captured
	// pointer is the only way to read its payload.
	in := p.exceptInst
	if in != nil && in.Tag == tag && in.Code.TrapNumber == 0 {
		p.halted = true
		p.exitCode = int64(in.RdVal)
	}
}

func (p *Processor) decodeRename() {
	if p.drain != nil {
		p.advanceDrain()
		return
	}
	for i := 0; i < p.cfg.DecodeRate; i++ {
		if !p.tryDecodeOne() {
			return
		}
	}
}

func (p *Processor) tryDecodeOne() bool {
	code, ok := p.prog.Fetch(p.pc)
	if !ok {
		// BADPC is precise: it is raised only once every older instance
		// has left the active list (a pending branch may still redirect
		// fetch away from the bad PC).
		if p.al.NumElements() == 0 {
			p.beginDrain(p.tags.Peek(), engine.ExceptBADPC)
		}
		return false
	}
	if p.al.Full() {
		p.Stats.RecordLoss(engine.StallActiveList)
		return false
	}
	isMem := code.IsLoad() || code.IsStore()
	if isMem && p.mem.NumAvail(code.IsStore()) == 0 {
		p.Stats.RecordLoss(engine.StallMemQueue)
		return false
	}

	tag := p.tags.Next()
	in := &engine.Instance{
		Tag: tag, PC: code.PC, NPC: code.PC + 4, Code: code,
		LRs1: code.Rs1, LRs2: code.Rs2, LRsCC: code.Rscc,
		LRd: code.Rd, LRcc: code.Rdcc,
	}
	p.Stats.RecordFetch()

	// Sources must resolve against the maps as they stand before rename
	// installs the new destination mapping: an instruction whose source
	// and destination name the same logical register (e.g. r1 = r1 + 1)
	// must still read the producer of the OLD value, not the physical
	// register it is about to be given for its own result.
	p.lookupSources(in)

	res, stall, ok := p.ren.Rename(in)
	if !ok {
		p.Stats.RecordLoss(stall)
		return false
	}

	var dec branch.Decision
	if code.IsBranch() {
		dec, ok = p.br.Decide(in, p.ren)
		if !ok {
			p.ren.Undo(in, res)
			p.Stats.RecordLoss(engine.StallShadowStack)
			return false
		}
		in.BranchPred = dec.PredictedPC
		in.NPC = dec.PredictedPC
		in.Taken = dec.PredictTaken
	}

	destFile := regFileOf(code.RdClass)
	if !p.al.Add(tag, activelist.Entry{OldPhysical: res.OldPRd, File: destFile},
		ccEntryFor(res)) {
		if dec.Speculative {
			p.ren.Shadow.GoodPrediction(tag)
		}
		p.ren.Undo(in, res)
		p.Stats.RecordLoss(engine.StallActiveList)
		return false
	}
	p.ttab.Insert(in)

	if isMem {
		entry := memunit.Entry{Tag: tag, Inst: in, IsStore: code.IsStore(), IsRMW: code.IsRMW, IsPrefetch: code.Op == isa.OpPREFETCH}
		if code.IsStore() {
			p.mem.AddStore(entry)
		} else {
			p.mem.AddLoad(entry)
		}
		p.readyAddr = append(p.readyAddr, in)
	} else if code.Op == isa.OpMEMBAR {
		p.mem.RecordMembar(tag, memunit.MembarFlag(code.MemBar))
		p.al.MarkDone(tag, engine.ExceptOK, p.cycle)
	} else if code.RdClass == isa.RegFP {
		p.readyFPU = append(p.readyFPU, in)
	} else {
		p.readyALU = append(p.readyALU, in)
	}

	p.pc = in.NPC
	return true
}

func ccEntryFor(res rename.Result) activelist.Entry {
	if res.HasPair {
		return activelist.Entry{OldPhysical: res.OldPRdp, File: rename.FileInt}
	}
	if res.HasCC {
		return activelist.Entry{OldPhysical: res.OldPRcc, File: rename.FileInt}
	}
	return activelist.Entry{OldPhysical: -1}
}

func (p *Processor) resolveBranch(in *engine.Instance) {
	mispredicted := p.br.Resolve(in, in.ActualTaken)
	if !mispredicted {
		p.ren.Shadow.GoodPrediction(in.Tag)
		p.Stats.RecordBranch(true)
		return
	}
	p.ren.Shadow.BadPrediction(in.Tag, p.ren.Int, p.ren.FP)
	p.flushFrom(in.Tag + 1)
	for _, r := range p.al.FlushFrom(in.Tag + 1) {
		p.ren.Retire(r.OldDest, r.DestFile)
		p.ren.Retire(r.OldCC, r.CCFile)
	}
	p.pc = in.NewPC
	p.Stats.RecordBranch(false)
}

func (p *Processor) issue() {
	p.readyALU = p.issueQueue(p.readyALU, funits.ALU)
	p.readyFPU = p.issueQueue(p.readyFPU, funits.FPU)
	p.readyAddr = p.issueQueue(p.readyAddr, funits.ADDR)
}

func (p *Processor) issueQueue(q []*engine.Instance, kind funits.Kind) []*engine.Instance {
	for len(q) > 0 {
		in := q[0]
		if !p.operandsReady(in) {
			return q
		}
		if !p.fu.Issue(kind, in, in.Tag, p.cycle, false) {
			p.Stats.RecordLoss(engine.StallIssueQueue)
			return q
		}
		q = q[1:]
	}
	return q
}

// lookupSources resolves a newly renamed instance's source logical
// registers to the physical registers currently mapped to them, so issue
// can scoreboard-check readiness via the rename maps' busy bits — renaming
// itself only ever allocates destinations (spec 4.1 step (b)/(c)).
func (p *Processor) lookupSources(in *engine.Instance) {
	if in.Code.Rs1Class != isa.RegNone {
		in.PRs1 = p.mapFor(in.Code.Rs1Class).Lookup(in.LRs1)
	} else {
		in.PRs1 = -1
	}
	if in.Code.Rs2Class != isa.RegNone && in.Code.HasRs2 {
		in.PRs2 = p.mapFor(in.Code.Rs2Class).Lookup(in.LRs2)
	} else {
		in.PRs2 = -1
	}
	if in.Code.IsCondBranch {
		// Bicc/FBfcc both read their condition code through the integer
		// map (rename.Unit keeps CC state there regardless of which data
		// class set it, per rename.Complete).
		in.PRsCC = p.ren.Int.Lookup(in.LRsCC)
	} else {
		in.PRsCC = -1
	}
}

func (p *Processor) mapFor(c isa.RegClass) *rename.Map {
	if c == isa.RegFP || c == isa.RegFPHalf {
		return p.ren.FP
	}
	return p.ren.Int
}

func (p *Processor) operandsReady(in *engine.Instance) bool {
	if in.PRs1 >= 0 && p.mapFor(in.Code.Rs1Class).IsBusy(in.PRs1) {
		return false
	}
	if in.PRs2 >= 0 && p.mapFor(in.Code.Rs2Class).IsBusy(in.PRs2) {
		return false
	}
	if in.PRsCC >= 0 && p.ren.Int.IsBusy(in.PRsCC) {
		return false
	}
	return true
}

func (p *Processor) issueMemUnit() {
	// granted counts ports handed out during the current scan, since
	// memPortInFlight only advances once the scan's results are dispatched.
	granted := 0
	portAvail := func() bool {
		if p.memPortInFlight+granted >= p.memPortCapacity {
			return false
		}
		granted++
		return true
	}
	for _, r := range p.mem.IssueLoads(portAvail, p.cfg.StaticScheduling) {
		p.dispatchMemResult(r, false)
	}
	granted = 0
	for _, r := range p.mem.IssueStores(portAvail) {
		p.dispatchMemResult(r, true)
	}
}

func (p *Processor) dispatchMemResult(r memunit.IssueResult, isStore bool) {
	in, ok := p.ttab.Lookup(r.Tag)
	if !ok {
		return
	}
	if r.Forwarded {
		p.Stats.VSBForwards++
		p.retireRegisterProducer(in)
		p.al.MarkDone(in.Tag, engine.ExceptOK, p.cycle)
		p.mem.Remove(in.Tag, false)
		return
	}
	if r.SentToCache {
		kind := cachebus.AccessRead
		if isStore {
			kind = cachebus.AccessWrite
		}
		p.memPortInFlight++
		p.cache.Submit(cachebus.Request{
			Addr: in.Addr, Size: int(in.Code.Size), Kind: kind,
			Tag: r.Tag, Inst: in, Data: in.RdVal,
		}, p.cycle)
	}
}

// String supports the teacher's fmt.Sprintf-based debugging idiom.
func (p *Processor) String() string {
	return fmt.Sprintf("Processor{cycle=%d, pc=0x%x, halted=%v}", p.cycle, p.pc, p.halted)
}
