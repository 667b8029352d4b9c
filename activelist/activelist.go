// Package activelist implements the active list: the in-order retirement
// queue of (old-mapping, done, exception) pairs created at rename, grounded
// on the original simulator's incl/Processor/active.h.
package activelist

import (
	"github.com/rsimgroup/rsim/engine"
	"github.com/rsimgroup/rsim/rename"
)

// Entry is the Go counterpart of activelistelement: the old
// logical-to-physical mapping rename displaced, so retirement can restore
// and free the right register, plus completion/exception status.
type Entry struct {
	Tag         engine.Tag
	OldLogical  uint8
	OldPhysical int32
	File        rename.RegFile
	Done        bool
	CycleDone   int64
	Exception   engine.ExceptKind
}

// List is the activelist class: a circular queue of paired entries, two
// per instance (destination register, then CC/pair-second). mx is the
// maximum *entry* count (an even number); NumElements reports instances,
// NumEntries reports raw entries, mirroring the original's naming split.
type List struct {
	q  *engine.CircQ[Entry]
	mx int
}

// New creates an active list sized for maxElements instances (maxElements
// paired entries, i.e. 2*maxElements raw queue slots).
func New(maxElements int) *List {
	return &List{q: engine.NewCircQ[Entry](maxElements * 2), mx: maxElements * 2}
}

// Full reports whether the active list has no room for another
// instance's pair of entries.
func (l *List) Full() bool { return l.q.Len()+2 > l.mx }

// NumEntries returns the raw entry count.
func (l *List) NumEntries() int { return l.q.Len() }

// NumElements returns the number of in-flight instances (entries / 2).
func (l *List) NumElements() int { return l.q.Len() / 2 }

// NumAvail returns how many more instances could be added before the
// active list is full.
func (l *List) NumAvail() int { return (l.mx - l.q.Len()) / 2 }

// Add inserts the destination-register entry and the CC/pair-second entry
// for one instance, in tag order. Both entries use Done=false,
// Exception=OK initially. Reports false if there is no room for the pair
// (spec 4.1's "active list full" stall kind).
func (l *List) Add(tag engine.Tag, dest, ccOrPair Entry) bool {
	if l.Full() {
		return false
	}
	dest.Tag, ccOrPair.Tag = tag, tag
	l.q.Insert(dest)
	l.q.Insert(ccOrPair)
	return true
}

func (l *List) findPair(tag engine.Tag) (destIdx, ccIdx int, ok bool) {
	idx, found := l.q.Search(func(e Entry) int { return int(e.Tag - tag) })
	if !found {
		return 0, 0, false
	}
	e, _ := l.q.PeekElt(idx)
	if e.Tag == tag {
		// The pair is adjacent; idx could have landed on either half
		// since both entries share a tag. Normalize to (dest, cc).
		if idx > 0 {
			if prev, ok := l.q.PeekElt(idx - 1); ok && prev.Tag == tag {
				return idx - 1, idx, true
			}
		}
		return idx, idx + 1, true
	}
	return 0, 0, false
}

// MarkDone flags both entries for tag done at cycle, recording exception.
// Returns false if tag is not present.
func (l *List) MarkDone(tag engine.Tag, exception engine.ExceptKind, cycle int64) bool {
	di, ci, ok := l.findPair(tag)
	if !ok {
		return false
	}
	d, _ := l.q.PeekElt(di)
	d.Done, d.Exception, d.CycleDone = true, exception, cycle
	l.q.SetElt(di, d)
	c, _ := l.q.PeekElt(ci)
	c.Done, c.Exception, c.CycleDone = true, exception, cycle
	l.q.SetElt(ci, c)
	return true
}

// FlagException sets exception on tag's entries without disturbing Done,
// for a soft exception discovered after the instance already completed
// (spec 4.3 Disambiguate).
func (l *List) FlagException(tag engine.Tag, exception engine.ExceptKind) bool {
	di, ci, ok := l.findPair(tag)
	if !ok {
		return false
	}
	d, _ := l.q.PeekElt(di)
	d.Exception = exception
	l.q.SetElt(di, d)
	c, _ := l.q.PeekElt(ci)
	c.Exception = exception
	l.q.SetElt(ci, c)
	return true
}

// RetireResult is what the caller needs to finish retiring one instance:
// the old physical registers to return to their free lists.
type RetireResult struct {
	Tag                      engine.Tag
	OldDest, OldCC           int32
	DestFile, CCFile         rename.RegFile
	Exception                engine.ExceptKind
}

// RemoveHead pops the head pair if both entries are done, their CycleDone
// is <= cycle-lookahead, and neither is flagged with an exception;
// otherwise it reports ready=false. If the head pair is flagged with an
// exception, ready is false and hasException is true so the caller can
// invoke its precise-exception handler (spec 4.1's retirement stop rule).
func (l *List) RemoveHead(cycle int64, lookahead int64) (res RetireResult, ready bool, hasException bool) {
	d, ok := l.q.PeekHead()
	if !ok {
		return res, false, false
	}
	c, _ := l.q.PeekElt(1)

	if d.Exception != engine.ExceptOK || c.Exception != engine.ExceptOK {
		exc := d.Exception
		if exc == engine.ExceptOK {
			exc = c.Exception
		}
		return RetireResult{Tag: d.Tag, Exception: exc}, false, true
	}
	if !d.Done || !c.Done {
		return res, false, false
	}
	if d.CycleDone > cycle-lookahead || c.CycleDone > cycle-lookahead {
		return res, false, false
	}

	l.q.Delete()
	l.q.Delete()
	return RetireResult{
		Tag:      d.Tag,
		OldDest:  d.OldPhysical,
		OldCC:    c.OldPhysical,
		DestFile: d.File,
		CCFile:   c.File,
	}, true, false
}

// FlushFrom tail-removes every pair with Tag >= tag — misprediction or
// exception recovery discarding younger in-flight instances.
func (l *List) FlushFrom(tag engine.Tag) []RetireResult {
	var flushed []RetireResult
	for {
		ccEntry, ok := l.q.PeekTail()
		if !ok || ccEntry.Tag < tag {
			break
		}
		l.q.DeleteFromTail()
		destEntry, ok := l.q.PeekTail()
		if !ok || destEntry.Tag != ccEntry.Tag {
			// malformed pairing; nothing more to do for this tag
			flushed = append(flushed, RetireResult{Tag: ccEntry.Tag, OldDest: ccEntry.OldPhysical, DestFile: ccEntry.File})
			continue
		}
		l.q.DeleteFromTail()
		flushed = append(flushed, RetireResult{
			Tag: ccEntry.Tag, OldDest: destEntry.OldPhysical, OldCC: ccEntry.OldPhysical,
			DestFile: destEntry.File, CCFile: ccEntry.File,
		})
	}
	return flushed
}
