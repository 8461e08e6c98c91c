// Package handle passes document sessions between virtual tables as opaque cells.
// A session lives in an arena slot addressed by index and generation. Cells carry
// that address instead of a pointer, so a cell outliving its session fails the lookup
// and never reaches a closed document.
package handle

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
)

// Resource is the value kept in a session slot, usually a parsed document.
type Resource interface {
	Close() error
}

// contract violations, the caller passed something that was never minted for it
var (
	ErrNotHandle     = errors.New("value is not a handle cell")
	ErrTagMismatch   = errors.New("handle tag mismatch")
	ErrForeignHandle = errors.New("handle minted by another registry")
	ErrStaleHandle   = errors.New("handle refers to a closed session")
	ErrReleased      = errors.New("lease already released")
)

// cell layout after the tag and its zero terminator: registry id, slot, generation, page
const cellPayload = 16 + 4 + 4 + 4

// Ref addresses a page inside a session.
type Ref struct {
	Slot uint32
	Gen  uint32
	Page int
}

// Registry is the arena of live sessions. Safe for concurrent use, several
// connections may share one registry.
type Registry struct {
	id uuid.UUID

	mu    sync.Mutex
	slots []slot
	free  []uint32
}

type slot struct {
	gen     uint32
	res     Resource
	refs    int
	retired bool
	used    bool
}

// NewRegistry makes an empty registry with a random identity.
func NewRegistry() *Registry {
	return &Registry{id: uuid.New()}
}

// ID returns registry identity embedded into every cell it encodes.
func (r *Registry) ID() uuid.UUID { return r.id }

// Add stores res in a slot and returns the owner lease. Releasing the owner lease
// retires the session, no new borrowers can acquire it afterwards. The resource is
// closed once the owner and all borrowers released their leases.
func (r *Registry) Add(res Resource) *Lease {
	r.mu.Lock()
	defer r.mu.Unlock()

	var idx uint32
	if n := len(r.free); n > 0 {
		idx = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		r.slots = append(r.slots, slot{})
		idx = uint32(len(r.slots) - 1) //nolint:gosec // slots never grow past uint32
	}
	s := &r.slots[idx]
	s.res, s.refs, s.retired, s.used = res, 1, false, true
	log.Printf("[DEBUG] session %d/%d added", idx, s.gen)
	return &Lease{reg: r, slot: idx, gen: s.gen, owner: true, res: res}
}

// Acquire returns a borrower lease for the session ref points to.
func (r *Registry) Acquire(ref Ref) (*Lease, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if int(ref.Slot) >= len(r.slots) {
		return nil, fmt.Errorf("slot %d: %w", ref.Slot, ErrStaleHandle)
	}
	s := &r.slots[ref.Slot]
	if !s.used || s.retired || s.gen != ref.Gen {
		return nil, fmt.Errorf("slot %d/%d: %w", ref.Slot, ref.Gen, ErrStaleHandle)
	}
	s.refs++
	return &Lease{reg: r, slot: ref.Slot, gen: ref.Gen, res: s.res}, nil
}

// Live returns the number of sessions not closed yet, retired ones included.
func (r *Registry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.slots) - len(r.free)
}

// release drops one reference and closes the resource when it was the last one
func (r *Registry) release(l *Lease) error {
	r.mu.Lock()
	s := &r.slots[l.slot]
	if l.owner {
		s.retired = true
	}
	s.refs--
	if s.refs > 0 {
		r.mu.Unlock()
		return nil
	}
	res := s.res
	s.res, s.used, s.retired = nil, false, false
	s.gen++
	r.free = append(r.free, l.slot)
	r.mu.Unlock()

	log.Printf("[DEBUG] session %d/%d closed", l.slot, l.gen)
	if err := res.Close(); err != nil {
		return fmt.Errorf("can't close session %d: %w", l.slot, err)
	}
	return nil
}

// Encode makes a cell for ref under tag. Tag must not contain zero bytes.
func (r *Registry) Encode(tag string, ref Ref) []byte {
	buf := make([]byte, 0, len(tag)+1+cellPayload)
	buf = append(buf, tag...)
	buf = append(buf, 0)
	buf = append(buf, r.id[:]...)
	buf = binary.BigEndian.AppendUint32(buf, ref.Slot)
	buf = binary.BigEndian.AppendUint32(buf, ref.Gen)
	buf = binary.BigEndian.AppendUint32(buf, uint32(ref.Page)) //nolint:gosec // page index is never negative
	return buf
}

// Decode recovers a Ref from a cell produced by Encode with the same tag.
// Anything else is reported as a contract violation.
func (r *Registry) Decode(tag string, v any) (Ref, error) {
	cell, ok := v.([]byte)
	if !ok {
		return Ref{}, fmt.Errorf("got %T: %w", v, ErrNotHandle)
	}
	sep := bytes.IndexByte(cell, 0)
	if sep < 0 || len(cell) != sep+1+cellPayload {
		return Ref{}, fmt.Errorf("%d bytes: %w", len(cell), ErrNotHandle)
	}
	if got := string(cell[:sep]); got != tag {
		return Ref{}, fmt.Errorf("want %q, got %q: %w", tag, got, ErrTagMismatch)
	}
	body := cell[sep+1:]
	if !bytes.Equal(body[:16], r.id[:]) {
		return Ref{}, ErrForeignHandle
	}
	body = body[16:]
	return Ref{
		Slot: binary.BigEndian.Uint32(body[0:4]),
		Gen:  binary.BigEndian.Uint32(body[4:8]),
		Page: int(binary.BigEndian.Uint32(body[8:12])),
	}, nil
}

// Lease keeps a session alive while held.
type Lease struct {
	reg      *Registry
	slot     uint32
	gen      uint32
	owner    bool
	res      Resource
	released bool
}

// Resource returns the session value, failing after Release.
func (l *Lease) Resource() (Resource, error) {
	if l.released {
		return nil, ErrReleased
	}
	return l.res, nil
}

// Ref addresses page inside the leased session.
func (l *Lease) Ref(page int) Ref {
	return Ref{Slot: l.slot, Gen: l.gen, Page: page}
}

// Release gives the lease back. Second and later calls do nothing.
func (l *Lease) Release() error {
	if l == nil || l.released {
		return nil
	}
	l.released = true
	l.res = nil
	return l.reg.release(l)
}
