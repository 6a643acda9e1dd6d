package guestmem

// Iovec mirrors the 8-byte iovec/ciovec struct: {buf:u32@0, buf_len:u32@4}.
type Iovec struct {
	Buf uint32
	Len uint32
}

const IovecSize = 8

// ReadIovecs parses count consecutive Iovec structs starting at offset.
func ReadIovecs(mem Memory, offset, count uint32) ([]Iovec, error) {
	vecs := make([]Iovec, count)
	for i := uint32(0); i < count; i++ {
		b, err := mem.Read(offset+i*IovecSize, IovecSize)
		if err != nil {
			return nil, err
		}
		vecs[i].Buf = leUint32(b[0:4])
		vecs[i].Len = leUint32(b[4:8])
	}
	return vecs, nil
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// TransferPlan accumulates the bookkeeping for a single syscall's
// memory traffic: it is built once per call, used to stage param bytes
// in, and then used to copy result bytes back to their true guest
// addresses in a single Commit. This is what lets the dispatcher honor
// the "at most one bulk copy-in, one bulk copy-out" invariant even when
// the call's destinations are scattered (iovec arrays, patched pointer
// arrays, dirent streams).
type TransferPlan struct {
	mem     Memory
	reverse []reverseEntry
}

type reverseEntry struct {
	guestOffset uint32
	data        []byte
}

// NewTransferPlan begins a plan against the given guest memory view.
func NewTransferPlan(mem Memory) *TransferPlan {
	return &TransferPlan{mem: mem}
}

// StageIn reads a (param-direction) region from guest memory. It is a
// direct passthrough today since host and driver share the Memory
// view in this implementation's execution model. The imports layer
// does not call it: it reads param regions through GatherIovecs,
// PlanScatter and the Memory accessors.
func (p *TransferPlan) StageIn(offset, size uint32) ([]byte, error) {
	b, err := p.mem.Read(offset, size)
	if err != nil {
		return nil, err
	}
	// Defensive copy: driver code must never alias guest memory past
	// the call, since the guest may reuse or unmap the region.
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// GatherIovecs reads the iovec array at (offset,count) and returns the
// concatenation of the bytes each entry points at, for write-class
// calls (fd_write, fd_pwrite) where the driver wants one contiguous
// buffer.
func (p *TransferPlan) GatherIovecs(offset, count uint32) ([]byte, []Iovec, error) {
	vecs, err := ReadIovecs(p.mem, offset, count)
	if err != nil {
		return nil, nil, err
	}
	var total int
	for _, v := range vecs {
		total += int(v.Len)
	}
	buf := make([]byte, 0, total)
	for _, v := range vecs {
		chunk, err := p.mem.Read(v.Buf, v.Len)
		if err != nil {
			return nil, nil, err
		}
		buf = append(buf, chunk...)
	}
	return buf, vecs, nil
}

// ScatterPlan describes where the bytes of a read-class call (fd_read,
// fd_pread) must ultimately land: the iovec array tells the dispatcher
// the true guest addresses, but the driver only ever sees one flat
// buffer to fill. ScatterPlan carries the reverse-mapping needed to
// split that flat buffer back across the guest's original iovec
// regions on copy-back.
type ScatterPlan struct {
	Vecs []Iovec
	Size uint32
}

// PlanScatter reads the iovec array and returns the total byte capacity
// across all entries plus the reverse-mapping needed to split a flat
// result buffer back across them.
func (p *TransferPlan) PlanScatter(offset, count uint32) (ScatterPlan, error) {
	vecs, err := ReadIovecs(p.mem, offset, count)
	if err != nil {
		return ScatterPlan{}, err
	}
	var total uint32
	for _, v := range vecs {
		total += v.Len
	}
	return ScatterPlan{Vecs: vecs, Size: total}, nil
}

// Scatter queues the reverse-mapped writes that split flat (the
// driver's single result buffer, of length <= sp.Size) back across the
// guest's iovec regions, in order, until flat is exhausted.
func (p *TransferPlan) Scatter(sp ScatterPlan, flat []byte) {
	off := 0
	for _, v := range sp.Vecs {
		if off >= len(flat) {
			break
		}
		n := int(v.Len)
		if off+n > len(flat) {
			n = len(flat) - off
		}
		p.QueueWrite(v.Buf, flat[off:off+n])
		off += n
	}
}

// QueueWrite schedules size(data) bytes to be written to guestOffset
// when Commit runs. Queuing (rather than writing immediately) is what
// lets args_get/environ_get patch a pointer array to point at
// guest-side buffer addresses before anything is actually copied back.
func (p *TransferPlan) QueueWrite(guestOffset uint32, data []byte) {
	cp := make([]byte, len(data))
	copy(cp, data)
	p.reverse = append(p.reverse, reverseEntry{guestOffset: guestOffset, data: cp})
}

// Commit performs every queued write against guest memory. It is the
// plan's single bulk copy-out.
func (p *TransferPlan) Commit() error {
	for _, e := range p.reverse {
		if err := p.mem.Write(e.guestOffset, e.data); err != nil {
			return err
		}
	}
	return nil
}
