package wasip1

import "encoding/binary"

// Fd is a guest-visible file descriptor number.
type Fd uint32

// Device, Inode, Linkcount, Filesize, Filedelta, Filemode mirror the
// scalar fields of filestat; kept as distinct types so call sites read
// like the ABI they marshal, the way the teacher's wasi.go does.
type (
	Device    uint64
	Inode     uint64
	Linkcount uint64
	Filesize  uint64
	Filedelta int64
	Filemode  uint32
)

// Timestamp is nanoseconds since the Unix epoch.
type Timestamp uint64

// Whence mirrors fd_seek's whence argument.
type Whence uint8

const (
	WhenceSet Whence = iota
	WhenceCur
	WhenceEnd
)

// Filetype is the d_type / filestat.filetype tag.
type Filetype uint8

const (
	FILETYPE_UNKNOWN Filetype = iota
	FILETYPE_BLOCK_DEVICE
	FILETYPE_CHARACTER_DEVICE
	FILETYPE_DIRECTORY
	FILETYPE_REGULAR_FILE
	FILETYPE_SOCKET_DGRAM
	FILETYPE_SOCKET_STREAM
	FILETYPE_SYMBOLIC_LINK
)

// Oflags are the flags passed to path_open.
type Oflags uint16

const (
	OFLAGS_CREAT Oflags = 1 << iota
	OFLAGS_DIRECTORY
	OFLAGS_EXCL
	OFLAGS_TRUNC
)

// Fdflags are the flags carried in fdstat and set by fd_fdstat_set_flags.
type Fdflags uint16

const (
	FDFLAGS_APPEND Fdflags = 1 << iota
	FDFLAGS_DSYNC
	FDFLAGS_NONBLOCK
	FDFLAGS_RSYNC
	FDFLAGS_SYNC
)

// Lookupflags controls symlink resolution on path_* calls.
type Lookupflags uint32

const (
	LOOKUPFLAGS_SYMLINK_FOLLOW Lookupflags = 1 << iota
)

// Fstflags selects which of atim/mtim path_filestat_set_times updates.
type Fstflags uint16

const (
	FSTFLAGS_ATIM Fstflags = 1 << iota
	FSTFLAGS_ATIM_NOW
	FSTFLAGS_MTIM
	FSTFLAGS_MTIM_NOW
)

// Advice values for fd_advise.
type Advice uint8

const (
	ADVICE_NORMAL Advice = iota
	ADVICE_SEQUENTIAL
	ADVICE_RANDOM
	ADVICE_WILLNEED
	ADVICE_DONTNEED
	ADVICE_NOREUSE
)

// Rights is the capability bitmask carried by every open fd.
type Rights uint64

const (
	FD_DATASYNC Rights = 1 << iota
	FD_READ
	FD_SEEK
	FD_FDSTAT_SET_FLAGS
	FD_SYNC
	FD_TELL
	FD_WRITE
	FD_ADVISE
	FD_ALLOCATE
	PATH_CREATE_DIRECTORY
	PATH_CREATE_FILE
	PATH_LINK_SOURCE
	PATH_LINK_TARGET
	PATH_OPEN
	FD_READDIR
	PATH_READLINK
	PATH_RENAME_SOURCE
	PATH_RENAME_TARGET
	PATH_FILESTAT_GET
	PATH_FILESTAT_SET_SIZE
	PATH_FILESTAT_SET_TIMES
	FD_FILESTAT_GET
	FD_FILESTAT_SET_SIZE
	FD_FILESTAT_SET_TIMES
	PATH_SYMLINK
	PATH_REMOVE_DIRECTORY
	PATH_UNLINK_FILE
	POLL_FD_READWRITE
	SOCK_SHUTDOWN
	SOCK_ACCEPT
)

// Has reports whether r carries every bit set in want.
func (r Rights) Has(want Rights) bool {
	return r&want == want
}

// BaseRightsR / BaseRightsW / BaseRightsRW are the conventional bundles
// the teacher's path_open uses when translating an O_RDONLY/O_WRONLY/
// O_RDWR request into a rights_base value.
const (
	BaseRightsR  = FD_READ | FD_SEEK | FD_TELL | FD_FILESTAT_GET | FD_READDIR | POLL_FD_READWRITE
	BaseRightsW  = FD_WRITE | FD_SEEK | FD_TELL | FD_FILESTAT_GET | FD_ALLOCATE | FD_FILESTAT_SET_SIZE | POLL_FD_READWRITE
	BaseRightsRW = BaseRightsR | BaseRightsW
	DirRights    = PATH_CREATE_DIRECTORY | PATH_CREATE_FILE | PATH_LINK_SOURCE | PATH_LINK_TARGET |
		PATH_OPEN | FD_READDIR | PATH_READLINK | PATH_RENAME_SOURCE | PATH_RENAME_TARGET |
		PATH_FILESTAT_GET | PATH_FILESTAT_SET_SIZE | PATH_FILESTAT_SET_TIMES | PATH_SYMLINK |
		PATH_REMOVE_DIRECTORY | PATH_UNLINK_FILE | FD_FILESTAT_GET | POLL_FD_READWRITE
)

// Fdstat is the 24-byte struct returned by fd_fdstat_get.
type Fdstat struct {
	Filetype         Filetype
	Flags            Fdflags
	RightsBase       Rights
	RightsInheriting Rights
}

// Marshal writes the fdstat layout at offsets 0/2/8/16 per spec.
func (s Fdstat) Marshal(b []byte) {
	_ = b[23]
	b[0] = byte(s.Filetype)
	b[1] = 0
	binary.LittleEndian.PutUint16(b[2:4], uint16(s.Flags))
	binary.LittleEndian.PutUint32(b[4:8], 0)
	binary.LittleEndian.PutUint64(b[8:16], uint64(s.RightsBase))
	binary.LittleEndian.PutUint64(b[16:24], uint64(s.RightsInheriting))
}

func (s *Fdstat) Unmarshal(b []byte) {
	_ = b[23]
	s.Filetype = Filetype(b[0])
	s.Flags = Fdflags(binary.LittleEndian.Uint16(b[2:4]))
	s.RightsBase = Rights(binary.LittleEndian.Uint64(b[8:16]))
	s.RightsInheriting = Rights(binary.LittleEndian.Uint64(b[16:24]))
}

// FdstatSize is the wire size of Fdstat.
const FdstatSize = 24

// Filestat is the 64-byte struct returned by fd_filestat_get / path_filestat_get.
type Filestat struct {
	Dev      Device
	Ino      Inode
	Filetype Filetype
	Nlink    Linkcount
	Size     Filesize
	Atim     Timestamp
	Mtim     Timestamp
	Ctim     Timestamp
}

// FilestatSize is the wire size of Filestat.
const FilestatSize = 64

func (s Filestat) Marshal(b []byte) {
	_ = b[63]
	binary.LittleEndian.PutUint64(b[0:8], uint64(s.Dev))
	binary.LittleEndian.PutUint64(b[8:16], uint64(s.Ino))
	b[16] = byte(s.Filetype)
	binary.LittleEndian.PutUint64(b[24:32], uint64(s.Nlink))
	binary.LittleEndian.PutUint64(b[32:40], uint64(s.Size))
	binary.LittleEndian.PutUint64(b[40:48], uint64(s.Atim))
	binary.LittleEndian.PutUint64(b[48:56], uint64(s.Mtim))
	binary.LittleEndian.PutUint64(b[56:64], uint64(s.Ctim))
}

func (s *Filestat) Unmarshal(b []byte) {
	_ = b[63]
	s.Dev = Device(binary.LittleEndian.Uint64(b[0:8]))
	s.Ino = Inode(binary.LittleEndian.Uint64(b[8:16]))
	s.Filetype = Filetype(b[16])
	s.Nlink = Linkcount(binary.LittleEndian.Uint64(b[24:32]))
	s.Size = Filesize(binary.LittleEndian.Uint64(b[32:40]))
	s.Atim = Timestamp(binary.LittleEndian.Uint64(b[40:48]))
	s.Mtim = Timestamp(binary.LittleEndian.Uint64(b[48:56]))
	s.Ctim = Timestamp(binary.LittleEndian.Uint64(b[56:64]))
}

// Prestat is the 8-byte struct returned by fd_prestat_get. Only the
// directory tag (0) is produced; preview-1 defines no other variant.
type Prestat struct {
	Tag uint8
	Len uint32
}

// PrestatSize is the wire size of Prestat.
const PrestatSize = 8

func (s Prestat) Marshal(b []byte) {
	_ = b[7]
	b[0] = s.Tag
	binary.LittleEndian.PutUint32(b[4:8], s.Len)
}

// Dircookie is the opaque resume token handed back by fd_readdir.
type Dircookie uint64

// Dirent is the 24-byte fixed header preceding each directory entry's
// name bytes in the fd_readdir result stream.
type Dirent struct {
	Next    Dircookie
	Ino     Inode
	Namelen uint32
	Type    Filetype
}

// DirentSize is the wire size of a Dirent header (the name follows,
// unpadded, immediately after).
const DirentSize = 24

func (d Dirent) Marshal(b []byte) {
	_ = b[23]
	binary.LittleEndian.PutUint64(b[0:8], uint64(d.Next))
	binary.LittleEndian.PutUint64(b[8:16], uint64(d.Ino))
	binary.LittleEndian.PutUint32(b[16:20], d.Namelen)
	b[20] = byte(d.Type)
}

func (d *Dirent) Unmarshal(b []byte) {
	_ = b[23]
	d.Next = Dircookie(binary.LittleEndian.Uint64(b[0:8]))
	d.Ino = Inode(binary.LittleEndian.Uint64(b[8:16]))
	d.Namelen = binary.LittleEndian.Uint32(b[16:20])
	d.Type = Filetype(b[20])
}

// Clockid selects the clock queried by clock_res_get/clock_time_get
// and named by a clock-kind subscription.
type Clockid uint32

const (
	CLOCK_REALTIME Clockid = iota
	CLOCK_MONOTONIC
	CLOCK_PROCESS_CPUTIME_ID
	CLOCK_THREAD_CPUTIME_ID
)

// Eventtype is the subscription/event tag.
type Eventtype uint8

const (
	EVENTTYPE_CLOCK Eventtype = iota
	EVENTTYPE_FD_READ
	EVENTTYPE_FD_WRITE
)

// Subclockflags marks whether a clock subscription's timeout is an
// absolute deadline; this implementation always treats it as relative
// (see DESIGN.md's Open Question decision), so the flag is parsed but
// rejected with ENOTSUP when set.
type Subclockflags uint16

const (
	SUBSCRIPTION_CLOCK_ABSTIME Subclockflags = 1 << iota
)

// SubscriptionClock is the clock-kind union payload of a subscription.
type SubscriptionClock struct {
	ID        Clockid
	Timeout   Timestamp
	Precision Timestamp
	Flags     Subclockflags
}

// SubscriptionFdReadwrite is the fd_read/fd_write-kind union payload.
type SubscriptionFdReadwrite struct {
	FD Fd
}

// Subscription is the 48-byte argument array element of poll_oneoff:
// {userdata:u64@0, tag:u8@8, payload@16}. The union's on-wire layout
// reserves 40 bytes starting at offset 8 (tag plus payload); the
// payload itself starts at offset 16 for both variants used here,
// matching the teacher's poll.go subscription parsing.
type Subscription struct {
	Userdata uint64
	Type     Eventtype
	Clock    SubscriptionClock
	FDReadwrite SubscriptionFdReadwrite
}

// SubscriptionSize is the wire size of Subscription.
const SubscriptionSize = 48

func (s *Subscription) Unmarshal(b []byte) {
	_ = b[47]
	s.Userdata = binary.LittleEndian.Uint64(b[0:8])
	s.Type = Eventtype(b[8])
	switch s.Type {
	case EVENTTYPE_CLOCK:
		s.Clock.ID = Clockid(binary.LittleEndian.Uint32(b[16:20]))
		s.Clock.Timeout = Timestamp(binary.LittleEndian.Uint64(b[24:32]))
		s.Clock.Precision = Timestamp(binary.LittleEndian.Uint64(b[32:40]))
		s.Clock.Flags = Subclockflags(binary.LittleEndian.Uint16(b[40:42]))
	case EVENTTYPE_FD_READ, EVENTTYPE_FD_WRITE:
		s.FDReadwrite.FD = Fd(binary.LittleEndian.Uint32(b[16:20]))
	}
}

// EventFdReadwrite is the fd_read/fd_write-kind result payload.
type EventFdReadwrite struct {
	Nbytes Filesize
	Flags  uint16
}

// Event is the 32-byte result array element of poll_oneoff:
// {userdata:u64@0, error:u16@8, type:u8@10, fd_readwrite@16}.
type Event struct {
	Userdata    uint64
	Error       Errno
	Type        Eventtype
	FDReadwrite EventFdReadwrite
}

// EventSize is the wire size of Event.
const EventSize = 32

func (e Event) Marshal(b []byte) {
	_ = b[31]
	binary.LittleEndian.PutUint64(b[0:8], e.Userdata)
	binary.LittleEndian.PutUint16(b[8:10], uint16(e.Error))
	b[10] = byte(e.Type)
	if e.Type != EVENTTYPE_CLOCK {
		binary.LittleEndian.PutUint64(b[16:24], uint64(e.FDReadwrite.Nbytes))
		binary.LittleEndian.PutUint16(b[24:26], e.FDReadwrite.Flags)
	}
}
