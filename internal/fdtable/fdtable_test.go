package fdtable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasirun/preview1/internal/wasip1"
)

func TestTableInsertLookupDelete(t *testing.T) {
	table := new(Table)
	assert.Equal(t, 0, table.Len())

	e0 := &Entry{DriverID: 1, Handle: 10}
	e1 := &Entry{DriverID: 1, Handle: 11}
	e2 := &Entry{DriverID: 1, Handle: 12}

	fd0 := table.Insert(e0)
	fd1 := table.Insert(e1)
	fd2 := table.Insert(e2)

	assert.Equal(t, 3, table.Len())
	assert.Same(t, e0, table.Lookup(fd0))
	assert.Same(t, e1, table.Lookup(fd1))
	assert.Same(t, e2, table.Lookup(fd2))

	// Lowest-free-index allocation: deleting the middle fd and
	// inserting again must reuse it rather than growing the table.
	require.NotNil(t, table.Delete(fd1))
	assert.Equal(t, 2, table.Len())

	e3 := &Entry{DriverID: 1, Handle: 13}
	fd3 := table.Insert(e3)
	assert.Equal(t, fd1, fd3)
	assert.Equal(t, 3, table.Len())
}

func TestTableInsertAtEvicts(t *testing.T) {
	table := new(Table)
	e0 := &Entry{DriverID: 1, Handle: 1}
	fd := table.Insert(e0)

	e1 := &Entry{DriverID: 2, Handle: 2}
	existed := table.InsertAt(fd, e1)
	assert.True(t, existed)
	assert.Same(t, e1, table.Lookup(fd))

	farFd := fd + 200
	existed = table.InsertAt(farFd, e0)
	assert.False(t, existed)
	assert.Same(t, e0, table.Lookup(farFd))
}

func TestTableLookupMissing(t *testing.T) {
	table := new(Table)
	assert.Nil(t, table.Lookup(wasip1.Fd(42)))
}

func TestTableScanAndReset(t *testing.T) {
	table := new(Table)
	want := map[wasip1.Fd]*Entry{}
	for i := 0; i < 5; i++ {
		e := &Entry{DriverID: i}
		fd := table.Insert(e)
		want[fd] = e
	}

	got := map[wasip1.Fd]*Entry{}
	table.Scan(func(fd wasip1.Fd, e *Entry) bool {
		got[fd] = e
		return true
	})
	assert.Equal(t, want, got)

	table.Reset()
	assert.Equal(t, 0, table.Len())
}
