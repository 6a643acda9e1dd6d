package guestmem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatherIovecs(t *testing.T) {
	buf := make([]byte, 64)
	mem := New(buf)

	// Two iovecs at offset 0: {32,3}, {40,2}, pointing at "abc"/"de".
	copy(buf[32:], "abc")
	copy(buf[40:], "de")
	require.NoError(t, mem.PutUint32(0, 32))
	require.NoError(t, mem.PutUint32(4, 3))
	require.NoError(t, mem.PutUint32(8, 40))
	require.NoError(t, mem.PutUint32(12, 2))

	p := NewTransferPlan(mem)
	flat, vecs, err := p.GatherIovecs(0, 2)
	require.NoError(t, err)
	assert.Equal(t, "abcde", string(flat))
	assert.Len(t, vecs, 2)
}

func TestScatterSplitsAcrossIovecs(t *testing.T) {
	buf := make([]byte, 64)
	mem := New(buf)

	require.NoError(t, mem.PutUint32(0, 32))
	require.NoError(t, mem.PutUint32(4, 3))
	require.NoError(t, mem.PutUint32(8, 40))
	require.NoError(t, mem.PutUint32(12, 3))

	p := NewTransferPlan(mem)
	sp, err := p.PlanScatter(0, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 6, sp.Size)

	p.Scatter(sp, []byte("hello!"))
	require.NoError(t, p.Commit())

	assert.Equal(t, "hel", string(buf[32:35]))
	assert.Equal(t, "lo!", string(buf[40:43]))
}

func TestQueueWriteCommitsInOrder(t *testing.T) {
	buf := make([]byte, 16)
	mem := New(buf)

	p := NewTransferPlan(mem)
	p.QueueWrite(0, []byte("ab"))
	p.QueueWrite(8, []byte("cd"))
	require.NoError(t, p.Commit())

	assert.Equal(t, "ab", string(buf[0:2]))
	assert.Equal(t, "cd", string(buf[8:10]))
}

func TestReadWriteOutOfRange(t *testing.T) {
	mem := New(make([]byte, 4))
	_, err := mem.Read(2, 4)
	assert.Error(t, err)

	err = mem.Write(2, []byte{1, 2, 3})
	assert.Error(t, err)
}

func TestStringNoTrailingNUL(t *testing.T) {
	buf := make([]byte, 16)
	mem := New(buf)
	copy(buf[0:], "hello")

	s, err := mem.String(0, 5)
	require.NoError(t, err)
	assert.Equal(t, "hello", s)
}
