package netpoll

import (
	"testing"

	"golang.org/x/sys/unix"
)

type fakeOwner struct{ idx int }

func (f *fakeOwner) SetReadinessIndex(i int) { f.idx = i }

func socketpair(t *testing.T) (int, int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func TestTableAddWaitRevents(t *testing.T) {
	a, b := socketpair(t)

	tbl := New(a) // treat 'a' as the "listener" slot for this test
	owner := &fakeOwner{}
	idx := tbl.Add(b, Read, owner)
	if idx != 1 {
		t.Fatalf("expected slot 1, got %d", idx)
	}
	if owner.idx != 1 {
		t.Fatalf("owner was not told its index: %d", owner.idx)
	}

	if _, err := unix.Write(a, []byte("hi")); err != nil {
		t.Fatalf("write: %v", err)
	}

	n, err := tbl.Wait(1000)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if n == 0 {
		t.Fatalf("expected at least one ready slot")
	}
	if tbl.Revents(1)&Read == 0 {
		t.Fatalf("expected read-ready on slot 1, revents=%d", tbl.Revents(1))
	}
}

func TestTableGrowAndSwapRemove(t *testing.T) {
	tbl := New(99) // fake listener fd, never polled in this test

	owners := make([]*fakeOwner, 0, 20)
	for i := 0; i < 20; i++ {
		o := &fakeOwner{}
		tbl.Add(100+i, Read, o)
		owners = append(owners, o)
	}
	if tbl.Len() != 21 {
		t.Fatalf("expected 21 occupied slots, got %d", tbl.Len())
	}

	// remove the first connection slot (index 1); slot 20 (last) should
	// be swapped into its place and told its new index.
	last := tbl.Len() - 1
	tbl.Remove(1)
	if tbl.Len() != 20 {
		t.Fatalf("expected 20 occupied slots after remove, got %d", tbl.Len())
	}
	if owners[len(owners)-1].idx != 1 {
		t.Fatalf("swapped owner should have been retargeted to index 1, got %d", owners[len(owners)-1].idx)
	}
	_ = last
}

func TestTableSetEvents(t *testing.T) {
	tbl := New(99)
	owner := &fakeOwner{}
	idx := tbl.Add(5, Read, owner)
	tbl.SetEvents(idx, Write)
	if tbl.fds[idx].Events != Write {
		t.Fatalf("expected write interest, got %d", tbl.fds[idx].Events)
	}
}
