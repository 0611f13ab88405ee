package httpd

import "testing"

func idsInOrder(r *registry) []uint64 {
	var ids []uint64
	for c := r.head; c != nil; c = c.next {
		ids = append(ids, c.id)
	}
	return ids
}

func TestRegistryPushBackPreservesInsertionOrder(t *testing.T) {
	r := &registry{}
	a, b, c := newConnection(1, 1), newConnection(2, 2), newConnection(3, 3)
	r.pushBack(a)
	r.pushBack(b)
	r.pushBack(c)

	got := idsInOrder(r)
	want := []uint64{1, 2, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
	if r.count != 3 {
		t.Fatalf("count = %d, want 3", r.count)
	}
	if r.tail != c {
		t.Fatalf("tail should be the last-pushed connection")
	}
}

func TestRegistryRemoveHead(t *testing.T) {
	r := &registry{}
	a, b, c := newConnection(1, 1), newConnection(2, 2), newConnection(3, 3)
	r.pushBack(a)
	r.pushBack(b)
	r.pushBack(c)

	r.remove(a)
	got := idsInOrder(r)
	want := []uint64{2, 3}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("order after removing head = %v, want %v", got, want)
	}
	if r.head != b {
		t.Fatalf("head should now be b")
	}
}

func TestRegistryRemoveTail(t *testing.T) {
	r := &registry{}
	a, b, c := newConnection(1, 1), newConnection(2, 2), newConnection(3, 3)
	r.pushBack(a)
	r.pushBack(b)
	r.pushBack(c)

	r.remove(c)
	if r.tail != b {
		t.Fatalf("tail should now be b")
	}
	if b.next != nil {
		t.Fatalf("b.next should be nil after removing the tail")
	}
}

func TestRegistryRemoveMiddleReconnectsNeighbors(t *testing.T) {
	r := &registry{}
	a, b, c := newConnection(1, 1), newConnection(2, 2), newConnection(3, 3)
	r.pushBack(a)
	r.pushBack(b)
	r.pushBack(c)

	r.remove(b)
	if a.next != c || c.prev != a {
		t.Fatalf("neighbors not reconnected after removing the middle node")
	}
	if r.count != 2 {
		t.Fatalf("count = %d, want 2", r.count)
	}
}

func TestRegistryRemoveOnlyNodeEmptiesList(t *testing.T) {
	r := &registry{}
	a := newConnection(1, 1)
	r.pushBack(a)
	r.remove(a)
	if r.head != nil || r.tail != nil || r.count != 0 {
		t.Fatalf("registry should be empty after removing its only node")
	}
}
