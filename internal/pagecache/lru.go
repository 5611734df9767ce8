package pagecache

// recencyNode is an element of the recency list.
type recencyNode struct {
	pageID  uint32
	lastUse uint64
	prev    *recencyNode
	next    *recencyNode
}

// recencyList is a minimal doubly linked list ordering cached page IDs from
// most recently used (front) to least recently used (back). Each node also
// carries the tick of its last use, so eviction can break ties between
// entries last touched within the same tick by lowest page ID.
type recencyList struct {
	front *recencyNode
	back  *recencyNode
}

// newRecencyList returns a pointer to a new empty [recencyList].
func newRecencyList() *recencyList {
	return &recencyList{}
}

// pushFront inserts a new node at the front of the list and returns it.
func (l *recencyList) pushFront(pageID uint32, now uint64) *recencyNode {
	node := &recencyNode{pageID: pageID, lastUse: now, next: l.front}

	if l.front != nil {
		l.front.prev = node
	} else {
		l.back = node
	}
	l.front = node

	return node
}

// moveToFront unchains the node and reinserts it at the front, recording the
// tick of this use.
func (l *recencyList) moveToFront(node *recencyNode, now uint64) {
	node.lastUse = now

	if l.front == node {
		return
	}

	l.unchain(node)

	node.prev = nil
	node.next = l.front
	if l.front != nil {
		l.front.prev = node
	} else {
		l.back = node
	}
	l.front = node
}

// evictBack removes and returns the least-recently-used page ID. Among nodes
// whose last use falls on the same tick as the back node, the lowest page ID
// is chosen.
func (l *recencyList) evictBack() (uint32, bool) {
	if l.back == nil {
		return 0, false
	}

	victim := l.back
	for node := l.back.prev; node != nil && node.lastUse == l.back.lastUse; node = node.prev {
		if node.pageID < victim.pageID {
			victim = node
		}
	}

	l.unchain(victim)

	return victim.pageID, true
}

// unchain removes the node from the list without touching its data.
func (l *recencyList) unchain(node *recencyNode) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		l.front = node.next
	}

	if node.next != nil {
		node.next.prev = node.prev
	} else {
		l.back = node.prev
	}

	node.prev = nil
	node.next = nil
}
