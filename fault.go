package gcsmock

// Op identifies one of the mockable operations of an Object. Each Object
// keeps an independent FIFO queue of pending synthetic errors per Op.
type Op string

// The mockable operations. Stream construction (NewWriter, NewReader) is
// deliberately not mockable; see the package documentation.
const (
	OpExists      Op = "exists"
	OpDelete      Op = "delete"
	OpDownload    Op = "download"
	OpSave        Op = "save"
	OpSignedURL   Op = "getSignedUrl"
	OpSetMetadata Op = "setMetadata"
	OpGetMetadata Op = "getMetadata"
)

// FailNext enqueues err on op's fault queue. The next call to op pops and
// returns exactly this error, verbatim, before touching any state; the call
// after that proceeds normally. Calling FailNext N times queues N failures
// (FIFO). The queue is consulted regardless of the object's present/absent
// state and independently of every other operation's queue.
func (o *Object) FailNext(op Op, err error) {
	s := o.storage
	s.mu.Lock()
	defer s.mu.Unlock()

	o.faults[op] = append(o.faults[op], err)
}

// ResetFaults discards every pending fault on every operation of this object.
func (o *Object) ResetFaults() {
	s := o.storage
	s.mu.Lock()
	defer s.mu.Unlock()

	o.faults = make(map[Op][]error)
}

// popFaultLocked pops and returns the head of op's fault queue, or nil if
// the queue is empty. The entry is consumed even though the operation fails.
// The caller must hold the storage lock.
func (o *Object) popFaultLocked(op Op) error {
	queue := o.faults[op]
	if len(queue) == 0 {
		return nil
	}
	err := queue[0]
	o.faults[op] = queue[1:]

	recordFault(string(op))
	recordOp(string(op), statusError)
	return err
}
