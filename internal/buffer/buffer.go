package buffer

// Buffer is an arena of byte segments. The parser copies every line of the message head
// into it, so header names and values stay valid after the network buffer they arrived
// in is reused. Segments are appended streamingly: a line split across reads grows the
// current segment until Finish seals it.
type Buffer struct {
	memory  []byte
	begin   int
	maxSize int
}

func New(initialSize, maxSize int) *Buffer {
	return &Buffer{
		memory:  make([]byte, 0, min(initialSize, maxSize)),
		maxSize: maxSize,
	}
}

// Append writes data into the current segment. If the new total size exceeds the limit,
// nothing is written and false is returned.
func (b *Buffer) Append(elements []byte) (ok bool) {
	if len(b.memory)+len(elements) > b.maxSize {
		return false
	}

	b.memory = append(b.memory, elements...)
	return true
}

// AppendByte writes a single byte, checking whether it won't exceed the limit.
func (b *Buffer) AppendByte(c byte) (ok bool) {
	if len(b.memory)+1 > b.maxSize {
		return false
	}

	b.memory = append(b.memory, c)
	return true
}

// SegmentLength returns the number of bytes in the current segment.
func (b *Buffer) SegmentLength() int {
	return len(b.memory) - b.begin
}

// Len returns the number of bytes in all the segments together.
func (b *Buffer) Len() int {
	return len(b.memory)
}

// Trunc cuts the last n bytes of the current segment. Previous segments stay intact.
func (b *Buffer) Trunc(n int) {
	b.memory = b.memory[:len(b.memory)-min(n, b.SegmentLength())]
}

// Discard drops the current segment.
func (b *Buffer) Discard() {
	b.memory = b.memory[:b.begin]
}

// Preview returns the current segment without sealing it.
func (b *Buffer) Preview() []byte {
	return b.memory[b.begin:]
}

// Finish seals the current segment and returns it. Sealed segments are never written
// again until Clear.
func (b *Buffer) Finish() []byte {
	segment := b.memory[b.begin:len(b.memory):len(b.memory)]
	b.begin = len(b.memory)

	return segment
}

// Clear resets the buffer, so previously returned segments may be overwritten.
func (b *Buffer) Clear() {
	b.begin = 0
	b.memory = b.memory[:0]
}
