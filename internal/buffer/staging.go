package buffer

// Staging is a growable byte queue with cheap prefix consumption. Consumed bytes aren't
// moved immediately: the unread tail is shifted to the front only when the free space
// at the end runs out, so consuming is O(1).
type Staging struct {
	data []byte
	head int
}

func NewStaging(size int) *Staging {
	return &Staging{
		data: make([]byte, 0, size),
	}
}

// Append copies p to the end of the queue.
func (s *Staging) Append(p []byte) {
	s.data = append(s.data, p...)
}

// AppendString copies str to the end of the queue.
func (s *Staging) AppendString(str string) {
	s.data = append(s.data, str...)
}

// Bytes returns the unconsumed bytes. The slice is valid until the next call to Spare,
// Append or Reset.
func (s *Staging) Bytes() []byte {
	return s.data[s.head:]
}

// Len returns the number of unconsumed bytes.
func (s *Staging) Len() int {
	return len(s.data) - s.head
}

// Consume drops the first n unconsumed bytes.
func (s *Staging) Consume(n int) {
	s.head += min(n, s.Len())
	if s.head == len(s.data) {
		s.head = 0
		s.data = s.data[:0]
	}
}

// Spare returns a writable slice of at least n bytes following the unconsumed ones.
// Bytes written into it become visible after Commit.
func (s *Staging) Spare(n int) []byte {
	if cap(s.data)-len(s.data) < n && s.head > 0 {
		// compact first: it's enough most of the time
		length := copy(s.data, s.data[s.head:])
		s.data = s.data[:length]
		s.head = 0
	}

	if cap(s.data)-len(s.data) < n {
		grown := make([]byte, len(s.data), max(2*cap(s.data), len(s.data)+n))
		copy(grown, s.data)
		s.data = grown
	}

	return s.data[len(s.data):cap(s.data)]
}

// Commit makes n bytes written into the slice returned by Spare a part of the queue.
func (s *Staging) Commit(n int) {
	s.data = s.data[:len(s.data)+n]
}

// Reset empties the queue, retaining the allocated memory.
func (s *Staging) Reset() {
	s.head = 0
	s.data = s.data[:0]
}
