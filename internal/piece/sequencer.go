package piece

const (
	bagSize     = 7
	initialBags = 3
	lookahead   = 5
)

// prng is a 32-bit avalanche-mixing generator. Both clients replay the same
// seed to predict the preview piece, so draws must be reproducible per seed;
// beyond that no statistical guarantees are needed.
type prng struct {
	state uint32
}

// draw returns the next value in [0, 1).
func (r *prng) draw() float64 {
	r.state += 0x6D2B79F5
	t := r.state
	t = (t ^ t>>15) * (t | 1)
	t = (t + (t^t>>7)*(t|61)) ^ t
	return float64(t^t>>14) / (1 << 32)
}

// Sequencer deals an infinite, deterministic sequence of piece kinds in
// shuffled 7-bags. The queue is append-only; cursor marks the next undealt
// piece and never gets within lookahead of the end.
type Sequencer struct {
	rng    prng
	queue  []Kind
	cursor int
}

// NewSequencer seeds the generator and pre-deals three bags.
func NewSequencer(seed uint32) *Sequencer {
	s := &Sequencer{
		rng:   prng{state: seed},
		queue: make([]Kind, 0, initialBags*bagSize),
	}
	for range initialBags {
		s.refill()
	}
	return s
}

// refill appends one freshly shuffled bag. Fisher-Yates over the 7 kinds,
// exactly 6 draws.
func (s *Sequencer) refill() {
	bag := Kinds
	for i := len(bag) - 1; i > 0; i-- {
		j := int(s.rng.draw() * float64(i+1))
		bag[i], bag[j] = bag[j], bag[i]
	}
	s.queue = append(s.queue, bag[:]...)
}

// Next deals the piece at the cursor. A bag is appended first whenever the
// read would leave fewer than lookahead undealt pieces behind it.
func (s *Sequencer) Next() Kind {
	if s.cursor >= len(s.queue)-lookahead {
		s.refill()
	}
	k := s.queue[s.cursor]
	s.cursor++
	return k
}

// Peek returns the next undealt piece without advancing, used for the
// preview shown alongside the piece just dealt.
func (s *Sequencer) Peek() Kind {
	return s.queue[s.cursor]
}

// Undealt reports how many pieces remain buffered ahead of the cursor.
func (s *Sequencer) Undealt() int {
	return len(s.queue) - s.cursor
}
