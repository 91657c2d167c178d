package engine

// Class is a process's protocol role.
type Class int

const (
	ClassIdle Class = iota
	ClassProducer
	ClassConsumer
)

func (c Class) String() string {
	switch c {
	case ClassProducer:
		return "P"
	case ClassConsumer:
		return "C"
	default:
		return "I"
	}
}

// Role describes one rank's place in the process group: its class, which
// resource it consumes/produces, and the flat peer-rank lists it addresses
// broadcasts to. Peer lists never reference the rank itself.
type Role struct {
	Rank      int
	Class     Class
	Consumes  Resource // the resource this rank requests for itself
	Produces  Resource // the resource this rank hands to the other class
	SameClass []int    // peers competing for the same resource, excluding self
	OtherClass []int   // peers of the other active class, excluding self
}

// Roles computes the PRODUCER/CONSUMER/IDLE split for a process group of the
// given size, given the configured producer and consumer caps. Ranks
// [0, Wp) are producers, [Wp, Wp+Wc) are consumers, the remainder idle,
// where Wp = min(producers, size) and Wc = min(size-Wp, consumers).
func Roles(size, producers, consumers int) []Role {
	wp := producers
	if wp > size {
		wp = size
	}
	if wp < 0 {
		wp = 0
	}
	wc := consumers
	if remaining := size - wp; wc > remaining {
		wc = remaining
	}
	if wc < 0 {
		wc = 0
	}

	var producerRanks, consumerRanks []int
	for r := 0; r < wp; r++ {
		producerRanks = append(producerRanks, r)
	}
	for r := wp; r < wp+wc; r++ {
		consumerRanks = append(consumerRanks, r)
	}

	roles := make([]Role, size)
	for r := 0; r < size; r++ {
		switch {
		case r < wp:
			roles[r] = Role{
				Rank:       r,
				Class:      ClassProducer,
				Consumes:   ResourceSlot,
				Produces:   ResourceArtifact,
				SameClass:  without(producerRanks, r),
				OtherClass: without(consumerRanks, r),
			}
		case r < wp+wc:
			roles[r] = Role{
				Rank:       r,
				Class:      ClassConsumer,
				Consumes:   ResourceArtifact,
				Produces:   ResourceSlot,
				SameClass:  without(consumerRanks, r),
				OtherClass: without(producerRanks, r),
			}
		default:
			roles[r] = Role{Rank: r, Class: ClassIdle}
		}
	}
	return roles
}

func without(ranks []int, self int) []int {
	out := make([]int, 0, len(ranks))
	for _, r := range ranks {
		if r != self {
			out = append(out, r)
		}
	}
	return out
}
