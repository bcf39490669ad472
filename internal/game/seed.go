package game

// Independent random streams of one turn.
const (
	streamDecisions uint64 = iota + 1
	streamWorld
)

// turnSeed derives the seed of one stream of one turn from the match
// seed. A turn that is played again after an aborted attempt gets the
// same numbers, which keeps resumed games identical to uninterrupted ones.
func turnSeed(seed int64, turn int, stream uint64) int64 {
	x := uint64(seed) ^ (uint64(turn)+1)*0x9e3779b97f4a7c15 ^ stream*0xbf58476d1ce4e5b9
	// splitmix64 finalizer
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return int64(x >> 1)
}
