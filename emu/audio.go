package emu

// Sink receives the samples produced by one GenerateBlock call. An engine
// calls exactly one of the two methods, exactly once per block, with the
// requested number of frames. Samples are 32-bit accumulator values;
// stereo samples are interleaved L,R.
//
// The slice is only valid for the duration of the call.
type Sink interface {
	DeliverMono(samples []int32)
	DeliverStereo(samples []int32)
}
