// Package engine is the amplitude-buffer compute core of the simulator.
//
// An n-qubit state is a buffer of 2^n cells laid out on a 2D grid. Every
// operation returns a *Kernel, a description of a new buffer in which each
// cell is a pure function of its logical index and of existing buffers.
// Engine.Render materializes a kernel onto any grid of the right size,
// computing cells in parallel; inputs are never written, so a pass has no
// read-after-write hazards and needs no synchronization beyond its end.
//
// Kernels:
//
//	ClassicalState    basis state |i>
//	ControlMask       1 where (i & mask) == value
//	QubitOperation    2x2 matrix on one qubit, gated by a mask buffer
//	Swap              exchange two qubits, gated by a mask buffer
//	ControlSelect     gather the sub-state matching a control spec
//	LinearOverlay     splice a buffer into a row block of another
//	SquaredMagnitude  amplitudes to probabilities
//
// Engine.AllQubitDensities chains kernels into a tree reduction producing the
// reduced density matrix of every qubit.
//
// Passes across kernels are strictly sequential: gates do not commute, so
// the caller renders them in circuit order and releases each superseded
// buffer back to the pool.
package engine
