// Package engine implements the nodeplay activation engine.
//
// The engine owns a graph's root script and turns "trigger this link"
// requests from node code into ordered, debuggable execution.
//
// ARCHITECTURE:
//
// Single-Writer Work Loop:
// All node logic runs on one goroutine, the one calling Update or Run.
// This ensures:
// - Work queued first finishes its synchronous logic first
// - A scenario replayed on the virtual clock produces the same trace
// - Breakpoints and single steps land on exact queue positions
//
// Work Processing Flow:
// 1. Node code calls ActivateExit or SetProperty; the graph package turns
// that into QueueEntryActivation / QueuePropertyPropagation on the host
// 2. Update(elapsed) advances the virtual clock and fires due timers
// 3. drain() executes queued work in FIFO order, up to the update limit
// 4. Work executed during the drain may queue more work behind it
//
// Goroutines started by node threads (Node.Go) never touch the graph.
// Their continuations come back through Post and run in queue order.
//
// CRITICAL PATTERNS:
//
// Logical Clock:
// Trace events are stamped with a monotonic seq from Clock.Next(), and
// timers count engine time, not wall time. Pausing freezes engine time,
// so a timer paused with 300ms left still has 300ms left on resume.
//
// Termination:
// The per-tick update limit defers runaway flow chains to later ticks,
// and the cycle check drops a property write that reappears on its own
// propagation path, so a bidirectional loop cannot go around forever.
package engine
