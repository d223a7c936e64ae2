package ir

// TraceKind names what a TraceEvent records.
type TraceKind string

const (
	TraceStart    TraceKind = "start"
	TraceStop     TraceKind = "stop"
	TracePause    TraceKind = "pause"
	TraceResume   TraceKind = "resume"
	TraceEntry    TraceKind = "entry"
	TraceExit     TraceKind = "exit"
	TraceProperty TraceKind = "property"
	TraceBreak    TraceKind = "break"
	TraceSkip     TraceKind = "skip"
	TraceCycle    TraceKind = "cycle"
	TraceQuota    TraceKind = "quota"
)

// TraceEvent is one observable step of a run. Seq is strictly increasing
// within a run; Tick is the engine tick the step happened in.
type TraceEvent struct {
	RunID     string    `json:"run_id" yaml:"run_id"`
	Seq       int64     `json:"seq" yaml:"seq"`
	Tick      int64     `json:"tick" yaml:"tick"`
	Kind      TraceKind `json:"kind" yaml:"kind"`
	NodeID    int64     `json:"node_id,omitempty" yaml:"node_id,omitempty"`
	ClassName string    `json:"class,omitempty" yaml:"class,omitempty"`
	NodeName  string    `json:"node,omitempty" yaml:"node,omitempty"`
	Link      string    `json:"link,omitempty" yaml:"link,omitempty"`
	FromID    int64     `json:"from_id,omitempty" yaml:"from_id,omitempty"`
	FromLink  string    `json:"from_link,omitempty" yaml:"from_link,omitempty"`
	Value     *Literal  `json:"value,omitempty" yaml:"value,omitempty"`
	Upstream  bool      `json:"upstream,omitempty" yaml:"upstream,omitempty"`
}
