package graph

import "github.com/roach88/nodeplay/internal/ir"

// Optional hooks a Behavior may implement.

type StartHook interface {
	OnStart()
}

type StopHook interface {
	OnStop()
}

// ActivatedHook runs when a queued entry activation executes.
type ActivatedHook interface {
	OnActivated(link string)
}

type ResetHook interface {
	OnReset()
}

// PropertyChangingHook may replace a value about to be committed by
// returning a non-nil value.
type PropertyChangingHook interface {
	OnPropertyChanging(name string, old, next ir.IRValue) ir.IRValue
}

type PropertyChangedHook interface {
	OnPropertyChanged(name string, old, next ir.IRValue)
}

// InitialPropertyChangingHook may replace an initial value by returning a
// non-nil value.
type InitialPropertyChangingHook interface {
	OnInitialPropertyChanging(name string, old, next ir.IRValue) ir.IRValue
}

type InitialPropertyChangedHook interface {
	OnInitialPropertyChanged(name string, old, next ir.IRValue)
}

// ConnectHook runs on both ends of every connect and disconnect.
type ConnectHook interface {
	OnConnect(connecting bool, name string, typ LinkType, peer *Node, peerName string, peerType LinkType)
}

type NameChangedHook interface {
	OnNameChanged(old, next string)
}

type ImportHook interface {
	OnImported(rec ir.NodeRecord, ids IDMap)
}

type ExportHook interface {
	OnExport(rec *ir.NodeRecord, minimal bool)
}

type DestroyHook interface {
	OnDestroying()
}
