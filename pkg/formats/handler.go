package formats

import "go.uber.org/zap"

// Handler receives decoded records in file order, one call per record.
type Handler interface {
	OnSurface(m *Material)
	OnMesh(m *Mesh)
	OnSkeleton(s *Skeleton)
	OnSkeletonWeights()
	OnVerticesMaterial(b *SubmeshBinding)
}

// NopHandler implements Handler by logging each call at debug level.
// Embed it to implement only the callbacks you need.
type NopHandler struct {
	Log *zap.Logger
}

func (h NopHandler) logger() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}

func (h NopHandler) OnSurface(m *Material) {
	h.logger().Debug("callback not implemented", zap.String("callback", "OnSurface"), zap.String("material", m.Name))
}

func (h NopHandler) OnMesh(*Mesh) {
	h.logger().Debug("callback not implemented", zap.String("callback", "OnMesh"))
}

func (h NopHandler) OnSkeleton(*Skeleton) {
	h.logger().Debug("callback not implemented", zap.String("callback", "OnSkeleton"))
}

func (h NopHandler) OnSkeletonWeights() {
	h.logger().Debug("callback not implemented", zap.String("callback", "OnSkeletonWeights"))
}

func (h NopHandler) OnVerticesMaterial(*SubmeshBinding) {
	h.logger().Debug("callback not implemented", zap.String("callback", "OnVerticesMaterial"))
}

// Dispatch delivers one event to the matching callback.
func Dispatch(h Handler, ev Event) {
	switch ev.Kind {
	case EventSurface:
		h.OnSurface(ev.Material)
	case EventMesh:
		h.OnMesh(ev.Mesh)
	case EventSkeleton:
		h.OnSkeleton(ev.Skeleton)
	case EventSkeletonWeights:
		h.OnSkeletonWeights()
	case EventSubmeshBinding:
		h.OnVerticesMaterial(ev.Submeshes)
	}
}
