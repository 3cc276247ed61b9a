package bind_group_provider

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// BufferWrite is one staged upload into the buffer at Binding of Provider. Writes
// are collected while a frame is encoded and applied together before submission.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}

// Apply uploads the data through queue.
//
// Parameters:
//   - queue: the device queue
//
// Returns:
//   - error: an error if the binding has no buffer or the data overruns it
func (w BufferWrite) Apply(queue *wgpu.Queue) error {
	buf := w.Provider.Buffer(w.Binding)
	if buf == nil {
		return fmt.Errorf("bind_group_provider: %s has no buffer at binding %d", w.Provider.Label(), w.Binding)
	}
	if end := w.Offset + uint64(len(w.Data)); end > buf.GetSize() {
		return fmt.Errorf("bind_group_provider: write of %d bytes at %d overruns %s binding %d (%d bytes)",
			len(w.Data), w.Offset, w.Provider.Label(), w.Binding, buf.GetSize())
	}
	queue.WriteBuffer(buf, w.Offset, w.Data)
	return nil
}
